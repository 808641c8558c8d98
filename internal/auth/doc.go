// Package auth guards the admin surface.
//
// There is a single admin account taken from configuration. Its password is
// either a plain value or an Argon2id PHC hash; both are compared in constant
// time. A successful login yields an HS256 JWT carrying the username and a
// session id. Logging out revokes that session id until the token would have
// expired anyway.
package auth
