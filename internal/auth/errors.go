package auth

import "errors"

// Domain-specific errors for the access gate.
var (
	// ErrMissingCredentials is returned when the username or password is empty.
	ErrMissingCredentials = errors.New("auth: username and password are required")

	// ErrInvalidCredentials is returned when the username or password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenInvalid is returned for tokens with a bad signature, bad claims, or past expiry.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrSessionRevoked is returned for a well-formed token whose session was logged out.
	ErrSessionRevoked = errors.New("auth: session revoked")

	// ErrMalformedHash is returned when a stored password hash is not a valid Argon2id PHC string.
	ErrMalformedHash = errors.New("auth: malformed password hash")
)
