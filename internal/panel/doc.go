// Package panel serves the admin console as embedded web assets.
//
// The console (index.html, app.js, app.css) and the login page are embedded
// into the binary with go:embed. Handler serves the console with SPA fallback
// routing; LoginHandler serves only the login page, which carries its own
// styles and script so it works before a session exists.
//
// A directory on disk can replace the embedded assets during development.
package panel
