// Package api implements the HTTP surface of the site: the admin JSON API,
// the embedded admin console, and the public read endpoints.
//
// This package provides:
//   - Section endpoints under /admin/api that read or patch one slice of the
//     site document (hero, contact, gallery, services, topics, service
//     details, theme)
//   - Whole-document GET/PUT with ETag/If-Match revision checks
//   - Image upload, single or batched
//   - Cookie sessions for the admin area (login, logout, gating)
//   - Public /api/site, /sitemap.xml, /uploads, /health and /metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// The session cookie is scoped to /admin, so every admin endpoint lives under
// that path. Admin pages without a session redirect to /admin/login; admin
// API calls get 401 before the store is touched. Public routes never consult
// the gate.
//
// # Change log
//
// Successful admin writes are queued to the audit repository on a buffered
// channel and written by one goroutine, so a slow SQLite write never holds up
// a request.
package api
