// Package siteconfig owns the single site configuration document that both the
// admin console and the public site read.
//
// It provides:
//   - The strict SiteConfig schema and its JSON field names
//   - Normalize, the one defaulting function every read and write passes through
//   - Tolerant parsing of persisted bytes (wrong-typed fields are dropped, not fatal)
//   - Store, the mutex-guarded read-modify-write layer over a pluggable Backend
//   - Editor helpers: slug assignment, service-detail upsert, gallery ordering
//
// # Persistence
//
// Backends only move opaque bytes. Normalisation never depends on which backend
// is configured, so a document written by the file backend loads identically
// from SQLite, Firestore or MongoDB.
//
// # Thread Safety
//
// Store is safe for concurrent use. Writers are serialised by a mutex, so two
// section saves racing in the same process never lose each other's update.
// The pure helpers (Normalize, Merge, UpsertServiceDetail, ...) never mutate
// their inputs.
package siteconfig
