// Package firestore stores the site configuration document in Cloud Firestore.
//
// The document lives at <collection>/<documentID> as a single record whose body
// field holds the JSON text. Keeping the JSON opaque means the same bytes
// round-trip through every backend and normalisation never depends on
// Firestore's type mapping.
package firestore
