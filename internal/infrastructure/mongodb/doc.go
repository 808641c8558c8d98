// Package mongodb stores the site configuration document in MongoDB.
//
// The document is kept as {_id, body, updatedAt} in one collection, with body
// holding the JSON text. The default database name, shodaievv, matches the
// deployment this service replaces.
package mongodb
