// Package filestore keeps the site configuration document in a JSON file.
//
// This is the default backend and matches how the site was originally deployed:
// one pretty-printed JSON file the owner can open and edit by hand.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a reader never observes a half-written document.
//
// Watcher observes the file for edits made outside the service and tells the
// store to drop its read cache.
package filestore
