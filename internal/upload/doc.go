// Package upload stores admin image uploads and reports one result per file.
//
// Uploader is the storage seam; Local writes into a directory served by the
// HTTP layer. Batch runs several uploads in parallel without letting one
// failure cancel its siblings.
package upload
