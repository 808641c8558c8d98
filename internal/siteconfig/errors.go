package siteconfig

import "errors"

// Domain errors for the siteconfig package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, siteconfig.ErrStorageUnavailable) {
//	    // show "save failed, retry"
//	}
var (
	// ErrNoDocument is returned by a Backend when nothing has been persisted yet.
	// Store treats it as the seed path, never as a failure.
	ErrNoDocument = errors.New("siteconfig: no document stored")

	// ErrStorageUnavailable wraps any backend read/write failure, including timeouts.
	ErrStorageUnavailable = errors.New("siteconfig: storage unavailable")

	// ErrCorruptDocument is returned when the stored bytes are not a JSON object.
	ErrCorruptDocument = errors.New("siteconfig: stored document is not a JSON object")

	// ErrInvalidPatch is returned when a request payload does not match its slice.
	ErrInvalidPatch = errors.New("siteconfig: invalid patch")

	// ErrRevisionMismatch is returned by SaveIfMatch when the document changed underneath.
	ErrRevisionMismatch = errors.New("siteconfig: revision mismatch")

	// ErrTopicNotFound is returned when a topic id does not exist.
	ErrTopicNotFound = errors.New("siteconfig: topic not found")

	// ErrSectionNotFound is returned when a service-detail section id does not exist.
	ErrSectionNotFound = errors.New("siteconfig: section not found")

	// ErrIndexOutOfRange is returned by index-based reorder operations.
	ErrIndexOutOfRange = errors.New("siteconfig: index out of range")
)
