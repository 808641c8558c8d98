package siteconfig

import "context"

// Backend persists the raw document bytes.
//
// Implementations must make Write atomic from a reader's point of view: a
// concurrent Read observes either the previous bytes or the new ones, never a
// mixture. Read returns ErrNoDocument when nothing has been stored yet.
type Backend interface {
	// Read returns the stored document bytes.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the stored document bytes.
	Write(ctx context.Context, data []byte) error

	// Name identifies the backend in logs and metrics.
	Name() string
}
