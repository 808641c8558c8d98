package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// Config contains the Firestore location of the document.
type Config struct {
	ProjectID       string
	DatabaseID      string
	Collection      string
	DocumentID      string
	CredentialsFile string
}

// record is the stored shape of the document.
type record struct {
	Body      string    `firestore:"body"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// defaultDatabaseID is Firestore's name for a project's default database.
const defaultDatabaseID = "(default)"

// emptyDocument stands in for a record with no body, so the store defaults
// every field instead of failing the read.
const emptyDocument = "{}"

// Backend implements siteconfig.Backend on one Firestore document.
type Backend struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
	now    func() time.Time
}

// Open connects to Firestore and returns a backend for cfg's document.
// Credentials come from CredentialsFile when set, otherwise from the
// environment (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = defaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Backend{
		client: client,
		doc:    client.Collection(cfg.Collection).Doc(cfg.DocumentID),
		now:    time.Now,
	}, nil
}

// Read implements siteconfig.Backend.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	snap, err := b.doc.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, siteconfig.ErrNoDocument
		}
		return nil, fmt.Errorf("getting %s: %w", b.doc.Path, err)
	}

	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", b.doc.Path, err)
	}
	return decodeRecord(rec), nil
}

// Write implements siteconfig.Backend. Set replaces the whole record, which
// Firestore applies atomically.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	if _, err := b.doc.Set(ctx, encodeRecord(data, b.now())); err != nil {
		return fmt.Errorf("setting %s: %w", b.doc.Path, err)
	}
	return nil
}

// Name implements siteconfig.Backend.
func (b *Backend) Name() string { return "firestore" }

// HealthCheck reads the document. A missing document is healthy; it is
// seeded on first load.
func (b *Backend) HealthCheck(ctx context.Context) error {
	if _, err := b.doc.Get(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("firestore health check failed: %w", err)
	}
	return nil
}

// Close releases the client.
func (b *Backend) Close() error {
	return b.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func encodeRecord(data []byte, at time.Time) record {
	return record{Body: string(data), UpdatedAt: at.UTC()}
}

func decodeRecord(rec record) []byte {
	if rec.Body == "" {
		return []byte(emptyDocument)
	}
	return []byte(rec.Body)
}
