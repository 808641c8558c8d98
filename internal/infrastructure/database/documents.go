package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// DefaultDocumentID is the row key of the site configuration document.
const DefaultDocumentID = "main"

// DocumentBackend stores the site configuration document as one row of the
// site_documents table. It implements siteconfig.Backend.
//
// Writes are a single UPSERT statement, so concurrent readers see either the
// previous body or the new one.
type DocumentBackend struct {
	db *DB
	id string
}

// NewDocumentBackend returns a backend for the row id. An empty id selects
// DefaultDocumentID. Migrate must have been run on db.
func NewDocumentBackend(db *DB, id string) *DocumentBackend {
	if id == "" {
		id = DefaultDocumentID
	}
	return &DocumentBackend{db: db, id: id}
}

// Read implements siteconfig.Backend.
func (b *DocumentBackend) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := b.db.QueryRowContext(ctx, "SELECT body FROM site_documents WHERE id = ?", b.id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, siteconfig.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("reading site document %s: %w", b.id, err)
	}
	return []byte(body), nil
}

// Write implements siteconfig.Backend.
func (b *DocumentBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO site_documents (id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		b.id, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing site document %s: %w", b.id, err)
	}
	return nil
}

// Name implements siteconfig.Backend.
func (b *DocumentBackend) Name() string { return "sqlite" }
