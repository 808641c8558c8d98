// Package audit records admin changes to the site config in the audit_logs
// table so an operator can see who changed what, and when.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the admin API.
const (
	ActionSave    = "save"
	ActionUpload  = "upload"
	ActionLogin   = "login"
	ActionLogout  = "logout"
	ActionReload  = "reload"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is a single change log row.
type Entry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Section   string    `json:"section,omitempty"`
	Username  string    `json:"username,omitempty"`
	Revision  string    `json:"revision,omitempty"`
	Fields    []string  `json:"fields,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter controls which entries List returns.
type Filter struct {
	Action  string // optional: save, upload, login, logout, reload
	Section string // optional: hero, contact, theme, topics, ...
	Limit   int    // default 50, max 200
	Offset  int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for change log operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new change log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "aud-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Source == "" {
		entry.Source = "api"
	}

	var fieldsJSON *string
	if len(entry.Fields) > 0 {
		b, err := json.Marshal(entry.Fields)
		if err != nil {
			return fmt.Errorf("marshalling audit fields: %w", err)
		}
		s := string(b)
		fieldsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, section, username, revision, fields, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action,
		nullableString(entry.Section), nullableString(entry.Username), nullableString(entry.Revision),
		fieldsJSON, entry.Source,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL for optional TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Section != "" {
		conditions = append(conditions, "section = ?")
		args = append(args, filter.Section)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := "SELECT id, action, section, username, revision, fields, source, created_at FROM audit_logs " + //nolint:gosec // WHERE built from parameterised conditions, not user input
		where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var section, username, revision, fields sql.NullString
	var createdAt string

	if err := rows.Scan(&e.ID, &e.Action, &section, &username, &revision, &fields, &e.Source, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scanning audit log: %w", err)
	}
	e.Section = section.String
	e.Username = username.String
	e.Revision = revision.String
	if fields.Valid && fields.String != "" {
		var f []string
		if json.Unmarshal([]byte(fields.String), &f) == nil {
			e.Fields = f
		}
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}
