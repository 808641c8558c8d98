package database

import (
	"context"
	"testing"
	"testing/fstest"
)

// withMigrations swaps MigrationsFS for the duration of a test.
func withMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = files, "."
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
}

var testMigrations = fstest.MapFS{
	"20260101_000000_users.up.sql":   {Data: []byte("CREATE TABLE test_users (id TEXT PRIMARY KEY);")},
	"20260101_000000_users.down.sql": {Data: []byte("DROP TABLE test_users;")},
	"20260102_000000_posts.up.sql":   {Data: []byte("CREATE TABLE test_posts (id TEXT PRIMARY KEY);")},
	"README.md":                      {Data: []byte("ignored")},
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	withMigrations(t, testMigrations)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_users") || !tableExists(t, db, "test_posts") {
		t.Fatal("migration tables not created")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2/0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" {
		t.Errorf("first applied = %q", applied[0].Version)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_users.up.sql":   testMigrations["20260101_000000_users.up.sql"],
		"20260101_000000_users.down.sql": testMigrations["20260101_000000_users.down.sql"],
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_users") {
		t.Error("test_users should be dropped")
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestMigrateDownWithoutDownSQL(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260102_000000_posts.up.sql": testMigrations["20260102_000000_posts.up.sql"],
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err == nil {
		t.Error("MigrateDown() expected error for missing down SQL")
	}
}

func TestMigrateFailureRollsBack(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_ok.up.sql":  {Data: []byte("CREATE TABLE ok_table (id TEXT);")},
		"20260102_000000_bad.up.sql": {Data: []byte("CREATE TABLE broken (;")},
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error")
	}
	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1/1", len(applied), len(pending))
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	withMigrations(t, fstest.MapFS{})
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no files error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
		up       bool
		ok       bool
	}{
		{"20260301_120000_site_documents.up.sql", "20260301_120000", "site_documents", true, true},
		{"20260301_120000_site_documents.down.sql", "20260301_120000", "site_documents", false, true},
		{"20260301_120000.up.sql", "20260301_120000", "20260301_120000", true, true},
		{"20260301.up.sql", "", "", false, false},
		{"20260301_120000_x.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.ok || version != tt.version || name != tt.name || up != tt.up {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
					tt.filename, version, name, up, ok, tt.version, tt.name, tt.up, tt.ok)
			}
		})
	}
}
