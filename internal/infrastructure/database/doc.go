// Package database provides SQLite connectivity for the ShodaiEV site service.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations embedded from the migrations package
//   - DocumentBackend, the SQLite implementation of siteconfig.Backend
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	store := siteconfig.NewStore(database.NewDocumentBackend(db, ""), siteconfig.Options{})
//
// Migration Strategy:
//
// Migrations are additive-only. Each migration file has both .up.sql and
// .down.sql, named YYYYMMDD_HHMMSS_description.
package database
