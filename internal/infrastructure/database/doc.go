// Package database provides SQLite connectivity for Coldwatch Core.
//
// This package manages:
//   - Database connection with WAL mode so report readers don't block the poller
//   - Embedded schema migrations (schema_migrations table)
//   - Transaction helper (WithTx) used by the ingestion pipeline and alert store
//
// All timestamps are stored as fixed-width RFC3339 text in UTC with
// nanosecond precision (TimeLayout). Foreign keys are enforced
// on every connection.
//
// Usage:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
