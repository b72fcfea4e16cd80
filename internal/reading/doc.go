// Package reading stores freezer poll results.
//
// Inserts happen inside a caller-owned transaction (InsertTx) so the
// ingestion pipeline controls when a reading becomes visible. Timestamps are
// stored as UTC text with nanosecond precision, so readings taken within
// the same second keep their order.
package reading
