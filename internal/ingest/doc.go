// Package ingest turns raw poll samples into persisted, classified readings.
//
// For each Sample the pipeline:
//
//  1. looks the device up (unknown devices are an error)
//  2. resolves the active threshold profile, if a resolver is configured
//  3. classifies the reading
//  4. inserts it in a transaction
//  5. after commit, emits at most one breach event and mirrors the reading
//     to any configured sinks
//
// Step 5 never fails the call. A failed insert rolls back and nothing is
// emitted.
package ingest
