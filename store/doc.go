// Package store provides a typed document protocol over a wide-column store
// with optimistic concurrency.
//
// Folio is designed for content services that keep every document in a
// single row of a Scylla or Cassandra style table, where the only
// cross-statement atomicity is a logged batch and the only mutual exclusion
// is a single-row lightweight transaction.
//
// # Key Features
//
//   - Field projections with validation and pseudo-field expansion
//   - Insert-if-absent with conflict reporting
//   - Token-guarded updates (re-read, compare, conditioned UPDATE)
//   - Status transition tables
//   - Soft delete into shadow tables via logged batches
//   - Best-effort child cascades
//   - Day-bucketed backward pagination over time-ordered ids
//   - Pluggable sessions: in-memory, gocql, DynamoDB
//
// # Entity Interface
//
// All entities implement [Entity] by hand:
//
//	type Entity interface {
//	    Table() *Table
//	    Fields() []string
//	    Key() column.Columns
//	    ToColumns() (column.Columns, error)
//	    FillColumns(cols column.Columns) error
//	    Select(fields []string)
//	}
//
// Updatable fields are a closed enumeration per entity implementing [Field];
// updates are collected in a [Changes] set, so a field outside the
// allow-list cannot be named at compile time and [ParseField] rejects it at
// run time before any statement is sent.
//
// # Configuration
//
// Use [DefaultConfig] and adjust timeouts and scan bounds:
//
//	cfg := store.DefaultConfig()
//	cfg.ScanDays = 90 // look back up to 90 day buckets per page
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrNotFound] - primary key does not resolve to a row (404)
//   - [ErrConflict] - stale token, existing row, or missing row on a guarded write (409)
//   - [ErrInvalidField] - unknown or non-updatable field (400)
//   - [ErrValidation] - illegal status transition or bad input (400)
//   - [ErrScope] - owning-group mismatch (403)
//   - [ErrTimeout] - store call exceeded its deadline, retryable (503)
package store
