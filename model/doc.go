// Package model holds the publishing entities and their operations.
//
// Every entity implements store.Entity by hand and follows the same
// protocol: reads resolve a projection first, inserts are conditioned on the
// row being absent, and caller updates go through a closed enumeration of
// updatable fields plus a compare-and-set on the entity's concurrency token.
//
// # Tokens
//
// Most entities use updated_at (milliseconds) as the token. Message uses its
// version counter; Content status writes are conditioned on the status
// itself; collection child links have no token and are written IF EXISTS.
//
// # Deletes
//
// Deletes are idempotent: deleting a row that cannot be read reports false
// with a nil error. Publications and drafts are archived into their
// deleted_* twin in one batch. Collections must be withdrawn (status -1)
// first and then cascade to their child links and info message, best
// effort.
package model
