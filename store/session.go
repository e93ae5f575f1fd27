package store

//go:generate mockgen -destination=session_mock.go -package=store -source=session.go

import (
	"context"

	"github.com/jacentio/folio/column"
)

// Row is one fetched row, positionally aligned with the statement's
// projection. A nil entry is a null column.
type Row []column.Value

// Session is the thin execute/iterate facade over a backend.
type Session interface {
	// Query runs a SELECT and returns every row.
	Query(ctx context.Context, stmt *Statement) ([]Row, error)

	// Exec runs a write. For conditional statements applied reports whether
	// the condition held; a failed condition is not an error. Unconditional
	// writes always report applied.
	Exec(ctx context.Context, stmt *Statement) (applied bool, err error)

	// Batch applies unconditional writes as one logged batch.
	Batch(ctx context.Context, stmts []*Statement) error

	// Close releases backend resources.
	Close() error
}
