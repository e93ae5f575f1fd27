package model

import (
	"context"
	"errors"

	"github.com/rs/xid"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/internal/xday"
	"github.com/jacentio/folio/store"
)

func idValue(id xid.ID) column.Value { return column.Blob(id.Bytes()) }

// firstErr returns the first non-nil error of a FillColumns decode list.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// inTable addresses an entity's row in a table with the same layout, such
// as its deleted_* twin.
type inTable struct {
	store.Entity
	table *store.Table
}

func (e inTable) Table() *store.Table { return e.table }

// fetch resolves fields through p and loads them into e.
func fetch(ctx context.Context, s *store.Store, e store.Entity, p store.Projection, fields []string) error {
	cols, err := p.Resolve(fields)
	if err != nil {
		return err
	}
	return s.Get(ctx, e, cols)
}

// present loads fields into e and reports false when the row is gone.
func present(ctx context.Context, s *store.Store, e store.Entity, fields []string) (bool, error) {
	err := s.Get(ctx, e, fields)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// guardUpdatedAt runs g with updated_at as the token and returns the token
// written on success.
func guardUpdatedAt(ctx context.Context, s *store.Store, e store.Entity, expected int64, g store.Guard) (int64, bool, error) {
	next := store.NextMillis(expected, s.Now())
	g.Token = "updated_at"
	g.Expected = column.BigInt(expected)
	g.Next = column.BigInt(next)
	changed, err := s.Guarded(ctx, e, g)
	return next, changed, err
}

// transition checks a status move against the current row.
func transition(table string, tr store.Transitions, to int8) func(column.Columns) error {
	return func(cur column.Columns) error {
		from, err := column.GetAs(cur, "status", column.Int8)
		if err != nil {
			return err
		}
		changed, err := tr.Check(table, from, to)
		if err != nil {
			return err
		}
		if !changed {
			return store.ErrUnchanged
		}
		return nil
	}
}

// editable rejects content edits once the row left the draft status.
func editable(table string) func(column.Columns) error {
	return func(cur column.Columns) error {
		status, err := column.GetAs(cur, "status", column.Int8)
		if err != nil {
			return err
		}
		if status != StatusDraft {
			return &store.ConflictError{
				Table:    table,
				Column:   "status",
				Expected: column.TinyInt(StatusDraft),
				Got:      column.TinyInt(status),
				Reason:   "only drafts can be edited",
			}
		}
		return nil
	}
}

// listBefore pages one partition clustered by a descending xid column. The
// token is the last id of the previous page.
func listBefore[E store.Entity](ctx context.Context, s *store.Store, stmt *store.Statement, col string,
	size int, token *xid.ID, newEntity func() E, id func(E) xid.ID) (store.Page[E], error) {
	size = s.PageSize(size)
	bound := xday.MaxID
	if token != nil {
		bound = *token
	}
	stmt.Match(store.Lt(col, idValue(bound))).Take(size + 1)
	items, err := store.Load(ctx, s, stmt, newEntity)
	if err != nil {
		return store.Page[E]{}, err
	}
	return store.PageOf(items, size, id), nil
}

func isConflict(err error) bool { return errors.Is(err, store.ErrConflict) }
