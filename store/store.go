package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacentio/folio/column"
)

// Store runs the document protocol over a Session. It holds no per-document
// state and is safe for concurrent use.
type Store struct {
	session  Session
	config   Config
	logger   zerolog.Logger
	now      func() time.Time
	registry *Registry
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for statement tracing and cascade warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRegistry attaches the table registry used by cascades.
func WithRegistry(r *Registry) Option {
	return func(s *Store) { s.registry = r }
}

// New creates a new Store instance.
func New(session Session, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		session: session,
		config:  config,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Config returns the validated configuration.
func (s *Store) Config() Config { return s.config }

// Session returns the underlying session.
func (s *Store) Session() Session { return s.session }

// Registry returns the table registry.
func (s *Store) Registry() *Registry { return s.registry }

// Logger returns the store's logger.
func (s *Store) Logger() *zerolog.Logger { return &s.logger }

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// Close closes the session.
func (s *Store) Close() error { return s.session.Close() }

// Query runs a SELECT under the read timeout.
func (s *Store) Query(ctx context.Context, stmt *Statement) ([]Row, error) {
	if stmt.Timeout == 0 {
		stmt.Within(s.config.ReadTimeout)
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.ReadTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.session.Query(ctx, stmt)
	s.trace(stmt, start, true, len(rows), err)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", stmt.Op, stmt.Table.Name, classify(err))
	}
	return rows, nil
}

// Exec runs a write under the write timeout.
func (s *Store) Exec(ctx context.Context, stmt *Statement) (bool, error) {
	if stmt.Timeout == 0 {
		stmt.Within(s.config.WriteTimeout)
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	applied, err := s.session.Exec(ctx, stmt)
	s.trace(stmt, start, applied, 0, err)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", stmt.Op, stmt.Table.Name, classify(err))
	}
	return applied, nil
}

// Batch applies stmts as one logged batch under the write timeout.
func (s *Store) Batch(ctx context.Context, stmts []*Statement) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := s.session.Batch(ctx, stmts)
	if ev := s.logger.Debug(); ev.Enabled() {
		q, _ := BatchCQL(stmts, s.config.WriteTimeout)
		ev.Str("cql", q).Dur("took", time.Since(start)).Err(err).Msg("batch")
	}
	if err != nil {
		return fmt.Errorf("batch: %w", classify(err))
	}
	return nil
}

func (s *Store) trace(stmt *Statement, start time.Time, applied bool, rows int, err error) {
	ev := s.logger.Debug()
	if !ev.Enabled() {
		return
	}
	q, _ := stmt.CQL()
	ev = ev.Str("table", stmt.Table.Name).
		Stringer("op", stmt.Op).
		Str("cql", q).
		Dur("took", time.Since(start))
	if stmt.Op == OpSelect {
		ev = ev.Int("rows", rows)
	} else if stmt.Conditional() {
		ev = ev.Bool("applied", applied)
	}
	ev.Err(err).Msg("statement")
}

// read fetches one row's columns without touching any entity.
func (s *Store) read(ctx context.Context, t *Table, key column.Columns, fields []string) (column.Columns, error) {
	preds, err := KeyPredicates(t, key)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, Select(t, fields...).Match(preds...).Take(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Table: t.Name, Key: key}
	}
	cols := column.Columns{}
	if err := cols.Fill(rows[0], fields); err != nil {
		return nil, err
	}
	return cols, nil
}

// Get loads fields of the row keyed by e into e.
func (s *Store) Get(ctx context.Context, e Entity, fields []string) error {
	if len(fields) == 0 {
		fields = e.Fields()
	}
	cols, err := s.read(ctx, e.Table(), e.Key(), fields)
	if err != nil {
		return err
	}
	if err := e.FillColumns(cols); err != nil {
		return fmt.Errorf("%s: %w", e.Table().Name, err)
	}
	e.Select(fields)
	return nil
}

// Insert writes every persisted field of e if no row with its key exists.
func (s *Store) Insert(ctx context.Context, e Entity) error {
	cols, err := e.ToColumns()
	if err != nil {
		return fmt.Errorf("%s: %w", e.Table().Name, err)
	}
	t := e.Table()
	applied, err := s.Exec(ctx, InsertInto(t, cols, e.Fields()).MustNotExist())
	if err != nil {
		return err
	}
	if !applied {
		return &ConflictError{Table: t.Name, Reason: "row already exists"}
	}
	e.Select(e.Fields())
	return nil
}

// UpdateIf applies set to e's row when every condition holds.
func (s *Store) UpdateIf(ctx context.Context, e Entity, set []Assignment, conds ...Predicate) error {
	t := e.Table()
	preds, err := KeyPredicates(t, e.Key())
	if err != nil {
		return err
	}
	stmt := Update(t).Match(preds...).When(conds...)
	for _, as := range set {
		if as.Append {
			stmt.Append(as.Column, as.Value)
		} else {
			stmt.Assign(as.Column, as.Value)
		}
	}
	if len(conds) == 0 {
		stmt.MustExist()
	}
	applied, err := s.Exec(ctx, stmt)
	if err != nil {
		return err
	}
	if !applied {
		if len(conds) == 0 {
			return &ConflictError{Table: t.Name, Reason: "row does not exist"}
		}
		c := conds[0]
		return &ConflictError{Table: t.Name, Column: c.Column, Expected: c.Value, Reason: "changed concurrently"}
	}
	return nil
}

// UpdateIfExists applies set to e's row only if the row exists.
func (s *Store) UpdateIfExists(ctx context.Context, e Entity, set []Assignment) error {
	return s.UpdateIf(ctx, e, set)
}

// ErrUnchanged is returned by a Guard check to skip the write without error.
var ErrUnchanged = errors.New("folio: nothing to change")

// Guard describes one token-guarded write.
type Guard struct {
	// Token is the concurrency token column.
	Token string

	// Expected is the token the caller last observed.
	Expected column.Value

	// Next is the token written on success.
	Next column.Value

	// Fetch lists extra columns Check needs from the current row.
	Fetch []string

	// Check inspects the current row after the token matched.
	Check func(current column.Columns) error

	// Set holds the column changes; the token assignment is added.
	Set []Assignment
}

// Guarded re-reads the token, compares it with g.Expected, runs g.Check and
// then issues one UPDATE conditioned on the token. It reports false when the
// check returned ErrUnchanged and nothing was written.
func (s *Store) Guarded(ctx context.Context, e Entity, g Guard) (bool, error) {
	t := e.Table()
	fields := append([]string{g.Token}, g.Fetch...)
	cur, err := s.read(ctx, t, e.Key(), fields)
	if err != nil {
		return false, err
	}
	if got := cur[g.Token]; !column.Equal(got, g.Expected) {
		return false, &ConflictError{Table: t.Name, Column: g.Token, Expected: g.Expected, Got: got}
	}
	if g.Check != nil {
		if err := g.Check(cur); err != nil {
			if errors.Is(err, ErrUnchanged) {
				return false, nil
			}
			return false, err
		}
	}
	set := make([]Assignment, 0, len(g.Set)+1)
	set = append(set, g.Set...)
	set = append(set, Assignment{Column: g.Token, Value: g.Next})
	if err := s.UpdateIf(ctx, e, set, Eq(g.Token, g.Expected)); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes e's row unconditionally.
func (s *Store) Remove(ctx context.Context, e Entity) error {
	t := e.Table()
	preds, err := KeyPredicates(t, e.Key())
	if err != nil {
		return err
	}
	_, err = s.Exec(ctx, DeleteFrom(t).Match(preds...))
	return err
}

// Archive moves e's full row into shadow and deletes it from the live table
// in one logged batch. e must hold every persisted field.
func (s *Store) Archive(ctx context.Context, e Entity, shadow *Table) error {
	t := e.Table()
	cols, err := e.ToColumns()
	if err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	preds, err := KeyPredicates(t, e.Key())
	if err != nil {
		return err
	}
	return s.Batch(ctx, []*Statement{
		InsertInto(shadow, cols, e.Fields()),
		DeleteFrom(t).Match(preds...),
	})
}

// DeleteChildren deletes every child row of rel under parentID. Each child
// is deleted independently; failures are logged and skipped. Only a failure
// to list the children is returned.
func (s *Store) DeleteChildren(ctx context.Context, rel Relationship, parentID column.Value) (int, error) {
	keyCols := rel.Child.Key()
	rows, err := s.Query(ctx, Select(rel.Child, keyCols...).Match(Eq(rel.ParentKey, parentID)))
	if err != nil {
		return 0, fmt.Errorf("list children: %w", err)
	}
	deleted := 0
	for _, row := range rows {
		key := column.Columns{}
		if err := key.Fill(row, keyCols); err != nil {
			s.logger.Warn().Str("table", rel.Child.Name).Err(err).Msg("skipping malformed child row")
			continue
		}
		preds, err := KeyPredicates(rel.Child, key)
		if err != nil {
			s.logger.Warn().Str("table", rel.Child.Name).Err(err).Msg("skipping child without key")
			continue
		}
		if _, err := s.Exec(ctx, DeleteFrom(rel.Child).Match(preds...)); err != nil {
			s.logger.Warn().
				Str("table", rel.Child.Name).
				Str("key", formatKey(key)).
				Err(err).
				Msg("failed to delete child")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Count returns the number of rows stmt selects.
func (s *Store) Count(ctx context.Context, stmt *Statement) (int, error) {
	rows, err := s.Query(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Load runs stmt and fills one entity per row. The statement's projection is
// recorded on every entity.
func Load[E Entity](ctx context.Context, s *Store, stmt *Statement, newEntity func() E) ([]E, error) {
	rows, err := s.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(rows))
	for _, row := range rows {
		cols := column.Columns{}
		if err := cols.Fill(row, stmt.Columns); err != nil {
			return nil, err
		}
		e := newEntity()
		if err := e.FillColumns(cols); err != nil {
			return nil, fmt.Errorf("%s: %w", stmt.Table.Name, err)
		}
		e.Select(stmt.Columns)
		out = append(out, e)
	}
	return out, nil
}
