// Package memstore is an in-memory store.Session. Conditional writes and
// batches are linearizable, mirroring the single-row lightweight
// transactions of the real store.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memstore: session closed")

type row struct {
	key  []column.Value
	cols column.Columns
}

type table struct {
	def  *store.Table
	rows map[string]*row
}

// Session holds every table in memory.
type Session struct {
	mu     sync.Mutex
	tables map[string]*table
	fault  func(stmt *store.Statement) error
	closed bool
}

// New creates an empty in-memory session.
func New() *Session {
	return &Session{tables: make(map[string]*table)}
}

// SetFault installs a hook consulted before every statement; a non-nil
// error fails that statement. Pass nil to remove it.
func (s *Session) SetFault(f func(stmt *store.Statement) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Len returns the number of rows stored in the named table.
func (s *Session) Len(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[name]; ok {
		return len(t.rows)
	}
	return 0
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) Query(ctx context.Context, stmt *store.Statement) ([]store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if stmt.Op != store.OpSelect {
		return nil, fmt.Errorf("memstore: Query needs a select, got %s", stmt.Op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.precheck(stmt); err != nil {
		return nil, err
	}
	if err := checkRestrictions(stmt); err != nil {
		return nil, err
	}
	for _, c := range stmt.Columns {
		if !stmt.Table.Has(c) {
			return nil, fmt.Errorf("memstore: %s: undefined column %q", stmt.Table.Name, c)
		}
	}

	t := s.table(stmt.Table)
	var out []store.Row
	for _, r := range t.sorted() {
		ok, err := matches(r.cols, stmt.Where)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		projected := make(store.Row, len(stmt.Columns))
		for i, c := range stmt.Columns {
			if v, ok := r.cols[c]; ok {
				projected[i] = column.Clone(v)
			}
		}
		out = append(out, projected)
		if stmt.Limit > 0 && len(out) >= stmt.Limit {
			break
		}
	}
	return out, nil
}

func (s *Session) Exec(ctx context.Context, stmt *store.Statement) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.precheck(stmt); err != nil {
		return false, err
	}
	w, err := s.plan(stmt)
	if err != nil {
		return false, err
	}
	if !w.applies() {
		return false, nil
	}
	w.apply()
	return true, nil
}

// Batch validates every statement before applying any, so a bad statement
// leaves all tables untouched.
func (s *Session) Batch(ctx context.Context, stmts []*store.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writes := make([]*write, 0, len(stmts))
	for _, stmt := range stmts {
		if err := s.precheck(stmt); err != nil {
			return err
		}
		if stmt.Conditional() {
			return fmt.Errorf("memstore: conditional statements are not supported in batches")
		}
		w, err := s.plan(stmt)
		if err != nil {
			return err
		}
		writes = append(writes, w)
	}
	for _, w := range writes {
		w.apply()
	}
	return nil
}

func (s *Session) precheck(stmt *store.Statement) error {
	if s.closed {
		return ErrClosed
	}
	if s.fault != nil {
		return s.fault(stmt)
	}
	return nil
}

func (s *Session) table(def *store.Table) *table {
	t, ok := s.tables[def.Name]
	if !ok {
		t = &table{def: def, rows: make(map[string]*row)}
		s.tables[def.Name] = t
	}
	return t
}

// write is a planned mutation of one row.
type write struct {
	stmt     *store.Statement
	table    *table
	key      []column.Value
	id       string
	existing *row
}

func (s *Session) plan(stmt *store.Statement) (*write, error) {
	t := s.table(stmt.Table)
	w := &write{stmt: stmt, table: t}

	switch stmt.Op {
	case store.OpInsert:
		vals := column.Columns{}
		for i, c := range stmt.Columns {
			if !stmt.Table.Has(c) {
				return nil, fmt.Errorf("memstore: %s: undefined column %q", stmt.Table.Name, c)
			}
			vals[c] = stmt.Values[i]
		}
		key, err := keyOf(stmt.Table, vals)
		if err != nil {
			return nil, err
		}
		w.key = key
	case store.OpUpdate, store.OpDelete:
		vals := column.Columns{}
		for _, p := range stmt.Where {
			if p.Cmp != store.CmpEq {
				return nil, fmt.Errorf("memstore: %s: range predicate on %q in %s", stmt.Table.Name, p.Column, stmt.Op)
			}
			vals[p.Column] = p.Value
		}
		key, err := keyOf(stmt.Table, vals)
		if err != nil {
			return nil, err
		}
		w.key = key
		for _, a := range stmt.Set {
			if !stmt.Table.Has(a.Column) {
				return nil, fmt.Errorf("memstore: %s: undefined column %q", stmt.Table.Name, a.Column)
			}
			if contains(stmt.Table.Key(), a.Column) {
				return nil, fmt.Errorf("memstore: %s: cannot update primary key column %q", stmt.Table.Name, a.Column)
			}
		}
	default:
		return nil, fmt.Errorf("memstore: Exec cannot run %s", stmt.Op)
	}

	w.id = keyString(w.key)
	w.existing = t.rows[w.id]
	return w, nil
}

func (w *write) applies() bool {
	switch {
	case w.stmt.IfNotExists:
		return w.existing == nil
	case w.stmt.IfExists:
		return w.existing != nil
	case len(w.stmt.Conditions) > 0:
		if w.existing == nil {
			return false
		}
		for _, c := range w.stmt.Conditions {
			if !column.Equal(w.existing.cols[c.Column], c.Value) {
				return false
			}
		}
	}
	return true
}

func (w *write) apply() {
	stmt := w.stmt
	if stmt.Op == store.OpDelete {
		delete(w.table.rows, w.id)
		return
	}
	r := w.existing
	if r == nil {
		r = &row{key: w.key, cols: column.Columns{}}
		for i, k := range stmt.Table.Key() {
			r.cols[k] = column.Clone(w.key[i])
		}
		w.table.rows[w.id] = r
	}
	switch stmt.Op {
	case store.OpInsert:
		for i, c := range stmt.Columns {
			setColumn(r.cols, c, column.Clone(stmt.Values[i]))
		}
	case store.OpUpdate:
		for _, a := range stmt.Set {
			v := column.Clone(a.Value)
			if a.Append {
				v = appendValue(r.cols[a.Column], v)
			}
			setColumn(r.cols, a.Column, v)
		}
	}
}

// setColumn stores v, treating empty collections as null.
func setColumn(cols column.Columns, name string, v column.Value) {
	if column.IsEmpty(v) {
		delete(cols, name)
		return
	}
	cols[name] = v
}

func appendValue(cur, add column.Value) column.Value {
	switch a := add.(type) {
	case column.Set:
		out, _ := cur.(column.Set)
		out = append(column.Set(nil), out...)
		for _, e := range a {
			if !memberOf(out, e) {
				out = append(out, e)
			}
		}
		return out
	case column.List:
		out, _ := cur.(column.List)
		return append(append(column.List(nil), out...), a...)
	case column.Map:
		out, _ := cur.(column.Map)
		merged := append(column.Map(nil), out...)
		for _, p := range a {
			replaced := false
			for i := range merged {
				if column.Equal(merged[i].Key, p.Key) {
					merged[i].Value = p.Value
					replaced = true
				}
			}
			if !replaced {
				merged = append(merged, p)
			}
		}
		return merged
	}
	return add
}

func memberOf(set column.Set, v column.Value) bool {
	for _, e := range set {
		if column.Equal(e, v) {
			return true
		}
	}
	return false
}

// checkRestrictions rejects selects the real store would refuse without
// ALLOW FILTERING: a partially restricted partition or a predicate on a
// regular column.
func checkRestrictions(stmt *store.Statement) error {
	if stmt.AllowFiltering {
		return nil
	}
	t := stmt.Table
	restricted := map[string]bool{}
	for _, p := range stmt.Where {
		switch {
		case t.IsPartition(p.Column):
			if p.Cmp != store.CmpEq {
				return fmt.Errorf("memstore: %s: range on partition column %q", t.Name, p.Column)
			}
			restricted[p.Column] = true
		case t.IsClustering(p.Column):
		default:
			return fmt.Errorf("memstore: %s: predicate on %q requires ALLOW FILTERING", t.Name, p.Column)
		}
	}
	if len(restricted) > 0 && len(restricted) != len(t.Partition) {
		return fmt.Errorf("memstore: %s: partition key partially restricted", t.Name)
	}
	if len(restricted) == 0 && len(stmt.Where) > 0 {
		return fmt.Errorf("memstore: %s: clustering predicate without partition key", t.Name)
	}
	return nil
}

func matches(cols column.Columns, preds []store.Predicate) (bool, error) {
	for _, p := range preds {
		v, ok := cols[p.Column]
		if !ok {
			return false, nil
		}
		if p.Cmp == store.CmpEq {
			if !column.Equal(v, p.Value) {
				return false, nil
			}
			continue
		}
		order, err := column.Compare(v, p.Value)
		if err != nil {
			return false, fmt.Errorf("memstore: column %q: %w", p.Column, err)
		}
		if !p.Cmp.Holds(order) {
			return false, nil
		}
	}
	return true, nil
}

func keyOf(t *store.Table, vals column.Columns) ([]column.Value, error) {
	names := t.Key()
	key := make([]column.Value, len(names))
	for i, n := range names {
		v, ok := vals[n]
		if !ok || v == nil {
			return nil, fmt.Errorf("memstore: %s: missing key column %q", t.Name, n)
		}
		key[i] = v
	}
	return key, nil
}

func keyString(key []column.Value) string {
	var b strings.Builder
	for _, v := range key {
		fmt.Fprintf(&b, "%d:%v|", column.KindOf(v), v)
	}
	return b.String()
}

// sorted returns rows ordered by partition key, then clustering key in the
// table's clustering order.
func (t *table) sorted() []*row {
	out := make([]*row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r)
	}
	np := len(t.def.Partition)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		for k := range a {
			c, _ := column.Compare(a[k], b[k])
			if c == 0 {
				continue
			}
			if k >= np && t.def.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
