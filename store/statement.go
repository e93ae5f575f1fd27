package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/jacentio/folio/column"
)

// Op is the statement verb.
type Op uint8

const (
	OpSelect Op = iota + 1
	OpInsert
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", o)
}

// Cmp is a predicate comparison.
type Cmp uint8

const (
	CmpEq Cmp = iota + 1
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var cmpSymbols = [...]string{CmpEq: "=", CmpLt: "<", CmpLe: "<=", CmpGt: ">", CmpGe: ">="}

func (c Cmp) String() string {
	if int(c) < len(cmpSymbols) && cmpSymbols[c] != "" {
		return cmpSymbols[c]
	}
	return "?"
}

// Holds reports whether a comparison result from column.Compare satisfies c.
func (c Cmp) Holds(order int) bool {
	switch c {
	case CmpEq:
		return order == 0
	case CmpLt:
		return order < 0
	case CmpLe:
		return order <= 0
	case CmpGt:
		return order > 0
	case CmpGe:
		return order >= 0
	}
	return false
}

// Predicate is one `column <cmp> ?` term of a WHERE or IF clause.
type Predicate struct {
	Column string
	Cmp    Cmp
	Value  column.Value
}

func Eq(col string, v column.Value) Predicate { return Predicate{col, CmpEq, v} }
func Lt(col string, v column.Value) Predicate { return Predicate{col, CmpLt, v} }
func Le(col string, v column.Value) Predicate { return Predicate{col, CmpLe, v} }
func Gt(col string, v column.Value) Predicate { return Predicate{col, CmpGt, v} }
func Ge(col string, v column.Value) Predicate { return Predicate{col, CmpGe, v} }

// Assignment is one SET term of an UPDATE. With Append the value is added
// to the existing collection (`col=col+?`).
type Assignment struct {
	Column string
	Value  column.Value
	Append bool
}

// Statement is a structured CQL statement. Backends either render it with
// CQL or translate it to their own request shapes.
type Statement struct {
	Op    Op
	Table *Table

	// Columns is the projection of a SELECT or the column list of an INSERT.
	Columns []string

	// Values holds INSERT values aligned with Columns.
	Values []column.Value

	// Set holds UPDATE assignments.
	Set []Assignment

	Where      []Predicate
	Conditions []Predicate

	IfExists    bool
	IfNotExists bool

	// Limit bounds the rows returned by a SELECT (0 = no limit).
	Limit int

	AllowFiltering bool
	BypassCache    bool

	// Timeout is sent as USING TIMEOUT; zero omits the clause.
	Timeout time.Duration
}

// Select starts a SELECT of cols from t.
func Select(t *Table, cols ...string) *Statement {
	return &Statement{Op: OpSelect, Table: t, Columns: cols}
}

// InsertInto starts an INSERT of the named columns of cols. Names absent
// from cols are skipped.
func InsertInto(t *Table, cols column.Columns, names []string) *Statement {
	st := &Statement{Op: OpInsert, Table: t}
	for _, n := range names {
		v, ok := cols[n]
		if !ok {
			continue
		}
		st.Columns = append(st.Columns, n)
		st.Values = append(st.Values, v)
	}
	return st
}

// Update starts an UPDATE of t.
func Update(t *Table) *Statement {
	return &Statement{Op: OpUpdate, Table: t}
}

// DeleteFrom starts a DELETE from t.
func DeleteFrom(t *Table) *Statement {
	return &Statement{Op: OpDelete, Table: t}
}

// Match appends WHERE predicates.
func (s *Statement) Match(preds ...Predicate) *Statement {
	s.Where = append(s.Where, preds...)
	return s
}

// When appends IF conditions.
func (s *Statement) When(preds ...Predicate) *Statement {
	s.Conditions = append(s.Conditions, preds...)
	return s
}

// Assign appends `col=?`.
func (s *Statement) Assign(col string, v column.Value) *Statement {
	s.Set = append(s.Set, Assignment{Column: col, Value: v})
	return s
}

// Append appends `col=col+?`.
func (s *Statement) Append(col string, v column.Value) *Statement {
	s.Set = append(s.Set, Assignment{Column: col, Value: v, Append: true})
	return s
}

// MustExist adds IF EXISTS.
func (s *Statement) MustExist() *Statement {
	s.IfExists = true
	return s
}

// MustNotExist adds IF NOT EXISTS.
func (s *Statement) MustNotExist() *Statement {
	s.IfNotExists = true
	return s
}

// Take sets LIMIT n.
func (s *Statement) Take(n int) *Statement {
	s.Limit = n
	return s
}

// Filtering adds ALLOW FILTERING.
func (s *Statement) Filtering() *Statement {
	s.AllowFiltering = true
	return s
}

// NoCache adds BYPASS CACHE.
func (s *Statement) NoCache() *Statement {
	s.BypassCache = true
	return s
}

// Within sets USING TIMEOUT d.
func (s *Statement) Within(d time.Duration) *Statement {
	s.Timeout = d
	return s
}

// Conditional reports whether the statement is a lightweight transaction.
func (s *Statement) Conditional() bool {
	return s.IfExists || s.IfNotExists || len(s.Conditions) > 0
}

// CQL renders the statement and its bind values in placeholder order.
func (s *Statement) CQL() (string, []column.Value) {
	return s.render(true)
}

func (s *Statement) render(withTimeout bool) (string, []column.Value) {
	var b strings.Builder
	var args []column.Value
	using := ""
	if withTimeout && s.Timeout > 0 {
		using = " USING TIMEOUT " + cqlDuration(s.Timeout)
	}

	switch s.Op {
	case OpSelect:
		b.WriteString("SELECT ")
		b.WriteString(strings.Join(s.Columns, ","))
		b.WriteString(" FROM ")
		b.WriteString(s.Table.Name)
		args = writeWhere(&b, s.Where, args)
		if s.Limit > 0 {
			fmt.Fprintf(&b, " LIMIT %d", s.Limit)
		}
		if s.AllowFiltering {
			b.WriteString(" ALLOW FILTERING")
		}
		if s.BypassCache {
			b.WriteString(" BYPASS CACHE")
		}
		b.WriteString(using)

	case OpInsert:
		b.WriteString("INSERT INTO ")
		b.WriteString(s.Table.Name)
		b.WriteString(" (")
		b.WriteString(strings.Join(s.Columns, ","))
		b.WriteString(") VALUES (")
		b.WriteString(placeholders(len(s.Columns)))
		b.WriteString(")")
		args = append(args, s.Values...)
		if s.IfNotExists {
			b.WriteString(" IF NOT EXISTS")
		}
		b.WriteString(using)

	case OpUpdate:
		b.WriteString("UPDATE ")
		b.WriteString(s.Table.Name)
		b.WriteString(using)
		b.WriteString(" SET ")
		for i, a := range s.Set {
			if i > 0 {
				b.WriteByte(',')
			}
			if a.Append {
				fmt.Fprintf(&b, "%s=%s+?", a.Column, a.Column)
			} else {
				fmt.Fprintf(&b, "%s=?", a.Column)
			}
			args = append(args, a.Value)
		}
		args = writeWhere(&b, s.Where, args)
		args = writeIf(&b, s, args)

	case OpDelete:
		b.WriteString("DELETE FROM ")
		b.WriteString(s.Table.Name)
		b.WriteString(using)
		args = writeWhere(&b, s.Where, args)
		args = writeIf(&b, s, args)
	}
	return b.String(), args
}

// BatchCQL renders statements as one logged batch.
func BatchCQL(stmts []*Statement, timeout time.Duration) (string, []column.Value) {
	var b strings.Builder
	var args []column.Value
	b.WriteString("BEGIN BATCH")
	if timeout > 0 {
		b.WriteString(" USING TIMEOUT " + cqlDuration(timeout))
	}
	b.WriteByte('\n')
	for _, st := range stmts {
		q, a := st.render(false)
		b.WriteString(q)
		b.WriteString(";\n")
		args = append(args, a...)
	}
	b.WriteString("APPLY BATCH")
	return b.String(), args
}

func writeWhere(b *strings.Builder, preds []Predicate, args []column.Value) []column.Value {
	for i, p := range preds {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(b, "%s%s?", p.Column, p.Cmp)
		args = append(args, p.Value)
	}
	return args
}

func writeIf(b *strings.Builder, s *Statement, args []column.Value) []column.Value {
	switch {
	case s.IfExists:
		b.WriteString(" IF EXISTS")
	case len(s.Conditions) > 0:
		for i, p := range s.Conditions {
			if i == 0 {
				b.WriteString(" IF ")
			} else {
				b.WriteString(" AND ")
			}
			fmt.Fprintf(b, "%s%s?", p.Column, p.Cmp)
			args = append(args, p.Value)
		}
	}
	return args
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func cqlDuration(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", d/time.Second)
	}
	return fmt.Sprintf("%dms", d/time.Millisecond)
}

// KeyPredicates returns `k=?` for every primary key column of t.
func KeyPredicates(t *Table, key column.Columns) ([]Predicate, error) {
	cols := t.Key()
	preds := make([]Predicate, 0, len(cols))
	for _, c := range cols {
		v, ok := key[c]
		if !ok {
			return nil, fmt.Errorf("folio: %s: key column %q missing", t.Name, c)
		}
		preds = append(preds, Eq(c, v))
	}
	return preds, nil
}
