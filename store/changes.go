package store

import (
	"fmt"

	"github.com/jacentio/folio/column"
)

// Field is an entity's closed enumeration of caller-updatable fields.
// Identity, status and derived columns are never members.
type Field interface {
	comparable
	Column() string
	Type() column.Type
}

// Changes is a sparse, ordered set of updates to fields of type F. The
// zero value is an empty change set.
type Changes[F Field] struct {
	order  []F
	values column.Columns
}

// NewChanges returns an empty change set.
func NewChanges[F Field]() *Changes[F] {
	return &Changes[F]{values: column.Columns{}}
}

// Put encodes v into field f, replacing an earlier change to f.
func Put[F Field, T any](c *Changes[F], f F, codec column.Codec[T], v T) error {
	enc, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", f.Column(), err)
	}
	return c.PutValue(f, enc)
}

// PutValue stores a pre-encoded value after checking it against f's type.
func (c *Changes[F]) PutValue(f F, v column.Value) error {
	if !f.Type().Conforms(v) {
		return &column.TypeMismatchError{Column: f.Column(), Want: f.Type().Kind, Got: column.KindOf(v)}
	}
	if c.values == nil {
		c.values = column.Columns{}
	}
	if !c.values.Has(f.Column()) {
		c.order = append(c.order, f)
	}
	c.values[f.Column()] = v
	return nil
}

// Len returns the number of changed fields.
func (c *Changes[F]) Len() int { return len(c.order) }

// Fields returns the changed fields in insertion order.
func (c *Changes[F]) Fields() []F { return c.order }

// Columns returns the encoded values keyed by column name.
func (c *Changes[F]) Columns() column.Columns { return c.values }

// Assignments returns the SET terms in insertion order.
func (c *Changes[F]) Assignments() []Assignment {
	out := make([]Assignment, 0, len(c.order))
	for _, f := range c.order {
		out = append(out, Assignment{Column: f.Column(), Value: c.values[f.Column()]})
	}
	return out
}

// ParseField resolves a column name to a member of an updatable-field
// enumeration, failing with InvalidFieldError for anything else.
func ParseField[F Field](table string, all []F, name string) (F, error) {
	for _, f := range all {
		if f.Column() == name {
			return f, nil
		}
	}
	var zero F
	return zero, &InvalidFieldError{Table: table, Field: name}
}

// ChangesOf builds a change set from caller-supplied columns. Every column
// must name a member of all; nothing is sent to the store otherwise.
func ChangesOf[F Field](table string, all []F, cols column.Columns) (*Changes[F], error) {
	ch := NewChanges[F]()
	for _, name := range cols.Keys() {
		f, err := ParseField(table, all, name)
		if err != nil {
			return nil, err
		}
		if err := ch.PutValue(f, cols[name]); err != nil {
			return nil, err
		}
	}
	if ch.Len() == 0 {
		return nil, Invalid(table, "no fields to update")
	}
	return ch, nil
}
