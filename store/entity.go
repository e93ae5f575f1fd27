package store

import (
	"github.com/jacentio/folio/column"
)

// Entity is the base interface for all storable types. Implementations are
// written by hand per entity.
type Entity interface {
	// Table returns the table the entity lives in.
	Table() *Table

	// Fields returns the persisted field names in declaration order. It never
	// includes transient state.
	Fields() []string

	// Key returns the primary key columns of this instance.
	Key() column.Columns

	// ToColumns encodes every persisted field.
	ToColumns() (column.Columns, error)

	// FillColumns decodes the present columns into the entity, leaving
	// absent fields untouched.
	FillColumns(cols column.Columns) error

	// Select records which columns were fetched into this instance.
	Select(fields []string)
}

// Selection records the projection an instance was loaded with. Entities
// embed it; it is never persisted.
type Selection struct {
	selected []string
}

// Select replaces the recorded projection.
func (s *Selection) Select(fields []string) {
	s.selected = append(s.selected[:0:0], fields...)
}

// Selected returns the recorded projection.
func (s *Selection) Selected() []string {
	return s.selected
}

// Selects reports whether field was part of the recorded projection.
func (s *Selection) Selects(field string) bool {
	return contains(s.selected, field)
}

// Projection resolves a caller's requested field list into the columns to
// fetch for one entity type.
type Projection struct {
	// Table names the entity in InvalidFieldError.
	Table string

	// Fields is the full persisted field list, used when nothing is requested.
	Fields []string

	// Required fields are appended when the caller did not ask for them.
	Required []string

	// Pseudo expands a pseudo-field into real columns.
	Pseudo map[string][]string

	// Dynamic accepts names outside Fields, e.g. per-language columns.
	Dynamic func(name string) bool
}

// Resolve validates requested and returns the columns to select. An empty
// request selects every persisted field.
func (p Projection) Resolve(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), p.Fields...), nil
	}
	out := make([]string, 0, len(requested)+len(p.Required))
	add := func(name string) {
		if !contains(out, name) {
			out = append(out, name)
		}
	}
	for _, name := range requested {
		if group, ok := p.Pseudo[name]; ok {
			for _, g := range group {
				add(g)
			}
			continue
		}
		if !contains(p.Fields, name) && (p.Dynamic == nil || !p.Dynamic(name)) {
			return nil, &InvalidFieldError{Table: p.Table, Field: name}
		}
		add(name)
	}
	for _, name := range p.Required {
		add(name)
	}
	return out, nil
}
