package store

import (
	"fmt"
	"strings"

	"github.com/jacentio/folio/column"
)

// ColumnDef declares one physical column of a table.
type ColumnDef struct {
	Name string
	Type column.Type
}

// Table describes the physical layout of one wide-column table.
type Table struct {
	// Name is the table name inside the keyspace.
	Name string

	// Partition lists the partition key columns in order.
	Partition []string

	// Clustering lists the clustering key columns in order.
	Clustering []string

	// Descending stores clustering rows newest first.
	Descending bool

	// Columns lists every physical column, key columns included.
	Columns []ColumnDef

	types map[string]column.Type
}

// NewTable builds a Table and indexes its column types. It panics when a key
// column is not declared, since tables are package-level declarations.
func NewTable(name string, partition, clustering []string, descending bool, cols ...ColumnDef) *Table {
	t := &Table{
		Name:       name,
		Partition:  partition,
		Clustering: clustering,
		Descending: descending,
		Columns:    cols,
		types:      make(map[string]column.Type, len(cols)),
	}
	for _, c := range cols {
		t.types[c.Name] = c.Type
	}
	for _, k := range t.Key() {
		if _, ok := t.types[k]; !ok {
			panic(fmt.Sprintf("store: table %s: key column %q is not declared", name, k))
		}
	}
	return t
}

// Col is shorthand for a ColumnDef.
func Col(name string, typ column.Type) ColumnDef {
	return ColumnDef{Name: name, Type: typ}
}

// Key returns the full primary key: partition columns then clustering columns.
func (t *Table) Key() []string {
	key := make([]string, 0, len(t.Partition)+len(t.Clustering))
	key = append(key, t.Partition...)
	return append(key, t.Clustering...)
}

// TypeOf returns the declared type of a column.
func (t *Table) TypeOf(name string) (column.Type, bool) {
	typ, ok := t.types[name]
	return typ, ok
}

// Has reports whether the table declares the column.
func (t *Table) Has(name string) bool {
	_, ok := t.types[name]
	return ok
}

// Names returns every declared column name in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IsPartition reports whether name is a partition key column.
func (t *Table) IsPartition(name string) bool {
	return contains(t.Partition, name)
}

// IsClustering reports whether name is a clustering key column.
func (t *Table) IsClustering(name string) bool {
	return contains(t.Clustering, name)
}

// Shadow returns the audit twin of t: same layout under another name.
func (t *Table) Shadow(name string) *Table {
	return NewTable(name, t.Partition, t.Clustering, t.Descending, t.Columns...)
}

// CreateCQL renders the CREATE TABLE statement for t.
func (t *Table) CreateCQL(keyspace string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	if keyspace != "" {
		b.WriteString(keyspace)
		b.WriteByte('.')
	}
	b.WriteString(t.Name)
	b.WriteString(" (\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "    %s %s,\n", c.Name, c.Type.CQL())
	}
	b.WriteString("    PRIMARY KEY (")
	if len(t.Partition) == 1 {
		b.WriteString(t.Partition[0])
	} else {
		b.WriteString("(" + strings.Join(t.Partition, ", ") + ")")
	}
	for _, c := range t.Clustering {
		b.WriteString(", " + c)
	}
	b.WriteString(")\n)")
	if len(t.Clustering) > 0 {
		order := "ASC"
		if t.Descending {
			order = "DESC"
		}
		parts := make([]string, len(t.Clustering))
		for i, c := range t.Clustering {
			parts[i] = c + " " + order
		}
		b.WriteString(" WITH CLUSTERING ORDER BY (" + strings.Join(parts, ", ") + ")")
	}
	b.WriteString(";")
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
