package store

import "sort"

// Relationship links a parent table to a child table whose partition holds
// the parent's id.
type Relationship struct {
	// Parent is the table whose rows own the children.
	Parent *Table

	// Child is the table holding child-link rows.
	Child *Table

	// ParentKey is the child column carrying the parent id (e.g., "id" in collection_children).
	ParentKey string

	// ParentColumn is the parent column the child key refers to. Default: "id"
	ParentColumn string
}

// Registry holds every known table and the parent-child relationships used
// for cascades and orphan sweeps.
type Registry struct {
	tables        map[string]*Table
	relationships []Relationship
	byParent      map[string][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tables:   make(map[string]*Table),
		byParent: make(map[string][]Relationship),
	}
}

// Register adds tables to the registry. Registering a name twice keeps the last table.
func (r *Registry) Register(tables ...*Table) {
	for _, t := range tables {
		r.tables[t.Name] = t
	}
}

// Relate adds a relationship, registering both tables.
func (r *Registry) Relate(rel Relationship) {
	if rel.ParentColumn == "" {
		rel.ParentColumn = "id"
	}
	r.Register(rel.Parent, rel.Child)
	r.relationships = append(r.relationships, rel)
	r.byParent[rel.Parent.Name] = append(r.byParent[rel.Parent.Name], rel)
}

// Table looks up a table by name.
func (r *Registry) Table(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Tables returns every registered table ordered by name.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ChildrenOf returns all child relationships of the named parent table.
func (r *Registry) ChildrenOf(parent string) []Relationship {
	return r.byParent[parent]
}

// AllRelationships returns all registered relationships.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}

// HasChildren reports whether the parent table has registered children.
func (r *Registry) HasChildren(parent string) bool {
	return len(r.byParent[parent]) > 0
}
