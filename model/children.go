package model

import (
	"context"
	"sort"

	"github.com/rs/xid"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// Child kinds.
const (
	ChildCreation    int8 = 0
	ChildPublication int8 = 1
	ChildCollection  int8 = 2
)

// CollectionChild links one child id under a collection. Ord orders the
// children of a collection ascending.
type CollectionChild struct {
	ID   xid.ID
	CID  xid.ID
	Kind int8
	Ord  float64

	store.Selection
}

func (c *CollectionChild) Table() *store.Table { return collectionChildren }
func (c *CollectionChild) Fields() []string    { return collectionChildren.Names() }

func (c *CollectionChild) Key() column.Columns {
	return column.Columns{"id": idValue(c.ID), "cid": idValue(c.CID)}
}

func (c *CollectionChild) ToColumns() (column.Columns, error) {
	cols := c.Key()
	cols["kind"] = column.TinyInt(c.Kind)
	cols["ord"] = column.Double(c.Ord)
	return cols, nil
}

func (c *CollectionChild) FillColumns(cols column.Columns) error {
	return firstErr(
		column.DecodeInto(cols, "id", column.XID, &c.ID),
		column.DecodeInto(cols, "cid", column.XID, &c.CID),
		column.DecodeInto(cols, "kind", column.Int8, &c.Kind),
		column.DecodeInto(cols, "ord", column.Float64, &c.Ord),
	)
}

// Get loads the whole link.
func (c *CollectionChild) Get(ctx context.Context, s *store.Store) error {
	return s.Get(ctx, c, nil)
}

// Save inserts the link.
func (c *CollectionChild) Save(ctx context.Context, s *store.Store) error {
	return s.Insert(ctx, c)
}

// UpdateOrd moves the link to ord. The link must exist.
func (c *CollectionChild) UpdateOrd(ctx context.Context, s *store.Store, ord float64) error {
	if err := s.UpdateIfExists(ctx, c, []store.Assignment{{Column: "ord", Value: column.Double(ord)}}); err != nil {
		return err
	}
	c.Ord = ord
	return nil
}

// Delete removes the link. It reports false when it was already gone.
func (c *CollectionChild) Delete(ctx context.Context, s *store.Store) (bool, error) {
	ok, err := present(ctx, s, c, []string{"kind"})
	if !ok || err != nil {
		return false, err
	}
	return true, s.Remove(ctx, c)
}

func newChild() *CollectionChild { return new(CollectionChild) }

// ListChildren returns every link of collection id ordered by Ord.
func ListChildren(ctx context.Context, s *store.Store, id xid.ID) ([]*CollectionChild, error) {
	stmt := store.Select(collectionChildren, collectionChildren.Names()...).
		Match(store.Eq("id", idValue(id))).
		Take(MaxCollectionChildren)
	items, err := store.Load(ctx, s, stmt, newChild)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Ord < items[j].Ord })
	return items, nil
}

// CountChildren returns the number of links under collection id.
func CountChildren(ctx context.Context, s *store.Store, id xid.ID) (int, error) {
	return s.Count(ctx, store.Select(collectionChildren, "cid").
		Match(store.Eq("id", idValue(id))).
		Take(MaxCollectionChildren+1))
}

// ListByChild returns the links pointing at cid from any collection.
func ListByChild(ctx context.Context, s *store.Store, cid xid.ID) ([]*CollectionChild, error) {
	stmt := store.Select(collectionChildren, collectionChildren.Names()...).
		Match(store.Eq("cid", idValue(cid))).
		Take(s.Config().MaxPageSize).
		Filtering()
	return store.Load(ctx, s, stmt, newChild)
}

// SweepChildren deletes every link under collection id, best effort, and
// returns how many were deleted.
func SweepChildren(ctx context.Context, s *store.Store, id xid.ID) (int, error) {
	return s.DeleteChildren(ctx, CollectionChildrenOf, idValue(id))
}
