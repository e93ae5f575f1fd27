package model

import (
	"context"

	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/internal/xday"
	"github.com/jacentio/folio/store"
)

// MaxCollectionChildren bounds the child links of one collection.
const MaxCollectionChildren = 10000

// MessageRef points at the message holding an entity's heavy text.
type MessageRef struct {
	ID xid.ID
}

// IsZero reports whether the reference is unset.
func (r MessageRef) IsZero() bool { return r.ID.IsZero() }

// Load fetches the base payload and the lang translation of the message.
func (r MessageRef) Load(ctx context.Context, s *store.Store, lang language.Base) (*Message, error) {
	m := NewMessage(r.ID)
	if err := m.GetI18n(ctx, s, lang); err != nil {
		return nil, err
	}
	return m, nil
}

// Collection groups creations, publications or other collections of one
// group. Its title and summary live in the message referenced by MID.
type Collection struct {
	Day           int32
	ID            xid.ID
	GID           xid.ID
	MID           xid.ID
	Status        int8
	Rating        int8
	UpdatedAt     int64
	Cover         string
	Price         int64
	CreationPrice int64

	// Info is the resolved message when "info" was requested.
	Info *Message

	store.Selection
}

// NewCollection returns a collection addressed by id.
func NewCollection(id xid.ID) *Collection {
	return &Collection{Day: xday.Day(id), ID: id}
}

func (c *Collection) Table() *store.Table { return collections }
func (c *Collection) Fields() []string    { return collections.Names() }

func (c *Collection) Key() column.Columns {
	return column.Columns{"day": column.Int(c.Day), "id": idValue(c.ID)}
}

func (c *Collection) ToColumns() (column.Columns, error) {
	cols := c.Key()
	cols["gid"] = idValue(c.GID)
	cols["mid"] = idValue(c.MID)
	cols["status"] = column.TinyInt(c.Status)
	cols["rating"] = column.TinyInt(c.Rating)
	cols["updated_at"] = column.BigInt(c.UpdatedAt)
	cols["cover"] = column.Text(c.Cover)
	cols["price"] = column.BigInt(c.Price)
	cols["creation_price"] = column.BigInt(c.CreationPrice)
	return cols, nil
}

func (c *Collection) FillColumns(cols column.Columns) error {
	return firstErr(
		column.DecodeInto(cols, "day", column.Int32, &c.Day),
		column.DecodeInto(cols, "id", column.XID, &c.ID),
		column.DecodeInto(cols, "gid", column.XID, &c.GID),
		column.DecodeInto(cols, "mid", column.XID, &c.MID),
		column.DecodeInto(cols, "status", column.Int8, &c.Status),
		column.DecodeInto(cols, "rating", column.Int8, &c.Rating),
		column.DecodeInto(cols, "updated_at", column.Int64, &c.UpdatedAt),
		column.DecodeInto(cols, "cover", column.String, &c.Cover),
		column.DecodeInto(cols, "price", column.Int64, &c.Price),
		column.DecodeInto(cols, "creation_price", column.Int64, &c.CreationPrice),
	)
}

// MessageRef returns the reference to the collection's info message.
func (c *Collection) MessageRef() MessageRef { return MessageRef{ID: c.MID} }

// CollectionField enumerates the caller-updatable collection fields.
type CollectionField uint8

const (
	CollectionCover CollectionField = iota
	CollectionPrice
	CollectionCreationPrice
)

// CollectionFields lists every CollectionField.
var CollectionFields = []CollectionField{CollectionCover, CollectionPrice, CollectionCreationPrice}

func (f CollectionField) Column() string {
	return [...]string{"cover", "price", "creation_price"}[f]
}

func (f CollectionField) Type() column.Type {
	return [...]column.Type{text, bigint, bigint}[f]
}

var collectionProjection = store.Projection{
	Table:    collections.Name,
	Fields:   collections.Names(),
	Required: []string{"gid", "status", "rating"},
	Pseudo:   map[string][]string{"info": {"mid"}},
}

// Get loads the requested fields. With "info" (or no fields at all) the
// info message is resolved into Info, in lang when it has a translation.
func (c *Collection) Get(ctx context.Context, s *store.Store, fields []string, lang language.Base) error {
	c.Day = xday.Day(c.ID)
	if err := fetch(ctx, s, c, collectionProjection, fields); err != nil {
		return err
	}
	if !c.wantsInfo(fields) || c.MID.IsZero() {
		return nil
	}
	info, err := c.MessageRef().Load(ctx, s, lang)
	if err != nil {
		return err
	}
	c.Info = info
	return nil
}

func (c *Collection) wantsInfo(fields []string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if f == "info" {
			return true
		}
	}
	return false
}

// Save inserts the collection, stamping updated_at.
func (c *Collection) Save(ctx context.Context, s *store.Store) error {
	if c.CreationPrice > c.Price && c.Price >= 0 {
		return store.Invalid(collections.Name, "creation price %d exceeds price %d", c.CreationPrice, c.Price)
	}
	c.Day = xday.Day(c.ID)
	c.UpdatedAt = s.Now().UnixMilli()
	return s.Insert(ctx, c)
}

// Update applies ch when the stored updated_at equals updatedAt and the
// collection belongs to gid. Withdrawn collections cannot be updated, and
// the creation price may not exceed the price after the change.
func (c *Collection) Update(ctx context.Context, s *store.Store, gid xid.ID, ch *store.Changes[CollectionField], updatedAt int64) error {
	c.Day = xday.Day(c.ID)
	fetch := []string{"gid", "status"}
	changed := ch.Columns()
	pricing := changed.Has("price") || changed.Has("creation_price")
	if pricing {
		fetch = append(fetch, "price", "creation_price")
	}
	owned := c.ownedBy(gid)
	next, _, err := guardUpdatedAt(ctx, s, c, updatedAt, store.Guard{
		Fetch: fetch,
		Check: func(cur column.Columns) error {
			if err := owned(cur); err != nil {
				return err
			}
			if err := updatable(cur); err != nil {
				return err
			}
			if pricing {
				return checkPrices(cur, changed)
			}
			return nil
		},
		Set: ch.Assignments(),
	})
	if err != nil {
		return err
	}
	c.UpdatedAt = next
	return nil
}

func updatable(cur column.Columns) error {
	status, err := column.GetAs(cur, "status", column.Int8)
	if err != nil {
		return err
	}
	if status < StatusDraft {
		return &store.ConflictError{Table: collections.Name, Reason: "withdrawn collections can not be updated"}
	}
	return nil
}

// checkPrices validates the stored prices overlaid with the changed ones.
func checkPrices(cur, changed column.Columns) error {
	var price, creationPrice int64
	if err := firstErr(
		column.DecodeInto(cur, "price", column.Int64, &price),
		column.DecodeInto(cur, "creation_price", column.Int64, &creationPrice),
		column.DecodeInto(changed, "price", column.Int64, &price),
		column.DecodeInto(changed, "creation_price", column.Int64, &creationPrice),
	); err != nil {
		return err
	}
	if creationPrice > price && price >= 0 {
		return store.Invalid(collections.Name, "creation price %d exceeds price %d", creationPrice, price)
	}
	return nil
}

func (c *Collection) ownedBy(gid xid.ID) func(column.Columns) error {
	return func(cur column.Columns) error {
		got, err := column.GetAs(cur, "gid", column.XID)
		if err != nil {
			return err
		}
		if got != gid {
			return &store.ScopeError{Table: collections.Name, Want: gid.String(), Got: got.String()}
		}
		return nil
	}
}

// UpdateStatus moves the collection of gid to status. It reports false
// when the collection already had status.
func (c *Collection) UpdateStatus(ctx context.Context, s *store.Store, gid xid.ID, status int8, updatedAt int64) (bool, error) {
	c.Day = xday.Day(c.ID)
	owned, move := c.ownedBy(gid), transition(collections.Name, PublishStatus, status)
	next, changed, err := guardUpdatedAt(ctx, s, c, updatedAt, store.Guard{
		Fetch: []string{"gid", "status"},
		Check: func(cur column.Columns) error {
			if err := owned(cur); err != nil {
				return err
			}
			return move(cur)
		},
		Set: []store.Assignment{{Column: "status", Value: column.TinyInt(status)}},
	})
	if !changed || err != nil {
		return false, err
	}
	c.Status, c.UpdatedAt = status, next
	return true, nil
}

// Delete removes a withdrawn collection of gid, then its child links and
// info message. Child and message failures are logged, not returned. It
// reports false when the collection was already gone.
func (c *Collection) Delete(ctx context.Context, s *store.Store, gid xid.ID) (bool, error) {
	c.Day = xday.Day(c.ID)
	ok, err := present(ctx, s, c, []string{"gid", "mid", "status"})
	if !ok || err != nil {
		return false, err
	}
	if c.GID != gid {
		return false, &store.ScopeError{Table: collections.Name, Want: gid.String(), Got: c.GID.String()}
	}
	if c.Status != StatusWithdrawn {
		return false, &store.ConflictError{
			Table:    collections.Name,
			Column:   "status",
			Expected: column.TinyInt(StatusWithdrawn),
			Got:      column.TinyInt(c.Status),
			Reason:   "withdraw before deleting",
		}
	}

	log := s.Logger()
	if _, err := SweepChildren(ctx, s, c.ID); err != nil {
		log.Warn().Str("collection", c.ID.String()).Err(err).Msg("failed to list collection children")
	}
	if err := s.Remove(ctx, c); err != nil {
		return false, err
	}
	if !c.MID.IsZero() {
		if _, err := NewMessage(c.MID).Delete(ctx, s, c.ID); err != nil {
			log.Warn().Str("collection", c.ID.String()).Str("message", c.MID.String()).Err(err).Msg("failed to delete collection info")
		}
	}
	return true, nil
}

// ListCollectionsByGID pages gid's collections newest first by scanning day
// buckets backwards from the token's day. status, when set, filters rows.
func ListCollectionsByGID(ctx context.Context, s *store.Store, gid xid.ID, fields []string, size int, token *xid.ID, status *int8) (store.Page[*Collection], error) {
	cols, err := collectionProjection.Resolve(fields)
	if err != nil {
		return store.Page[*Collection]{}, err
	}
	cols = withKey(cols, "day", "id")
	fetchDay := func(ctx context.Context, day int32, before xid.ID, limit int) ([]*Collection, error) {
		stmt := store.Select(collections, cols...).
			Match(
				store.Eq("day", column.Int(day)),
				store.Lt("id", idValue(before)),
				store.Eq("gid", idValue(gid)),
			).
			Take(limit).
			Filtering()
		if status != nil {
			stmt.Match(store.Eq("status", column.TinyInt(*status)))
		}
		if s.Config().BypassCache {
			stmt.NoCache()
		}
		return store.Load(ctx, s, stmt, func() *Collection { return new(Collection) })
	}
	return store.ScanDays(ctx, s, size, token, fetchDay, func(c *Collection) xid.ID { return c.ID })
}

// withKey appends missing key columns to a resolved projection.
func withKey(cols []string, key ...string) []string {
	for _, k := range key {
		found := false
		for _, c := range cols {
			if c == k {
				found = true
				break
			}
		}
		if !found {
			cols = append(cols, k)
		}
	}
	return cols
}

// AddChildren links cids under the collection of gid, in order, and returns
// the cids that were linked. Links that already exist are skipped.
func (c *Collection) AddChildren(ctx context.Context, s *store.Store, gid xid.ID, cids []xid.ID, kind int8) ([]xid.ID, error) {
	if len(cids) == 0 {
		return nil, nil
	}
	c.Day = xday.Day(c.ID)
	if err := s.Get(ctx, c, []string{"gid", "status"}); err != nil {
		return nil, err
	}
	if c.Status < StatusDraft {
		return nil, store.Invalid(collections.Name, "collection %s is withdrawn", c.ID)
	}
	if c.GID != gid {
		return nil, &store.ScopeError{Table: collections.Name, Want: gid.String(), Got: c.GID.String()}
	}
	for _, cid := range cids {
		if cid == c.ID {
			return nil, store.Invalid(collections.Name, "collection %s cannot contain itself", c.ID)
		}
	}
	count, err := CountChildren(ctx, s, c.ID)
	if err != nil {
		return nil, err
	}
	if count+len(cids) > MaxCollectionChildren {
		return nil, store.Invalid(collections.Name, "a collection holds at most %d children", MaxCollectionChildren)
	}

	ord := float64(s.Now().UnixMilli())
	total := float64(len(cids))
	added := make([]xid.ID, 0, len(cids))
	for _, cid := range cids {
		child := &CollectionChild{ID: c.ID, CID: cid, Kind: kind, Ord: ord + float64(len(added))/total}
		err := child.Save(ctx, s)
		if err == nil {
			added = append(added, cid)
			continue
		}
		if !isConflict(err) {
			return added, err
		}
	}
	return added, nil
}
