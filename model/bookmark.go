package model

import (
	"context"
	"sort"

	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// Bookmark is a user's saved reference to a creation or publication.
type Bookmark struct {
	UID       xid.ID
	ID        xid.ID
	Kind      int8
	CID       xid.ID
	GID       xid.ID
	Language  language.Base
	Version   int16
	UpdatedAt int64
	Title     string
	Labels    []string
	Payload   []byte

	store.Selection
}

// NewBookmark returns a bookmark addressed by its primary key.
func NewBookmark(uid, id xid.ID) *Bookmark {
	return &Bookmark{UID: uid, ID: id}
}

func (b *Bookmark) Table() *store.Table { return bookmarks }
func (b *Bookmark) Fields() []string    { return bookmarks.Names() }

func (b *Bookmark) Key() column.Columns {
	return column.Columns{"uid": idValue(b.UID), "id": idValue(b.ID)}
}

func (b *Bookmark) ToColumns() (column.Columns, error) {
	cols := b.Key()
	cols["kind"] = column.TinyInt(b.Kind)
	cols["cid"] = idValue(b.CID)
	cols["gid"] = idValue(b.GID)
	cols["version"] = column.SmallInt(b.Version)
	cols["updated_at"] = column.BigInt(b.UpdatedAt)
	cols["title"] = column.Text(b.Title)
	cols["payload"] = column.Blob(b.Payload)
	return cols, firstErr(
		column.SetAs(cols, "language", column.Lang, b.Language),
		column.SetAs(cols, "labels", column.ListOf(column.String), b.Labels),
	)
}

func (b *Bookmark) FillColumns(cols column.Columns) error {
	return firstErr(
		column.DecodeInto(cols, "uid", column.XID, &b.UID),
		column.DecodeInto(cols, "id", column.XID, &b.ID),
		column.DecodeInto(cols, "kind", column.Int8, &b.Kind),
		column.DecodeInto(cols, "cid", column.XID, &b.CID),
		column.DecodeInto(cols, "gid", column.XID, &b.GID),
		column.DecodeInto(cols, "language", column.Lang, &b.Language),
		column.DecodeInto(cols, "version", column.Int16, &b.Version),
		column.DecodeInto(cols, "updated_at", column.Int64, &b.UpdatedAt),
		column.DecodeInto(cols, "title", column.String, &b.Title),
		column.DecodeInto(cols, "labels", column.ListOf(column.String), &b.Labels),
		column.DecodeInto(cols, "payload", column.Bytes, &b.Payload),
	)
}

// BookmarkField enumerates the caller-updatable bookmark fields.
type BookmarkField uint8

const (
	BookmarkVersion BookmarkField = iota
	BookmarkTitle
	BookmarkGID
	BookmarkLanguage
	BookmarkLabels
	BookmarkPayload
)

// BookmarkFields lists every BookmarkField.
var BookmarkFields = []BookmarkField{
	BookmarkVersion, BookmarkTitle, BookmarkGID, BookmarkLanguage, BookmarkLabels, BookmarkPayload,
}

func (f BookmarkField) Column() string {
	return [...]string{"version", "title", "gid", "language", "labels", "payload"}[f]
}

func (f BookmarkField) Type() column.Type {
	return [...]column.Type{smallint, text, blob, ascii, textList, blob}[f]
}

var bookmarkProjection = store.Projection{
	Table:    bookmarks.Name,
	Fields:   bookmarks.Names(),
	Required: []string{"kind", "cid", "gid"},
}

var bookmarkListProjection = store.Projection{
	Table:    bookmarks.Name,
	Fields:   bookmarks.Names(),
	Required: []string{"kind", "cid", "gid", "uid", "id"},
}

// Get loads the requested fields; an empty list loads everything.
func (b *Bookmark) Get(ctx context.Context, s *store.Store, fields []string) error {
	return fetch(ctx, s, b, bookmarkProjection, fields)
}

// Save inserts the bookmark, stamping updated_at.
func (b *Bookmark) Save(ctx context.Context, s *store.Store) error {
	b.UpdatedAt = s.Now().UnixMilli()
	return s.Insert(ctx, b)
}

// Update applies ch when the stored updated_at still equals updatedAt.
func (b *Bookmark) Update(ctx context.Context, s *store.Store, ch *store.Changes[BookmarkField], updatedAt int64) error {
	next, _, err := guardUpdatedAt(ctx, s, b, updatedAt, store.Guard{Set: ch.Assignments()})
	if err != nil {
		return err
	}
	b.UpdatedAt = next
	return nil
}

// Delete removes the bookmark. It reports false when it was already gone.
func (b *Bookmark) Delete(ctx context.Context, s *store.Store) (bool, error) {
	ok, err := present(ctx, s, b, []string{"uid", "id"})
	if !ok || err != nil {
		return false, err
	}
	return true, s.Remove(ctx, b)
}

// GetBookmarkByCID finds the bookmark of uid pointing at one publication.
func GetBookmarkByCID(ctx context.Context, s *store.Store, uid, cid, gid xid.ID, lang language.Base, fields []string) (*Bookmark, error) {
	cols, err := bookmarkListProjection.Resolve(fields)
	if err != nil {
		return nil, err
	}
	langValue, err := column.Lang.Encode(lang)
	if err != nil {
		return nil, err
	}
	stmt := store.Select(bookmarks, cols...).
		Match(
			store.Eq("uid", idValue(uid)),
			store.Eq("cid", idValue(cid)),
			store.Eq("gid", idValue(gid)),
			store.Eq("language", langValue),
		).
		Take(1).
		Filtering()
	items, err := store.Load(ctx, s, stmt, func() *Bookmark { return new(Bookmark) })
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &store.NotFoundError{Table: bookmarks.Name, Key: column.Columns{"uid": idValue(uid), "cid": idValue(cid)}}
	}
	return items[0], nil
}

// ListBookmarks pages uid's bookmarks, newest first.
func ListBookmarks(ctx context.Context, s *store.Store, uid xid.ID, fields []string, size int, token *xid.ID) (store.Page[*Bookmark], error) {
	cols, err := bookmarkListProjection.Resolve(fields)
	if err != nil {
		return store.Page[*Bookmark]{}, err
	}
	stmt := store.Select(bookmarks, cols...).Match(store.Eq("uid", idValue(uid)))
	return listBefore(ctx, s, stmt, "id", size, token,
		func() *Bookmark { return new(Bookmark) },
		func(b *Bookmark) xid.ID { return b.ID })
}

// ListBookmarksByCID returns every bookmark of uid on cid, highest version
// first.
func ListBookmarksByCID(ctx context.Context, s *store.Store, uid, cid xid.ID, fields []string) ([]*Bookmark, error) {
	cols, err := bookmarkListProjection.Resolve(fields)
	if err != nil {
		return nil, err
	}
	stmt := store.Select(bookmarks, cols...).
		Match(store.Eq("uid", idValue(uid)), store.Eq("cid", idValue(cid))).
		Take(s.Config().MaxPageSize).
		Filtering()
	items, err := store.Load(ctx, s, stmt, func() *Bookmark { return new(Bookmark) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Version > items[j].Version })
	return items, nil
}
