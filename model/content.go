package model

import (
	"context"

	"github.com/rs/xid"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// MaxContentLen bounds a content body in bytes.
const MaxContentLen = 768 * 1024

// Content is the body of a publication, stored apart from its metadata.
type Content struct {
	ID        xid.ID
	GID       xid.ID
	CID       xid.ID
	Status    int8
	Version   int16
	Language  language.Base
	UpdatedAt int64
	Length    int32
	Hash      []byte
	Content   []byte

	store.Selection
}

// NewContent returns a content row addressed by id.
func NewContent(id xid.ID) *Content {
	return &Content{ID: id}
}

func (c *Content) Table() *store.Table { return contents }
func (c *Content) Fields() []string    { return contents.Names() }

func (c *Content) Key() column.Columns {
	return column.Columns{"id": idValue(c.ID)}
}

func (c *Content) ToColumns() (column.Columns, error) {
	cols := c.Key()
	cols["gid"] = idValue(c.GID)
	cols["cid"] = idValue(c.CID)
	cols["status"] = column.TinyInt(c.Status)
	cols["version"] = column.SmallInt(c.Version)
	cols["updated_at"] = column.BigInt(c.UpdatedAt)
	cols["length"] = column.Int(c.Length)
	cols["hash"] = column.Blob(c.Hash)
	cols["content"] = column.Blob(c.Content)
	return cols, column.SetAs(cols, "language", column.Lang, c.Language)
}

func (c *Content) FillColumns(cols column.Columns) error {
	return firstErr(
		column.DecodeInto(cols, "id", column.XID, &c.ID),
		column.DecodeInto(cols, "gid", column.XID, &c.GID),
		column.DecodeInto(cols, "cid", column.XID, &c.CID),
		column.DecodeInto(cols, "status", column.Int8, &c.Status),
		column.DecodeInto(cols, "version", column.Int16, &c.Version),
		column.DecodeInto(cols, "language", column.Lang, &c.Language),
		column.DecodeInto(cols, "updated_at", column.Int64, &c.UpdatedAt),
		column.DecodeInto(cols, "length", column.Int32, &c.Length),
		column.DecodeInto(cols, "hash", column.Bytes, &c.Hash),
		column.DecodeInto(cols, "content", column.Bytes, &c.Content),
	)
}

var contentProjection = store.Projection{
	Table:  contents.Name,
	Fields: contents.Names(),
}

// Digest returns the length and sha3-256 hash of body.
func Digest(body []byte) (int32, []byte) {
	sum := sha3.Sum256(body)
	return int32(len(body)), sum[:]
}

// Get loads the requested fields. Length falls back to the body size when
// only the body was fetched.
func (c *Content) Get(ctx context.Context, s *store.Store, fields []string) error {
	if err := fetch(ctx, s, c, contentProjection, fields); err != nil {
		return err
	}
	if c.Length == 0 {
		c.Length = int32(len(c.Content))
	}
	return nil
}

// Save inserts the content after deriving its length and hash.
func (c *Content) Save(ctx context.Context, s *store.Store) error {
	if err := store.CheckSize(contents.Name, "content", len(c.Content), MaxContentLen); err != nil {
		return err
	}
	c.Length, c.Hash = Digest(c.Content)
	c.UpdatedAt = s.Now().UnixMilli()
	return s.Insert(ctx, c)
}

// UpdateContent replaces the body, version and language of an existing row.
func (c *Content) UpdateContent(ctx context.Context, s *store.Store, version int16, lang language.Base, body []byte) error {
	if err := store.CheckSize(contents.Name, "content", len(body), MaxContentLen); err != nil {
		return err
	}
	langValue, err := column.Lang.Encode(lang)
	if err != nil {
		return err
	}
	now := store.NextMillis(c.UpdatedAt, s.Now())
	length, hash := Digest(body)
	err = s.UpdateIfExists(ctx, c, []store.Assignment{
		{Column: "updated_at", Value: column.BigInt(now)},
		{Column: "version", Value: column.SmallInt(version)},
		{Column: "language", Value: langValue},
		{Column: "length", Value: column.Int(length)},
		{Column: "hash", Value: column.Blob(hash)},
		{Column: "content", Value: column.Blob(body)},
	})
	if err != nil {
		return err
	}
	c.UpdatedAt, c.Version, c.Language = now, version, lang
	c.Length, c.Hash, c.Content = length, hash, body
	return nil
}

// UpdateStatus moves the content to status, conditioned on the status it
// was read with. It reports false when the content already had status.
func (c *Content) UpdateStatus(ctx context.Context, s *store.Store, status int8) (bool, error) {
	if err := s.Get(ctx, c, []string{"status", "updated_at"}); err != nil {
		return false, err
	}
	changed, err := ContentStatus.Check(contents.Name, c.Status, status)
	if !changed || err != nil {
		return false, err
	}
	now := store.NextMillis(c.UpdatedAt, s.Now())
	err = s.UpdateIf(ctx, c, []store.Assignment{
		{Column: "status", Value: column.TinyInt(status)},
		{Column: "updated_at", Value: column.BigInt(now)},
	}, store.Eq("status", column.TinyInt(c.Status)))
	if err != nil {
		return false, err
	}
	c.Status, c.UpdatedAt = status, now
	return true, nil
}

// Delete removes the content. It reports false when it was already gone.
func (c *Content) Delete(ctx context.Context, s *store.Store) (bool, error) {
	ok, err := present(ctx, s, c, []string{"id"})
	if !ok || err != nil {
		return false, err
	}
	return true, s.Remove(ctx, c)
}
