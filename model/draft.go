package model

import (
	"context"

	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/internal/xday"
	"github.com/jacentio/folio/store"
)

// PublicationDraft is a publication being prepared by a group, typically a
// translation of another group's publication. It carries its body inline.
type PublicationDraft struct {
	GID         xid.ID
	Day         int32
	ID          xid.ID
	CID         xid.ID
	Language    language.Base
	Version     int16
	Status      int8
	Creator     xid.ID
	CreatedAt   int64
	UpdatedAt   int64
	Model       string
	OriginalURL string
	Genre       []string
	Title       string
	Description string
	Cover       string
	Keywords    []string
	Authors     []string
	Summary     string
	Content     []byte
	License     string

	store.Selection
}

// NewPublicationDraft returns a draft addressed by its primary key.
func NewPublicationDraft(gid, id xid.ID) *PublicationDraft {
	return &PublicationDraft{GID: gid, Day: xday.Day(id), ID: id}
}

func (d *PublicationDraft) Table() *store.Table { return drafts }
func (d *PublicationDraft) Fields() []string    { return drafts.Names() }

func (d *PublicationDraft) Key() column.Columns {
	return column.Columns{"gid": idValue(d.GID), "day": column.Int(d.Day), "id": idValue(d.ID)}
}

func (d *PublicationDraft) ToColumns() (column.Columns, error) {
	cols := d.Key()
	cols["cid"] = idValue(d.CID)
	cols["version"] = column.SmallInt(d.Version)
	cols["status"] = column.TinyInt(d.Status)
	cols["creator"] = idValue(d.Creator)
	cols["created_at"] = column.BigInt(d.CreatedAt)
	cols["updated_at"] = column.BigInt(d.UpdatedAt)
	cols["original_url"] = column.Text(d.OriginalURL)
	cols["title"] = column.Text(d.Title)
	cols["description"] = column.Text(d.Description)
	cols["cover"] = column.Text(d.Cover)
	cols["summary"] = column.Text(d.Summary)
	cols["content"] = column.Blob(d.Content)
	cols["license"] = column.Text(d.License)
	texts := column.ListOf(column.String)
	return cols, firstErr(
		column.SetAs(cols, "language", column.Lang, d.Language),
		column.SetAs(cols, "model", column.ASCII, d.Model),
		column.SetAs(cols, "genre", texts, d.Genre),
		column.SetAs(cols, "keywords", texts, d.Keywords),
		column.SetAs(cols, "authors", texts, d.Authors),
	)
}

func (d *PublicationDraft) FillColumns(cols column.Columns) error {
	texts := column.ListOf(column.String)
	return firstErr(
		column.DecodeInto(cols, "gid", column.XID, &d.GID),
		column.DecodeInto(cols, "day", column.Int32, &d.Day),
		column.DecodeInto(cols, "id", column.XID, &d.ID),
		column.DecodeInto(cols, "cid", column.XID, &d.CID),
		column.DecodeInto(cols, "language", column.Lang, &d.Language),
		column.DecodeInto(cols, "version", column.Int16, &d.Version),
		column.DecodeInto(cols, "status", column.Int8, &d.Status),
		column.DecodeInto(cols, "creator", column.XID, &d.Creator),
		column.DecodeInto(cols, "created_at", column.Int64, &d.CreatedAt),
		column.DecodeInto(cols, "updated_at", column.Int64, &d.UpdatedAt),
		column.DecodeInto(cols, "model", column.ASCII, &d.Model),
		column.DecodeInto(cols, "original_url", column.String, &d.OriginalURL),
		column.DecodeInto(cols, "genre", texts, &d.Genre),
		column.DecodeInto(cols, "title", column.String, &d.Title),
		column.DecodeInto(cols, "description", column.String, &d.Description),
		column.DecodeInto(cols, "cover", column.String, &d.Cover),
		column.DecodeInto(cols, "keywords", texts, &d.Keywords),
		column.DecodeInto(cols, "authors", texts, &d.Authors),
		column.DecodeInto(cols, "summary", column.String, &d.Summary),
		column.DecodeInto(cols, "content", column.Bytes, &d.Content),
		column.DecodeInto(cols, "license", column.String, &d.License),
	)
}

// DraftField enumerates the caller-updatable draft fields.
type DraftField uint8

const (
	DraftModel DraftField = iota
	DraftTitle
	DraftDescription
	DraftCover
	DraftKeywords
	DraftAuthors
	DraftSummary
	DraftContent
	DraftLicense
)

// DraftFields lists every DraftField.
var DraftFields = []DraftField{
	DraftModel, DraftTitle, DraftDescription, DraftCover, DraftKeywords,
	DraftAuthors, DraftSummary, DraftContent, DraftLicense,
}

func (f DraftField) Column() string {
	return [...]string{
		"model", "title", "description", "cover", "keywords",
		"authors", "summary", "content", "license",
	}[f]
}

func (f DraftField) Type() column.Type {
	return [...]column.Type{ascii, text, text, text, textList, textList, text, blob, text}[f]
}

var draftProjection = store.Projection{
	Table:    drafts.Name,
	Fields:   drafts.Names(),
	Required: []string{"gid", "id", "cid", "status"},
}

// Get loads the requested fields.
func (d *PublicationDraft) Get(ctx context.Context, s *store.Store, fields []string) error {
	d.Day = xday.Day(d.ID)
	return fetch(ctx, s, d, draftProjection, fields)
}

// GetDeleted loads the archived copy of a deleted draft.
func (d *PublicationDraft) GetDeleted(ctx context.Context, s *store.Store) error {
	d.Day = xday.Day(d.ID)
	return s.Get(ctx, inTable{d, deletedDrafts}, nil)
}

// Save inserts the draft with status 0.
func (d *PublicationDraft) Save(ctx context.Context, s *store.Store) error {
	if err := store.CheckSize(drafts.Name, "content", len(d.Content), MaxContentLen); err != nil {
		return err
	}
	d.Day = xday.Day(d.ID)
	d.Status = StatusDraft
	d.CreatedAt = s.Now().UnixMilli()
	d.UpdatedAt = d.CreatedAt
	return s.Insert(ctx, d)
}

// Update applies ch to a draft in status 0 when the stored updated_at
// equals updatedAt.
func (d *PublicationDraft) Update(ctx context.Context, s *store.Store, ch *store.Changes[DraftField], updatedAt int64) error {
	if body, ok := ch.Columns()["content"].(column.Blob); ok {
		if err := store.CheckSize(drafts.Name, "content", len(body), MaxContentLen); err != nil {
			return err
		}
	}
	d.Day = xday.Day(d.ID)
	next, _, err := guardUpdatedAt(ctx, s, d, updatedAt, store.Guard{
		Fetch: []string{"status"},
		Check: editable(drafts.Name),
		Set:   ch.Assignments(),
	})
	if err != nil {
		return err
	}
	d.UpdatedAt = next
	return nil
}

// UpdateStatus moves the draft to status. It reports false when the draft
// already had status.
func (d *PublicationDraft) UpdateStatus(ctx context.Context, s *store.Store, status int8, updatedAt int64) (bool, error) {
	d.Day = xday.Day(d.ID)
	next, changed, err := guardUpdatedAt(ctx, s, d, updatedAt, store.Guard{
		Fetch: []string{"status"},
		Check: transition(drafts.Name, PublishStatus, status),
		Set:   []store.Assignment{{Column: "status", Value: column.TinyInt(status)}},
	})
	if !changed || err != nil {
		return false, err
	}
	d.Status, d.UpdatedAt = status, next
	return true, nil
}

// Delete archives the draft into deleted_publication_draft and removes it
// in one batch. It reports false when it was already gone.
func (d *PublicationDraft) Delete(ctx context.Context, s *store.Store) (bool, error) {
	d.Day = xday.Day(d.ID)
	ok, err := present(ctx, s, d, nil)
	if !ok || err != nil {
		return false, err
	}
	d.UpdatedAt = store.NextMillis(d.UpdatedAt, s.Now())
	return true, s.Archive(ctx, d, deletedDrafts)
}

// ListDrafts pages gid's drafts newest first by scanning day buckets.
func ListDrafts(ctx context.Context, s *store.Store, gid xid.ID, fields []string, size int, token *xid.ID, status *int8) (store.Page[*PublicationDraft], error) {
	cols, err := draftProjection.Resolve(fields)
	if err != nil {
		return store.Page[*PublicationDraft]{}, err
	}
	cols = withKey(cols, "day")
	fetchDay := func(ctx context.Context, day int32, before xid.ID, limit int) ([]*PublicationDraft, error) {
		stmt := store.Select(drafts, cols...).
			Match(
				store.Eq("gid", idValue(gid)),
				store.Eq("day", column.Int(day)),
				store.Lt("id", idValue(before)),
			).
			Take(limit)
		if status != nil {
			stmt.Match(store.Eq("status", column.TinyInt(*status))).Filtering()
		}
		if s.Config().BypassCache {
			stmt.NoCache()
		}
		return store.Load(ctx, s, stmt, func() *PublicationDraft { return new(PublicationDraft) })
	}
	return store.ScanDays(ctx, s, size, token, fetchDay, func(d *PublicationDraft) xid.ID { return d.ID })
}
