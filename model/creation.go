package model

import (
	"context"

	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// Creation is a group's original work. Publications are cut from approved
// creations.
type Creation struct {
	GID             xid.ID
	ID              xid.ID
	Status          int8
	Rating          int8
	Version         int16
	Language        language.Base
	Creator         xid.ID
	CreatedAt       int64
	UpdatedAt       int64
	ActiveLanguages []language.Base
	OriginalURL     string
	Genre           []string
	Title           string
	Description     string
	Cover           string
	Keywords        []string
	Labels          []string
	Authors         []string
	Reviewers       []xid.ID
	Summary         string
	Content         xid.ID
	License         string

	store.Selection
}

// NewCreation returns a creation addressed by its primary key.
func NewCreation(gid, id xid.ID) *Creation {
	return &Creation{GID: gid, ID: id}
}

func (c *Creation) Table() *store.Table { return creations }
func (c *Creation) Fields() []string    { return creations.Names() }

func (c *Creation) Key() column.Columns {
	return column.Columns{"gid": idValue(c.GID), "id": idValue(c.ID)}
}

func (c *Creation) ToColumns() (column.Columns, error) {
	cols := c.Key()
	cols["status"] = column.TinyInt(c.Status)
	cols["rating"] = column.TinyInt(c.Rating)
	cols["version"] = column.SmallInt(c.Version)
	cols["creator"] = idValue(c.Creator)
	cols["created_at"] = column.BigInt(c.CreatedAt)
	cols["updated_at"] = column.BigInt(c.UpdatedAt)
	cols["original_url"] = column.Text(c.OriginalURL)
	cols["title"] = column.Text(c.Title)
	cols["description"] = column.Text(c.Description)
	cols["cover"] = column.Text(c.Cover)
	cols["summary"] = column.Text(c.Summary)
	cols["content"] = idValue(c.Content)
	cols["license"] = column.Text(c.License)
	texts := column.ListOf(column.String)
	return cols, firstErr(
		column.SetAs(cols, "language", column.Lang, c.Language),
		column.SetAs(cols, "active_languages", column.SetOf(column.Lang), c.ActiveLanguages),
		column.SetAs(cols, "genre", texts, c.Genre),
		column.SetAs(cols, "keywords", texts, c.Keywords),
		column.SetAs(cols, "labels", texts, c.Labels),
		column.SetAs(cols, "authors", texts, c.Authors),
		column.SetAs(cols, "reviewers", column.ListOf(column.XID), c.Reviewers),
	)
}

func (c *Creation) FillColumns(cols column.Columns) error {
	texts := column.ListOf(column.String)
	return firstErr(
		column.DecodeInto(cols, "gid", column.XID, &c.GID),
		column.DecodeInto(cols, "id", column.XID, &c.ID),
		column.DecodeInto(cols, "status", column.Int8, &c.Status),
		column.DecodeInto(cols, "rating", column.Int8, &c.Rating),
		column.DecodeInto(cols, "version", column.Int16, &c.Version),
		column.DecodeInto(cols, "language", column.Lang, &c.Language),
		column.DecodeInto(cols, "creator", column.XID, &c.Creator),
		column.DecodeInto(cols, "created_at", column.Int64, &c.CreatedAt),
		column.DecodeInto(cols, "updated_at", column.Int64, &c.UpdatedAt),
		column.DecodeInto(cols, "active_languages", column.SetOf(column.Lang), &c.ActiveLanguages),
		column.DecodeInto(cols, "original_url", column.String, &c.OriginalURL),
		column.DecodeInto(cols, "genre", texts, &c.Genre),
		column.DecodeInto(cols, "title", column.String, &c.Title),
		column.DecodeInto(cols, "description", column.String, &c.Description),
		column.DecodeInto(cols, "cover", column.String, &c.Cover),
		column.DecodeInto(cols, "keywords", texts, &c.Keywords),
		column.DecodeInto(cols, "labels", texts, &c.Labels),
		column.DecodeInto(cols, "authors", texts, &c.Authors),
		column.DecodeInto(cols, "reviewers", column.ListOf(column.XID), &c.Reviewers),
		column.DecodeInto(cols, "summary", column.String, &c.Summary),
		column.DecodeInto(cols, "content", column.XID, &c.Content),
		column.DecodeInto(cols, "license", column.String, &c.License),
	)
}

// CreationField enumerates the caller-updatable creation fields.
type CreationField uint8

const (
	CreationTitle CreationField = iota
	CreationDescription
	CreationCover
	CreationKeywords
	CreationLabels
	CreationAuthors
	CreationReviewers
	CreationSummary
	CreationGenre
	CreationLicense
)

// CreationFields lists every CreationField.
var CreationFields = []CreationField{
	CreationTitle, CreationDescription, CreationCover, CreationKeywords, CreationLabels,
	CreationAuthors, CreationReviewers, CreationSummary, CreationGenre, CreationLicense,
}

func (f CreationField) Column() string {
	return [...]string{
		"title", "description", "cover", "keywords", "labels",
		"authors", "reviewers", "summary", "genre", "license",
	}[f]
}

func (f CreationField) Type() column.Type {
	return [...]column.Type{
		text, text, text, textList, textList,
		textList, column.ListType(column.KindBlob), text, textList, text,
	}[f]
}

var creationProjection = store.Projection{
	Table:    creations.Name,
	Fields:   creations.Names(),
	Required: []string{"gid", "id", "status"},
}

// Get loads the requested fields.
func (c *Creation) Get(ctx context.Context, s *store.Store, fields []string) error {
	return fetch(ctx, s, c, creationProjection, fields)
}

// Save inserts the creation as a version 1 draft.
func (c *Creation) Save(ctx context.Context, s *store.Store) error {
	c.Status = StatusDraft
	c.Version = 1
	c.CreatedAt = s.Now().UnixMilli()
	c.UpdatedAt = c.CreatedAt
	return s.Insert(ctx, c)
}

// Update applies ch when the stored updated_at equals updatedAt.
func (c *Creation) Update(ctx context.Context, s *store.Store, ch *store.Changes[CreationField], updatedAt int64) error {
	next, _, err := guardUpdatedAt(ctx, s, c, updatedAt, store.Guard{Set: ch.Assignments()})
	if err != nil {
		return err
	}
	c.UpdatedAt = next
	return nil
}

// UpdateStatus moves the creation to status. It reports false when the
// creation already had status.
func (c *Creation) UpdateStatus(ctx context.Context, s *store.Store, status int8, updatedAt int64) (bool, error) {
	next, changed, err := guardUpdatedAt(ctx, s, c, updatedAt, store.Guard{
		Fetch: []string{"status"},
		Check: transition(creations.Name, PublishStatus, status),
		Set:   []store.Assignment{{Column: "status", Value: column.TinyInt(status)}},
	})
	if !changed || err != nil {
		return false, err
	}
	c.Status, c.UpdatedAt = status, next
	return true, nil
}

// UpgradeVersion advances the version after a publication was cut from the
// current one.
func (c *Creation) UpgradeVersion(ctx context.Context, s *store.Store) error {
	if err := s.Get(ctx, c, []string{"version", "updated_at"}); err != nil {
		return err
	}
	v, err := store.NextVersion(creations.Name, c.Version)
	if err != nil {
		return err
	}
	now := store.NextMillis(c.UpdatedAt, s.Now())
	err = s.UpdateIf(ctx, c, []store.Assignment{
		{Column: "version", Value: column.SmallInt(v)},
		{Column: "updated_at", Value: column.BigInt(now)},
	}, store.Eq("version", column.SmallInt(c.Version)))
	if err != nil {
		return err
	}
	c.Version, c.UpdatedAt = v, now
	return nil
}

// Delete removes a withdrawn creation. It reports false when it was already
// gone.
func (c *Creation) Delete(ctx context.Context, s *store.Store) (bool, error) {
	ok, err := present(ctx, s, c, []string{"status"})
	if !ok || err != nil {
		return false, err
	}
	if c.Status != StatusWithdrawn {
		return false, &store.ConflictError{
			Table:    creations.Name,
			Column:   "status",
			Expected: column.TinyInt(StatusWithdrawn),
			Got:      column.TinyInt(c.Status),
			Reason:   "withdraw before deleting",
		}
	}
	return true, s.Remove(ctx, c)
}

// ListCreations pages gid's creations newest first. status, when set,
// filters rows.
func ListCreations(ctx context.Context, s *store.Store, gid xid.ID, fields []string, size int, token *xid.ID, status *int8) (store.Page[*Creation], error) {
	cols, err := creationProjection.Resolve(fields)
	if err != nil {
		return store.Page[*Creation]{}, err
	}
	stmt := store.Select(creations, cols...).Match(store.Eq("gid", idValue(gid)))
	if status != nil {
		stmt.Match(store.Eq("status", column.TinyInt(*status))).Filtering()
	}
	if s.Config().BypassCache {
		stmt.NoCache()
	}
	return listBefore(ctx, s, stmt, "id", size, token,
		func() *Creation { return new(Creation) },
		func(c *Creation) xid.ID { return c.ID })
}
