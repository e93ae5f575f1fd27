package model

import (
	"context"
	"errors"

	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/internal/xday"
	"github.com/jacentio/folio/store"
)

// Publication is one language and version of a creation, as released by a
// group. Its body is a Content row referenced by ContentID.
type Publication struct {
	GID         xid.ID
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
	ContentID   xid.ID
	License     string

	// Body is the side-loaded content body.
	Body []byte

	store.Selection
}

// NewPublication returns a publication addressed by its primary key.
func NewPublication(gid, cid xid.ID, lang language.Base, version int16) *Publication {
	return &Publication{GID: gid, CID: cid, Language: lang, Version: version}
}

func (p *Publication) Table() *store.Table { return publications }
func (p *Publication) Fields() []string    { return publications.Names() }

func (p *Publication) Key() column.Columns {
	return column.Columns{
		"gid":      idValue(p.GID),
		"cid":      idValue(p.CID),
		"language": column.Ascii(p.Language.ISO3()),
		"version":  column.SmallInt(p.Version),
	}
}

func (p *Publication) ToColumns() (column.Columns, error) {
	cols := p.Key()
	cols["status"] = column.TinyInt(p.Status)
	cols["creator"] = idValue(p.Creator)
	cols["created_at"] = column.BigInt(p.CreatedAt)
	cols["updated_at"] = column.BigInt(p.UpdatedAt)
	cols["original_url"] = column.Text(p.OriginalURL)
	cols["title"] = column.Text(p.Title)
	cols["description"] = column.Text(p.Description)
	cols["cover"] = column.Text(p.Cover)
	cols["summary"] = column.Text(p.Summary)
	cols["content"] = idValue(p.ContentID)
	cols["license"] = column.Text(p.License)
	texts := column.ListOf(column.String)
	return cols, firstErr(
		column.SetAs(cols, "model", column.ASCII, p.Model),
		column.SetAs(cols, "genre", texts, p.Genre),
		column.SetAs(cols, "keywords", texts, p.Keywords),
		column.SetAs(cols, "authors", texts, p.Authors),
	)
}

func (p *Publication) FillColumns(cols column.Columns) error {
	texts := column.ListOf(column.String)
	return firstErr(
		column.DecodeInto(cols, "gid", column.XID, &p.GID),
		column.DecodeInto(cols, "cid", column.XID, &p.CID),
		column.DecodeInto(cols, "language", column.Lang, &p.Language),
		column.DecodeInto(cols, "version", column.Int16, &p.Version),
		column.DecodeInto(cols, "status", column.Int8, &p.Status),
		column.DecodeInto(cols, "creator", column.XID, &p.Creator),
		column.DecodeInto(cols, "created_at", column.Int64, &p.CreatedAt),
		column.DecodeInto(cols, "updated_at", column.Int64, &p.UpdatedAt),
		column.DecodeInto(cols, "model", column.ASCII, &p.Model),
		column.DecodeInto(cols, "original_url", column.String, &p.OriginalURL),
		column.DecodeInto(cols, "genre", texts, &p.Genre),
		column.DecodeInto(cols, "title", column.String, &p.Title),
		column.DecodeInto(cols, "description", column.String, &p.Description),
		column.DecodeInto(cols, "cover", column.String, &p.Cover),
		column.DecodeInto(cols, "keywords", texts, &p.Keywords),
		column.DecodeInto(cols, "authors", texts, &p.Authors),
		column.DecodeInto(cols, "summary", column.String, &p.Summary),
		column.DecodeInto(cols, "content", column.XID, &p.ContentID),
		column.DecodeInto(cols, "license", column.String, &p.License),
	)
}

// PublicationField enumerates the caller-updatable publication fields.
type PublicationField uint8

const (
	PublicationModel PublicationField = iota
	PublicationTitle
	PublicationDescription
	PublicationCover
	PublicationKeywords
	PublicationSummary
)

// PublicationFields lists every PublicationField.
var PublicationFields = []PublicationField{
	PublicationModel, PublicationTitle, PublicationDescription,
	PublicationCover, PublicationKeywords, PublicationSummary,
}

func (f PublicationField) Column() string {
	return [...]string{"model", "title", "description", "cover", "keywords", "summary"}[f]
}

func (f PublicationField) Type() column.Type {
	return [...]column.Type{ascii, text, text, text, textList, text}[f]
}

var publicationProjection = store.Projection{
	Table:    publications.Name,
	Fields:   publications.Names(),
	Required: []string{"gid", "cid", "language", "version", "status"},
}

// Get loads the requested fields. When "content" is requested by name the
// body is side-loaded into Body.
func (p *Publication) Get(ctx context.Context, s *store.Store, fields []string) error {
	if err := fetch(ctx, s, p, publicationProjection, fields); err != nil {
		return err
	}
	for _, f := range fields {
		if f == "content" {
			return p.loadBody(ctx, s)
		}
	}
	return nil
}

func (p *Publication) loadBody(ctx context.Context, s *store.Store) error {
	c := NewContent(p.ContentID)
	if err := c.Get(ctx, s, []string{"content"}); err != nil {
		return err
	}
	p.Body = c.Content
	return nil
}

// GetDeleted loads the archived copy of a deleted publication.
func (p *Publication) GetDeleted(ctx context.Context, s *store.Store) error {
	return s.Get(ctx, inTable{p, deletedPublications}, nil)
}

// Save inserts the publication as a draft.
func (p *Publication) Save(ctx context.Context, s *store.Store) error {
	p.Status = StatusDraft
	p.CreatedAt = s.Now().UnixMilli()
	p.UpdatedAt = p.CreatedAt
	err := s.Insert(ctx, p)
	if isConflict(err) {
		return &store.ConflictError{Table: publications.Name, Reason: "publication exists"}
	}
	return err
}

// Update applies ch to a publication in status 0 when the stored
// updated_at equals updatedAt.
func (p *Publication) Update(ctx context.Context, s *store.Store, ch *store.Changes[PublicationField], updatedAt int64) error {
	next, _, err := guardUpdatedAt(ctx, s, p, updatedAt, store.Guard{
		Fetch: []string{"status"},
		Check: editable(publications.Name),
		Set:   ch.Assignments(),
	})
	if err != nil {
		return err
	}
	p.UpdatedAt = next
	return nil
}

// UpdateStatus moves the publication to status. It reports false when the
// publication already had status.
func (p *Publication) UpdateStatus(ctx context.Context, s *store.Store, status int8, updatedAt int64) (bool, error) {
	next, changed, err := guardUpdatedAt(ctx, s, p, updatedAt, store.Guard{
		Fetch: []string{"status"},
		Check: transition(publications.Name, PublishStatus, status),
		Set:   []store.Assignment{{Column: "status", Value: column.TinyInt(status)}},
	})
	if !changed || err != nil {
		return false, err
	}
	p.Status, p.UpdatedAt = status, next
	return true, nil
}

// UpdateContent replaces the body of a publication in status 0, then
// advances its updated_at conditioned on updatedAt.
func (p *Publication) UpdateContent(ctx context.Context, s *store.Store, body []byte, updatedAt int64) error {
	if err := s.Get(ctx, p, []string{"status", "updated_at", "content"}); err != nil {
		return err
	}
	if p.UpdatedAt != updatedAt {
		return &store.ConflictError{
			Table:    publications.Name,
			Column:   "updated_at",
			Expected: column.BigInt(updatedAt),
			Got:      column.BigInt(p.UpdatedAt),
		}
	}
	if err := editable(publications.Name)(column.Columns{"status": column.TinyInt(p.Status)}); err != nil {
		return err
	}

	c := NewContent(p.ContentID)
	if err := c.UpdateContent(ctx, s, p.Version, p.Language, body); err != nil {
		return err
	}
	next := store.NextMillis(updatedAt, s.Now())
	if c.UpdatedAt > next {
		next = c.UpdatedAt
	}
	err := s.UpdateIf(ctx, p, []store.Assignment{{Column: "updated_at", Value: column.BigInt(next)}},
		store.Eq("updated_at", column.BigInt(updatedAt)))
	if err != nil {
		return err
	}
	p.UpdatedAt, p.Body = next, body
	return nil
}

// Delete archives a withdrawn publication into deleted_publication and
// withdraws its content. It reports false when it was already gone.
func (p *Publication) Delete(ctx context.Context, s *store.Store) (bool, error) {
	ok, err := present(ctx, s, p, nil)
	if !ok || err != nil {
		return false, err
	}
	if p.Status != StatusWithdrawn {
		return false, &store.ConflictError{
			Table:    publications.Name,
			Column:   "status",
			Expected: column.TinyInt(StatusWithdrawn),
			Got:      column.TinyInt(p.Status),
			Reason:   "withdraw before deleting",
		}
	}
	c := NewContent(p.ContentID)
	if _, err := c.UpdateStatus(ctx, s, StatusWithdrawn); err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	p.UpdatedAt = store.NextMillis(p.UpdatedAt, s.Now())
	return true, s.Archive(ctx, p, deletedPublications)
}

// CreateFromCreation publishes the current version of an approved creation
// under a copy of its content, then advances the creation's version.
func CreateFromCreation(ctx context.Context, s *store.Store, gid, cid, creator xid.ID) (*Publication, error) {
	creation := NewCreation(gid, cid)
	if err := creation.Get(ctx, s, nil); err != nil {
		return nil, err
	}
	if creation.Status != StatusApproved {
		return nil, store.Invalid(creations.Name, "creation %s is not approved", cid)
	}
	src := NewContent(creation.Content)
	if err := src.Get(ctx, s, nil); err != nil {
		return nil, err
	}

	now := s.Now()
	content := &Content{
		ID:        xid.NewWithTime(now),
		GID:       gid,
		CID:       cid,
		Status:    StatusDraft,
		Version:   creation.Version,
		Language:  creation.Language,
		Content:   src.Content,
	}
	p := &Publication{
		GID:         gid,
		CID:         cid,
		Language:    creation.Language,
		Version:     creation.Version,
		Creator:     creator,
		OriginalURL: creation.OriginalURL,
		Genre:       creation.Genre,
		Title:       creation.Title,
		Description: creation.Description,
		Cover:       creation.Cover,
		Keywords:    creation.Keywords,
		Authors:     creation.Authors,
		Summary:     creation.Summary,
		ContentID:   content.ID,
		License:     creation.License,
	}
	if err := p.Save(ctx, s); err != nil {
		return nil, err
	}
	if err := content.Save(ctx, s); err != nil {
		return nil, err
	}
	if err := creation.UpgradeVersion(ctx, s); err != nil {
		return nil, err
	}
	p.Body = content.Content
	return p, nil
}

// CreateFromDraft publishes an approved draft. The draft body becomes a new
// Content row; metadata the draft left empty is taken from src, the
// publication the draft was prepared from.
func CreateFromDraft(ctx context.Context, s *store.Store, draft *PublicationDraft, src *Publication) (*Publication, error) {
	if err := draft.Get(ctx, s, nil); err != nil {
		return nil, err
	}
	if draft.Status != StatusApproved {
		return nil, store.Invalid(drafts.Name, "draft %s is not approved", draft.ID)
	}
	if err := src.Get(ctx, s, nil); err != nil {
		return nil, err
	}
	if draft.GID == src.GID {
		if src.Status < StatusDraft {
			return nil, store.Invalid(publications.Name, "source publication is withdrawn")
		}
	} else if src.Status != StatusApproved {
		return nil, store.Invalid(publications.Name, "source publication is not published")
	}

	now := s.Now()
	content := &Content{
		ID:        xid.NewWithTime(now),
		GID:       draft.GID,
		CID:       src.CID,
		Status:    StatusDraft,
		Version:   src.Version,
		Language:  draft.Language,
		Content:   draft.Content,
	}
	p := &Publication{
		GID:         draft.GID,
		CID:         src.CID,
		Language:    draft.Language,
		Version:     src.Version,
		Creator:     draft.Creator,
		Model:       draft.Model,
		OriginalURL: src.OriginalURL,
		Genre:       src.Genre,
		Title:       draft.Title,
		Description: firstNonEmpty(draft.Description, src.Description),
		Cover:       firstNonEmpty(draft.Cover, src.Cover),
		Keywords:    draft.Keywords,
		Authors:     src.Authors,
		Summary:     draft.Summary,
		ContentID:   content.ID,
		License:     src.License,
	}
	if len(p.Keywords) == 0 {
		p.Keywords = src.Keywords
	}
	if err := p.Save(ctx, s); err != nil {
		return nil, err
	}
	if err := content.Save(ctx, s); err != nil {
		return nil, err
	}
	p.Body = content.Content
	return p, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func newPublication() *Publication { return new(Publication) }

// ListPublicationsByGID pages gid's publications by creation, newest
// creation first, returning the first row of each creation. The token is
// the last creation id of the previous page.
func ListPublicationsByGID(ctx context.Context, s *store.Store, gid xid.ID, fields []string, size int, token *xid.ID, status *int8) (store.Page[*Publication], error) {
	cols, err := publicationProjection.Resolve(fields)
	if err != nil {
		return store.Page[*Publication]{}, err
	}
	size = s.PageSize(size)
	batch := size * 2
	if batch < 20 {
		batch = 20
	}
	bound := xday.MaxID
	if token != nil {
		bound = *token
	}

	var out []*Publication
	for len(out) <= size {
		stmt := store.Select(publications, cols...).
			Match(store.Eq("gid", idValue(gid)), store.Lt("cid", idValue(bound))).
			Take(batch)
		if status != nil {
			stmt.Match(store.Eq("status", column.TinyInt(*status))).Filtering()
		}
		if s.Config().BypassCache {
			stmt.NoCache()
		}
		rows, err := store.Load(ctx, s, stmt, newPublication)
		if err != nil {
			return store.Page[*Publication]{}, err
		}
		for _, p := range rows {
			if len(out) == 0 || out[len(out)-1].CID != p.CID {
				out = append(out, p)
			}
		}
		if len(rows) < batch {
			break
		}
		bound = rows[len(rows)-1].CID
	}
	if len(out) > size+1 {
		out = out[:size+1]
	}
	return store.PageOf(out, size, func(p *Publication) xid.ID { return p.CID }), nil
}

// ListPublicationsByGIDCID returns every language and version of creation
// cid published by gid.
func ListPublicationsByGIDCID(ctx context.Context, s *store.Store, gid, cid xid.ID, fields []string, status *int8) ([]*Publication, error) {
	cols, err := publicationProjection.Resolve(fields)
	if err != nil {
		return nil, err
	}
	stmt := store.Select(publications, cols...).
		Match(store.Eq("gid", idValue(gid)), store.Eq("cid", idValue(cid))).
		Take(s.Config().MaxPageSize)
	if status != nil {
		stmt.Match(store.Eq("status", column.TinyInt(*status))).Filtering()
	}
	return store.Load(ctx, s, stmt, newPublication)
}

// ListPublishedByCID returns the approved publications of creation cid
// across every group.
func ListPublishedByCID(ctx context.Context, s *store.Store, cid xid.ID, fields []string) ([]*Publication, error) {
	cols, err := publicationProjection.Resolve(fields)
	if err != nil {
		return nil, err
	}
	stmt := store.Select(publications, cols...).
		Match(store.Eq("cid", idValue(cid)), store.Eq("status", column.TinyInt(StatusApproved))).
		Take(s.Config().MaxPageSize).
		Filtering()
	if s.Config().BypassCache {
		stmt.NoCache()
	}
	return store.Load(ctx, s, stmt, newPublication)
}
