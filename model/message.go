package model

import (
	"context"

	"github.com/rs/xid"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/internal/xday"
	"github.com/jacentio/folio/store"
)

// MaxMessageLen bounds one message payload in bytes.
const MaxMessageLen = 100 * 1024

// Message holds multi-language text attached to another entity. The base
// language payload lives in Message; translations live in one column per
// language and are loaded into I18n.
type Message struct {
	Day       int32
	ID        xid.ID
	AttachTo  xid.ID
	Kind      string
	CreatedAt int64
	UpdatedAt int64
	Context   string
	Language  language.Base
	Languages []language.Base
	Version   int16
	Message   []byte

	// I18n maps ISO 639-3 codes to translated payloads. It is filled from
	// the language columns that were selected and never written by Save.
	I18n map[string][]byte

	store.Selection
}

// NewMessage returns a message addressed by id.
func NewMessage(id xid.ID) *Message {
	return &Message{Day: xday.Day(id), ID: id}
}

func (m *Message) Table() *store.Table { return messages }
func (m *Message) Fields() []string    { return messageFields }

func (m *Message) Key() column.Columns {
	return column.Columns{"day": column.Int(m.Day), "id": idValue(m.ID)}
}

func (m *Message) ToColumns() (column.Columns, error) {
	cols := m.Key()
	cols["attach_to"] = idValue(m.AttachTo)
	cols["created_at"] = column.BigInt(m.CreatedAt)
	cols["updated_at"] = column.BigInt(m.UpdatedAt)
	cols["context"] = column.Text(m.Context)
	cols["version"] = column.SmallInt(m.Version)
	cols["message"] = column.Blob(m.Message)
	return cols, firstErr(
		column.SetAs(cols, "kind", column.ASCII, m.Kind),
		column.SetAs(cols, "language", column.Lang, m.Language),
		column.SetAs(cols, "languages", column.SetOf(column.Lang), m.Languages),
	)
}

func (m *Message) FillColumns(cols column.Columns) error {
	err := firstErr(
		column.DecodeInto(cols, "day", column.Int32, &m.Day),
		column.DecodeInto(cols, "id", column.XID, &m.ID),
		column.DecodeInto(cols, "attach_to", column.XID, &m.AttachTo),
		column.DecodeInto(cols, "kind", column.ASCII, &m.Kind),
		column.DecodeInto(cols, "created_at", column.Int64, &m.CreatedAt),
		column.DecodeInto(cols, "updated_at", column.Int64, &m.UpdatedAt),
		column.DecodeInto(cols, "context", column.String, &m.Context),
		column.DecodeInto(cols, "language", column.Lang, &m.Language),
		column.DecodeInto(cols, "languages", column.SetOf(column.Lang), &m.Languages),
		column.DecodeInto(cols, "version", column.Int16, &m.Version),
		column.DecodeInto(cols, "message", column.Bytes, &m.Message),
	)
	if err != nil {
		return err
	}
	for _, l := range Languages {
		if !cols.Has(l) {
			continue
		}
		payload, err := column.GetAs(cols, l, column.Bytes)
		if err != nil {
			return err
		}
		if m.I18n == nil {
			m.I18n = make(map[string][]byte)
		}
		m.I18n[l] = payload
	}
	return nil
}

// MessageField enumerates the caller-updatable message fields. Payloads
// change through UpdateMessage.
type MessageField uint8

const (
	MessageContext MessageField = iota
)

// MessageFields lists every MessageField.
var MessageFields = []MessageField{MessageContext}

func (f MessageField) Column() string    { return "context" }
func (f MessageField) Type() column.Type { return text }

var messageProjection = store.Projection{
	Table:    messages.Name,
	Fields:   messageFields,
	Required: []string{"language", "version", "updated_at"},
	Pseudo: map[string][]string{
		"i18n": append([]string{"message", "languages"}, Languages...),
	},
	Dynamic: SupportLanguage,
}

// Get loads the requested fields. "i18n" selects the base payload and
// every translation; a language code selects that translation.
func (m *Message) Get(ctx context.Context, s *store.Store, fields []string) error {
	m.Day = xday.Day(m.ID)
	return fetch(ctx, s, m, messageProjection, fields)
}

// GetI18n loads the base payload and, when lang has a column, its
// translation.
func (m *Message) GetI18n(ctx context.Context, s *store.Store, lang language.Base) error {
	fields := []string{"message", "languages"}
	if code := lang.ISO3(); SupportLanguage(code) {
		fields = append(fields, code)
	}
	return m.Get(ctx, s, fields)
}

// BatchGetMessages loads the same fields of every id, in order. A missing
// message fails the whole call.
func BatchGetMessages(ctx context.Context, s *store.Store, ids []xid.ID, fields []string) ([]*Message, error) {
	cols, err := messageProjection.Resolve(fields)
	if err != nil {
		return nil, err
	}
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		m := NewMessage(id)
		if err := s.Get(ctx, m, cols); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Save inserts the message at version 1.
func (m *Message) Save(ctx context.Context, s *store.Store) error {
	if err := store.CheckSize(messages.Name, "message", len(m.Message), MaxMessageLen); err != nil {
		return err
	}
	m.Day = xday.Day(m.ID)
	m.UpdatedAt = s.Now().UnixMilli()
	m.CreatedAt = m.UpdatedAt
	m.Version = 1
	return s.Insert(ctx, m)
}

// Update applies ch when the stored version equals version. The version is
// not advanced.
func (m *Message) Update(ctx context.Context, s *store.Store, ch *store.Changes[MessageField], version int16) error {
	m.Day = xday.Day(m.ID)
	now := store.NextMillis(m.UpdatedAt, s.Now())
	set := append(ch.Assignments(), store.Assignment{Column: "updated_at", Value: column.BigInt(now)})
	_, err := s.Guarded(ctx, m, store.Guard{
		Token:    "version",
		Expected: column.SmallInt(version),
		Next:     column.SmallInt(version),
		Set:      set,
	})
	if err != nil {
		return err
	}
	m.UpdatedAt = now
	m.Select([]string{"updated_at"})
	return nil
}

// UpdateMessage writes payload for lang. A payload in the base language
// replaces Message and advances the version; any other language fills its
// translation column and joins Languages.
func (m *Message) UpdateMessage(ctx context.Context, s *store.Store, lang language.Base, payload []byte, version int16) error {
	code := lang.ISO3()
	if !SupportLanguage(code) {
		return store.Invalid(messages.Name, "unsupported language %q", code)
	}
	if err := store.CheckSize(messages.Name, "message", len(payload), MaxMessageLen); err != nil {
		return err
	}
	if err := m.Get(ctx, s, []string{"version", "language"}); err != nil {
		return err
	}
	if m.Version != version {
		return &store.ConflictError{
			Table:    messages.Name,
			Column:   "version",
			Expected: column.SmallInt(version),
			Got:      column.SmallInt(m.Version),
		}
	}

	now := store.NextMillis(m.UpdatedAt, s.Now())
	set := []store.Assignment{{Column: "updated_at", Value: column.BigInt(now)}}
	next := version
	if code == m.Language.ISO3() {
		v, err := store.NextVersion(messages.Name, version)
		if err != nil {
			return err
		}
		next = v
		set = append(set,
			store.Assignment{Column: "message", Value: column.Blob(payload)},
			store.Assignment{Column: "version", Value: column.SmallInt(next)},
		)
	} else {
		set = append(set,
			store.Assignment{Column: "languages", Value: column.Set{column.Ascii(code)}, Append: true},
			store.Assignment{Column: code, Value: column.Blob(payload)},
		)
	}
	if err := s.UpdateIf(ctx, m, set, store.Eq("version", column.SmallInt(version))); err != nil {
		return err
	}

	m.UpdatedAt, m.Version = now, next
	if next != version {
		m.Message = payload
		m.Select([]string{"updated_at", "version"})
		return nil
	}
	if m.I18n == nil {
		m.I18n = make(map[string][]byte)
	}
	m.I18n[code] = payload
	m.Select([]string{"updated_at"})
	return nil
}

// Delete removes the message when it is attached to attachTo. It reports
// false when the message was already gone.
func (m *Message) Delete(ctx context.Context, s *store.Store, attachTo xid.ID) (bool, error) {
	m.Day = xday.Day(m.ID)
	ok, err := present(ctx, s, m, []string{"attach_to"})
	if !ok || err != nil {
		return false, err
	}
	if m.AttachTo != attachTo {
		return false, &store.ScopeError{Table: messages.Name, Want: attachTo.String(), Got: m.AttachTo.String()}
	}
	return true, s.Remove(ctx, m)
}
