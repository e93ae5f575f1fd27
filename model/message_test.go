package model_test

import (
	"context"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
)

func saveMessage(t *testing.T, s *store.Store, attachTo xid.ID, payload []byte) *model.Message {
	t.Helper()
	m := model.NewMessage(idAt(s.Now()))
	m.AttachTo = attachTo
	m.Kind = "collection"
	m.Language = lang(t, "eng")
	m.Message = payload
	require.NoError(t, m.Save(context.Background(), s))
	return m
}

func TestMessageUpdateMessage(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	m := saveMessage(t, s, xid.New(), []byte("hello"))
	require.Equal(t, int16(1), m.Version)

	require.NoError(t, model.NewMessage(m.ID).UpdateMessage(ctx, s, lang(t, "fra"), []byte("bonjour"), 1))

	got := model.NewMessage(m.ID)
	require.NoError(t, got.GetI18n(ctx, s, lang(t, "fra")))
	assert.Equal(t, int16(1), got.Version, "translations keep the version")
	assert.Equal(t, []byte("hello"), got.Message)
	assert.Equal(t, []byte("bonjour"), got.I18n["fra"])
	require.Len(t, got.Languages, 1)
	assert.Equal(t, "fra", got.Languages[0].ISO3())

	require.NoError(t, model.NewMessage(m.ID).UpdateMessage(ctx, s, lang(t, "eng"), []byte("hi"), 1))
	got = model.NewMessage(m.ID)
	require.NoError(t, got.Get(ctx, s, []string{"i18n"}))
	assert.Equal(t, int16(2), got.Version)
	assert.Equal(t, []byte("hi"), got.Message)
	assert.Equal(t, []byte("bonjour"), got.I18n["fra"])

	err := model.NewMessage(m.ID).UpdateMessage(ctx, s, lang(t, "deu"), []byte("hallo"), 1)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestMessageUpdateMessageRejectsInput(t *testing.T) {
	s := newMockStore(t)
	m := model.NewMessage(xid.New())

	err := m.UpdateMessage(context.Background(), s, lang(t, "haw"), []byte("aloha"), 1)
	assert.ErrorIs(t, err, store.ErrValidation)

	big := make([]byte, model.MaxMessageLen+1)
	err = m.UpdateMessage(context.Background(), s, lang(t, "eng"), big, 1)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestMessageUpdateContext(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	m := saveMessage(t, s, xid.New(), []byte("hello"))

	ch, err := store.ChangesOf("message", model.MessageFields, column.Columns{"context": column.Text("greeting")})
	require.NoError(t, err)
	require.NoError(t, model.NewMessage(m.ID).Update(ctx, s, ch, 1))

	got := model.NewMessage(m.ID)
	require.NoError(t, got.Get(ctx, s, []string{"context"}))
	assert.Equal(t, "greeting", got.Context)
	assert.Equal(t, int16(1), got.Version)

	err = model.NewMessage(m.ID).Update(ctx, s, ch, 4)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestMessageProjection(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	m := saveMessage(t, s, xid.New(), []byte("hello"))
	require.NoError(t, model.NewMessage(m.ID).UpdateMessage(ctx, s, lang(t, "spa"), []byte("hola"), 1))

	got := model.NewMessage(m.ID)
	require.NoError(t, got.Get(ctx, s, []string{"spa"}))
	assert.Equal(t, []byte("hola"), got.I18n["spa"])
	assert.Nil(t, got.Message)

	err := model.NewMessage(m.ID).Get(ctx, s, []string{"xx"})
	assert.ErrorIs(t, err, store.ErrInvalidField)
}

func TestBatchGetMessages(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	a := saveMessage(t, s, xid.New(), []byte("a"))
	b := saveMessage(t, s, xid.New(), []byte("b"))

	got, err := model.BatchGetMessages(ctx, s, []xid.ID{b.ID, a.ID}, []string{"message"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("b"), got[0].Message)
	assert.Equal(t, []byte("a"), got[1].Message)

	_, err = model.BatchGetMessages(ctx, s, []xid.ID{a.ID, xid.New()}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessageDeleteScope(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	owner := xid.New()
	m := saveMessage(t, s, owner, []byte("x"))

	_, err := model.NewMessage(m.ID).Delete(ctx, s, xid.New())
	assert.ErrorIs(t, err, store.ErrScope)

	deleted, err := model.NewMessage(m.ID).Delete(ctx, s, owner)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = model.NewMessage(m.ID).Delete(ctx, s, owner)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestParseMessageValue(t *testing.T) {
	arr := model.MessageValue{Array: []model.MessageTexts{{ID: "p1", Texts: []string{"a", "b"}}}}
	data, err := arr.Marshal()
	require.NoError(t, err)
	got, err := model.ParseMessageValue(data)
	require.NoError(t, err)
	assert.Equal(t, arr.Array, got.Array)
	assert.Nil(t, got.Map)

	data, err = model.MessageValue{Map: map[string]string{"title": "T"}}.Marshal()
	require.NoError(t, err)
	got, err = model.ParseMessageValue(data)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Map["title"])

	_, err = model.ParseMessageValue([]byte{0x01})
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = model.ParseMessageValue(nil)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestSupportLanguage(t *testing.T) {
	assert.True(t, model.SupportLanguage("eng"))
	assert.True(t, model.SupportLanguage("zul"))
	assert.False(t, model.SupportLanguage("haw"))
	assert.False(t, model.SupportLanguage("en"))
}
