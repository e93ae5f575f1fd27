package model_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
)

func saveBookmark(t *testing.T, s *store.Store, uid xid.ID, at time.Time, cid xid.ID, version int16) *model.Bookmark {
	t.Helper()
	b := model.NewBookmark(uid, idAt(at))
	b.Kind = 1
	b.CID = cid
	b.GID = xid.New()
	b.Language = lang(t, "eng")
	b.Version = version
	b.Title = "chapter"
	b.Labels = []string{"later"}
	b.Payload = []byte{0x01}
	require.NoError(t, b.Save(context.Background(), s))
	return b
}

func TestBookmarkGet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	uid := xid.New()
	saved := saveBookmark(t, s, uid, base, xid.New(), 3)

	got := model.NewBookmark(uid, saved.ID)
	require.NoError(t, got.Get(ctx, s, nil))
	assert.Equal(t, saved.CID, got.CID)
	assert.Equal(t, saved.GID, got.GID)
	assert.Equal(t, "eng", got.Language.ISO3())
	assert.Equal(t, int16(3), got.Version)
	assert.Equal(t, []string{"later"}, got.Labels)
	assert.Equal(t, saved.UpdatedAt, got.UpdatedAt)

	partial := model.NewBookmark(uid, saved.ID)
	require.NoError(t, partial.Get(ctx, s, []string{"title"}))
	assert.Equal(t, "chapter", partial.Title)
	assert.ElementsMatch(t, []string{"title", "kind", "cid", "gid"}, partial.Selected())
	assert.Nil(t, partial.Labels)
	assert.False(t, partial.Selects("labels"))
}

func TestBookmarkGetErrors(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := model.NewBookmark(xid.New(), xid.New()).Get(ctx, s, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = model.NewBookmark(xid.New(), xid.New()).Get(ctx, s, []string{"nope"})
	assert.ErrorIs(t, err, store.ErrInvalidField)
}

func TestBookmarkUpdate(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	b := saveBookmark(t, s, xid.New(), base, xid.New(), 1)
	stale := b.UpdatedAt

	ch, err := store.ChangesOf("bookmark", model.BookmarkFields, column.Columns{
		"title":   column.Text("renamed"),
		"version": column.SmallInt(2),
	})
	require.NoError(t, err)
	require.NoError(t, b.Update(ctx, s, ch, stale))
	assert.Greater(t, b.UpdatedAt, stale)

	got := model.NewBookmark(b.UID, b.ID)
	require.NoError(t, got.Get(ctx, s, []string{"title", "version", "updated_at"}))
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, int16(2), got.Version)
	assert.Equal(t, b.UpdatedAt, got.UpdatedAt)

	err = b.Update(ctx, s, ch, stale)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestBookmarkConcurrentUpdate(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	b := saveBookmark(t, s, xid.New(), base, xid.New(), 1)
	token := b.UpdatedAt

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.NewChanges[model.BookmarkField]()
			if err := store.Put(ch, model.BookmarkTitle, column.String, "writer"); err != nil {
				t.Error(err)
				return
			}
			err := model.NewBookmark(b.UID, b.ID).Update(ctx, s, ch, token)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, store.ErrConflict)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestBookmarkChangesRejectUnknownField(t *testing.T) {
	// Any session call fails the test: the field check runs first.
	s := newMockStore(t)
	b := model.NewBookmark(xid.New(), xid.New())

	_, err := store.ChangesOf("bookmark", model.BookmarkFields, column.Columns{
		"title": column.Text("x"),
		"uid":   column.Blob(xid.New().Bytes()),
	})
	assert.ErrorIs(t, err, store.ErrInvalidField)

	_, err = store.ChangesOf("bookmark", model.BookmarkFields, column.Columns{})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = store.ChangesOf("bookmark", model.BookmarkFields, column.Columns{"version": column.Text("two")})
	assert.Error(t, err)

	err = b.Get(context.Background(), s, []string{"updated"})
	assert.ErrorIs(t, err, store.ErrInvalidField)
}

func TestBookmarkDeleteIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	b := saveBookmark(t, s, xid.New(), base, xid.New(), 1)

	deleted, err := model.NewBookmark(b.UID, b.ID).Delete(ctx, s)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = model.NewBookmark(b.UID, b.ID).Delete(ctx, s)
	require.NoError(t, err)
	assert.False(t, deleted)

	err = model.NewBookmark(b.UID, b.ID).Get(ctx, s, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListBookmarks(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	uid := xid.New()

	want := map[xid.ID]bool{}
	for i := 0; i < 7; i++ {
		b := saveBookmark(t, s, uid, base.Add(time.Duration(i)*time.Second), xid.New(), 1)
		want[b.ID] = true
	}
	saveBookmark(t, s, xid.New(), base, xid.New(), 1)

	var (
		seen  []xid.ID
		token *xid.ID
		pages int
	)
	for {
		page, err := model.ListBookmarks(ctx, s, uid, []string{"title"}, 3, token)
		require.NoError(t, err)
		pages++
		for _, b := range page.Items {
			assert.Equal(t, uid, b.UID)
			seen = append(seen, b.ID)
		}
		if page.Next == nil {
			break
		}
		token = page.Next
	}
	assert.Equal(t, 3, pages)
	require.Len(t, seen, len(want))
	for i, id := range seen {
		assert.True(t, want[id])
		if i > 0 {
			assert.Negative(t, id.Compare(seen[i-1]), "ids must be newest first")
		}
	}
}

func TestBookmarksByCID(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	uid, cid := xid.New(), xid.New()

	saveBookmark(t, s, uid, base, cid, 1)
	third := saveBookmark(t, s, uid, base.Add(time.Second), cid, 3)
	saveBookmark(t, s, uid, base.Add(2*time.Second), cid, 2)
	saveBookmark(t, s, uid, base.Add(3*time.Second), xid.New(), 9)

	items, err := model.ListBookmarksByCID(ctx, s, uid, cid, nil)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int16{3, 2, 1}, []int16{items[0].Version, items[1].Version, items[2].Version})

	got, err := model.GetBookmarkByCID(ctx, s, uid, cid, third.GID, lang(t, "eng"), []string{"version"})
	require.NoError(t, err)
	assert.Equal(t, third.ID, got.ID)

	_, err = model.GetBookmarkByCID(ctx, s, uid, cid, xid.New(), lang(t, "eng"), nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
