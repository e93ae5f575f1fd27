package model_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
)

func saveCollection(t *testing.T, s *store.Store, gid xid.ID, at time.Time) *model.Collection {
	t.Helper()
	c := model.NewCollection(idAt(at))
	c.GID = gid
	c.Cover = "cover.png"
	c.Price = 100
	c.CreationPrice = 10
	require.NoError(t, c.Save(context.Background(), s))
	return c
}

func TestCollectionInfo(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()

	c := model.NewCollection(idAt(base))
	info, err := model.CollectionInfo{Title: "Poems", Summary: "short ones"}.Marshal()
	require.NoError(t, err)
	msg := saveMessage(t, s, c.ID, info)
	c.GID, c.MID = gid, msg.ID
	require.NoError(t, c.Save(ctx, s))
	require.NoError(t, model.NewMessage(msg.ID).UpdateMessage(ctx, s, lang(t, "fra"), []byte("fr"), 1))

	got := model.NewCollection(c.ID)
	require.NoError(t, got.Get(ctx, s, nil, lang(t, "fra")))
	require.NotNil(t, got.Info)
	parsed, err := model.ParseCollectionInfo(got.Info.Message)
	require.NoError(t, err)
	assert.Equal(t, "Poems", parsed.Title)
	assert.Equal(t, []byte("fr"), got.Info.I18n["fra"])

	plain := model.NewCollection(c.ID)
	require.NoError(t, plain.Get(ctx, s, []string{"cover"}, lang(t, "eng")))
	assert.Nil(t, plain.Info)
	assert.Equal(t, "cover.png", plain.Cover)
	assert.Equal(t, gid, plain.GID)

	viaPseudo := model.NewCollection(c.ID)
	require.NoError(t, viaPseudo.Get(ctx, s, []string{"info"}, lang(t, "eng")))
	require.NotNil(t, viaPseudo.Info)
	assert.Equal(t, msg.ID, viaPseudo.MID)
}

func TestCollectionSaveValidatesPrice(t *testing.T) {
	s := newMockStore(t)
	c := model.NewCollection(xid.New())
	c.Price, c.CreationPrice = 5, 10
	assert.ErrorIs(t, c.Save(context.Background(), s), store.ErrValidation)
}

func TestCollectionUpdateScope(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()
	c := saveCollection(t, s, gid, base)

	ch, err := store.ChangesOf("collection", model.CollectionFields, column.Columns{"price": column.BigInt(250)})
	require.NoError(t, err)

	err = model.NewCollection(c.ID).Update(ctx, s, xid.New(), ch, c.UpdatedAt)
	assert.ErrorIs(t, err, store.ErrScope)

	require.NoError(t, c.Update(ctx, s, gid, ch, c.UpdatedAt))
	got := model.NewCollection(c.ID)
	require.NoError(t, got.Get(ctx, s, []string{"price"}, lang(t, "eng")))
	assert.Equal(t, int64(250), got.Price)

	changed, err := c.UpdateStatus(ctx, s, gid, model.StatusReview, c.UpdatedAt)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = c.UpdateStatus(ctx, s, gid, model.StatusReview, c.UpdatedAt)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCollectionUpdateRejectsWithdrawn(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()
	c := saveCollection(t, s, gid, base)

	_, err := c.UpdateStatus(ctx, s, gid, model.StatusWithdrawn, c.UpdatedAt)
	require.NoError(t, err)

	ch, err := store.ChangesOf("collection", model.CollectionFields, column.Columns{"cover": column.Text("new.png")})
	require.NoError(t, err)
	err = c.Update(ctx, s, gid, ch, c.UpdatedAt)
	assert.ErrorIs(t, err, store.ErrConflict)

	got := model.NewCollection(c.ID)
	require.NoError(t, got.Get(ctx, s, []string{"cover", "updated_at"}, lang(t, "eng")))
	assert.Equal(t, "cover.png", got.Cover)
	assert.Equal(t, c.UpdatedAt, got.UpdatedAt)
}

func TestCollectionUpdateValidatesPrices(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()
	c := saveCollection(t, s, gid, base) // price 100, creation price 10

	tests := []struct {
		name    string
		changes column.Columns
		wantErr bool
	}{
		{"creation price above stored price", column.Columns{"creation_price": column.BigInt(150)}, true},
		{"price below stored creation price", column.Columns{"price": column.BigInt(5)}, true},
		{"both changed together", column.Columns{"price": column.BigInt(300), "creation_price": column.BigInt(200)}, false},
		{"creation price within price", column.Columns{"creation_price": column.BigInt(300)}, false},
		{"free collection", column.Columns{"price": column.BigInt(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := store.ChangesOf("collection", model.CollectionFields, tt.changes)
			require.NoError(t, err)
			before := c.UpdatedAt
			err = c.Update(ctx, s, gid, ch, c.UpdatedAt)
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrValidation)
				assert.Equal(t, before, c.UpdatedAt)
				return
			}
			require.NoError(t, err)
		})
	}

	got := model.NewCollection(c.ID)
	require.NoError(t, got.Get(ctx, s, []string{"price", "creation_price"}, lang(t, "eng")))
	assert.Equal(t, int64(-1), got.Price)
	assert.Equal(t, int64(300), got.CreationPrice)
}

func TestCollectionChildren(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()
	c := saveCollection(t, s, gid, base)

	first := []xid.ID{xid.New(), xid.New(), xid.New()}
	added, err := c.AddChildren(ctx, s, gid, first, model.ChildCreation)
	require.NoError(t, err)
	assert.Equal(t, first, added)

	second := []xid.ID{first[1], xid.New()}
	added, err = c.AddChildren(ctx, s, gid, second, model.ChildCreation)
	require.NoError(t, err)
	assert.Equal(t, second[1:], added, "existing links are skipped")

	children, err := model.ListChildren(ctx, s, c.ID)
	require.NoError(t, err)
	var order []xid.ID
	for _, ch := range children {
		order = append(order, ch.CID)
	}
	assert.Equal(t, append(append([]xid.ID{}, first...), second[1]), order)

	n, err := model.CountChildren(ctx, s, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	links, err := model.ListByChild(ctx, s, first[0])
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, c.ID, links[0].ID)

	move := &model.CollectionChild{ID: c.ID, CID: first[0]}
	require.NoError(t, move.UpdateOrd(ctx, s, children[3].Ord+1))
	children, err = model.ListChildren(ctx, s, c.ID)
	require.NoError(t, err)
	assert.Equal(t, first[0], children[3].CID)

	missing := &model.CollectionChild{ID: c.ID, CID: xid.New()}
	assert.ErrorIs(t, missing.UpdateOrd(ctx, s, 1), store.ErrConflict)
}

func TestCollectionAddChildrenRejects(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()
	c := saveCollection(t, s, gid, base)

	_, err := c.AddChildren(ctx, s, gid, []xid.ID{c.ID}, model.ChildCollection)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = c.AddChildren(ctx, s, xid.New(), []xid.ID{xid.New()}, model.ChildCreation)
	assert.ErrorIs(t, err, store.ErrScope)

	_, err = c.UpdateStatus(ctx, s, gid, model.StatusWithdrawn, c.UpdatedAt)
	require.NoError(t, err)
	_, err = c.AddChildren(ctx, s, gid, []xid.ID{xid.New()}, model.ChildCreation)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestCollectionDeleteCascades(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()

	c := model.NewCollection(idAt(base))
	msg := saveMessage(t, s, c.ID, []byte("info"))
	c.GID, c.MID = gid, msg.ID
	require.NoError(t, c.Save(ctx, s))
	_, err := c.AddChildren(ctx, s, gid, []xid.ID{xid.New(), xid.New()}, model.ChildPublication)
	require.NoError(t, err)

	_, err = model.NewCollection(c.ID).Delete(ctx, s, gid)
	assert.ErrorIs(t, err, store.ErrConflict, "live collections cannot be deleted")

	_, err = model.NewCollection(c.ID).Delete(ctx, s, xid.New())
	assert.ErrorIs(t, err, store.ErrScope)

	_, err = c.UpdateStatus(ctx, s, gid, model.StatusWithdrawn, c.UpdatedAt)
	require.NoError(t, err)
	deleted, err := model.NewCollection(c.ID).Delete(ctx, s, gid)
	require.NoError(t, err)
	assert.True(t, deleted)

	children, err := model.ListChildren(ctx, s, c.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
	err = model.NewMessage(msg.ID).Get(ctx, s, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err = model.NewCollection(c.ID).Delete(ctx, s, gid)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListCollectionsByGID(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	gid := xid.New()

	var want []xid.ID
	for i := 0; i < 5; i++ {
		// Spread across day buckets, oldest first.
		c := saveCollection(t, s, gid, base.Add(time.Duration(i-5)*36*time.Hour))
		want = append([]xid.ID{c.ID}, want...)
	}
	saveCollection(t, s, xid.New(), base.Add(-time.Hour))

	var (
		got   []xid.ID
		token *xid.ID
	)
	for {
		page, err := model.ListCollectionsByGID(ctx, s, gid, []string{"cover"}, 2, token, nil)
		require.NoError(t, err)
		for _, c := range page.Items {
			assert.Equal(t, gid, c.GID)
			got = append(got, c.ID)
		}
		if page.Next == nil {
			break
		}
		token = page.Next
	}
	assert.Equal(t, want, got)

	page, err := model.ListCollectionsByGID(ctx, s, gid, nil, 10, nil, ptr(model.StatusReview))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
