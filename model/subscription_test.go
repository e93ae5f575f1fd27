package model_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
)

func TestSubscription(t *testing.T) {
	s, clk := newStore(t)
	ctx := context.Background()
	uid, cid := xid.New(), xid.New()
	expire := base.Add(30 * 24 * time.Hour).UnixMilli()

	sub := model.NewCreationSubscription(uid, cid)
	assert.ErrorIs(t, sub.Save(ctx, s), store.ErrValidation)

	sub.Txn = xid.New()
	sub.ExpireAt = expire
	require.NoError(t, sub.Save(ctx, s))
	assert.True(t, sub.Active(s.Now().UnixMilli()))

	// The same pair is independent across the two subscription tables.
	_, err := model.NewCollectionSubscription(uid, cid).Delete(ctx, s)
	require.NoError(t, err)
	require.NoError(t, model.NewCreationSubscription(uid, cid).Get(ctx, s))

	txn := xid.New()
	require.NoError(t, sub.Update(ctx, s, txn, expire*2, sub.UpdatedAt))
	got := model.NewCreationSubscription(uid, cid)
	require.NoError(t, got.Get(ctx, s))
	assert.Equal(t, txn, got.Txn)
	assert.Equal(t, expire*2, got.ExpireAt)

	err = model.NewCreationSubscription(uid, cid).Update(ctx, s, xid.New(), expire, sub.UpdatedAt-1)
	assert.ErrorIs(t, err, store.ErrConflict)

	clk.Advance(90 * 24 * time.Hour)
	assert.False(t, got.Active(s.Now().UnixMilli()))

	deleted, err := model.NewCreationSubscription(uid, cid).Delete(ctx, s)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = model.NewCreationSubscription(uid, cid).Delete(ctx, s)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListSubscriptions(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	uid := xid.New()

	for i := 0; i < 3; i++ {
		sub := model.NewCollectionSubscription(uid, idAt(base.Add(time.Duration(i)*time.Minute)))
		sub.ExpireAt = base.Add(time.Hour).UnixMilli()
		require.NoError(t, sub.Save(ctx, s))
	}
	other := model.NewCreationSubscription(uid, xid.New())
	other.ExpireAt = 1
	require.NoError(t, other.Save(ctx, s))

	page, err := model.ListCollectionSubscriptions(ctx, s, uid, 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.Next)
	page, err = model.ListCollectionSubscriptions(ctx, s, uid, 2, page.Next)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Nil(t, page.Next)

	page, err = model.ListCreationSubscriptions(ctx, s, uid, 10, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, other.CID, page.Items[0].CID)
}
