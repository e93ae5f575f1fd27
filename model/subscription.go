package model

import (
	"context"

	"github.com/rs/xid"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// Subscription records a user's paid access to a creation or a collection
// until ExpireAt. Txn is the payment transaction that granted it.
type Subscription struct {
	UID       xid.ID
	CID       xid.ID
	Txn       xid.ID
	UpdatedAt int64
	ExpireAt  int64

	table *store.Table
	store.Selection
}

// NewCreationSubscription addresses uid's subscription to creation cid.
func NewCreationSubscription(uid, cid xid.ID) *Subscription {
	return &Subscription{UID: uid, CID: cid, table: creationSubscriptions}
}

// NewCollectionSubscription addresses uid's subscription to collection cid.
func NewCollectionSubscription(uid, cid xid.ID) *Subscription {
	return &Subscription{UID: uid, CID: cid, table: collectionSubscriptions}
}

func (s *Subscription) Table() *store.Table { return s.table }
func (s *Subscription) Fields() []string    { return s.table.Names() }

func (s *Subscription) Key() column.Columns {
	return column.Columns{"uid": idValue(s.UID), "cid": idValue(s.CID)}
}

func (s *Subscription) ToColumns() (column.Columns, error) {
	cols := s.Key()
	cols["txn"] = idValue(s.Txn)
	cols["updated_at"] = column.BigInt(s.UpdatedAt)
	cols["expire_at"] = column.BigInt(s.ExpireAt)
	return cols, nil
}

func (s *Subscription) FillColumns(cols column.Columns) error {
	return firstErr(
		column.DecodeInto(cols, "uid", column.XID, &s.UID),
		column.DecodeInto(cols, "cid", column.XID, &s.CID),
		column.DecodeInto(cols, "txn", column.XID, &s.Txn),
		column.DecodeInto(cols, "updated_at", column.Int64, &s.UpdatedAt),
		column.DecodeInto(cols, "expire_at", column.Int64, &s.ExpireAt),
	)
}

// Active reports whether the subscription is unexpired at ms.
func (s *Subscription) Active(ms int64) bool { return s.ExpireAt > ms }

// Get loads the whole subscription.
func (s *Subscription) Get(ctx context.Context, st *store.Store) error {
	return st.Get(ctx, s, nil)
}

// Save inserts the subscription.
func (s *Subscription) Save(ctx context.Context, st *store.Store) error {
	if s.ExpireAt <= 0 {
		return store.Invalid(s.table.Name, "expire_at is required")
	}
	s.UpdatedAt = st.Now().UnixMilli()
	return st.Insert(ctx, s)
}

// Update renews the subscription under a new transaction, conditioned on
// the updated_at the caller read.
func (s *Subscription) Update(ctx context.Context, st *store.Store, txn xid.ID, expireAt, updatedAt int64) error {
	next, _, err := guardUpdatedAt(ctx, st, s, updatedAt, store.Guard{
		Set: []store.Assignment{
			{Column: "txn", Value: idValue(txn)},
			{Column: "expire_at", Value: column.BigInt(expireAt)},
		},
	})
	if err != nil {
		return err
	}
	s.Txn, s.ExpireAt, s.UpdatedAt = txn, expireAt, next
	return nil
}

// Delete removes the subscription. It reports false when it was already
// gone.
func (s *Subscription) Delete(ctx context.Context, st *store.Store) (bool, error) {
	ok, err := present(ctx, st, s, []string{"updated_at"})
	if !ok || err != nil {
		return false, err
	}
	return true, st.Remove(ctx, s)
}

func listSubscriptions(ctx context.Context, st *store.Store, t *store.Table, uid xid.ID, size int, token *xid.ID) (store.Page[*Subscription], error) {
	stmt := store.Select(t, t.Names()...).Match(store.Eq("uid", idValue(uid)))
	return listBefore(ctx, st, stmt, "cid", size, token,
		func() *Subscription { return &Subscription{table: t} },
		func(s *Subscription) xid.ID { return s.CID })
}

// ListCreationSubscriptions pages uid's creation subscriptions.
func ListCreationSubscriptions(ctx context.Context, st *store.Store, uid xid.ID, size int, token *xid.ID) (store.Page[*Subscription], error) {
	return listSubscriptions(ctx, st, creationSubscriptions, uid, size, token)
}

// ListCollectionSubscriptions pages uid's collection subscriptions.
func ListCollectionSubscriptions(ctx context.Context, st *store.Store, uid xid.ID, size int, token *xid.ID) (store.Page[*Subscription], error) {
	return listSubscriptions(ctx, st, collectionSubscriptions, uid, size, token)
}
