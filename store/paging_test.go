package store_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/internal/xday"
	"github.com/jacentio/folio/store"
	"github.com/jacentio/folio/store/memstore"
)

// dayIndex fakes a day-bucketed table: ids grouped by bucket, newest first.
type dayIndex struct {
	byDay map[int32][]xid.ID
	calls []int32
}

func newDayIndex(ids []xid.ID) *dayIndex {
	idx := &dayIndex{byDay: map[int32][]xid.ID{}}
	for _, id := range ids {
		d := xday.Day(id)
		idx.byDay[d] = append(idx.byDay[d], id)
	}
	for _, ids := range idx.byDay {
		sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) > 0 })
	}
	return idx
}

func (idx *dayIndex) fetch(_ context.Context, day int32, before xid.ID, limit int) ([]xid.ID, error) {
	idx.calls = append(idx.calls, day)
	var out []xid.ID
	for _, id := range idx.byDay[day] {
		if id.Compare(before) < 0 && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

func self(id xid.ID) xid.ID { return id }

func pagingStore(now time.Time, cfg store.Config) *store.Store {
	return store.New(memstore.New(), cfg, store.WithClock(func() time.Time { return now }))
}

func TestScanDays_WalksAllPages(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	var ids []xid.ID
	for d := 0; d < 4; d++ {
		for h := 0; h < 3; h++ {
			ids = append(ids, xid.NewWithTime(now.Add(-time.Duration(d)*24*time.Hour-time.Duration(h)*time.Hour)))
		}
	}
	idx := newDayIndex(ids)
	s := pagingStore(now, store.DefaultConfig())
	ctx := context.Background()

	const size = 5
	var seen []xid.ID
	var token *xid.ID
	pages := 0
	for {
		page, err := store.ScanDays(ctx, s, size, token, idx.fetch, self)
		require.NoError(t, err)
		pages++
		seen = append(seen, page.Items...)
		if page.Next == nil {
			break
		}
		assert.Len(t, page.Items, size)
		next, err := store.ParsePageToken("thing", page.NextToken())
		require.NoError(t, err)
		token = next
		require.LessOrEqual(t, pages, 10, "scan did not terminate")
	}

	assert.Equal(t, 3, pages)
	require.Len(t, seen, len(ids))
	for i := 1; i < len(seen); i++ {
		assert.Equal(t, 1, seen[i-1].Compare(seen[i]), "items must be strictly descending")
	}
}

func TestScanDays_ExactMultipleHasNoEmptyTail(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	ids := []xid.ID{
		xid.NewWithTime(now.Add(-time.Hour)),
		xid.NewWithTime(now.Add(-2 * time.Hour)),
		xid.NewWithTime(now.Add(-26 * time.Hour)),
		xid.NewWithTime(now.Add(-27 * time.Hour)),
	}
	idx := newDayIndex(ids)
	s := pagingStore(now, store.DefaultConfig())

	page, err := store.ScanDays(context.Background(), s, 2, nil, idx.fetch, self)
	require.NoError(t, err)
	require.NotNil(t, page.Next)

	page, err = store.ScanDays(context.Background(), s, 2, page.Next, idx.fetch, self)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Nil(t, page.Next)
	assert.Empty(t, page.NextToken())
}

func TestScanDays_Bounds(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	today := xday.FromTime(now)
	old := xid.NewWithTime(now.Add(-20 * 24 * time.Hour))
	idx := newDayIndex([]xid.ID{old})

	cfg := store.DefaultConfig()
	cfg.ScanDays = 5
	page, err := store.ScanDays(context.Background(), pagingStore(now, cfg), 10, nil, idx.fetch, self)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, []int32{today, today - 1, today - 2, today - 3, today - 4}, idx.calls)

	idx.calls = nil
	cfg = store.DefaultConfig()
	cfg.FloorDay = today - 1
	_, err = store.ScanDays(context.Background(), pagingStore(now, cfg), 10, nil, idx.fetch, self)
	require.NoError(t, err)
	assert.Equal(t, []int32{today, today - 1}, idx.calls)
}

func TestParsePageToken(t *testing.T) {
	id, err := store.ParsePageToken("thing", "")
	require.NoError(t, err)
	assert.Nil(t, id)

	want := xid.New()
	id, err = store.ParsePageToken("thing", store.PageToken(want))
	require.NoError(t, err)
	assert.Equal(t, want, *id)

	_, err = store.ParsePageToken("thing", "not-a-token")
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestPageSize(t *testing.T) {
	s := pagingStore(time.Now(), store.Config{MaxPageSize: 50})
	assert.Equal(t, 1, s.PageSize(0))
	assert.Equal(t, 20, s.PageSize(20))
	assert.Equal(t, 50, s.PageSize(500))
}

func TestScanDays_EarlierDaysBoundedByDayStart(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	today := xday.FromTime(now)
	token := xid.NewWithTime(now.Add(-time.Hour))

	bounds := map[int32]xid.ID{}
	fetch := func(_ context.Context, day int32, before xid.ID, _ int) ([]xid.ID, error) {
		bounds[day] = before
		return nil, nil
	}
	cfg := store.DefaultConfig()
	cfg.ScanDays = 3
	_, err := store.ScanDays(context.Background(), pagingStore(now, cfg), 10, &token, fetch, self)
	require.NoError(t, err)

	assert.Equal(t, token, bounds[today])
	assert.Equal(t, xday.ToID(today), bounds[today-1])
	assert.Equal(t, xday.ToID(today-1), bounds[today-2])
}
