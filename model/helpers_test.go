package model_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
	"github.com/jacentio/folio/store/memstore"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// clock ticks one millisecond per reading so every token write moves on.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore(t *testing.T) (*store.Store, *clock) {
	t.Helper()
	c := &clock{t: base}
	s := store.New(memstore.New(), store.DefaultConfig(),
		store.WithClock(c.Now),
		store.WithRegistry(model.Registry()))
	t.Cleanup(func() { _ = s.Close() })
	return s, c
}

// newMockStore returns a store whose session fails the test on any call.
func newMockStore(t *testing.T) *store.Store {
	t.Helper()
	ctrl := gomock.NewController(t)
	return store.New(store.NewMockSession(ctrl), store.DefaultConfig())
}

func lang(t *testing.T, code string) language.Base {
	t.Helper()
	b, err := language.ParseBase(code)
	require.NoError(t, err)
	return b
}

func idAt(t time.Time) xid.ID { return xid.NewWithTime(t) }

func ptr[T any](v T) *T { return &v }
