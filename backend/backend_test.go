package backend_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/language"

	"github.com/jacentio/folio/backend"
	"github.com/jacentio/folio/config"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
	"github.com/jacentio/folio/store/memstore"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	s, err := backend.Open(ctx, config.Default(), zerolog.Nop(), nil)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Session().(*memstore.Session)
	assert.True(t, ok)
	assert.True(t, s.Registry().HasChildren("collection"))

	b := model.NewBookmark(xid.New(), xid.New())
	b.CID = xid.New()
	b.Language = language.MustParseBase("eng")
	require.NoError(t, b.Save(ctx, s))
	require.NoError(t, model.NewBookmark(b.UID, b.ID).Get(ctx, s, nil))
}

func TestOpenInstrumented(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	cfg := config.Default()
	cfg.Metrics = config.Metrics{Enabled: true, Namespace: "test"}

	s, err := backend.Open(ctx, cfg, zerolog.Nop(), reg)
	require.NoError(t, err)

	err = model.NewContent(xid.New()).Get(ctx, s, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := testutil.GatherAndCount(reg, "test_store_statements_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A second store in the same process shares the collectors.
	_, err = backend.Open(ctx, cfg, zerolog.Nop(), reg)
	require.NoError(t, err)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "postgres"
	_, err := backend.Open(context.Background(), cfg, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestCreateTables(t *testing.T) {
	ctx := context.Background()
	tables := model.Registry().Tables()
	require.NoError(t, backend.CreateTables(ctx, memstore.New(), "folio", tables))

	ctrl := gomock.NewController(t)
	err := backend.CreateTables(ctx, store.NewMockSession(ctrl), "folio", tables)
	assert.Error(t, err)
}
