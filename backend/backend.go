// Package backend builds a store from process configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jacentio/folio/config"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
	"github.com/jacentio/folio/store/cqlstore"
	"github.com/jacentio/folio/store/dynamostore"
	"github.com/jacentio/folio/store/memstore"
)

// OpenSession connects the raw session cfg.Backend selects.
func OpenSession(ctx context.Context, cfg config.Config) (store.Session, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memstore.New(), nil
	case config.BackendScylla:
		return cqlstore.Open(cfg.Scylla)
	case config.BackendDynamoDB:
		return dynamostore.Open(ctx, cfg.Dynamo)
	}
	return nil, fmt.Errorf("backend: unknown backend %q", cfg.Backend)
}

// Open builds a store over the configured backend with every model table
// registered. When metrics are enabled the session is instrumented against
// reg.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*store.Store, error) {
	sess, err := OpenSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		wrapped, err := store.Instrument(sess, reg, cfg.Metrics.Namespace)
		if err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("backend: metrics: %w", err)
		}
		sess = wrapped
	}

	logger.Info().
		Str("backend", string(cfg.Backend)).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("store opened")

	return store.New(sess, cfg.Store,
		store.WithLogger(logger),
		store.WithRegistry(model.Registry()),
	), nil
}

// CreateTables creates every table on the backend behind sess. The in-memory
// backend needs no schema.
func CreateTables(ctx context.Context, sess store.Session, keyspace string, tables []*store.Table) error {
	switch s := sess.(type) {
	case *memstore.Session:
		return nil
	case *cqlstore.Session:
		for _, t := range tables {
			if err := s.ExecDDL(ctx, t.CreateCQL(keyspace)); err != nil {
				return fmt.Errorf("backend: create %s: %w", t.Name, err)
			}
		}
		return nil
	case *dynamostore.Session:
		return s.CreateTables(ctx, tables...)
	}
	return fmt.Errorf("backend: cannot create tables on %T", sess)
}
