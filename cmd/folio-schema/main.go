// Command folio-schema prints the CQL schema of every folio table, or creates
// the tables on the configured backend with -apply.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jacentio/folio/backend"
	"github.com/jacentio/folio/config"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("FOLIO_CONFIG"), "Path to configuration file (env: FOLIO_CONFIG)")
	keyspace := flag.String("keyspace", "", "Keyspace to qualify table names with (default: scylla.keyspace)")
	apply := flag.Bool("apply", false, "Create the tables on the configured backend instead of printing")
	timeout := flag.Duration("timeout", 5*time.Minute, "Deadline for -apply")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger(os.Stderr)

	ks := *keyspace
	if ks == "" {
		ks = cfg.Scylla.Keyspace
	}
	tables := model.Registry().Tables()

	if !*apply {
		writeSchema(os.Stdout, ks, tables)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sess, err := backend.OpenSession(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session")
	}
	defer sess.Close()

	if err := backend.CreateTables(ctx, sess, ks, tables); err != nil {
		logger.Fatal().Err(err).Msg("create tables")
	}
	logger.Info().
		Str("backend", string(cfg.Backend)).
		Int("tables", len(tables)).
		Msg("schema applied")
}

func writeSchema(w io.Writer, keyspace string, tables []*store.Table) {
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, t.CreateCQL(keyspace))
	}
}
