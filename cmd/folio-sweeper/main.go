// Command folio-sweeper is the Lambda function attached to the DynamoDB
// streams of parent tables. It deletes the child-link rows of removed parents.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/folio/backend"
	"github.com/jacentio/folio/config"
	"github.com/jacentio/folio/stream"
)

func main() {
	cfg, err := config.Load(os.Getenv("FOLIO_CONFIG"))
	if err != nil {
		config.Default().Log.Logger(os.Stderr).Fatal().Err(err).Msg("load config")
	}
	logger := cfg.Log.Logger(os.Stderr)

	if cfg.Backend != config.BackendDynamoDB {
		logger.Warn().
			Str("backend", string(cfg.Backend)).
			Msg("sweeper expects the dynamodb backend")
	}

	s, err := backend.Open(context.Background(), cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer s.Close()

	h := stream.NewHandler(s, cfg.Dynamo.TablePrefix, &logger)
	logger.Info().Str("table_prefix", cfg.Dynamo.TablePrefix).Msg("sweeper starting")
	lambda.Start(h.HandleRemoved)
}
