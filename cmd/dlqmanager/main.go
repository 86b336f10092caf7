package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/planner/internal/config"
	"example.com/planner/internal/logging"
	"example.com/planner/internal/outbox"
	httptransport "example.com/planner/internal/transport/http"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "planner-dlqmanager"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		metricsSrv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
		if err := httptransport.Run(ctx, metricsSrv, cfg.ShutdownTimeout, logger); err != nil {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, logger.With().Str("component", "dlq").Logger())
	manager.Run(ctx, cfg.DLQPollInterval, cfg.DLQBatchSize)

	<-metricsDone
}
