package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/planner/internal/cache"
	"example.com/planner/internal/config"
	"example.com/planner/internal/consumer"
	"example.com/planner/internal/logging"
	httptransport "example.com/planner/internal/transport/http"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "planner-consumer"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("consumer exited")
	}
	logger.Info().Msg("consumer stopped")
}

// run consumes every configured topic until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	invalidator, closeCache, err := newInvalidator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	handler := consumer.Chain{
		consumer.NewEventLog(pool),
		consumer.NewInvalidationHandler(invalidator, logger.With().Str("component", "invalidation").Logger()),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler())
		if err := httptransport.Run(ctx, srv, cfg.ShutdownTimeout, logger); err != nil {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	for _, topic := range cfg.ConsumerTopics {
		reader := newReader(cfg, topic)
		log := logger.With().Str("topic", topic).Str("group", cfg.ConsumerGroupID).Logger()
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(log))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()

			log.Info().Msg("consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("consumer stopped with error")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("consumer shutdown requested")
	wg.Wait()
	return nil
}

// newInvalidator bumps the shared Redis generation when Redis is configured.
// Without it API replicas rely on their own write-path invalidation and the
// cache TTL.
func newInvalidator(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Invalidator, func(), error) {
	if cfg.RedisAddress == "" {
		return cache.NoopInvalidator{}, func() {}, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cache.RedisOptions{Address: cfg.RedisAddress, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger)
	if err != nil {
		return nil, nil, err
	}
	return cache.GenerationInvalidator{Generations: cache.NewRedisGenerations(rdb)}, func() { _ = rdb.Close() }, nil
}

func newReader(cfg config.Config, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           topic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		ReadLagInterval: -1,
	})
}
