package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"example.com/planner/internal/api"
	"example.com/planner/internal/auth"
	"example.com/planner/internal/cache"
	"example.com/planner/internal/config"
	"example.com/planner/internal/domain"
	"example.com/planner/internal/logging"
	"example.com/planner/internal/outbox"
	"example.com/planner/internal/persistence/memory"
	"example.com/planner/internal/persistence/postgres"
	"example.com/planner/internal/preferences"
	httptransport "example.com/planner/internal/transport/http"
)

const demoTenant = "demo-couple"

func main() {
	cfg := config.MustLoad()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "planner-api"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	generations := cache.Generations(cache.NewMemoryGenerations())
	var prefs preferences.Store = preferences.NewMemoryStore()
	if cfg.RedisAddress != "" {
		client, err := cache.NewRedisClient(ctx, cache.RedisOptions{Address: cfg.RedisAddress, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		rdb = client
		defer rdb.Close()
		generations = cache.NewRedisGenerations(rdb)
		prefs = preferences.NewRedisStore(rdb)
	} else {
		logger.Warn().Msg("REDIS_ADDRESS not set, cache generations and preferences are process-local")
	}

	views, err := cache.NewViews(cache.Config{MaxCost: cfg.CacheMaxCost, TTL: cfg.CacheTTL}, generations, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build calendar view cache")
	}
	defer views.Close()

	var repo domain.ActivityRepository
	var dispatcher *outbox.Dispatcher
	switch cfg.RepositoryDriver {
	case config.DriverMemory:
		mem := memory.NewRepository()
		if cfg.SeedDemoData {
			mem.Seed(demoTenant, "alex", "sam", civil.DateOf(time.Now()))
			logger.Info().Str("tenant_id", demoTenant).Int("activities", mem.Len()).Msg("seeded demo activities")
		}
		repo = mem
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		repo = postgres.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithProducerLogger(logger))
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithDispatcherLogger(logger.With().Str("component", "outbox").Logger()))
		go dispatcher.Start(ctx)
	}

	service := domain.NewService(repo,
		domain.WithViewStore(views),
		domain.WithLogger(logger.With().Str("component", "domain").Logger()),
	)

	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go pruneLimiter(ctx, limiter, logger)
	}

	router := api.NewRouter(api.RouterConfig{
		Handler:    api.NewHandler(service, prefs, api.WithHandlerLogger(logger)),
		Auth:       auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Leeway: 30 * time.Second},
		Logger:     logger.With().Str("component", "http").Logger(),
		CORSOrigin: cfg.CORSOrigin,
		Limiter:    limiter,
	})

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router)
	if runErr := httptransport.Run(ctx, server, cfg.ShutdownTimeout, logger); runErr != nil {
		logger.Error().Err(runErr).Msg("http server stopped with error")
	}
	stop()

	if dispatcher != nil {
		dispatcher.Wait()
	}
	logger.Info().Msg("planner api stopped")
}

func pruneLimiter(ctx context.Context, limiter *api.RateLimiter, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				logger.Debug().Int("clients", n).Msg("pruned idle rate limit entries")
			}
		}
	}
}
