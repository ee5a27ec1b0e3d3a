package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/loanledger/internal/adapter/http"
	"github.com/iho/loanledger/internal/adapter/http/handler"
	"github.com/iho/loanledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/loanledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/loanledger/internal/adapter/repository/redis"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/config"
	"github.com/iho/loanledger/internal/infrastructure/eventpublisher"
	"github.com/iho/loanledger/internal/infrastructure/logger"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/infrastructure/postgres"
	"github.com/iho/loanledger/internal/infrastructure/redis"
	"github.com/iho/loanledger/internal/infrastructure/scheduler"
	"github.com/iho/loanledger/internal/usecase"
)

const (
	streamMaxLen          = 100_000
	rateLimiterCleanEvery = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "loanledger-server"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, poolConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	sequencePool, err := postgres.NewPoolWithConfig(ctx, sequencePoolConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect to postgres (sequences): %w", err)
	}
	defer sequencePool.Close()
	log.Info().Int("sequence_conns", cfg.DatabaseSequenceMaxConns).Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, redis.DefaultConnectTimeout)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	loanRepo := postgresRepo.NewLoanRepository(pool)
	entryRepo := postgresRepo.NewLedgerEntryRepository(pool)
	paymentRepo := postgresRepo.NewPaymentRepository(pool)
	applicationRepo := postgresRepo.NewPaymentApplicationRepository(pool)
	movementRepo := postgresRepo.NewMovementRepository(pool)
	sequenceRepo := postgresRepo.NewSequenceRepository(sequencePool, cfg.SequenceLockTimeout)
	outboxRepo := outboxRepository(cfg, pool, log)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)
	cache := redisRepo.NewCache(redisClient).WithLookupCounter(m.CacheLookups)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	jobLock := redisRepo.NewJobLock(redisClient)

	// Initialize use cases
	sequenceUC := usecase.NewSequenceUseCase(sequenceRepo, m, log)
	loanUC := usecase.NewLoanUseCase(txManager, loanRepo, entryRepo, outboxRepo, sequenceUC, idGen, cache, m, log)
	ledgerUC := usecase.NewLedgerUseCase(txManager, loanRepo, entryRepo, sequenceUC, m, log)
	accrualUC := usecase.NewAccrualUseCase(txManager, loanRepo, entryRepo, outboxRepo, sequenceUC, idGen, retrier, m, log)
	paymentUC := usecase.NewPaymentUseCase(txManager, loanRepo, entryRepo, paymentRepo, applicationRepo, outboxRepo, sequenceUC, idGen, m, log)
	reconciliationUC := usecase.NewReconciliationUseCase(txManager, paymentRepo, movementRepo, outboxRepo, sequenceUC, idGen,
		domain.MatchOptions{Currency: cfg.LedgerCurrency, ExactThreshold: cfg.ReconciliationDPThreshold}, m, log)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithHitCounter(m.RateLimitHits)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LoanHandler:           handler.NewLoanHandler(loanUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		AccrualHandler:        handler.NewAccrualHandler(accrualUC),
		PaymentHandler:        handler.NewPaymentHandler(paymentUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		SequenceHandler:       handler.NewSequenceHandler(sequenceUC),
		HealthHandler:         handler.NewHealthHandler(handler.PostgresCheck(pool), handler.RedisCheck(redisClient)),
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           rateLimiter,
		Logger:                log,
	})

	workers, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if cfg.OutboxEnabled {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  eventSink(cfg, redisClient, log),
			Metrics:    m,
			Logger:     log,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
		})
		go func() {
			if err := publisher.Start(workers); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	if cfg.AccrualEnabled {
		accrualScheduler, err := scheduler.New(scheduler.Config{
			Closer:  accrualUC,
			Locker:  jobLock,
			Logger:  log,
			Spec:    cfg.AccrualCron,
			Owner:   instanceName(),
			LockTTL: cfg.AccrualJobLockTTL,
		})
		if err != nil {
			return err
		}
		log.Info().Time("next_run", accrualScheduler.Next(time.Now())).Msg("accrual scheduler enabled")
		go func() {
			if err := accrualScheduler.Start(workers); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("accrual scheduler stopped")
			}
		}()
	}

	go cleanupRateLimiter(workers, rateLimiter, rateLimiterCleanEvery)

	server := newHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// eventSink publishes to the configured redis stream, or to the log when
// OUTBOX_SINK=log.
func eventSink(cfg *config.Config, client *goredis.Client, log zerolog.Logger) eventpublisher.Publisher {
	if cfg.OutboxSink == "log" {
		return eventpublisher.NewLogPublisher(log)
	}
	return eventpublisher.NewStreamPublisher(client, cfg.OutboxStream, streamMaxLen)
}

func poolConfig(cfg *config.Config) postgres.PoolConfig {
	return postgres.PoolConfig{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		ConnectTimeout:   cfg.DatabaseTimeout,
		StatementTimeout: cfg.DatabaseStatementTimeout,
	}
}

// sequencePoolConfig sizes the pool the sequence counters allocate from.
// Use cases reserve numbers while their own transaction holds a connection
// of the main pool, so sharing it could starve under load.
func sequencePoolConfig(cfg *config.Config) postgres.PoolConfig {
	pc := poolConfig(cfg)
	pc.MaxConns = cfg.DatabaseSequenceMaxConns
	pc.MinConns = 1
	return pc
}

// outboxRepository returns the durable outbox, or a discarding one when the
// relay is disabled so events do not pile up unread.
func outboxRepository(cfg *config.Config, pool *pgxpool.Pool, log zerolog.Logger) usecase.OutboxRepository {
	if !cfg.OutboxEnabled {
		return postgresRepo.NewNullOutboxRepository(log)
	}
	return postgresRepo.NewOutboxRepository(pool)
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

// instanceName identifies this replica as a job lock owner.
func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func cleanupRateLimiter(ctx context.Context, rl *middleware.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters()
		}
	}
}
