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

	"lotshoppr_backend/internal/adapters"
	"lotshoppr_backend/internal/adapters/storage"
	"lotshoppr_backend/internal/email"
	"lotshoppr_backend/internal/events"
	apphttp "lotshoppr_backend/internal/http"
	"lotshoppr_backend/internal/http/router"
	"lotshoppr_backend/internal/leads"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/internal/notification"
	"lotshoppr_backend/internal/scheduler"
	"lotshoppr_backend/internal/webhook"
	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/db"
	"lotshoppr_backend/platform/logger"
	"lotshoppr_backend/platform/redisconn"
	"lotshoppr_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "leadStore", cfg.LeadStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var redisClient *redis.Client
	if cfg.GetRedisURL() != "" {
		if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
			c, err := redisconn.NewClient(ctx, cfg)
			if err != nil {
				return err
			}
			redisClient = c
			return nil
		}); err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("redis connection established")
	}

	store, storePing, closeStore := openLeadStore(ctx, cfg, redisClient, log)
	defer closeStore()

	var probes []adapters.Pinger
	if storePing != nil {
		probes = append(probes, storePing)
	}
	if redisClient != nil {
		probes = append(probes, adapters.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	policy, err := negotiation.PolicyFromConfig(cfg)
	if err != nil {
		log.Error("failed to load negotiation policy", "error", err)
		panic("failed to load negotiation policy: " + err.Error())
	}
	engine, err := negotiation.NewEngine(policy)
	if err != nil {
		log.Error("failed to build negotiation engine", "error", err)
		panic("failed to build negotiation engine: " + err.Error())
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	if !cfg.GetEmailEnabled() {
		log.Warn("email delivery disabled; outbound mail is logged and dropped")
	}
	mailer := notification.NewMailer(store, sender, email.NewComposer(nil), cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	var archive storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, minioSvc, cfg.GetMinioBucketInboundEmails())
		archive = minioSvc
		log.Info("storage service initialized", "bucket", cfg.GetMinioBucketInboundEmails())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(store, engine, eventBus, val, cfg, log)
	mgmt := leadsModule.ManagementService()

	// Email jobs go through the queue when Redis is available; otherwise they
	// run inline on the event bus goroutine.
	var jobs scheduler.Jobs = mailer
	if cfg.IsSchedulerEnabled() {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		jobs = client
	} else {
		log.Warn("REDIS_URL not configured; email jobs run inline without retries")
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notification.New(jobs, log).RegisterHandlers(eventBus)

	var submissions webhook.Repository
	if redisClient != nil {
		submissions = webhook.NewRedisRepository(redisClient)
	}
	webhookModule := webhook.NewModule(webhook.Dependencies{
		Repo:          submissions,
		Intake:        mgmt,
		Replies:       adapters.NewDealerReplyAdapter(mgmt),
		Storage:       archive,
		StorageBucket: cfg.GetMinioBucketInboundEmails(),
	}, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   adapters.NewHealthChecker(probes...),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			webhookModule,
			notification.NewAdminModule(mailer, val),
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.RunWorker {
		if cfg.IsSchedulerEnabled() {
			worker, err := scheduler.NewWorker(cfg, mailer, log)
			if err != nil {
				log.Error("failed to initialize scheduler worker", "error", err)
				panic("failed to initialize scheduler worker: " + err.Error())
			}
			g.Go(func() error { return worker.Run(gctx) })
		}

		if sweeper := scheduler.NewStaleLeadSweeper(mgmt, log, cfg.GetLeadSweepInterval(), cfg.GetLeadStaleAfter()); sweeper != nil {
			g.Go(func() error {
				sweeper.Run(gctx)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}

	// Let in-flight event handlers finish their email jobs.
	eventBus.Wait()
	log.Info("server stopped")
}

// openLeadStore builds the configured lead store and, for external backends,
// the readiness probe for it.
func openLeadStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *logger.Logger) (repository.Store, adapters.Pinger, func()) {
	switch cfg.LeadStore {
	case config.LeadStoreRedis:
		return repository.NewRedisStore(redisClient), nil, func() {}

	case config.LeadStorePostgres:
		var pool *pgxpool.Pool
		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			log.DatabaseError("connect", err)
			panic("failed to connect to database: " + err.Error())
		}
		log.Info("database connection established")

		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.DatabaseError("migrate", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")

		return repository.NewPostgresStore(pool), adapters.PingFunc(pool.Ping), pool.Close

	default:
		log.Warn("using in-memory lead store; leads are lost on restart")
		return repository.NewMemoryStore(), nil, func() {}
	}
}

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, bucket string) {
	if err := withRetry(ctx, log, "ensure storage bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
