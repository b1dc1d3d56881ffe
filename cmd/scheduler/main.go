package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotshoppr_backend/internal/email"
	"lotshoppr_backend/internal/events"
	"lotshoppr_backend/internal/leads"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/internal/notification"
	"lotshoppr_backend/internal/scheduler"
	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/db"
	"lotshoppr_backend/platform/logger"
	"lotshoppr_backend/platform/redisconn"
	"lotshoppr_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "leadStore", cfg.LeadStore)

	if !cfg.IsSchedulerEnabled() {
		panic("REDIS_URL is required to run the scheduler")
	}
	if cfg.LeadStore == config.LeadStoreMemory {
		// The worker cannot see leads held in another process's memory.
		panic("LEAD_STORE must be redis or postgres to run the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store repository.Store
	switch cfg.LeadStore {
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
		defer pool.Close()
		store = repository.NewPostgresStore(pool)

	default:
		client, err := redisconn.NewClient(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		store = repository.NewRedisStore(client)
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	mailer := notification.NewMailer(store, sender, email.NewComposer(nil), cfg, log)

	worker, err := scheduler.NewWorker(cfg, mailer, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })

	// Stale-lead expiry needs the management service; negotiation itself never
	// runs here.
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
	leadsModule := leads.NewModule(store, engine, events.NewInMemoryBus(log), validator.New(), cfg, log)

	if sweeper := scheduler.NewStaleLeadSweeper(leadsModule.ManagementService(), log, cfg.GetLeadSweepInterval(), cfg.GetLeadStaleAfter()); sweeper != nil {
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	} else {
		log.Info("stale lead sweeping disabled", "leadStaleAfter", cfg.GetLeadStaleAfter())
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler error", "error", err)
		panic("scheduler error: " + err.Error())
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
