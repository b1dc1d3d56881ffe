package scheduler

import (
	"context"
	"fmt"

	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs Jobs, log *logger.Logger) (*Worker, error) {
	if jobs == nil {
		return nil, fmt.Errorf("scheduler worker requires a job handler")
	}

	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Warn("scheduler task failed", "type", task.Type(), "error", err)
		}),
	})

	return &Worker{
		server: server,
		mux:    newServeMux(jobs),
		log:    log,
	}, nil
}

func newServeMux(jobs Jobs) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDealerOutreach, func(ctx context.Context, task *asynq.Task) error {
		payload, err := parsePayload[DealerOutreachPayload](task)
		if err != nil {
			return skip(err)
		}
		return jobs.DealerOutreach(ctx, payload)
	})
	mux.HandleFunc(TaskDealerReply, func(ctx context.Context, task *asynq.Task) error {
		payload, err := parsePayload[DealerReplyPayload](task)
		if err != nil {
			return skip(err)
		}
		return jobs.DealerReply(ctx, payload)
	})
	mux.HandleFunc(TaskCustomerDealAccepted, func(ctx context.Context, task *asynq.Task) error {
		payload, err := parsePayload[CustomerDealAcceptedPayload](task)
		if err != nil {
			return skip(err)
		}
		return jobs.CustomerDealAccepted(ctx, payload)
	})
	mux.HandleFunc(TaskAdminNewLead, func(ctx context.Context, task *asynq.Task) error {
		payload, err := parsePayload[AdminNewLeadPayload](task)
		if err != nil {
			return skip(err)
		}
		return jobs.AdminNewLead(ctx, payload)
	})
	return mux
}

// skip marks an undecodable payload as permanently failed; retrying cannot fix it.
func skip(err error) error {
	return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
}

// Run processes jobs until ctx is cancelled. The server is started rather
// than run so the caller owns signal handling.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}
