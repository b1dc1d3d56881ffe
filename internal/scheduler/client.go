package scheduler

import (
	"context"
	"errors"
	"fmt"

	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/redisconn"

	"github.com/hibiken/asynq"
)

const defaultMaxRetry = 8

// Client enqueues email jobs. It implements Jobs.
type Client struct {
	client *asynq.Client
	queue  string
}

var _ Jobs = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) DealerOutreach(ctx context.Context, payload DealerOutreachPayload) error {
	task, err := NewDealerOutreachTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, taskID(TaskDealerOutreach, payload.LeadID, payload.Dealer))
}

func (c *Client) DealerReply(ctx context.Context, payload DealerReplyPayload) error {
	task, err := NewDealerReplyTask(payload)
	if err != nil {
		return err
	}
	id := ""
	if payload.DealerMessageID != "" {
		id = taskID(TaskDealerReply, payload.LeadID, payload.DealerMessageID)
	}
	return c.enqueue(ctx, task, id)
}

func (c *Client) CustomerDealAccepted(ctx context.Context, payload CustomerDealAcceptedPayload) error {
	task, err := NewCustomerDealAcceptedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, taskID(TaskCustomerDealAccepted, payload.LeadID))
}

func (c *Client) AdminNewLead(ctx context.Context, payload AdminNewLeadPayload) error {
	task, err := NewAdminNewLeadTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, taskID(TaskAdminNewLead, payload.LeadID))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, id string) error {
	if c == nil || c.client == nil {
		return nil
	}

	opts := []asynq.Option{asynq.Queue(c.queue), asynq.MaxRetry(defaultMaxRetry)}
	if id != "" {
		opts = append(opts, asynq.TaskID(id))
	}

	_, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	opt, err := redisconn.ParseOptions(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
