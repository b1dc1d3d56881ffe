package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lotshoppr_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type recordingJobs struct {
	mu       sync.Mutex
	outreach []DealerOutreachPayload
	replies  []DealerReplyPayload
	accepted []CustomerDealAcceptedPayload
	admin    []AdminNewLeadPayload
	err      error
}

func (r *recordingJobs) DealerOutreach(_ context.Context, p DealerOutreachPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outreach = append(r.outreach, p)
	return r.err
}

func (r *recordingJobs) DealerReply(_ context.Context, p DealerReplyPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, p)
	return r.err
}

func (r *recordingJobs) CustomerDealAccepted(_ context.Context, p CustomerDealAcceptedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted = append(r.accepted, p)
	return r.err
}

func (r *recordingJobs) AdminNewLead(_ context.Context, p AdminNewLeadPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = append(r.admin, p)
	return r.err
}

func TestServeMuxRoutesTasks(t *testing.T) {
	jobs := &recordingJobs{}
	mux := newServeMux(jobs)
	ctx := context.Background()

	tasks := []func() (*asynq.Task, error){
		func() (*asynq.Task, error) {
			return NewDealerOutreachTask(DealerOutreachPayload{LeadID: "lead-1", Dealer: "a@dealer.com"})
		},
		func() (*asynq.Task, error) {
			return NewDealerReplyTask(DealerReplyPayload{LeadID: "lead-1", Dealer: "a@dealer.com", Body: "Thanks", DealerMessageID: "m1"})
		},
		func() (*asynq.Task, error) {
			return NewCustomerDealAcceptedTask(CustomerDealAcceptedPayload{LeadID: "lead-1", Dealer: "a@dealer.com", OfferText: "OTD $24,000"})
		},
		func() (*asynq.Task, error) {
			return NewAdminNewLeadTask(AdminNewLeadPayload{LeadID: "lead-1", Source: "tally"})
		},
	}

	for _, build := range tasks {
		task, err := build()
		if err != nil {
			t.Fatalf("build task: %v", err)
		}
		if err := mux.ProcessTask(ctx, task); err != nil {
			t.Fatalf("process %s: %v", task.Type(), err)
		}
	}

	if len(jobs.outreach) != 1 || jobs.outreach[0].Dealer != "a@dealer.com" {
		t.Fatalf("unexpected outreach jobs: %#v", jobs.outreach)
	}
	if len(jobs.replies) != 1 || jobs.replies[0].DealerMessageID != "m1" || jobs.replies[0].Body != "Thanks" {
		t.Fatalf("unexpected reply jobs: %#v", jobs.replies)
	}
	if len(jobs.accepted) != 1 || jobs.accepted[0].OfferText != "OTD $24,000" {
		t.Fatalf("unexpected accepted jobs: %#v", jobs.accepted)
	}
	if len(jobs.admin) != 1 || jobs.admin[0].Source != "tally" {
		t.Fatalf("unexpected admin jobs: %#v", jobs.admin)
	}
}

func TestServeMuxSkipsRetryOnBadPayload(t *testing.T) {
	mux := newServeMux(&recordingJobs{})
	err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskDealerReply, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestServeMuxPropagatesDeliveryError(t *testing.T) {
	boom := errors.New("smtp down")
	mux := newServeMux(&recordingJobs{err: boom})
	task, _ := NewAdminNewLeadTask(AdminNewLeadPayload{LeadID: "lead-1"})
	if err := mux.ProcessTask(context.Background(), task); !errors.Is(err, boom) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestTaskID(t *testing.T) {
	if got := taskID(TaskDealerOutreach, "lead-1", "a@dealer.com"); got != "email:dealer_outreach:lead-1:a@dealer.com" {
		t.Fatalf("unexpected task id %q", got)
	}
}

type fakeExpirer struct {
	cutoffs []time.Time
}

func (f *fakeExpirer) ExpireStale(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1, nil
}

func TestStaleLeadSweeper(t *testing.T) {
	if NewStaleLeadSweeper(&fakeExpirer{}, nil, time.Minute, 0) != nil {
		t.Fatal("expected a disabled sweeper when maxIdle is zero")
	}

	exp := &fakeExpirer{}
	s := NewStaleLeadSweeper(exp, logger.NewWithWriter("test", io.Discard), time.Minute, 72*time.Hour)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.sweep(context.Background())

	if len(exp.cutoffs) != 1 || !exp.cutoffs[0].Equal(now.Add(-72*time.Hour)) {
		t.Fatalf("unexpected cutoffs: %v", exp.cutoffs)
	}
}
