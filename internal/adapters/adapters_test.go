package adapters

import (
	"context"
	"errors"
	"testing"

	"lotshoppr_backend/internal/leads/management"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/internal/webhook"

	"github.com/google/uuid"
)

type fakeReplyService struct {
	got    management.DealerReply
	result management.ReplyResult
	err    error
}

func (f *fakeReplyService) HandleDealerReply(_ context.Context, _ uuid.UUID, reply management.DealerReply) (management.ReplyResult, error) {
	f.got = reply
	return f.result, f.err
}

func TestDealerReplyAdapterMapsBothWays(t *testing.T) {
	svc := &fakeReplyService{result: management.ReplyResult{
		Directive: negotiation.Directive{Action: negotiation.ActionAcceptAndNotify},
		Duplicate: true,
	}}
	a := NewDealerReplyAdapter(svc)

	out, err := a.HandleDealerReply(context.Background(), uuid.New(), webhook.DealerMessage{
		Text:      "$24,000 OTD",
		Dealer:    "sales@dealer.com",
		MessageID: "<m1@dealer.com>",
		Subject:   "Accord",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.got.Text != "$24,000 OTD" || svc.got.Dealer != "sales@dealer.com" || svc.got.MessageID != "<m1@dealer.com>" || svc.got.Subject != "Accord" {
		t.Fatalf("message not forwarded intact: %#v", svc.got)
	}
	if out.Action != "ACCEPT_AND_NOTIFY" || !out.Duplicate {
		t.Fatalf("unexpected outcome: %#v", out)
	}
}

func TestDealerReplyAdapterPassesErrors(t *testing.T) {
	boom := errors.New("store down")
	a := NewDealerReplyAdapter(&fakeReplyService{err: boom})
	if _, err := a.HandleDealerReply(context.Background(), uuid.New(), webhook.DealerMessage{}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestHealthCheckerJoinsFailures(t *testing.T) {
	down := errors.New("redis down")
	h := NewHealthChecker(
		PingFunc(func(context.Context) error { return nil }),
		nil,
		PingFunc(func(context.Context) error { return down }),
	)
	if err := h.Ping(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected joined failure, got %v", err)
	}
	if err := NewHealthChecker().Ping(context.Background()); err != nil {
		t.Fatalf("empty checker should be healthy, got %v", err)
	}
}
