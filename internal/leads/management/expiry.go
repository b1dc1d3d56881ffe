package management

import (
	"context"
	"time"

	"lotshoppr_backend/internal/events"
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/internal/leads/repository"

	"github.com/google/uuid"
)

const expiryPageSize = 200

// ExpireStale marks open leads with no activity since cutoff as lost and
// returns how many it closed. A lead touched after the scan is left alone.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	var candidates []uuid.UUID
	for _, status := range []domain.Status{domain.StatusNew, domain.StatusNegotiating} {
		for offset := 0; ; offset += expiryPageSize {
			page, err := s.repo.List(ctx, repository.ListParams{Status: status, Limit: expiryPageSize, Offset: offset})
			if err != nil {
				return 0, err
			}
			for _, lead := range page {
				if lead.UpdatedAt.Before(cutoff) {
					candidates = append(candidates, lead.ID)
				}
			}
			if len(page) < expiryPageSize {
				break
			}
		}
	}

	expired := 0
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		changed := false
		_, err := s.repo.Mutate(ctx, id, func(l *domain.Lead) error {
			changed = false
			if l.Status.IsTerminal() || !l.UpdatedAt.Before(cutoff) {
				return repository.ErrNoChange
			}
			l.Status = domain.StatusLost
			changed = true
			return nil
		})
		if err != nil {
			s.log.Warn("lead expiry failed", "leadId", id, "error", err)
			continue
		}
		if !changed {
			continue
		}
		expired++
		s.eventBus.Publish(ctx, events.LeadAbandoned{BaseEvent: events.NewBaseEvent(), LeadID: id})
	}
	return expired, nil
}
