package negotiation

import "lotshoppr_backend/internal/leads/domain"

// Outcome grades an offer against the lead's targets.
type Outcome string

const (
	OutcomeMeets   Outcome = "MEETS"
	OutcomeClose   Outcome = "CLOSE"
	OutcomeWayOff  Outcome = "WAY_OFF"
	OutcomeUnknown Outcome = "UNKNOWN"
)

// EvaluationResult is the evaluator's verdict on one offer.
type EvaluationResult struct {
	Outcome   Outcome          `json:"outcome"`
	MatchType domain.MatchType `json:"matchType"`
	Reason    string           `json:"reason"`
}

// Evaluator compares offers with lead constraints under a policy.
type Evaluator struct {
	policy Policy
}

// NewEvaluator creates an evaluator with the given tolerances.
func NewEvaluator(policy Policy) Evaluator {
	return Evaluator{policy: policy}
}

// Evaluate grades offer against lead. Cash deals compare the OTD price with a
// percentage band; lease and finance compare the monthly payment with a flat band.
func (e Evaluator) Evaluate(lead domain.Lead, offer Offer) EvaluationResult {
	c := lead.Constraints
	switch c.DealType {
	case domain.DealTypeCash:
		target, ok := domain.ParseMoney(c.Cash.MaxOTD)
		if !ok || !present(offer.PriceOTD) {
			return EvaluationResult{Outcome: OutcomeUnknown, Reason: "missing numbers"}
		}
		price := *offer.PriceOTD
		switch {
		case price <= target:
			return EvaluationResult{Outcome: OutcomeMeets, MatchType: domain.MatchExact, Reason: "price at or under target"}
		case price <= target*(1+e.policy.CashTolerance):
			return EvaluationResult{Outcome: OutcomeClose, MatchType: domain.MatchExact, Reason: "price slightly high"}
		default:
			return EvaluationResult{Outcome: OutcomeWayOff, Reason: "price too high"}
		}

	case domain.DealTypeLease, domain.DealTypeFinance:
		target, ok := domain.ParseMoney(c.MaxPayment())
		if !ok || !present(offer.Monthly) {
			return EvaluationResult{Outcome: OutcomeUnknown, Reason: "missing monthly payment"}
		}
		monthly := *offer.Monthly
		switch {
		case monthly <= target:
			return EvaluationResult{Outcome: OutcomeMeets, MatchType: domain.MatchExact, Reason: "monthly at or under target"}
		case monthly <= target+e.policy.PaymentTolerance:
			return EvaluationResult{Outcome: OutcomeClose, MatchType: domain.MatchExact, Reason: "monthly slightly high"}
		default:
			return EvaluationResult{Outcome: OutcomeWayOff, Reason: "monthly too high"}
		}
	}

	return EvaluationResult{Outcome: OutcomeUnknown, Reason: "unhandled deal type"}
}

func present(v *float64) bool {
	return v != nil && *v > 0
}
