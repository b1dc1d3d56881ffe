package negotiation

import (
	"fmt"
	"os"

	"lotshoppr_backend/platform/config"

	"gopkg.in/yaml.v3"
)

// Policy holds the tunable business heuristics of the engine.
type Policy struct {
	// CashTolerance is the fraction above the cash target still treated as CLOSE.
	CashTolerance float64
	// PaymentTolerance is the flat amount above the monthly target still treated as CLOSE.
	PaymentTolerance float64
	// FlexibleSubstitutes makes sold/different-car replies open to a close match.
	FlexibleSubstitutes bool
	// Triggers overrides the phrase list of individual intents.
	Triggers map[Intent][]string
}

// DefaultPolicy returns the stock thresholds: +5% on cash, +50 on payments.
// With these bands a $460 lease quote against a $400 target is WAY_OFF; a
// PaymentTolerance of 60 or more turns it into CLOSE. See
// TestDecideScenarioLeaseDefaultToleranceIsWayOff and TestDecideScenarioLeaseClose.
func DefaultPolicy() Policy {
	return Policy{
		CashTolerance:       0.05,
		PaymentTolerance:    50,
		FlexibleSubstitutes: true,
	}
}

// policyFile is the on-disk YAML shape. Absent keys keep the current value.
type policyFile struct {
	CashTolerancePct    *float64            `yaml:"cash_tolerance_pct"`
	PaymentTolerance    *float64            `yaml:"payment_tolerance"`
	FlexibleSubstitutes *bool               `yaml:"flexible_substitutes"`
	Triggers            map[string][]string `yaml:"triggers"`
}

// ParsePolicy overlays YAML data on base.
func ParsePolicy(data []byte, base Policy) (Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse negotiation policy: %w", err)
	}

	policy := base
	if file.CashTolerancePct != nil {
		policy.CashTolerance = *file.CashTolerancePct / 100
	}
	if file.PaymentTolerance != nil {
		policy.PaymentTolerance = *file.PaymentTolerance
	}
	if file.FlexibleSubstitutes != nil {
		policy.FlexibleSubstitutes = *file.FlexibleSubstitutes
	}
	if len(file.Triggers) > 0 {
		triggers := make(map[Intent][]string, len(base.Triggers)+len(file.Triggers))
		for k, v := range base.Triggers {
			triggers[k] = v
		}
		for name, phrases := range file.Triggers {
			intent := Intent(name)
			if !ValidIntent(intent) || intent == IntentUnknown {
				return Policy{}, fmt.Errorf("negotiation policy: unknown intent %q", name)
			}
			triggers[intent] = phrases
		}
		policy.Triggers = triggers
	}

	if policy.CashTolerance < 0 || policy.PaymentTolerance < 0 {
		return Policy{}, fmt.Errorf("negotiation policy: tolerances must not be negative")
	}
	return policy, nil
}

// PolicyFromConfig starts from the configured tolerances and applies the
// optional policy file on top.
func PolicyFromConfig(cfg config.NegotiationConfig) (Policy, error) {
	policy := DefaultPolicy()
	policy.CashTolerance = cfg.GetCashTolerancePct() / 100
	policy.PaymentTolerance = cfg.GetPaymentTolerance()

	path := cfg.GetNegotiationPolicyFile()
	if path == "" {
		return policy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read negotiation policy: %w", err)
	}
	return ParsePolicy(data, policy)
}
