// Package negotiation decides how the customer answers a dealer reply.
// Everything here is pure: no I/O, no clock, no randomness.
package negotiation

import "strings"

// Intent is the classified purpose of a dealer reply.
type Intent string

const (
	IntentUnknown          Intent = "UNKNOWN"
	IntentRefuseInPerson   Intent = "REFUSE_NUMBERS_IN_PERSON"
	IntentRefuseCreditApp  Intent = "REFUSE_NUMBERS_CREDIT_APP"
	IntentUnitSold         Intent = "UNIT_SOLD"
	IntentPushingDifferent Intent = "PUSHING_DIFFERENT_CAR"
	IntentNumbersProvided  Intent = "NUMBERS_PROVIDED"
	IntentNoiseCallMe      Intent = "NOISE_CALL_ME"
)

// intentOrder is the priority in which categories are checked. Refusals and
// unavailability win over numbers so "come in, it's $20k" is a refusal.
var intentOrder = []Intent{
	IntentRefuseInPerson,
	IntentRefuseCreditApp,
	IntentUnitSold,
	IntentPushingDifferent,
	IntentNumbersProvided,
	IntentNoiseCallMe,
}

// DefaultTriggers are the lexical cues per intent, matched case-insensitively.
var DefaultTriggers = map[Intent][]string{
	IntentRefuseInPerson: {
		"come in", "come by", "stop by", "stop in", "swing by", "visit",
		"in person", "test drive", "drive it first",
	},
	IntentRefuseCreditApp: {
		"credit app", "credit application", "finance application",
		"submit an application", "apply for credit",
	},
	IntentUnitSold: {
		"sold", "no longer available", "already gone",
		"we don't have that car", "we don’t have that car",
	},
	IntentPushingDifferent: {
		"similar vehicle", "something similar", "we have this instead",
		"different trim", "different model",
	},
	IntentNumbersProvided: {
		"$", "per month", "/mo", "out the door", "otd",
	},
	IntentNoiseCallMe: {
		"call me", "give me a call", "phone", "reach me at", "let's talk", "let’s talk",
	},
}

// IntentRule matches lowered text to one intent.
type IntentRule struct {
	Intent Intent
	Match  func(lowered string) bool
}

// Classifier evaluates an ordered rule table; the first match wins.
type Classifier struct {
	rules []IntentRule
}

// NewClassifier builds the rule table from trigger phrases. Intents missing
// from triggers fall back to DefaultTriggers.
func NewClassifier(triggers map[Intent][]string) *Classifier {
	rules := make([]IntentRule, 0, len(intentOrder))
	for _, intent := range intentOrder {
		phrases, ok := triggers[intent]
		if !ok || len(phrases) == 0 {
			phrases = DefaultTriggers[intent]
		}
		rules = append(rules, IntentRule{Intent: intent, Match: containsAny(phrases)})
	}
	return &Classifier{rules: rules}
}

// NewClassifierFromRules uses a caller-supplied rule table as is.
func NewClassifierFromRules(rules []IntentRule) *Classifier {
	return &Classifier{rules: append([]IntentRule(nil), rules...)}
}

// Classify returns the first matching intent, or UNKNOWN. Blank text is UNKNOWN.
func (c *Classifier) Classify(text string) Intent {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return IntentUnknown
	}
	for _, rule := range c.rules {
		if rule.Match(lowered) {
			return rule.Intent
		}
	}
	return IntentUnknown
}

var defaultClassifier = NewClassifier(DefaultTriggers)

// Classify runs the default classifier.
func Classify(text string) Intent {
	return defaultClassifier.Classify(text)
}

func containsAny(phrases []string) func(string) bool {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return func(text string) bool {
		for _, p := range lowered {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

// ValidIntent reports whether name is one of the classifier's labels.
func ValidIntent(name Intent) bool {
	if name == IntentUnknown {
		return true
	}
	for _, intent := range intentOrder {
		if intent == name {
			return true
		}
	}
	return false
}
