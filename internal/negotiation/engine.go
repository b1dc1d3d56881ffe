package negotiation

import (
	"fmt"

	"lotshoppr_backend/internal/leads/domain"
)

// Action tells the caller what to do with a dealer reply.
type Action string

const (
	ActionReply           Action = "REPLY"
	ActionAcceptAndNotify Action = "ACCEPT_AND_NOTIFY"
	ActionNoReply         Action = "NO_REPLY"
)

// Directive is the engine's decision for one inbound dealer message.
// Body is empty for NO_REPLY.
type Directive struct {
	Action     Action            `json:"action"`
	Body       string            `json:"body"`
	MatchType  domain.MatchType  `json:"matchType"`
	Intent     Intent            `json:"intent"`
	Offer      *Offer            `json:"offer,omitempty"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`
}

// Engine wires the classifier, parser, evaluator and reply generator.
type Engine struct {
	classifier *Classifier
	evaluator  Evaluator
	replies    *Replies
}

// NewEngine builds an engine for policy.
func NewEngine(policy Policy) (*Engine, error) {
	replies, err := NewReplies(policy.FlexibleSubstitutes)
	if err != nil {
		return nil, err
	}
	return &Engine{
		classifier: NewClassifier(policy.Triggers),
		evaluator:  NewEvaluator(policy),
		replies:    replies,
	}, nil
}

// Decide classifies text and picks the reply. It reads the lead but never
// changes it; the returned MatchType is the lead's widened match type.
func (e *Engine) Decide(lead domain.Lead, text string) (Directive, error) {
	intent := e.classifier.Classify(text)
	d := Directive{Intent: intent, MatchType: lead.MatchType}

	var tmpl Template
	switch intent {
	case IntentUnitSold, IntentPushingDifferent:
		d.MatchType = domain.WidenMatchType(lead.MatchType, domain.MatchSimilar)
		tmpl, _ = TemplateForIntent(intent)
		d.Action = ActionReply

	case IntentNumbersProvided:
		offer := ParseOffer(text)
		result := e.evaluator.Evaluate(lead, offer)
		d.Offer = &offer
		d.Evaluation = &result

		switch result.Outcome {
		case OutcomeMeets:
			d.MatchType = domain.WidenMatchType(lead.MatchType, result.MatchType)
			d.Action = ActionAcceptAndNotify
		case OutcomeClose:
			d.MatchType = domain.WidenMatchType(lead.MatchType, result.MatchType)
			d.Action = ActionReply
		case OutcomeWayOff:
			d.Action = ActionNoReply
			return d, nil
		default:
			d.Action = ActionReply
		}
		tmpl, _ = TemplateForOutcome(result.Outcome)

	default:
		var ok bool
		if tmpl, ok = TemplateForIntent(intent); !ok {
			return Directive{}, fmt.Errorf("no reply template for intent %s", intent)
		}
		d.Action = ActionReply
	}

	body, err := e.replies.Render(lead, tmpl)
	if err != nil {
		return Directive{}, err
	}
	d.Body = body
	return d, nil
}
