// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"lotshoppr_backend/platform/phone"

	"github.com/google/uuid"
)

// Status is the negotiation lifecycle state of a lead.
type Status string

const (
	StatusNew         Status = "new"
	StatusNegotiating Status = "negotiating"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusNegotiating, StatusWon, StatusLost:
		return true
	}
	return false
}

// IsTerminal returns true once no further negotiation may happen on the lead.
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// statusRank orders statuses along the only allowed direction of travel.
var statusRank = map[Status]int{
	StatusNew:         0,
	StatusNegotiating: 1,
	StatusWon:         2,
	StatusLost:        2,
}

// CanTransition reports whether a lead may move from one status to another.
// Staying in place is allowed; moving backwards or out of a terminal state is not.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	return statusRank[to] > statusRank[from]
}

// MatchType records how closely an accepted deal matches the requested vehicle.
// The zero value means no match has been established and serializes as JSON null.
type MatchType string

const (
	MatchNone    MatchType = ""
	MatchExact   MatchType = "exact"
	MatchSimilar MatchType = "similar"
)

var matchRank = map[MatchType]int{
	MatchNone:    0,
	MatchExact:   1,
	MatchSimilar: 2,
}

// WidenMatchType returns the wider of current and candidate. A similar match
// never reverts to exact or none.
func WidenMatchType(current, candidate MatchType) MatchType {
	if matchRank[candidate] > matchRank[current] {
		return candidate
	}
	return current
}

// MarshalJSON encodes MatchNone as null.
func (m MatchType) MarshalJSON() ([]byte, error) {
	if m == MatchNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null, "exact" and "similar".
func (m *MatchType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = MatchNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MatchType(raw)
	return nil
}

// Deal types as entered on the intake form.
const (
	DealTypeCash    = "Pay Cash"
	DealTypeLease   = "Lease"
	DealTypeFinance = "Finance"
)

// Customer identifies the shopper. Immutable after creation.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins the non-empty name parts.
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.Join(nonEmpty(c.FirstName, c.LastName), " "))
}

// Vehicle is the target vehicle spec. Immutable after creation.
type Vehicle struct {
	Year     string `json:"year"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Trim     string `json:"trim"`
	Color    string `json:"color"`
	Interior string `json:"interior"`
}

// Spec renders "year make model trim" without gaps for missing parts.
func (v Vehicle) Spec() string {
	return strings.Join(nonEmpty(v.Year, v.Make, v.Model, v.Trim), " ")
}

// LeaseTerms holds the customer's lease targets as entered.
type LeaseTerms struct {
	Miles      string `json:"miles,omitempty"`
	Months     string `json:"months,omitempty"`
	Down       string `json:"down,omitempty"`
	MaxPayment string `json:"maxPayment,omitempty"`
}

// FinanceTerms holds the customer's finance targets as entered.
type FinanceTerms struct {
	Months     string `json:"months,omitempty"`
	Down       string `json:"down,omitempty"`
	MaxPayment string `json:"maxPayment,omitempty"`
}

// CashTerms holds the customer's cash target as entered.
type CashTerms struct {
	MaxOTD string `json:"maxOtd,omitempty"`
}

// Constraints are the deal terms negotiated against. Never mutated by negotiation.
type Constraints struct {
	DealType string       `json:"dealType"`
	Lease    LeaseTerms   `json:"lease"`
	Finance  FinanceTerms `json:"finance"`
	Cash     CashTerms    `json:"cash"`
}

// MaxPayment returns the monthly target for the active deal type, if any.
func (c Constraints) MaxPayment() string {
	switch c.DealType {
	case DealTypeLease:
		return c.Lease.MaxPayment
	case DealTypeFinance:
		return c.Finance.MaxPayment
	}
	return ""
}

// Sender identifies who wrote a conversation entry.
type Sender string

const (
	FromCustomer Sender = "customer"
	FromDealer   Sender = "dealer"
)

// ConversationEntry is one message in the negotiation thread.
type ConversationEntry struct {
	From      Sender    `json:"from"`
	Dealer    string    `json:"dealer,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// Lead is one shopping request and its negotiation thread.
type Lead struct {
	ID           uuid.UUID           `json:"id"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Status       Status              `json:"status"`
	MatchType    MatchType           `json:"matchType"`
	Customer     Customer            `json:"customer"`
	Vehicle      Vehicle             `json:"vehicle"`
	Constraints  Constraints         `json:"constraints"`
	DealerEmails []string            `json:"dealerEmails"`
	Conversation []ConversationEntry `json:"conversation"`
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (l Lead) Clone() Lead {
	out := l
	out.DealerEmails = append([]string(nil), l.DealerEmails...)
	out.Conversation = append([]ConversationEntry(nil), l.Conversation...)
	if out.DealerEmails == nil {
		out.DealerEmails = []string{}
	}
	if out.Conversation == nil {
		out.Conversation = []ConversationEntry{}
	}
	return out
}

// AddDealerEmails merges emails into the lead's dealer set, case-insensitively.
// Returns true when anything was added.
func (l *Lead) AddDealerEmails(emails ...string) bool {
	seen := make(map[string]bool, len(l.DealerEmails))
	for _, e := range l.DealerEmails {
		seen[strings.ToLower(e)] = true
	}
	added := false
	for _, e := range emails {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			continue
		}
		seen[key] = true
		l.DealerEmails = append(l.DealerEmails, e)
		added = true
	}
	return added
}

// FormFields is the normalized intake form shape.
type FormFields struct {
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	Zip               string
	Year              string
	Make              string
	Model             string
	Trim              string
	Color             string
	Interior          string
	DealType          string
	LeaseMiles        string
	LeaseMonths       string
	LeaseDown         string
	LeaseMaxPayment   string
	FinanceMonths     string
	FinanceDown       string
	FinanceMaxPayment string
	CashMax           string
}

// NewLead builds a fresh lead from normalized form fields.
func NewLead(f FormFields, phoneRegion string, now time.Time) Lead {
	t := strings.TrimSpace
	return Lead{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusNew,
		MatchType: MatchNone,
		Customer: Customer{
			FirstName: t(f.FirstName),
			LastName:  t(f.LastName),
			Email:     strings.ToLower(t(f.Email)),
			Zip:       t(f.Zip),
			Phone:     phone.NormalizeE164(t(f.Phone), phoneRegion),
		},
		Vehicle: Vehicle{
			Year:     t(f.Year),
			Make:     t(f.Make),
			Model:    t(f.Model),
			Trim:     t(f.Trim),
			Color:    t(f.Color),
			Interior: t(f.Interior),
		},
		Constraints: Constraints{
			DealType: t(f.DealType),
			Lease: LeaseTerms{
				Miles:      t(f.LeaseMiles),
				Months:     t(f.LeaseMonths),
				Down:       t(f.LeaseDown),
				MaxPayment: t(f.LeaseMaxPayment),
			},
			Finance: FinanceTerms{
				Months:     t(f.FinanceMonths),
				Down:       t(f.FinanceDown),
				MaxPayment: t(f.FinanceMaxPayment),
			},
			Cash: CashTerms{MaxOTD: t(f.CashMax)},
		},
		DealerEmails: []string{},
		Conversation: []ConversationEntry{},
	}
}

// ParseMoney reads a customer-entered amount such as "$25,000" or "400/mo".
// Everything except digits and the decimal point is dropped. Zero and
// unparseable values report false.
func ParseMoney(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
