package negotiation

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"regexp"
	"strings"
	"text/template"

	"lotshoppr_backend/internal/leads/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// plainAmount matches values safe to reformat; anything else ("25k", "400-450")
// is restated exactly as the customer typed it.
var plainAmount = regexp.MustCompile(`^\s*\$?\s*[\d,]+(\.\d+)?\s*$`)

// Template names one canonical reply body.
type Template string

const (
	TemplateRefuseInPerson  Template = "refuse_in_person"
	TemplateRefuseCreditApp Template = "refuse_credit_app"
	TemplateUnitSold        Template = "unit_sold"
	TemplateDifferentCar    Template = "different_car"
	TemplatePushForNumbers  Template = "push_for_numbers"
	TemplateCounter         Template = "counter"
	TemplateAccept          Template = "accept"
)

// TemplateForIntent maps a non-numeric intent to its reply. NUMBERS_PROVIDED
// has no direct template; the evaluation outcome decides.
func TemplateForIntent(intent Intent) (Template, bool) {
	switch intent {
	case IntentRefuseInPerson:
		return TemplateRefuseInPerson, true
	case IntentRefuseCreditApp:
		return TemplateRefuseCreditApp, true
	case IntentUnitSold:
		return TemplateUnitSold, true
	case IntentPushingDifferent:
		return TemplateDifferentCar, true
	case IntentNoiseCallMe, IntentUnknown:
		return TemplatePushForNumbers, true
	}
	return "", false
}

// TemplateForOutcome maps an evaluation outcome to its reply. WAY_OFF gets none.
func TemplateForOutcome(outcome Outcome) (Template, bool) {
	switch outcome {
	case OutcomeMeets:
		return TemplateAccept, true
	case OutcomeClose:
		return TemplateCounter, true
	case OutcomeUnknown:
		return TemplatePushForNumbers, true
	}
	return "", false
}

// Replies renders reply bodies in the customer's voice.
type Replies struct {
	tmpl     *template.Template
	printer  *message.Printer
	flexible bool
}

type replyData struct {
	Name        string
	Zip         string
	VehicleSpec string
	Flexible    bool
	IsCash      bool
	CashMax     string
	Terms       []string
}

// NewReplies parses the embedded templates.
func NewReplies(flexible bool) (*Replies, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse reply templates: %w", err)
	}
	return &Replies{
		tmpl:     tmpl,
		printer:  message.NewPrinter(language.AmericanEnglish),
		flexible: flexible,
	}, nil
}

// Render produces the body for name. The same lead and template always give the same text.
func (r *Replies) Render(lead domain.Lead, name Template) (string, error) {
	data := replyData{
		Name:        lead.Customer.FullName(),
		Zip:         lead.Customer.Zip,
		VehicleSpec: lead.Vehicle.Spec(),
		Flexible:    r.flexible,
	}
	if data.Name == "" {
		data.Name = "Thanks"
	}
	if name == TemplateCounter {
		r.fillTargets(&data, lead.Constraints)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, string(name)+".tmpl", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// fillTargets restates the customer's own terms, never the dealer's numbers.
func (r *Replies) fillTargets(data *replyData, c domain.Constraints) {
	if c.DealType == domain.DealTypeCash {
		data.IsCash = true
		data.CashMax = r.money(c.Cash.MaxOTD)
		return
	}

	var months, miles, down, maxPayment string
	switch c.DealType {
	case domain.DealTypeLease:
		months, miles, down, maxPayment = c.Lease.Months, c.Lease.Miles, c.Lease.Down, c.Lease.MaxPayment
	case domain.DealTypeFinance:
		months, down, maxPayment = c.Finance.Months, c.Finance.Down, c.Finance.MaxPayment
	}

	if months != "" {
		data.Terms = append(data.Terms, months+" months")
	}
	if miles != "" {
		data.Terms = append(data.Terms, r.number(miles)+" miles/year")
	}
	if down != "" {
		data.Terms = append(data.Terms, "Total due at signing: "+r.money(down))
	}
	if maxPayment != "" {
		data.Terms = append(data.Terms, "Monthly payment: "+r.money(maxPayment)+" or less")
	}
}

func (r *Replies) money(raw string) string {
	v, ok := domain.ParseMoney(raw)
	if !ok || !plainAmount.MatchString(raw) {
		return raw
	}
	if v == math.Trunc(v) {
		return r.printer.Sprintf("$%d", int64(v))
	}
	return r.printer.Sprintf("$%.2f", v)
}

func (r *Replies) number(raw string) string {
	v, ok := domain.ParseMoney(raw)
	if !ok || v != math.Trunc(v) || !plainAmount.MatchString(raw) || strings.Contains(raw, "$") {
		return raw
	}
	return r.printer.Sprintf("%d", int64(v))
}
