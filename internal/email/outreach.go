package email

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"lotshoppr_backend/internal/leads/domain"
)

var (
	greetings = []string{
		"Hi there,",
		"Hello,",
		"Good afternoon,",
		"Hi,",
	}
	closings = []string{
		"If you have something close in stock or inbound, I'd really appreciate your best out-the-door number.",
		"If you have anything that matches this, could you please send your best out-the-door pricing?",
		"Please let me know what you have available and what the numbers would look like out the door.",
	}
)

type outreachData struct {
	Greeting    string
	Intro       string
	VehicleLine string
	Closing     string
	Lead        domain.Lead
}

// Composer writes the customer-voice copy sent to dealers. Variants are
// picked at random so outreach to several dealers does not read as a template.
type Composer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewComposer uses rnd for variant selection. A nil rnd seeds from the clock.
func NewComposer(rnd *rand.Rand) *Composer {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Composer{rnd: rnd}
}

func (c *Composer) pick(options []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return options[c.rnd.IntN(len(options))]
}

// OutreachSubject returns one of the subject variants for the lead's vehicle.
func (c *Composer) OutreachSubject(lead domain.Lead) string {
	v := lead.Vehicle
	ymm := strings.Join(nonEmpty(v.Year, v.Make, v.Model), " ")
	subjects := []string{
		fmt.Sprintf("%s - quote request", v.Spec()),
		fmt.Sprintf("Pricing on a %s?", ymm),
		fmt.Sprintf("Looking for a %s deal", ymm),
		fmt.Sprintf("Question about a %s", ymm),
	}
	return c.pick(subjects)
}

// OutreachBody renders the first message a dealer receives about the lead.
func (c *Composer) OutreachBody(lead domain.Lead) (string, error) {
	name := lead.Customer.FullName()
	intros := []string{
		"I'm currently looking for a specific vehicle and wanted to see what you might have available.",
	}
	if name != "" {
		intros = append(intros, fmt.Sprintf("My name is %s, and I'm shopping for a new vehicle.", name))
	}
	if lead.Customer.FirstName != "" {
		intros = append(intros, fmt.Sprintf("I'm %s and I'm in the market for a new car.", lead.Customer.FirstName))
	}

	v := lead.Vehicle
	color := orDefault(v.Color, "any")
	interior := orDefault(v.Interior, "any")
	vehicleLines := []string{
		fmt.Sprintf("I'm interested in a %s in %s with a %s interior.", v.Spec(), color, interior),
		fmt.Sprintf("The vehicle I'm after is a %s (%s, %s).", v.Spec(), orDefault(v.Color, "any color"), orDefault(v.Interior, "any interior")),
	}

	return renderEmailTemplate("outreach.txt", outreachData{
		Greeting:    c.pick(greetings),
		Intro:       c.pick(intros),
		VehicleLine: c.pick(vehicleLines),
		Closing:     c.pick(closings),
		Lead:        lead,
	})
}

type adminNewLeadData struct {
	Lead    domain.Lead
	Source  string
	RawJSON string
}

// AdminNewLeadSubject is the subject of the operator notification.
func AdminNewLeadSubject(lead domain.Lead) string {
	if spec := lead.Vehicle.Spec(); spec != "" {
		return "New LotShoppr submission: " + spec
	}
	return "New LotShoppr submission"
}

// AdminNewLeadBody summarizes a new lead for operators, raw JSON included.
func AdminNewLeadBody(lead domain.Lead, source string) (string, error) {
	raw, err := json.MarshalIndent(lead, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal lead: %w", err)
	}
	return renderEmailTemplate("admin_new_lead.txt", adminNewLeadData{
		Lead:    lead,
		Source:  orDefault(source, "api"),
		RawJSON: string(raw),
	})
}

type dealAcceptedData struct {
	FirstName   string
	Dealer      string
	VehicleSpec string
	MatchType   string
	OfferText   string
}

// DealAcceptedSubject is the subject of the customer notification.
func DealAcceptedSubject(lead domain.Lead) string {
	return fmt.Sprintf("We found your %s", orDefault(lead.Vehicle.Spec(), "car"))
}

// DealAcceptedBody tells the customer which dealer met their terms.
func DealAcceptedBody(lead domain.Lead, dealer, offerText, matchType string) (string, error) {
	return renderEmailTemplate("deal_accepted.txt", dealAcceptedData{
		FirstName:   orDefault(lead.Customer.FirstName, "there"),
		Dealer:      orDefault(dealer, "A dealer"),
		VehicleSpec: orDefault(lead.Vehicle.Spec(), "vehicle"),
		MatchType:   matchType,
		OfferText:   strings.TrimSpace(offerText),
	})
}

// ReplySubject prefixes subject with "Re: " unless it already carries one.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Re: your quote"
	}
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	return "Re: " + subject
}

// OutreachFromName is the display name dealers see on negotiation mail.
func OutreachFromName(lead domain.Lead) string {
	return orDefault(lead.Customer.FullName(), "LotShoppr Customer")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
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
