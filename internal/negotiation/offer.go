package negotiation

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dollarPattern  = regexp.MustCompile(`\$ ?([\d,]+)`)
	monthlyPattern = regexp.MustCompile(`(?i)\$ ?([\d,]+)\s*/?\s*(?:mo|month)`)
)

// Offer is the numeric signal found in one dealer message.
type Offer struct {
	PriceOTD *float64 `json:"priceOtd"`
	Monthly  *float64 `json:"monthly"`
	Raw      string   `json:"raw"`
}

// ParseOffer takes the first dollar amount as the OTD price and the first
// dollar amount followed by a monthly marker as the payment. Missing values
// stay nil; parsing never fails.
func ParseOffer(text string) Offer {
	offer := Offer{Raw: text}
	if m := dollarPattern.FindStringSubmatch(text); m != nil {
		offer.PriceOTD = parseAmount(m[1])
	}
	if m := monthlyPattern.FindStringSubmatch(text); m != nil {
		offer.Monthly = parseAmount(m[1])
	}
	return offer
}

func parseAmount(digits string) *float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}
