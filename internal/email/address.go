package email

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const leadMailboxPrefix = "deals+"

var leadAddressPattern = regexp.MustCompile(`(?i)deals\+([^@\s>]+)@`)

// LeadAddress is the plus-addressed mailbox that routes replies back to a lead.
func LeadAddress(leadID uuid.UUID, inboundDomain string) string {
	return leadMailboxPrefix + leadID.String() + "@" + strings.TrimPrefix(strings.TrimSpace(inboundDomain), "@")
}

// LeadIDFromAddresses returns the first lead id found in any of the
// addresses. Display-name forms like "Deals <deals+id@x>" are accepted.
func LeadIDFromAddresses(addrs ...string) (uuid.UUID, bool) {
	for _, a := range addrs {
		m := leadAddressPattern.FindStringSubmatch(a)
		if m == nil {
			continue
		}
		id, err := uuid.Parse(m[1])
		if err != nil {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}
