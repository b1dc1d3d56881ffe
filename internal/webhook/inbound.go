package webhook

import (
	"encoding/json"
	"net/mail"
	"strings"

	"lotshoppr_backend/platform/sanitize"
)

// InboundEmailPayload is the provider's inbound-email webhook body.
type InboundEmailPayload struct {
	Type      string           `json:"type"`
	CreatedAt string           `json:"created_at"`
	Data      InboundEmailData `json:"data"`
}

type InboundEmailData struct {
	EmailID   string            `json:"email_id"`
	MessageID string            `json:"message_id"`
	From      string            `json:"from"`
	To        AddressList       `json:"to"`
	Subject   string            `json:"subject"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	Body      string            `json:"body"`
	Content   string            `json:"content"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// AddressList accepts either a single address string or an array of them.
type AddressList []string

func (a *AddressList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			*a = AddressList{single}
		} else {
			*a = nil
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

// BodyText picks the first non-blank body in order text, html, body, content.
// Markup is reduced to plain text and quoted history is dropped.
func (d InboundEmailData) BodyText() string {
	candidates := []struct {
		value string
		html  bool
	}{
		{d.Text, false},
		{d.HTML, true},
		{d.Body, false},
		{d.Content, false},
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		text := c.value
		if c.html || sanitize.LooksLikeHTML(text) {
			text = sanitize.StripHTML(text)
		}
		return sanitize.StripQuotedReply(text)
	}
	return ""
}

// DealerAddress is the bare, lowercased sender address.
func (d InboundEmailData) DealerAddress() string {
	from := strings.TrimSpace(d.From)
	if from == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(from)
}

// ProviderMessageID is the RFC 5322 Message-ID when the provider forwards it,
// otherwise the provider's own id for the email.
func (d InboundEmailData) ProviderMessageID() string {
	if d.MessageID != "" {
		return strings.TrimSpace(d.MessageID)
	}
	for k, v := range d.Headers {
		if strings.EqualFold(k, "message-id") && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(d.EmailID)
}
