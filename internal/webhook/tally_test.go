package webhook

import (
	"encoding/json"
	"testing"

	"lotshoppr_backend/internal/leads/domain"
)

const tallyLeaseJSON = `{
  "eventId": "evt_1",
  "eventType": "FORM_RESPONSE",
  "data": {
    "responseId": "resp_1",
    "formName": "LotShoppr intake",
    "fields": [
      {"key": "question_oMPMO5", "label": "First name", "type": "INPUT_TEXT", "value": " Dana "},
      {"key": "question_P5x50x", "label": "Last name", "type": "INPUT_TEXT", "value": "Reyes"},
      {"key": "question_EQRQ02", "label": "Email", "type": "INPUT_EMAIL", "value": "dana@example.com"},
      {"key": "question_rA4AEX", "label": "Zip", "type": "INPUT_TEXT", "value": "94107"},
      {"key": "question_O5250k", "label": "Year", "type": "INPUT_NUMBER", "value": 2024},
      {"key": "question_V5e58N", "label": "Make", "type": "INPUT_TEXT", "value": "Honda"},
      {"key": "question_P5x50P", "label": "Model", "type": "INPUT_TEXT", "value": "Accord"},
      {"key": "question_4x6xjd", "label": "Deal type", "type": "MULTIPLE_CHOICE", "value": ["opt_lease"],
        "options": [{"id": "opt_cash", "text": "Pay Cash"}, {"id": "opt_lease", "text": "Lease"}]},
      {"key": "question_jQRQxY", "label": "Miles per year", "type": "DROPDOWN", "value": ["m10"],
        "options": [{"id": "m10", "text": "10,000"}, {"id": "m12", "text": "12,000"}]},
      {"key": "question_2NWNrg", "label": "Months", "type": "INPUT_NUMBER", "value": 36},
      {"key": "question_R5N5LQ", "label": "Max monthly", "type": "INPUT_TEXT", "value": "$400"},
      {"key": "question_unknown", "label": "Phone number", "type": "INPUT_PHONE_NUMBER", "value": "650-253-0000"},
      {"key": "question_empty", "label": "Trim", "type": "INPUT_TEXT", "value": null}
    ]
  }
}`

func TestExtractTallyFields(t *testing.T) {
	var payload TallyPayload
	if err := json.Unmarshal([]byte(tallyLeaseJSON), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	f := ExtractTallyFields(payload)

	checks := map[string][2]string{
		"first name":  {f.FirstName, "Dana"},
		"last name":   {f.LastName, "Reyes"},
		"email":       {f.Email, "dana@example.com"},
		"year":        {f.Year, "2024"},
		"deal type":   {f.DealType, domain.DealTypeLease},
		"lease miles": {f.LeaseMiles, "10,000"},
		"months":      {f.LeaseMonths, "36"},
		"max payment": {f.LeaseMaxPayment, "$400"},
		"phone":       {f.Phone, "650-253-0000"},
		"trim":        {f.Trim, ""},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: got %q, want %q", name, c[0], c[1])
		}
	}
	if IsIncomplete(f) {
		t.Error("expected a complete submission")
	}
	if payload.SubmissionKey() != "resp_1" {
		t.Errorf("unexpected submission key %q", payload.SubmissionKey())
	}
}

func TestTallyFieldTextJoinsMultipleChoices(t *testing.T) {
	f := TallyField{
		Value:   json.RawMessage(`["a","b","zzz"]`),
		Options: []TallyOption{{ID: "a", Text: "Black"}, {ID: "b", Text: "White"}},
	}
	if got := f.Text(); got != "Black, White, zzz" {
		t.Fatalf("got %q", got)
	}
	if got := (TallyField{Value: json.RawMessage(`true`)}).Text(); got != "true" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractFieldsByLabel(t *testing.T) {
	f := ExtractFields(map[string]string{
		"Your Name":      "Sam Lee",
		"E-mail":         "sam@example.com",
		"Zip Code":       "10001",
		"Make":           "Toyota",
		"Model":          "RAV4",
		"Interior Color": "Black",
		"Deal Type":      "I want to finance",
		"Favorite food":  "tacos",
	})
	if f.FirstName != "Sam" || f.LastName != "Lee" {
		t.Errorf("unexpected name %q %q", f.FirstName, f.LastName)
	}
	if f.Email != "sam@example.com" || f.Zip != "10001" || f.Interior != "Black" {
		t.Errorf("unexpected contact or vehicle fields: %#v", f)
	}
	if f.DealType != domain.DealTypeFinance {
		t.Errorf("unexpected deal type %q", f.DealType)
	}
}

func TestNormalizeDealType(t *testing.T) {
	tests := map[string]string{
		"Pay Cash":  domain.DealTypeCash,
		"cash":      domain.DealTypeCash,
		"LEASE":     domain.DealTypeLease,
		"Financing": domain.DealTypeFinance,
		"Trade-in":  "Trade-in",
		"   ":       "",
	}
	for in, want := range tests {
		if got := NormalizeDealType(in); got != want {
			t.Errorf("NormalizeDealType(%q) = %q, want %q", in, got, want)
		}
	}
}
