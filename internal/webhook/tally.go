package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lotshoppr_backend/internal/leads/domain"
)

// TallyPayload is the body Tally posts for a form response.
type TallyPayload struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	CreatedAt string    `json:"createdAt"`
	Data      TallyData `json:"data"`
}

type TallyData struct {
	ResponseID   string       `json:"responseId"`
	SubmissionID string       `json:"submissionId"`
	FormID       string       `json:"formId"`
	FormName     string       `json:"formName"`
	Fields       []TallyField `json:"fields"`
}

// TallyField is one answered question. Value is a string, number, boolean or
// a list of option ids depending on the question type.
type TallyField struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value"`
	Options []TallyOption   `json:"options,omitempty"`
}

type TallyOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SubmissionKey identifies the submission for redelivery detection.
func (p TallyPayload) SubmissionKey() string {
	for _, k := range []string{p.Data.ResponseID, p.Data.SubmissionID, p.EventID} {
		if k != "" {
			return k
		}
	}
	return ""
}

// tallyQuestionKeys maps the LotShoppr intake form's question keys to form fields.
var tallyQuestionKeys = map[string]func(*domain.FormFields, string){
	"question_oMPMO5": func(f *domain.FormFields, v string) { f.FirstName = v },
	"question_P5x50x": func(f *domain.FormFields, v string) { f.LastName = v },
	"question_EQRQ02": func(f *domain.FormFields, v string) { f.Email = v },
	"question_rA4AEX": func(f *domain.FormFields, v string) { f.Zip = v },
	"question_O5250k": func(f *domain.FormFields, v string) { f.Year = v },
	"question_V5e58N": func(f *domain.FormFields, v string) { f.Make = v },
	"question_P5x50P": func(f *domain.FormFields, v string) { f.Model = v },
	"question_EQRQ0A": func(f *domain.FormFields, v string) { f.Trim = v },
	"question_GdGd0Q": func(f *domain.FormFields, v string) { f.Color = v },
	"question_rA4AEp": func(f *domain.FormFields, v string) { f.Interior = v },
	"question_4x6xjd": func(f *domain.FormFields, v string) { f.DealType = NormalizeDealType(v) },
	"question_jQRQxY": func(f *domain.FormFields, v string) { f.LeaseMiles = v },
	"question_2NWNrg": func(f *domain.FormFields, v string) { f.LeaseMonths = v },
	"question_xaqaZE": func(f *domain.FormFields, v string) { f.LeaseDown = v },
	"question_R5N5LQ": func(f *domain.FormFields, v string) { f.LeaseMaxPayment = v },
	"question_oMPMON": func(f *domain.FormFields, v string) { f.FinanceDown = v },
	"question_GdGd0O": func(f *domain.FormFields, v string) { f.FinanceMaxPayment = v },
	"question_O5250M": func(f *domain.FormFields, v string) { f.FinanceMonths = v },
	"question_V5e586": func(f *domain.FormFields, v string) { f.CashMax = v },
}

// ExtractTallyFields maps a Tally response onto form fields. Known question
// keys are mapped directly; other answers are matched by their label and only
// fill fields the known keys left empty.
func ExtractTallyFields(payload TallyPayload) domain.FormFields {
	var fields domain.FormFields
	byLabel := make(map[string]string)

	for _, field := range payload.Data.Fields {
		value := field.Text()
		if value == "" {
			continue
		}
		if set, ok := tallyQuestionKeys[field.Key]; ok {
			set(&fields, value)
			continue
		}
		if field.Label != "" {
			byLabel[field.Label] = value
		}
	}

	if len(byLabel) > 0 {
		fillEmpty(&fields, ExtractFields(byLabel))
	}
	return fields
}

// Text renders the answer as text. Choice answers resolve their option ids to
// the option text; several choices are joined with ", ".
func (f TallyField) Text() string {
	raw := strings.TrimSpace(string(f.Value))
	if raw == "" || raw == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(f.Value, &s); err == nil {
		return strings.TrimSpace(f.optionText(s))
	}

	var list []any
	if err := json.Unmarshal(f.Value, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if text := strings.TrimSpace(f.optionText(scalarText(item))); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, ", ")
	}

	var scalar any
	if err := json.Unmarshal(f.Value, &scalar); err == nil {
		return scalarText(scalar)
	}
	return ""
}

func (f TallyField) optionText(id string) string {
	for _, o := range f.Options {
		if o.ID == id {
			return o.Text
		}
	}
	return id
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func fillEmpty(dst *domain.FormFields, src domain.FormFields) {
	pairs := []struct {
		d *string
		s string
	}{
		{&dst.FirstName, src.FirstName},
		{&dst.LastName, src.LastName},
		{&dst.Email, src.Email},
		{&dst.Phone, src.Phone},
		{&dst.Zip, src.Zip},
		{&dst.Year, src.Year},
		{&dst.Make, src.Make},
		{&dst.Model, src.Model},
		{&dst.Trim, src.Trim},
		{&dst.Color, src.Color},
		{&dst.Interior, src.Interior},
		{&dst.DealType, src.DealType},
		{&dst.CashMax, src.CashMax},
	}
	for _, p := range pairs {
		if *p.d == "" {
			*p.d = p.s
		}
	}
}
