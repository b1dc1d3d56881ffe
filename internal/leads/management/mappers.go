package management

import (
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/internal/leads/transport"
)

// ToFormFields converts an API request into normalized form fields.
func ToFormFields(req transport.CreateLeadRequest) domain.FormFields {
	return domain.FormFields{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		Zip:               req.Zip,
		Year:              req.Year,
		Make:              req.Make,
		Model:             req.Model,
		Trim:              req.Trim,
		Color:             req.Color,
		Interior:          req.Interior,
		DealType:          req.DealType,
		LeaseMiles:        req.LeaseMiles,
		LeaseMonths:       req.LeaseMonths,
		LeaseDown:         req.LeaseDown,
		LeaseMaxPayment:   req.LeaseMaxPayment,
		FinanceMonths:     req.FinanceMonths,
		FinanceDown:       req.FinanceDown,
		FinanceMaxPayment: req.FinanceMaxPayment,
		CashMax:           req.CashMax,
	}
}

// ToLeadResponse converts a domain lead to its API shape. Blank terms become null.
func ToLeadResponse(lead domain.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:        lead.ID,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
		Status:    string(lead.Status),
		MatchType: optionalString(string(lead.MatchType)),
		Customer: transport.CustomerResponse{
			FirstName: lead.Customer.FirstName,
			LastName:  lead.Customer.LastName,
			Email:     lead.Customer.Email,
			Zip:       lead.Customer.Zip,
			Phone:     lead.Customer.Phone,
		},
		Vehicle: transport.VehicleResponse{
			Year:     lead.Vehicle.Year,
			Make:     lead.Vehicle.Make,
			Model:    lead.Vehicle.Model,
			Trim:     lead.Vehicle.Trim,
			Color:    lead.Vehicle.Color,
			Interior: lead.Vehicle.Interior,
		},
		DealerEmails: append([]string{}, lead.DealerEmails...),
		Conversation: make([]transport.ConversationEntryResponse, len(lead.Conversation)),
	}

	c := lead.Constraints
	resp.Constraints.DealType = c.DealType
	resp.Constraints.Lease = transport.TermsResponse{
		Miles:      optionalString(c.Lease.Miles),
		Months:     optionalString(c.Lease.Months),
		Down:       optionalString(c.Lease.Down),
		MaxPayment: optionalString(c.Lease.MaxPayment),
	}
	resp.Constraints.Finance = transport.TermsResponse{
		Months:     optionalString(c.Finance.Months),
		Down:       optionalString(c.Finance.Down),
		MaxPayment: optionalString(c.Finance.MaxPayment),
	}
	resp.Constraints.Cash.MaxOTD = optionalString(c.Cash.MaxOTD)

	for i, entry := range lead.Conversation {
		resp.Conversation[i] = transport.ConversationEntryResponse{
			From:      string(entry.From),
			Dealer:    entry.Dealer,
			MessageID: entry.MessageID,
			Text:      entry.Text,
			At:        entry.At,
		}
	}
	return resp
}

// ToDirectiveResponse converts a negotiation result to its API shape.
func ToDirectiveResponse(result ReplyResult) transport.DirectiveResponse {
	d := result.Directive
	resp := transport.DirectiveResponse{
		Action:     string(d.Action),
		Body:       optionalString(d.Body),
		MatchType:  optionalString(string(d.MatchType)),
		Intent:     string(d.Intent),
		Duplicate:  result.Duplicate,
		LeadStatus: string(result.Lead.Status),
	}
	if d.Evaluation != nil {
		resp.Outcome = string(d.Evaluation.Outcome)
		resp.Reason = d.Evaluation.Reason
	}
	if d.Offer != nil {
		resp.Offer = &transport.OfferResponse{PriceOTD: d.Offer.PriceOTD, Monthly: d.Offer.Monthly}
	}
	return resp
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
