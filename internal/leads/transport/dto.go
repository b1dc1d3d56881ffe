package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName         string   `json:"firstName" validate:"required,max=100"`
	LastName          string   `json:"lastName" validate:"max=100"`
	Email             string   `json:"email" validate:"required,email"`
	Phone             string   `json:"phone,omitempty" validate:"omitempty,max=30"`
	Zip               string   `json:"zip" validate:"required,max=20"`
	Year              string   `json:"year" validate:"max=10"`
	Make              string   `json:"make" validate:"required,max=60"`
	Model             string   `json:"model" validate:"required,max=60"`
	Trim              string   `json:"trim" validate:"max=60"`
	Color             string   `json:"color" validate:"max=60"`
	Interior          string   `json:"interior" validate:"max=60"`
	DealType          string   `json:"dealType" validate:"required,dealtype"`
	LeaseMiles        string   `json:"leaseMiles,omitempty" validate:"max=30"`
	LeaseMonths       string   `json:"leaseMonths,omitempty" validate:"max=30"`
	LeaseDown         string   `json:"leaseDown,omitempty" validate:"max=30"`
	LeaseMaxPayment   string   `json:"leaseMaxPayment,omitempty" validate:"max=30"`
	FinanceMonths     string   `json:"financeMonths,omitempty" validate:"max=30"`
	FinanceDown       string   `json:"financeDown,omitempty" validate:"max=30"`
	FinanceMaxPayment string   `json:"financeMaxPayment,omitempty" validate:"max=30"`
	CashMax           string   `json:"cashMax,omitempty" validate:"max=30"`
	DealerEmails      []string `json:"dealerEmails,omitempty" validate:"omitempty,max=50,dive,email"`
}

type DealerReplyRequest struct {
	Text      string `json:"text" validate:"max=50000"`
	Dealer    string `json:"dealer,omitempty" validate:"omitempty,email"`
	MessageID string `json:"messageId,omitempty" validate:"max=500"`
	Subject   string `json:"subject,omitempty" validate:"max=500"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=new negotiating won lost"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type AddDealerContactsRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=50,dive,email"`
}

// Response DTOs
type CustomerResponse struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone,omitempty"`
}

type VehicleResponse struct {
	Year     string `json:"year"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Trim     string `json:"trim"`
	Color    string `json:"color"`
	Interior string `json:"interior"`
}

type TermsResponse struct {
	Miles      *string `json:"miles,omitempty"`
	Months     *string `json:"months"`
	Down       *string `json:"down"`
	MaxPayment *string `json:"maxPayment"`
}

type ConstraintsResponse struct {
	DealType string        `json:"dealType"`
	Lease    TermsResponse `json:"lease"`
	Finance  TermsResponse `json:"finance"`
	Cash     struct {
		MaxOTD *string `json:"maxOtd"`
	} `json:"cash"`
}

type ConversationEntryResponse struct {
	From      string    `json:"from"`
	Dealer    string    `json:"dealer,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

type LeadResponse struct {
	ID           uuid.UUID                   `json:"id"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
	Status       string                      `json:"status"`
	MatchType    *string                     `json:"matchType"`
	Customer     CustomerResponse            `json:"customer"`
	Vehicle      VehicleResponse             `json:"vehicle"`
	Constraints  ConstraintsResponse         `json:"constraints"`
	DealerEmails []string                    `json:"dealerEmails"`
	Conversation []ConversationEntryResponse `json:"conversation"`
}

type LeadListResponse struct {
	Items    []LeadResponse `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type OfferResponse struct {
	PriceOTD *float64 `json:"priceOtd"`
	Monthly  *float64 `json:"monthly"`
}

type DirectiveResponse struct {
	Action     string         `json:"action"`
	Body       *string        `json:"body"`
	MatchType  *string        `json:"matchType"`
	Intent     string         `json:"intent,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Offer      *OfferResponse `json:"offer,omitempty"`
	Duplicate  bool           `json:"duplicate,omitempty"`
	LeadStatus string         `json:"leadStatus"`
}
