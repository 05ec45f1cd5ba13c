package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeQuote is the fee breakdown for one base amount
type FeeQuote struct {
	BaseAmount    decimal.Decimal `json:"base_amount"`
	Fee           decimal.Decimal `json:"fee"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	IsFeeWaived   bool            `json:"is_fee_waived"`
	IsFeeCapped   bool            `json:"is_fee_capped"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
}

// LeaderRequest is the leader section of a cooperative registration
type LeaderRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required,min=7,max=20"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Title     string `json:"title" binding:"omitempty,max=100"`
}

// CooperativeRegistrationRequest starts a cooperative registration payment
type CooperativeRegistrationRequest struct {
	Name                 string        `json:"name" binding:"required,max=200"`
	RegistrationNumber   string        `json:"registration_number" binding:"required,max=100"`
	Email                string        `json:"email" binding:"required,email"`
	Phone                string        `json:"phone" binding:"required,min=7,max=20"`
	Address              string        `json:"address" binding:"omitempty,max=500"`
	ParentOrganizationID string        `json:"parent_organization_id" binding:"omitempty,uuid"`
	Password             string        `json:"password" binding:"required,min=8,max=72"`
	Leader               LeaderRequest `json:"leader"`
}

// MemberRegistrationRequest starts a member registration payment
type MemberRegistrationRequest struct {
	CooperativeID string `json:"cooperative_id" binding:"required,uuid"`
	FirstName     string `json:"first_name" binding:"required,max=100"`
	LastName      string `json:"last_name" binding:"required,max=100"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required,min=7,max=20"`
	Password      string `json:"password" binding:"required,min=8,max=72"`
}

// ContributionRequest starts a contribution payment
type ContributionRequest struct {
	MemberID string          `json:"member_id" binding:"required,uuid"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note" binding:"omitempty,max=500"`
}

// CheckoutResponse tells the client where to send the payer
type CheckoutResponse struct {
	Reference        string   `json:"reference"`
	AuthorizationURL string   `json:"authorization_url"`
	AccessCode       string   `json:"access_code,omitempty"`
	Fee              FeeQuote `json:"fee"`
}

// SettlementResponse is the state of a reference after verify or status
type SettlementResponse struct {
	Reference            string          `json:"reference"`
	Kind                 string          `json:"kind,omitempty"`
	Status               string          `json:"status"`
	AlreadyProcessed     bool            `json:"already_processed"`
	Amount               decimal.Decimal `json:"amount"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	Message              string          `json:"message,omitempty"`
}

// NotificationLogResponse is one dispatch attempt
type NotificationLogResponse struct {
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
