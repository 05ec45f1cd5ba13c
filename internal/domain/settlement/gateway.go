package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatus is the transaction status reported by the payment gateway
type GatewayStatus string

const (
	GatewayStatusSuccess    GatewayStatus = "success"
	GatewayStatusFailed     GatewayStatus = "failed"
	GatewayStatusAbandoned  GatewayStatus = "abandoned"
	GatewayStatusReversed   GatewayStatus = "reversed"
	GatewayStatusOngoing    GatewayStatus = "ongoing"
	GatewayStatusPending    GatewayStatus = "pending"
	GatewayStatusProcessing GatewayStatus = "processing"
	GatewayStatusQueued     GatewayStatus = "queued"
)

// IsSuccess returns true if the gateway collected the money
func (s GatewayStatus) IsSuccess() bool {
	return s == GatewayStatusSuccess
}

// IsInFlight returns true while the payer has not finished paying
func (s GatewayStatus) IsInFlight() bool {
	switch s {
	case GatewayStatusOngoing, GatewayStatusPending, GatewayStatusProcessing, GatewayStatusQueued:
		return true
	}
	return false
}

// String returns the string representation
func (s GatewayStatus) String() string {
	return string(s)
}

// Verification is the gateway's answer for a reference. Amount is in naira.
type Verification struct {
	Reference       string
	Status          GatewayStatus
	Amount          decimal.Decimal
	Currency        string
	Channel         string
	GatewayResponse string
	CustomerEmail   string
	PaidAt          *time.Time
}

// IsSuccess returns true if the payment succeeded
func (v *Verification) IsSuccess() bool {
	return v != nil && v.Status.IsSuccess()
}

// InitializeRequest starts a hosted checkout. Amount is in naira.
type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      decimal.Decimal
	CallbackURL string
	Metadata    map[string]string
}

// InitializeResponse carries the checkout URL the payer is sent to
type InitializeResponse struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// PaymentGateway is the port to the payment processor.
// Verify must return an error wrapping ErrGatewayUnreachable or
// ErrGatewayTimeout when the outcome could not be determined.
type PaymentGateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}
