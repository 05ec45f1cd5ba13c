package settlement

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentStatus is the lifecycle state of a PendingIntent.
// PENDING -> PROCESSING -> COMPLETED | FAILED, and PENDING -> FAILED.
type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "PENDING"
	IntentStatusProcessing IntentStatus = "PROCESSING"
	IntentStatusCompleted  IntentStatus = "COMPLETED"
	IntentStatusFailed     IntentStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentStatusPending, IntentStatusProcessing, IntentStatusCompleted, IntentStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if no transition leaves this status
func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusCompleted || s == IntentStatusFailed
}

// String returns the string representation
func (s IntentStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving to next is allowed
func (s IntentStatus) CanTransitionTo(next IntentStatus) bool {
	switch s {
	case IntentStatusPending:
		return next == IntentStatusProcessing || next == IntentStatusFailed
	case IntentStatusProcessing:
		// back to PENDING only through stale-claim reconciliation
		return next == IntentStatusCompleted || next == IntentStatusFailed || next == IntentStatusPending
	}
	return false
}

// Kind is what a settled intent materializes into
type Kind string

const (
	KindCooperativeRegistration Kind = "REGISTRATION_COOPERATIVE"
	KindMemberRegistration      Kind = "REGISTRATION_MEMBER"
	KindContribution            Kind = "CONTRIBUTION"
)

// IsValid checks if the kind is valid
func (k Kind) IsValid() bool {
	switch k {
	case KindCooperativeRegistration, KindMemberRegistration, KindContribution:
		return true
	}
	return false
}

// String returns the string representation
func (k Kind) String() string {
	return string(k)
}

// ReferencePrefix is the prefix of references minted for this kind
func (k Kind) ReferencePrefix() string {
	switch k {
	case KindCooperativeRegistration:
		return "COOP"
	case KindMemberRegistration:
		return "MEM"
	default:
		return "CTB"
	}
}

// PendingIntent is a provisional record created when a payment is initialized
// and materialized into domain records only after the gateway confirms it.
// Intents are never deleted.
type PendingIntent struct {
	ID            uuid.UUID
	Reference     string
	Kind          Kind
	Payload       json.RawMessage
	Status        IntentStatus
	BaseAmount    decimal.Decimal
	TotalAmount   decimal.Decimal
	Email         string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// NewPendingIntent serializes payload and creates a PENDING intent
func NewPendingIntent(reference string, kind Kind, payload any, baseAmount, totalAmount decimal.Decimal, email string) (*PendingIntent, error) {
	if reference == "" {
		return nil, errors.New("settlement: reference is required")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("settlement: invalid intent kind %q", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("settlement: encode payload: %w", err)
	}
	now := time.Now()
	return &PendingIntent{
		ID:          uuid.New(),
		Reference:   reference,
		Kind:        kind,
		Payload:     raw,
		Status:      IntentStatusPending,
		BaseAmount:  baseAmount,
		TotalAmount: totalAmount,
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DecodePayload unmarshals the payload into v
func (i *PendingIntent) DecodePayload(v any) error {
	if err := json.Unmarshal(i.Payload, v); err != nil {
		return fmt.Errorf("settlement: decode %s payload for %s: %w", i.Kind, i.Reference, err)
	}
	return nil
}

// IsTerminal reports whether the intent can no longer change
func (i *PendingIntent) IsTerminal() bool {
	return i.Status.IsTerminal()
}

// IsStale reports whether a PROCESSING claim has been held longer than maxAge
func (i *PendingIntent) IsStale(now time.Time, maxAge time.Duration) bool {
	return i.Status == IntentStatusProcessing && now.Sub(i.UpdatedAt) > maxAge
}
