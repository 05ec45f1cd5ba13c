package settlement

import (
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypePendingIntent = "PendingIntent"

	EventTypeSettlementCompleted = "SettlementCompleted"
	EventTypeSettlementFailed    = "SettlementFailed"
)

// SettlementCompletedEvent is published after the settlement unit commits
type SettlementCompletedEvent struct {
	shared.BaseDomainEvent
	Kind          Kind            `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	CooperativeID *uuid.UUID      `json:"cooperative_id,omitempty"`
}

// NewSettlementCompletedEvent creates a SettlementCompletedEvent
func NewSettlementCompletedEvent(reference string, kind Kind, amount decimal.Decimal, cooperativeID *uuid.UUID) *SettlementCompletedEvent {
	return &SettlementCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettlementCompleted, AggregateTypePendingIntent, reference),
		Kind:            kind,
		Amount:          amount,
		CooperativeID:   cooperativeID,
	}
}

// SettlementFailedEvent is published when an intent ends FAILED
type SettlementFailedEvent struct {
	shared.BaseDomainEvent
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

// NewSettlementFailedEvent creates a SettlementFailedEvent
func NewSettlementFailedEvent(reference string, kind Kind, reason string) *SettlementFailedEvent {
	return &SettlementFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettlementFailed, AggregateTypePendingIntent, reference),
		Kind:            kind,
		Reason:          reason,
	}
}
