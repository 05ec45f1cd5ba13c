package event

import "github.com/coopay/backend/internal/domain/settlement"

// RegisterSettlementEvents registers the settlement event types with the serializer
func RegisterSettlementEvents(serializer *EventSerializer) {
	serializer.Register(settlement.EventTypeSettlementCompleted, &settlement.SettlementCompletedEvent{})
	serializer.Register(settlement.EventTypeSettlementFailed, &settlement.SettlementFailedEvent{})
}
