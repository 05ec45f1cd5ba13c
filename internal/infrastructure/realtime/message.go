package realtime

import (
	"github.com/shopspring/decimal"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
)

// Message is what dashboard sockets receive
type Message struct {
	Type      string           `json:"type"`
	Reference string           `json:"reference"`
	Kind      string           `json:"kind,omitempty"`
	Status    string           `json:"status"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// AdminChannel receives every settlement event
const AdminChannel = "admin"

// CooperativeChannel is the channel of one cooperative's dashboard
func CooperativeChannel(id string) string {
	return "cooperative:" + id
}

// messageFor converts a settlement event into a message and the channels it goes to
func messageFor(event shared.DomainEvent) (*Message, []string, bool) {
	switch e := event.(type) {
	case *settlement.SettlementCompletedEvent:
		amount := e.Amount
		msg := &Message{
			Type:      e.EventType(),
			Reference: e.CorrelationKey(),
			Kind:      e.Kind.String(),
			Status:    settlement.IntentStatusCompleted.String(),
			Amount:    &amount,
		}
		channels := []string{AdminChannel}
		if e.CooperativeID != nil {
			channels = append(channels, CooperativeChannel(e.CooperativeID.String()))
		}
		return msg, channels, true
	case *settlement.SettlementFailedEvent:
		return &Message{
			Type:      e.EventType(),
			Reference: e.CorrelationKey(),
			Kind:      e.Kind.String(),
			Status:    settlement.IntentStatusFailed.String(),
			Reason:    e.Reason,
		}, []string{AdminChannel}, true
	}
	return nil, nil, false
}
