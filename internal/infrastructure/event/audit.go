package event

import (
	"context"

	"github.com/coopay/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes every published event to the log as its wire envelope,
// giving an append-only trail of settlement outcomes next to the access log.
type AuditHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(serializer *EventSerializer, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{serializer: serializer, logger: logger.Named("audit")}
}

// Handle implements shared.EventHandler
func (h *AuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	data, err := h.serializer.Encode(event)
	if err != nil {
		return err
	}
	h.logger.Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("correlation_key", event.CorrelationKey()),
		zap.ByteString("envelope", data),
	)
	return nil
}

// EventTypes returns nil so the handler receives every event
func (h *AuditHandler) EventTypes() []string {
	return nil
}
