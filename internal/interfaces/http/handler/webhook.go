package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/infrastructure/logger"
	"github.com/coopay/backend/internal/infrastructure/payment"
	"github.com/coopay/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookParser authenticates and decodes gateway webhooks
type WebhookParser interface {
	SignatureHeader() string
	ParseWebhook(body []byte, signature string) (*payment.WebhookEvent, error)
}

// WebhookResponse acknowledges a webhook delivery
type WebhookResponse struct {
	Event   string                  `json:"event"`
	Ignored bool                    `json:"ignored,omitempty"`
	Payment *dto.SettlementResponse `json:"payment,omitempty"`
}

// WebhookHandler receives Paystack webhooks. It is unauthenticated; the
// HMAC signature is the credential. Non-2xx responses make the gateway retry.
type WebhookHandler struct {
	BaseHandler
	parser  WebhookParser
	settler Settler
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(parser WebhookParser, settler Settler) *WebhookHandler {
	return &WebhookHandler{parser: parser, settler: settler}
}

// HandlePaystack godoc
//
//	@Summary	Paystack webhook
//	@Tags		payments
//	@Param		X-Paystack-Signature	header		string	true	"HMAC-SHA512 of the body"
//	@Success	200						{object}	dto.Response{data=WebhookResponse}
//	@Failure	401,409,503				{object}	dto.Response
//	@Router		/payments/webhook/paystack [post]
func (h *WebhookHandler) HandlePaystack(c *gin.Context) {
	log := logger.GetGinLogger(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	event, err := h.parser.ParseWebhook(body, c.GetHeader(h.parser.SignatureHeader()))
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		log.Warn("Rejected webhook with invalid signature", zap.String("client_ip", c.ClientIP()))
		h.HandleError(c, settlement.ErrInvalidWebhook)
		return
	case err != nil:
		h.BadRequest(c, "Malformed webhook payload")
		return
	}

	if !event.IsCharge() || event.Reference == "" {
		log.Debug("Ignoring webhook event", zap.String("event", event.Event))
		h.Success(c, WebhookResponse{Event: event.Event, Ignored: true})
		return
	}

	log = log.With(zap.String("payment_reference", event.Reference), zap.String("event", event.Event))
	res, err := h.settler.Settle(c.Request.Context(), event.Reference)
	switch {
	case err == nil:
	case res != nil && errors.Is(err, settlement.ErrGatewayVerificationFailed):
		// a definitive failure is an outcome, not a delivery error
	default:
		log.Warn("Webhook settlement not finished, gateway will retry", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	out := toSettlementResponse(res)
	c.JSON(http.StatusOK, dto.NewSuccessResponse(WebhookResponse{Event: event.Event, Payment: &out}))
}
