// Package handler implements the gin handlers of the payment API.
package handler

import (
	"errors"
	"net/http"

	appsettlement "github.com/coopay/backend/internal/application/settlement"
	"github.com/coopay/backend/internal/domain/fee"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/coopay/backend/internal/infrastructure/logger"
	"github.com/coopay/backend/internal/interfaces/http/dto"
	"github.com/coopay/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error envelope
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Forbidden sends a 403 response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// HandleError converts an error from the application layer into a response.
// Domain errors carry their own code; settlement sentinels are mapped here.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code, message := classifyError(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed", zap.String("code", code), zap.Error(err))
		_ = c.Error(err)
	}
	h.Error(c, status, code, message)
}

func classifyError(err error) (code, message string) {
	switch {
	case errors.Is(err, settlement.ErrSettlementInProgress):
		return dto.ErrCodeSettlementInProgress, "Payment is being processed, try again shortly"
	case settlement.IsUndetermined(err):
		return dto.ErrCodePaymentPending, "Payment outcome is not yet known, try again shortly"
	case errors.Is(err, settlement.ErrDomainWriteFailed):
		return dto.ErrCodeSettlementFailed, "Payment was received but could not be recorded"
	case errors.Is(err, appsettlement.ErrGatewayInitFailed):
		return dto.ErrCodeGatewayError, "Payment gateway could not start the checkout"
	case errors.Is(err, fee.ErrNegativeAmount), errors.Is(err, fee.ErrInvalidAmount),
		errors.Is(err, fee.ErrAmountTooLarge):
		return dto.ErrCodeInvalidAmount, err.Error()
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code, domainErr.Message
	}
	return dto.ErrCodeInternal, "An unexpected error occurred"
}

// respondSettlement writes the outcome of Settle or Reconcile. A definitive
// gateway failure is a normal FAILED result; an undetermined outcome is 202
// so pollers come back later.
func (h *BaseHandler) respondSettlement(c *gin.Context, res *appsettlement.Result, err error) {
	switch {
	case err == nil:
		h.Success(c, toSettlementResponse(res))
	case res != nil && settlement.IsUndetermined(err):
		c.JSON(http.StatusAccepted, dto.NewSuccessResponse(toSettlementResponse(res)))
	case res != nil && errors.Is(err, settlement.ErrGatewayVerificationFailed):
		h.Success(c, toSettlementResponse(res))
	default:
		h.HandleError(c, err)
	}
}

// principal returns the authenticated caller or writes a 401
func principal(c *gin.Context) (*identity.Principal, bool) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUnauthorized, "Authentication required", middleware.GetRequestID(c)))
		return nil, false
	}
	return p, true
}
