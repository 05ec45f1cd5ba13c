package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "TOKEN_INVALID"
)

// Settlement error codes that have no DomainError of their own
const (
	ErrCodeSettlementInProgress = "SETTLEMENT_IN_PROGRESS"
	ErrCodePaymentPending       = "PAYMENT_PENDING"
	ErrCodeGatewayError         = "GATEWAY_ERROR"
	ErrCodeSettlementFailed     = "SETTLEMENT_WRITE_FAILED"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Domain error
// codes are listed next to the transport-only ones.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeSettlementInProgress: http.StatusConflict,
	ErrCodePaymentPending:       http.StatusServiceUnavailable,
	ErrCodeGatewayError:         http.StatusBadGateway,
	ErrCodeSettlementFailed:     http.StatusInternalServerError,
	ErrCodeInvalidAmount:        http.StatusBadRequest,

	// shared
	"NOT_FOUND":      http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,
	"INVALID_INPUT":  http.StatusBadRequest,
	"INVALID_STATE":  http.StatusUnprocessableEntity,

	// settlement
	"PAYMENT_NOT_FOUND":       http.StatusNotFound,
	"REFERENCE_REQUIRED":      http.StatusBadRequest,
	"INVALID_WEBHOOK":         http.StatusUnauthorized,
	"NOT_RECONCILABLE":        http.StatusConflict,
	"ALREADY_REGISTERED":      http.StatusConflict,
	"DUPLICATE_REFERENCE":     http.StatusConflict,
	"COOPERATIVE_UNAVAILABLE": http.StatusUnprocessableEntity,
	"MEMBER_NOT_FOUND":        http.StatusNotFound,

	// allocation
	"INVALID_ALLOCATION_CONFIG": http.StatusUnprocessableEntity,
	"ALLOCATION_NOT_CONFIGURED": http.StatusNotFound,
	"CONCURRENT_UPDATE":         http.StatusConflict,
	"INVALID_SOURCE":            http.StatusBadRequest,
	"INVALID_PERIOD":            http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
