package settlement

import (
	"errors"

	"github.com/coopay/backend/internal/domain/shared"
)

var (
	// ErrGatewayVerificationFailed means the gateway explicitly reported a non-success status
	ErrGatewayVerificationFailed = errors.New("settlement: gateway reported payment not successful")
	// ErrGatewayUnknownReference means the gateway explicitly has no record of the reference
	ErrGatewayUnknownReference = errors.New("settlement: gateway has no record of the reference")
	// ErrGatewayUnreachable means the gateway could not be asked; the outcome is undetermined
	ErrGatewayUnreachable = errors.New("settlement: payment gateway unreachable")
	// ErrGatewayTimeout means verification did not answer in time; the outcome is undetermined
	ErrGatewayTimeout = errors.New("settlement: payment gateway timed out")
	// ErrPaymentInFlight means the payer has not finished paying yet; the outcome is undetermined
	ErrPaymentInFlight = errors.New("settlement: payment not yet completed at gateway")
	// ErrDomainWriteFailed means the atomic record creation failed and the intent was failed
	ErrDomainWriteFailed = errors.New("settlement: failed to write settlement records")
	// ErrNotificationDispatch is logged and never returned from Settle
	ErrNotificationDispatch = errors.New("settlement: notification dispatch failed")
	// ErrSettlementInProgress means another caller currently holds the reference
	ErrSettlementInProgress = errors.New("settlement: reference is being settled by another request")
	// ErrClaimLost means a conditional status update matched no row
	ErrClaimLost = errors.New("settlement: intent status changed concurrently")
)

var (
	ErrIntentNotFound      = shared.NewDomainError("PAYMENT_NOT_FOUND", "No payment found for reference")
	ErrReferenceRequired   = shared.NewDomainError("REFERENCE_REQUIRED", "Payment reference is required")
	ErrInvalidWebhook      = shared.NewDomainError("INVALID_WEBHOOK", "Webhook signature is invalid")
	ErrNotReconcilable     = shared.NewDomainError("NOT_RECONCILABLE", "Payment is not in a reconcilable state")
	ErrDuplicateRegistrant = shared.NewDomainError("ALREADY_REGISTERED", "An account with this email already exists")
	ErrDuplicateReference  = shared.NewDomainError("DUPLICATE_REFERENCE", "A payment with this reference already exists")
)

// IsUndetermined reports whether err leaves the payment outcome unknown
func IsUndetermined(err error) bool {
	return errors.Is(err, ErrGatewayUnreachable) ||
		errors.Is(err, ErrGatewayTimeout) ||
		errors.Is(err, ErrPaymentInFlight)
}
