package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/coopay/backend/internal/domain/settlement"
	"go.uber.org/zap"
)

// settleDirect handles references with no PendingIntent: standalone payments
// whose Transaction row already exists and only needs its status set.
func (s *Service) settleDirect(ctx context.Context, reference string, log *zap.Logger) (*Result, error) {
	tx, err := s.transactions.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		return nil, settlement.ErrIntentNotFound
	}
	log = log.With(zap.Bool("direct", true))

	if tx.Status.IsFinal() {
		s.recordSettlement(ctx, "DIRECT", OutcomeDuplicate, tx.Amount)
		return directResult(tx, true), nil
	}

	verification, err := s.verify(ctx, reference)
	if err != nil && settlement.IsUndetermined(err) {
		log.Warn("Direct payment outcome undetermined", zap.Error(err))
		return directResult(tx, false), err
	}
	if err == nil && verification.Status.IsInFlight() {
		return directResult(tx, false), settlement.ErrPaymentInFlight
	}

	target := settlement.TransactionStatusFailed
	if err == nil && verification.IsSuccess() {
		target = settlement.TransactionStatusSuccessful
	}

	if terr := s.transactions.TransitionStatus(context.WithoutCancel(ctx), reference, tx.Status, target); terr != nil {
		if errors.Is(terr, settlement.ErrClaimLost) {
			current, ferr := s.transactions.FindByReference(ctx, reference)
			if ferr != nil || current == nil {
				return nil, fmt.Errorf("reload transaction: %w", errors.Join(terr, ferr))
			}
			return directResult(current, true), nil
		}
		return nil, fmt.Errorf("update transaction status: %w", terr)
	}

	tx.Status = target
	outcome := OutcomeCompleted
	if target == settlement.TransactionStatusFailed {
		outcome = OutcomeFailed
	}
	s.recordSettlement(ctx, "DIRECT", outcome, tx.Amount)
	log.Info("Direct payment status updated", zap.String("status", string(target)))

	res := directResult(tx, false)
	if target == settlement.TransactionStatusFailed {
		reason := "payment not successful"
		if err != nil {
			reason = err.Error()
		} else if verification != nil {
			reason = "payment " + verification.Status.String()
		}
		return res, fmt.Errorf("%w: %s", settlement.ErrGatewayVerificationFailed, reason)
	}
	return res, nil
}

func directResult(tx *settlement.Transaction, already bool) *Result {
	res := &Result{
		Reference:            tx.Reference,
		Direct:               true,
		AlreadyProcessed:     already,
		Amount:               tx.Amount,
		TransactionReference: tx.Reference,
	}
	switch tx.Status {
	case settlement.TransactionStatusSuccessful:
		res.Status, res.Message = settlement.IntentStatusCompleted, "Payment completed"
	case settlement.TransactionStatusFailed:
		res.Status, res.Message = settlement.IntentStatusFailed, "Payment failed"
	default:
		res.Status, res.Message = settlement.IntentStatusPending, "Payment is awaiting confirmation"
	}
	return res
}
