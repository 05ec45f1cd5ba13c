// Package settlement drives payment references through verification into
// exactly-once domain records.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coopay/backend/internal/domain/fee"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultVerifyTimeout = 15 * time.Second
	defaultLockTTL       = 30 * time.Second
	defaultStaleAfter    = 10 * time.Minute

	lockKeyPrefix = "settlement:"
)

// Outcome labels used for metrics
const (
	OutcomeCompleted    = "completed"
	OutcomeFailed       = "failed"
	OutcomeDuplicate    = "duplicate"
	OutcomeUndetermined = "undetermined"
	OutcomeWriteFailed  = "write_failed"
)

// Metrics receives settlement measurements
type Metrics interface {
	RecordSettlement(ctx context.Context, kind, outcome string, amount decimal.Decimal)
	RecordVerification(ctx context.Context, outcome string, elapsed time.Duration)
}

// Result describes where a reference ended up after Settle
type Result struct {
	Reference            string
	Kind                 settlement.Kind
	Status               settlement.IntentStatus
	Direct               bool
	AlreadyProcessed     bool
	Amount               decimal.Decimal
	TransactionReference string
	Message              string
}

// Service is the settlement state machine. Redirects, webhooks, polling and
// reconciliation all funnel into Settle.
type Service struct {
	intents       settlement.IntentRepository
	transactions  settlement.TransactionRepository
	accounts      identity.AccountRepository
	uow           settlement.UnitOfWork
	gateway       settlement.PaymentGateway
	notifier      settlement.Notifier
	provisioner   settlement.VirtualAccountProvisioner
	lock          settlement.ReferenceLock
	events        shared.EventPublisher
	metrics       Metrics
	feePolicy     fee.Policy
	verifyTimeout time.Duration
	lockTTL       time.Duration
	staleAfter    time.Duration
	dashboardURL  string
	logger        *zap.Logger
	now           func() time.Time
}

// ServiceConfig holds the collaborators of the settlement service
type ServiceConfig struct {
	Intents        settlement.IntentRepository
	Transactions   settlement.TransactionRepository
	Accounts       identity.AccountRepository
	UnitOfWork     settlement.UnitOfWork
	Gateway        settlement.PaymentGateway
	Notifier       settlement.Notifier
	Provisioner    settlement.VirtualAccountProvisioner
	Lock           settlement.ReferenceLock
	EventPublisher shared.EventPublisher
	Metrics        Metrics
	FeePolicy      *fee.Policy
	VerifyTimeout  time.Duration
	LockTTL        time.Duration
	StaleAfter     time.Duration
	DashboardURL   string
	Logger         *zap.Logger
}

// NewService creates a new settlement Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := fee.DefaultPolicy()
	if cfg.FeePolicy != nil {
		policy = *cfg.FeePolicy
	}
	verifyTimeout := cfg.VerifyTimeout
	if verifyTimeout <= 0 {
		verifyTimeout = defaultVerifyTimeout
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Service{
		intents:       cfg.Intents,
		transactions:  cfg.Transactions,
		accounts:      cfg.Accounts,
		uow:           cfg.UnitOfWork,
		gateway:       cfg.Gateway,
		notifier:      cfg.Notifier,
		provisioner:   cfg.Provisioner,
		lock:          cfg.Lock,
		events:        cfg.EventPublisher,
		metrics:       cfg.Metrics,
		feePolicy:     policy,
		verifyTimeout: verifyTimeout,
		lockTTL:       lockTTL,
		staleAfter:    staleAfter,
		dashboardURL:  strings.TrimRight(cfg.DashboardURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

// Settle verifies reference with the gateway and applies the outcome.
//
// Every path leaves an intent PENDING (outcome undetermined), COMPLETED or
// FAILED. A reference that is already terminal is returned as-is with
// AlreadyProcessed set and no side effects.
func (s *Service) Settle(ctx context.Context, reference string) (*Result, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, settlement.ErrReferenceRequired
	}
	log := s.logger.With(zap.String("payment_reference", reference))

	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx, lockKeyPrefix+reference, s.lockTTL)
		switch {
		case err != nil:
			// the conditional claim still protects us, carry on without the lock
			log.Warn("Settlement lock unavailable", zap.Error(err))
		case !ok:
			return nil, settlement.ErrSettlementInProgress
		default:
			defer unlock()
		}
	}

	intent, err := s.intents.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load payment intent: %w", err)
	}
	if intent == nil {
		return s.settleDirect(ctx, reference, log)
	}
	log = log.With(zap.String("kind", intent.Kind.String()))

	switch intent.Status {
	case settlement.IntentStatusCompleted, settlement.IntentStatusFailed:
		log.Info("Settlement already processed", zap.String("status", intent.Status.String()))
		s.recordSettlement(ctx, intent.Kind.String(), OutcomeDuplicate, decimal.Zero)
		return s.resultFromIntent(intent, true), nil
	case settlement.IntentStatusProcessing:
		return nil, settlement.ErrSettlementInProgress
	}

	verification, err := s.verify(ctx, reference)
	if err != nil {
		if settlement.IsUndetermined(err) {
			log.Warn("Payment outcome undetermined, intent left pending", zap.Error(err))
			s.recordSettlement(ctx, intent.Kind.String(), OutcomeUndetermined, decimal.Zero)
			return s.resultFromIntent(intent, false), err
		}
		return s.fail(ctx, intent, settlement.IntentStatusPending, err.Error(), settlement.ErrGatewayVerificationFailed, log)
	}

	if reason, ok := s.checkVerification(intent, verification); !ok {
		if verification.Status.IsInFlight() {
			log.Info("Payment still in flight at gateway", zap.String("gateway_status", verification.Status.String()))
			s.recordSettlement(ctx, intent.Kind.String(), OutcomeUndetermined, decimal.Zero)
			return s.resultFromIntent(intent, false), settlement.ErrPaymentInFlight
		}
		return s.fail(ctx, intent, settlement.IntentStatusPending, reason, settlement.ErrGatewayVerificationFailed, log)
	}

	if err := s.intents.Transition(ctx, reference, settlement.IntentStatusPending, settlement.IntentStatusProcessing, ""); err != nil {
		if errors.Is(err, settlement.ErrClaimLost) {
			log.Info("Lost settlement claim to a concurrent request")
			return s.reload(ctx, reference)
		}
		return nil, fmt.Errorf("claim payment intent: %w", err)
	}

	settled, err := s.materialize(ctx, intent, verification)
	if err != nil {
		log.Error("Settlement records could not be written", zap.Error(err))
		s.recordSettlement(ctx, intent.Kind.String(), OutcomeWriteFailed, decimal.Zero)
		res, _ := s.fail(ctx, intent, settlement.IntentStatusProcessing, err.Error(), nil, log)
		return res, fmt.Errorf("%w: %v", settlement.ErrDomainWriteFailed, err)
	}

	log.Info("Payment settled",
		zap.String("transaction_reference", settled.transactionReference),
		zap.String("amount", settled.amount.String()))

	s.afterCommit(ctx, intent, settled, log)
	s.recordSettlement(ctx, intent.Kind.String(), OutcomeCompleted, settled.amount)

	return &Result{
		Reference:            reference,
		Kind:                 intent.Kind,
		Status:               settlement.IntentStatusCompleted,
		Amount:               settled.amount,
		TransactionReference: settled.transactionReference,
		Message:              "Payment completed",
	}, nil
}

// Reconcile re-drives a reference. A PROCESSING claim older than the stale
// threshold is released back to PENDING first.
func (s *Service) Reconcile(ctx context.Context, reference string) (*Result, error) {
	intent, err := s.intents.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load payment intent: %w", err)
	}
	if intent == nil {
		return nil, settlement.ErrIntentNotFound
	}

	if intent.Status == settlement.IntentStatusProcessing {
		if !intent.IsStale(s.now(), s.staleAfter) {
			return nil, settlement.ErrSettlementInProgress
		}
		err := s.intents.Transition(ctx, reference, settlement.IntentStatusProcessing, settlement.IntentStatusPending, "released stale claim")
		if err != nil && !errors.Is(err, settlement.ErrClaimLost) {
			return nil, fmt.Errorf("release stale claim: %w", err)
		}
		s.logger.Warn("Released stale settlement claim",
			zap.String("payment_reference", reference),
			zap.Time("claimed_at", intent.UpdatedAt))
	}
	return s.Settle(ctx, reference)
}

// Status returns the stored state of a reference without calling the gateway
func (s *Service) Status(ctx context.Context, reference string) (*Result, error) {
	intent, err := s.intents.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load payment intent: %w", err)
	}
	if intent != nil {
		return s.resultFromIntent(intent, intent.IsTerminal()), nil
	}
	tx, err := s.transactions.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		return nil, settlement.ErrIntentNotFound
	}
	return directResult(tx, tx.Status.IsFinal()), nil
}

// verify calls the gateway under an explicit deadline and maps a deadline
// overrun to ErrGatewayTimeout. Errors other than ErrGatewayUnknownReference
// are reported as undetermined.
func (s *Service) verify(ctx context.Context, reference string) (*settlement.Verification, error) {
	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	start := s.now()
	verification, err := s.gateway.Verify(vctx, reference)
	elapsed := s.now().Sub(start)

	switch {
	case err == nil && verification == nil:
		return nil, fmt.Errorf("%w: empty verification response", settlement.ErrGatewayUnreachable)
	case err == nil:
		s.recordVerification(ctx, string(verification.Status), elapsed)
		return verification, nil
	case errors.Is(vctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		s.recordVerification(ctx, "timeout", elapsed)
		return nil, fmt.Errorf("%w: %v", settlement.ErrGatewayTimeout, err)
	case errors.Is(err, settlement.ErrGatewayUnknownReference):
		s.recordVerification(ctx, "rejected", elapsed)
		return nil, err
	case settlement.IsUndetermined(err):
		s.recordVerification(ctx, "unreachable", elapsed)
		return nil, err
	default:
		// only an explicit answer about the reference may fail a payment
		s.recordVerification(ctx, "unreachable", elapsed)
		return nil, fmt.Errorf("%w: %v", settlement.ErrGatewayUnreachable, err)
	}
}

// checkVerification returns a failure reason when the gateway answer does
// not confirm this intent.
func (s *Service) checkVerification(intent *settlement.PendingIntent, v *settlement.Verification) (string, bool) {
	if !v.IsSuccess() {
		msg := v.GatewayResponse
		if msg == "" {
			msg = "payment " + v.Status.String()
		}
		return msg, false
	}
	if v.Reference != "" && v.Reference != intent.Reference {
		return fmt.Sprintf("gateway returned reference %s", v.Reference), false
	}
	if intent.TotalAmount.IsPositive() && v.Amount.LessThan(intent.TotalAmount) {
		return fmt.Sprintf("amount paid %s is less than expected %s", v.Amount.StringFixed(2), intent.TotalAmount.StringFixed(2)), false
	}
	return "", true
}

// fail moves the intent to FAILED from the given status. cause is wrapped
// into the returned error when non-nil.
func (s *Service) fail(ctx context.Context, intent *settlement.PendingIntent, from settlement.IntentStatus, reason string, cause error, log *zap.Logger) (*Result, error) {
	// the compensating write must survive a cancelled request
	wctx := context.WithoutCancel(ctx)
	if err := s.intents.Transition(wctx, intent.Reference, from, settlement.IntentStatusFailed, reason); err != nil {
		if errors.Is(err, settlement.ErrClaimLost) {
			return s.reload(ctx, intent.Reference)
		}
		log.Error("Failed to mark intent as failed", zap.Error(err))
		return nil, fmt.Errorf("mark intent failed: %w", err)
	}

	log.Warn("Payment failed", zap.String("reason", reason))
	if cause != nil {
		s.recordSettlement(ctx, intent.Kind.String(), OutcomeFailed, decimal.Zero)
	}
	s.publish(wctx, settlement.NewSettlementFailedEvent(intent.Reference, intent.Kind, reason), log)

	res := s.resultFromIntent(intent, false)
	res.Status = settlement.IntentStatusFailed
	res.Message = reason
	if cause == nil {
		return res, nil
	}
	return res, fmt.Errorf("%w: %s", cause, reason)
}

// reload returns the current stored state for a reference that another
// request moved underneath us.
func (s *Service) reload(ctx context.Context, reference string) (*Result, error) {
	current, err := s.intents.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("reload payment intent: %w", err)
	}
	if current == nil {
		return nil, settlement.ErrIntentNotFound
	}
	if current.Status == settlement.IntentStatusProcessing {
		return nil, settlement.ErrSettlementInProgress
	}
	return s.resultFromIntent(current, true), nil
}

func (s *Service) resultFromIntent(intent *settlement.PendingIntent, already bool) *Result {
	res := &Result{
		Reference:        intent.Reference,
		Kind:             intent.Kind,
		Status:           intent.Status,
		AlreadyProcessed: already,
		Amount:           intent.BaseAmount,
		Message:          intent.FailureReason,
	}
	switch intent.Status {
	case settlement.IntentStatusCompleted:
		res.Message = "Payment completed"
		res.TransactionReference = transactionReference(intent)
	case settlement.IntentStatusPending:
		res.Message = "Payment is awaiting confirmation"
	}
	return res
}

func transactionReference(intent *settlement.PendingIntent) string {
	if intent.Kind == settlement.KindContribution {
		return intent.Reference + settlement.ContributionReferenceSuffix
	}
	return intent.Reference
}

func (s *Service) publish(ctx context.Context, event shared.DomainEvent, log *zap.Logger) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		// Don't fail the settlement if event publishing fails
		log.Warn("Failed to publish settlement event", zap.String("event_type", event.EventType()), zap.Error(err))
	}
}

func (s *Service) recordSettlement(ctx context.Context, kind, outcome string, amount decimal.Decimal) {
	if s.metrics != nil {
		s.metrics.RecordSettlement(ctx, kind, outcome, amount)
	}
}

func (s *Service) recordVerification(ctx context.Context, outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordVerification(ctx, outcome, elapsed)
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
