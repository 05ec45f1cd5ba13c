package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/fee"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCooperativeUnavailable = shared.NewDomainError("COOPERATIVE_UNAVAILABLE", "Cooperative does not exist or is not active")
	ErrMemberNotFound         = shared.NewDomainError("MEMBER_NOT_FOUND", "Member account not found")
	ErrInvalidAmount          = shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than zero")
	ErrAmountTooLarge         = shared.NewDomainError("INVALID_AMOUNT", "Amount exceeds the maximum of NGN 10,000,000,000")
	ErrGatewayInitFailed      = errors.New("settlement: payment gateway could not initialize checkout")
)

// PasswordHasher hashes plaintext passwords before they are stored in payloads
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// FeeSchedule holds the base amounts charged for registrations
type FeeSchedule struct {
	CooperativeRegistration decimal.Decimal
	MemberRegistration      decimal.Decimal
}

// LeaderDetails is the leader section of a cooperative registration
type LeaderDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	Title     string
}

// CooperativeRegistration is the input of InitializeCooperativeRegistration
type CooperativeRegistration struct {
	Name                 string
	RegistrationNumber   string
	Email                string
	Phone                string
	Address              string
	ParentOrganizationID *uuid.UUID
	Password             string
	Leader               LeaderDetails
}

// MemberRegistration is the input of InitializeMemberRegistration
type MemberRegistration struct {
	CooperativeID uuid.UUID
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Password      string
}

// ContributionRequest is the input of InitializeContribution
type ContributionRequest struct {
	MemberID uuid.UUID
	Amount   decimal.Decimal
	Note     string
}

// Checkout is returned to the client so it can redirect the payer
type Checkout struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
	Fee              fee.Calculation
}

// InitializationService creates PendingIntents and starts gateway checkouts
type InitializationService struct {
	intents      settlement.IntentRepository
	gateway      settlement.PaymentGateway
	cooperatives cooperative.Repository
	accounts     identity.AccountRepository
	hasher       PasswordHasher
	references   ReferenceGenerator
	feePolicy    fee.Policy
	fees         FeeSchedule
	callbackURL  string
	logger       *zap.Logger
}

// InitializationServiceConfig holds the collaborators of InitializationService
type InitializationServiceConfig struct {
	Intents      settlement.IntentRepository
	Gateway      settlement.PaymentGateway
	Cooperatives cooperative.Repository
	Accounts     identity.AccountRepository
	Hasher       PasswordHasher
	References   ReferenceGenerator
	FeePolicy    *fee.Policy
	Fees         FeeSchedule
	CallbackURL  string
	Logger       *zap.Logger
}

// NewInitializationService creates a new InitializationService
func NewInitializationService(cfg InitializationServiceConfig) *InitializationService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := fee.DefaultPolicy()
	if cfg.FeePolicy != nil {
		policy = *cfg.FeePolicy
	}
	refs := cfg.References
	if refs == nil {
		refs = NewULIDReferences()
	}
	return &InitializationService{
		intents:      cfg.Intents,
		gateway:      cfg.Gateway,
		cooperatives: cfg.Cooperatives,
		accounts:     cfg.Accounts,
		hasher:       cfg.Hasher,
		references:   refs,
		feePolicy:    policy,
		fees:         cfg.Fees,
		callbackURL:  cfg.CallbackURL,
		logger:       logger,
	}
}

// Quote returns the fee breakdown for an amount
func (s *InitializationService) Quote(amount decimal.Decimal) (fee.Calculation, error) {
	return s.feePolicy.Compute(amount)
}

// InitializeCooperativeRegistration starts payment of the cooperative registration fee
func (s *InitializationService) InitializeCooperativeRegistration(ctx context.Context, req CooperativeRegistration) (*Checkout, error) {
	exists, err := s.cooperatives.ExistsByRegistrationNumber(ctx, strings.ToUpper(strings.TrimSpace(req.RegistrationNumber)))
	if err != nil {
		return nil, fmt.Errorf("check registration number: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "A cooperative with this registration number already exists")
	}
	for _, email := range []string{req.Email, req.Leader.Email} {
		if err := s.ensureEmailFree(ctx, email); err != nil {
			return nil, err
		}
	}

	coopHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash cooperative password: %w", err)
	}
	leaderHash, err := s.hasher.Hash(req.Leader.Password)
	if err != nil {
		return nil, fmt.Errorf("hash leader password: %w", err)
	}

	payload := settlement.CooperativeRegistrationPayload{
		Name:                    req.Name,
		RegistrationNumber:      req.RegistrationNumber,
		Email:                   req.Email,
		Phone:                   req.Phone,
		Address:                 req.Address,
		ParentOrganizationID:    req.ParentOrganizationID,
		CooperativePasswordHash: coopHash,
		Leader: settlement.Person{
			FirstName:    req.Leader.FirstName,
			LastName:     req.Leader.LastName,
			Email:        req.Leader.Email,
			Phone:        req.Leader.Phone,
			PasswordHash: leaderHash,
		},
		LeaderTitle: req.Leader.Title,
	}
	return s.start(ctx, settlement.KindCooperativeRegistration, payload, s.fees.CooperativeRegistration, req.Email, map[string]string{
		"cooperative_name": req.Name,
	})
}

// InitializeMemberRegistration starts payment of the member registration fee
func (s *InitializationService) InitializeMemberRegistration(ctx context.Context, req MemberRegistration) (*Checkout, error) {
	coop, err := s.cooperatives.FindByID(ctx, req.CooperativeID)
	if err != nil {
		return nil, fmt.Errorf("load cooperative: %w", err)
	}
	if coop == nil || !coop.IsActive() {
		return nil, ErrCooperativeUnavailable
	}
	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash member password: %w", err)
	}
	payload := settlement.MemberRegistrationPayload{
		CooperativeID: coop.ID,
		Member: settlement.Person{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			PasswordHash: hash,
		},
	}
	return s.start(ctx, settlement.KindMemberRegistration, payload, s.fees.MemberRegistration, req.Email, map[string]string{
		"cooperative_id": coop.ID.String(),
	})
}

// InitializeContribution starts payment of a member contribution
func (s *InitializationService) InitializeContribution(ctx context.Context, req ContributionRequest) (*Checkout, error) {
	amount := valueobject.RoundMoney(req.Amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.GreaterThan(valueobject.MaxAmount) {
		return nil, ErrAmountTooLarge
	}
	member, err := s.accounts.FindByID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if member == nil || member.Role != identity.RoleMember || member.CooperativeID == nil {
		return nil, ErrMemberNotFound
	}

	payload := settlement.ContributionPayload{
		MemberID:      member.ID,
		CooperativeID: *member.CooperativeID,
		BaseAmount:    amount,
		Note:          req.Note,
	}
	return s.start(ctx, settlement.KindContribution, payload, amount, member.Email, map[string]string{
		"member_id":      member.ID.String(),
		"cooperative_id": member.CooperativeID.String(),
	})
}

// start persists the intent before calling the gateway so a webhook can never
// arrive for a reference we do not know.
func (s *InitializationService) start(ctx context.Context, kind settlement.Kind, payload any, base decimal.Decimal, email string, metadata map[string]string) (*Checkout, error) {
	calc, err := s.feePolicy.Compute(base)
	if err != nil {
		return nil, err
	}
	if !calc.TotalAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	reference := s.references.New(kind)
	intent, err := settlement.NewPendingIntent(reference, kind, payload, calc.BaseAmount, calc.TotalAmount, email)
	if err != nil {
		return nil, err
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	metadata["kind"] = kind.String()
	resp, err := s.gateway.Initialize(ctx, settlement.InitializeRequest{
		Reference:   reference,
		Email:       email,
		Amount:      calc.TotalAmount,
		CallbackURL: s.callbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		s.logger.Error("Gateway checkout initialization failed",
			zap.String("payment_reference", reference),
			zap.String("kind", kind.String()),
			zap.Error(err))
		// the reference can never be paid, close it
		if terr := s.intents.Transition(context.WithoutCancel(ctx), reference, settlement.IntentStatusPending,
			settlement.IntentStatusFailed, "checkout initialization failed"); terr != nil {
			s.logger.Warn("Failed to close unpayable intent", zap.String("payment_reference", reference), zap.Error(terr))
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayInitFailed, err)
	}

	s.logger.Info("Payment initialized",
		zap.String("payment_reference", reference),
		zap.String("kind", kind.String()),
		zap.String("total", calc.TotalAmount.StringFixed(2)))

	return &Checkout{
		Reference:        reference,
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Fee:              calc,
	}, nil
}

func (s *InitializationService) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.accounts.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return settlement.ErrDuplicateRegistrant
	}
	return nil
}
