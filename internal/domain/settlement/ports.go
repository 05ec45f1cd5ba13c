package settlement

import (
	"context"
	"time"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentRepository persists PendingIntents
type IntentRepository interface {
	Create(ctx context.Context, intent *PendingIntent) error
	// FindByReference returns nil, nil when no intent exists
	FindByReference(ctx context.Context, reference string) (*PendingIntent, error)
	// Transition moves reference from one status to another with a conditional
	// update. It returns ErrClaimLost when the row was not in status from.
	Transition(ctx context.Context, reference string, from, to IntentStatus, reason string) error
}

// TransactionRepository persists ledger transactions outside settlement units
type TransactionRepository interface {
	// FindByReference returns nil, nil when no transaction exists
	FindByReference(ctx context.Context, reference string) (*Transaction, error)
	// TransitionStatus is the conditional update used by direct payments
	TransitionStatus(ctx context.Context, reference string, from, to TransactionStatus) error
	// SumSuccessful totals SUCCESSFUL transactions of a type created in [from, to)
	SumSuccessful(ctx context.Context, txType TransactionType, from, to time.Time) (decimal.Decimal, int64, error)
}

// Writer creates the records of one settlement. Every call made through the
// same Writer commits or rolls back together.
type Writer interface {
	CreateCooperative(ctx context.Context, coop *cooperative.Cooperative) error
	CreateAccount(ctx context.Context, account *identity.Account) error
	CreateLeaderAssignment(ctx context.Context, assignment *cooperative.LeaderAssignment) error
	CreateContribution(ctx context.Context, contribution *cooperative.Contribution) error
	CreateTransaction(ctx context.Context, tx *Transaction) error
	// CompleteIntent flips the claimed intent PROCESSING -> COMPLETED
	CompleteIntent(ctx context.Context, reference string) error
}

// UnitOfWork runs fn inside one database transaction
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
}

// ReferenceLock is a short-lived mutual exclusion keyed by payment reference
type ReferenceLock interface {
	// TryLock returns ok=false without error when the key is already held
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Channel is a notification delivery channel
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// PaymentConfirmation tells a payer their payment settled
type PaymentConfirmation struct {
	Channel   Channel
	Recipient string
	Name      string
	Amount    decimal.Decimal
	Reference string
	Kind      Kind
}

// Welcome greets a newly created account
type Welcome struct {
	Role           identity.Role
	Recipient      string
	Name           string
	DashboardURL   string
	VirtualAccount *identity.VirtualAccount
	Reference      string
}

// Notifier dispatches messages. Callers treat every error as non-fatal.
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, msg PaymentConfirmation) error
	SendWelcome(ctx context.Context, msg Welcome) error
}

// VirtualAccountRequest asks for a dedicated account for a member
type VirtualAccountRequest struct {
	AccountID   uuid.UUID
	AccountType string
	AccountName string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
}

// VirtualAccountProvisioner creates dedicated bank accounts. Best effort.
type VirtualAccountProvisioner interface {
	CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (*identity.VirtualAccount, error)
}
