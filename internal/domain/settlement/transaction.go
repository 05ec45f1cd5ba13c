package settlement

import (
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger transaction
type TransactionType string

const (
	TransactionTypeFee          TransactionType = "FEE"
	TransactionTypeContribution TransactionType = "CONTRIBUTION"
	TransactionTypeWithdrawal   TransactionType = "WITHDRAWAL"
)

// IsValid checks if the type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeFee, TransactionTypeContribution, TransactionTypeWithdrawal:
		return true
	}
	return false
}

// TransactionStatus is the status of a ledger transaction
type TransactionStatus string

const (
	// TransactionStatusPending only exists for direct payments awaiting verification
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusSuccessful TransactionStatus = "SUCCESSFUL"
	TransactionStatusFailed     TransactionStatus = "FAILED"
)

// IsFinal returns true if the status will not change again
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusSuccessful || s == TransactionStatusFailed
}

// ContributionReferenceSuffix keeps a contribution's companion transaction
// reference distinct from the intent's own reference.
const ContributionReferenceSuffix = "-TXN"

// Transaction is the settlement ledger record. Amount is in naira and is
// persisted as integer kobo.
type Transaction struct {
	shared.BaseEntity
	Reference     string
	Type          TransactionType
	Status        TransactionStatus
	Amount        decimal.Decimal
	AccountID     *uuid.UUID
	CooperativeID *uuid.UUID
	Description   string
}

// NewSuccessfulTransaction records a settled payment
func NewSuccessfulTransaction(reference string, txType TransactionType, amount decimal.Decimal, accountID, cooperativeID *uuid.UUID, description string) *Transaction {
	return &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		Reference:     reference,
		Type:          txType,
		Status:        TransactionStatusSuccessful,
		Amount:        amount,
		AccountID:     accountID,
		CooperativeID: cooperativeID,
		Description:   description,
	}
}
