package persistence

import (
	"context"
	"errors"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// UnitOfWork implements settlement.UnitOfWork with one database transaction
// per Execute call
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new gorm-backed unit of work
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Execute runs fn in a transaction. Any error or panic inside fn rolls back
// every write made through the Writer.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, w settlement.Writer) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txWriter{tx: tx})
	})
}

type txWriter struct {
	tx *gorm.DB
}

func (w *txWriter) CreateCooperative(ctx context.Context, coop *cooperative.Cooperative) error {
	err := w.tx.WithContext(ctx).Create(models.CooperativeModelFromDomain(coop)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return settlement.ErrDuplicateRegistrant
	}
	return err
}

func (w *txWriter) CreateAccount(ctx context.Context, account *identity.Account) error {
	err := w.tx.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return settlement.ErrDuplicateRegistrant
	}
	return err
}

func (w *txWriter) CreateLeaderAssignment(ctx context.Context, assignment *cooperative.LeaderAssignment) error {
	return w.tx.WithContext(ctx).Create(models.LeaderAssignmentModelFromDomain(assignment)).Error
}

func (w *txWriter) CreateContribution(ctx context.Context, contribution *cooperative.Contribution) error {
	model, err := models.ContributionModelFromDomain(contribution)
	if err != nil {
		return err
	}
	return w.tx.WithContext(ctx).Create(model).Error
}

func (w *txWriter) CreateTransaction(ctx context.Context, tx *settlement.Transaction) error {
	model, err := models.TransactionModelFromDomain(tx)
	if err != nil {
		return err
	}
	err = w.tx.WithContext(ctx).Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return settlement.ErrDuplicateReference
	}
	return err
}

func (w *txWriter) CompleteIntent(ctx context.Context, reference string) error {
	return transitionIntent(ctx, w.tx, reference, settlement.IntentStatusProcessing, settlement.IntentStatusCompleted, "")
}

var _ settlement.UnitOfWork = (*UnitOfWork)(nil)
