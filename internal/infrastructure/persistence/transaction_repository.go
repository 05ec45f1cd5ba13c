package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionRepository implements settlement.TransactionRepository
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// FindByReference returns nil, nil when no transaction exists
func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*settlement.Transaction, error) {
	var model models.TransactionModel
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// TransitionStatus moves a direct payment from one status to another
func (r *TransactionRepository) TransitionStatus(ctx context.Context, reference string, from, to settlement.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("reference = ? AND status = ?", reference, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return settlement.ErrClaimLost
	}
	return nil
}

// SumSuccessful totals SUCCESSFUL transactions of a type created in [from, to)
func (r *TransactionRepository) SumSuccessful(ctx context.Context, txType settlement.TransactionType, from, to time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("COALESCE(SUM(amount_minor), 0) AS total, COUNT(*) AS count").
		Where("type = ? AND status = ? AND created_at >= ? AND created_at < ?",
			string(txType), string(settlement.TransactionStatusSuccessful), from, to).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return valueobject.FromMinorUnits(row.Total), row.Count, nil
}

var _ settlement.TransactionRepository = (*TransactionRepository)(nil)
