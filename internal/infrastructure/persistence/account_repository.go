package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository implements identity.AccountRepository
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByID returns nil, nil when no account exists
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	var model models.AccountModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByEmail checks if an account with the email exists
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count > 0, err
}

// SaveVirtualAccount stores a provisioned dedicated account on the account row
func (r *AccountRepository) SaveVirtualAccount(ctx context.Context, accountID uuid.UUID, va identity.VirtualAccount) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"va_account_number": va.AccountNumber,
			"va_bank_name":      va.BankName,
			"va_account_name":   va.AccountName,
			"va_customer_code":  va.CustomerCode,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.AccountRepository = (*AccountRepository)(nil)
