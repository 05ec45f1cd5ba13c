package persistence

import (
	"context"
	"errors"

	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AllocationConfigRepository implements allocation.Repository. Versions are
// append-only; the unique version index rejects a concurrent duplicate.
type AllocationConfigRepository struct {
	db *gorm.DB
}

// NewAllocationConfigRepository creates a new allocation config repository
func NewAllocationConfigRepository(db *gorm.DB) *AllocationConfigRepository {
	return &AllocationConfigRepository{db: db}
}

// Current returns the highest version, or nil if none exists
func (r *AllocationConfigRepository) Current(ctx context.Context) (*allocation.Config, error) {
	var model models.AllocationConfigModel
	err := r.db.WithContext(ctx).Order("version DESC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Append inserts a new version in a single statement
func (r *AllocationConfigRepository) Append(ctx context.Context, cfg *allocation.Config) error {
	err := r.db.WithContext(ctx).Create(models.AllocationConfigModelFromDomain(cfg)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return allocation.ErrVersionConflict
	}
	return err
}

// History returns the latest versions, newest first
func (r *AllocationConfigRepository) History(ctx context.Context, limit int) ([]allocation.Config, error) {
	var rows []models.AllocationConfigModel
	if err := r.db.WithContext(ctx).Order("version DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]allocation.Config, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

var _ allocation.Repository = (*AllocationConfigRepository)(nil)
