package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CooperativeRepository implements cooperative.Repository
type CooperativeRepository struct {
	db *gorm.DB
}

// NewCooperativeRepository creates a new cooperative repository
func NewCooperativeRepository(db *gorm.DB) *CooperativeRepository {
	return &CooperativeRepository{db: db}
}

// FindByID returns nil, nil when no cooperative exists
func (r *CooperativeRepository) FindByID(ctx context.Context, id uuid.UUID) (*cooperative.Cooperative, error) {
	var model models.CooperativeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByRegistrationNumber checks if a cooperative is already registered
func (r *CooperativeRepository) ExistsByRegistrationNumber(ctx context.Context, registrationNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CooperativeModel{}).
		Where("registration_number = ?", strings.ToUpper(strings.TrimSpace(registrationNumber))).
		Count(&count).Error
	return count > 0, err
}

var _ cooperative.Repository = (*CooperativeRepository)(nil)
