package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// IntentRepository implements settlement.IntentRepository
type IntentRepository struct {
	db *gorm.DB
}

// NewIntentRepository creates a new intent repository
func NewIntentRepository(db *gorm.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// Create inserts a new PENDING intent
func (r *IntentRepository) Create(ctx context.Context, intent *settlement.PendingIntent) error {
	model, err := models.PendingIntentModelFromDomain(intent)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return settlement.ErrDuplicateReference
	}
	return err
}

// FindByReference returns nil, nil when no intent exists
func (r *IntentRepository) FindByReference(ctx context.Context, reference string) (*settlement.PendingIntent, error) {
	var model models.PendingIntentModel
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Transition performs UPDATE ... WHERE reference = ? AND status = from. Zero
// affected rows means another writer moved the intent first.
func (r *IntentRepository) Transition(ctx context.Context, reference string, from, to settlement.IntentStatus, reason string) error {
	return transitionIntent(ctx, r.db, reference, from, to, reason)
}

// FindStale returns PROCESSING references last touched before cutoff, oldest first
func (r *IntentRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).
		Model(&models.PendingIntentModel{}).
		Where("status = ? AND updated_at < ?", string(settlement.IntentStatusProcessing), cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("reference", &refs).Error
	return refs, err
}

func transitionIntent(ctx context.Context, db *gorm.DB, reference string, from, to settlement.IntentStatus, reason string) error {
	if !from.CanTransitionTo(to) {
		return settlement.ErrClaimLost
	}
	now := time.Now()
	updates := map[string]any{
		"status":     string(to),
		"updated_at": now,
	}
	switch to {
	case settlement.IntentStatusFailed:
		updates["failure_reason"] = reason
		updates["completed_at"] = now
	case settlement.IntentStatusCompleted:
		updates["completed_at"] = now
	}

	result := db.WithContext(ctx).
		Model(&models.PendingIntentModel{}).
		Where("reference = ? AND status = ?", reference, string(from)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&models.PendingIntentModel{}).
			Where("reference = ?", reference).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return settlement.ErrIntentNotFound
		}
		return settlement.ErrClaimLost
	}
	return nil
}

var _ settlement.IntentRepository = (*IntentRepository)(nil)
