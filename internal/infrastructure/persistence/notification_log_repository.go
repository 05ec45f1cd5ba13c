package persistence

import (
	"context"

	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationLogRepository implements notification.LogStore
type NotificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Record inserts one dispatch attempt
func (r *NotificationLogRepository) Record(ctx context.Context, entry notification.LogEntry) error {
	return r.db.WithContext(ctx).Create(&models.NotificationLogModel{
		ID:        uuid.New(),
		Channel:   string(entry.Channel),
		Recipient: entry.Recipient,
		Template:  entry.Template,
		Reference: entry.Reference,
		Status:    string(entry.Status),
		Error:     entry.Error,
		CreatedAt: entry.CreatedAt,
	}).Error
}

// ListByReference returns the attempts made for a payment, oldest first
func (r *NotificationLogRepository) ListByReference(ctx context.Context, reference string) ([]notification.LogEntry, error) {
	var rows []models.NotificationLogModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]notification.LogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToEntry())
	}
	return out, nil
}

var _ notification.LogStore = (*NotificationLogRepository)(nil)
