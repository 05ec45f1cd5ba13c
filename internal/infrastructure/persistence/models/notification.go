package models

import (
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/google/uuid"
)

// NotificationLogModel records one dispatch attempt
type NotificationLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Channel   string    `gorm:"type:varchar(8);not null"`
	Recipient string    `gorm:"type:varchar(255);not null"`
	Template  string    `gorm:"type:varchar(64);not null"`
	Reference string    `gorm:"type:varchar(64);index"`
	Status    string    `gorm:"type:varchar(8);not null"`
	Error     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

// ToEntry converts the row to a notification log entry
func (m *NotificationLogModel) ToEntry() notification.LogEntry {
	return notification.LogEntry{
		Channel:   settlement.Channel(m.Channel),
		Recipient: m.Recipient,
		Template:  m.Template,
		Reference: m.Reference,
		Status:    notification.LogStatus(m.Status),
		Error:     m.Error,
		CreatedAt: m.CreatedAt,
	}
}
