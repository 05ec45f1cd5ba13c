package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PendingIntentModel is the persistence model for settlement.PendingIntent
type PendingIntentModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Reference     string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Kind          string         `gorm:"type:varchar(32);not null;index"`
	Payload       datatypes.JSON `gorm:"not null"`
	Status        string         `gorm:"type:varchar(16);not null;index"`
	BaseMinor     int64          `gorm:"column:base_amount_minor;not null"`
	TotalMinor    int64          `gorm:"column:total_amount_minor;not null"`
	Email         string         `gorm:"type:varchar(255);not null"`
	FailureReason string         `gorm:"type:text"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (PendingIntentModel) TableName() string {
	return "pending_intents"
}

// ToDomain converts the model to a domain PendingIntent
func (m *PendingIntentModel) ToDomain() *settlement.PendingIntent {
	return &settlement.PendingIntent{
		ID:            m.ID,
		Reference:     m.Reference,
		Kind:          settlement.Kind(m.Kind),
		Payload:       json.RawMessage(m.Payload),
		Status:        settlement.IntentStatus(m.Status),
		BaseAmount:    valueobject.FromMinorUnits(m.BaseMinor),
		TotalAmount:   valueobject.FromMinorUnits(m.TotalMinor),
		Email:         m.Email,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		CompletedAt:   m.CompletedAt,
	}
}

// PendingIntentModelFromDomain creates a model from a domain PendingIntent
func PendingIntentModelFromDomain(i *settlement.PendingIntent) (*PendingIntentModel, error) {
	base, err := valueobject.ToMinorUnits(i.BaseAmount)
	if err != nil {
		return nil, fmt.Errorf("intent %s base amount: %w", i.Reference, err)
	}
	total, err := valueobject.ToMinorUnits(i.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("intent %s total amount: %w", i.Reference, err)
	}
	return &PendingIntentModel{
		ID:            i.ID,
		Reference:     i.Reference,
		Kind:          string(i.Kind),
		Payload:       datatypes.JSON(i.Payload),
		Status:        string(i.Status),
		BaseMinor:     base,
		TotalMinor:    total,
		Email:         i.Email,
		FailureReason: i.FailureReason,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		CompletedAt:   i.CompletedAt,
	}, nil
}

// TransactionModel is the persistence model for settlement.Transaction
type TransactionModel struct {
	BaseModel
	Reference     string     `gorm:"type:varchar(80);not null;uniqueIndex"`
	Type          string     `gorm:"type:varchar(16);not null;index:idx_transactions_type_status_created,priority:1"`
	Status        string     `gorm:"type:varchar(16);not null;index:idx_transactions_type_status_created,priority:2"`
	AmountMinor   int64      `gorm:"column:amount_minor;not null"`
	AccountID     *uuid.UUID `gorm:"type:uuid;index"`
	CooperativeID *uuid.UUID `gorm:"type:uuid;index"`
	Description   string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the model to a domain Transaction
func (m *TransactionModel) ToDomain() *settlement.Transaction {
	return &settlement.Transaction{
		BaseEntity:    m.BaseModel.ToDomain(),
		Reference:     m.Reference,
		Type:          settlement.TransactionType(m.Type),
		Status:        settlement.TransactionStatus(m.Status),
		Amount:        valueobject.FromMinorUnits(m.AmountMinor),
		AccountID:     m.AccountID,
		CooperativeID: m.CooperativeID,
		Description:   m.Description,
	}
}

// TransactionModelFromDomain creates a model from a domain Transaction
func TransactionModelFromDomain(t *settlement.Transaction) (*TransactionModel, error) {
	amount, err := valueobject.ToMinorUnits(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s amount: %w", t.Reference, err)
	}
	m := &TransactionModel{
		Reference:     t.Reference,
		Type:          string(t.Type),
		Status:        string(t.Status),
		AmountMinor:   amount,
		AccountID:     t.AccountID,
		CooperativeID: t.CooperativeID,
		Description:   t.Description,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m, nil
}
