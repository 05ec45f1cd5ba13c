package models

import (
	"time"

	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationConfigModel stores one immutable version of the share table.
// The unique version index turns concurrent updates into a conflict.
type AllocationConfigModel struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Version                 int             `gorm:"not null;uniqueIndex"`
	ApexFunds               decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	PlatformFunds           decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	CooperativeShare        decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	LeaderShare             decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	ParentOrganizationShare decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	UpdatedBy               string          `gorm:"type:varchar(255);not null"`
	CreatedAt               time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationConfigModel) TableName() string {
	return "allocation_configs"
}

// ToDomain converts the model to a domain Config
func (m *AllocationConfigModel) ToDomain() *allocation.Config {
	return &allocation.Config{
		ID:      m.ID,
		Version: m.Version,
		Shares: allocation.Shares{
			ApexFunds:               m.ApexFunds,
			PlatformFunds:           m.PlatformFunds,
			CooperativeShare:        m.CooperativeShare,
			LeaderShare:             m.LeaderShare,
			ParentOrganizationShare: m.ParentOrganizationShare,
		},
		UpdatedBy: m.UpdatedBy,
		CreatedAt: m.CreatedAt,
	}
}

// AllocationConfigModelFromDomain creates a model from a domain Config
func AllocationConfigModelFromDomain(c *allocation.Config) *AllocationConfigModel {
	return &AllocationConfigModel{
		ID:                      c.ID,
		Version:                 c.Version,
		ApexFunds:               c.Shares.ApexFunds,
		PlatformFunds:           c.Shares.PlatformFunds,
		CooperativeShare:        c.Shares.CooperativeShare,
		LeaderShare:             c.Shares.LeaderShare,
		ParentOrganizationShare: c.Shares.ParentOrganizationShare,
		UpdatedBy:               c.UpdatedBy,
		CreatedAt:               c.CreatedAt,
	}
}
