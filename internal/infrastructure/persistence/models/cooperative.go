package models

import (
	"fmt"
	"time"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CooperativeModel is the persistence model for cooperative.Cooperative
type CooperativeModel struct {
	BaseModel
	Name                 string     `gorm:"type:varchar(200);not null"`
	RegistrationNumber   string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Email                string     `gorm:"type:varchar(255)"`
	Phone                string     `gorm:"type:varchar(32)"`
	Address              string     `gorm:"type:text"`
	ParentOrganizationID *uuid.UUID `gorm:"type:uuid;index"`
	Status               string     `gorm:"type:varchar(16);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (CooperativeModel) TableName() string {
	return "cooperatives"
}

// ToDomain converts the model to a domain Cooperative
func (m *CooperativeModel) ToDomain() *cooperative.Cooperative {
	return &cooperative.Cooperative{
		BaseEntity:           m.BaseModel.ToDomain(),
		Name:                 m.Name,
		RegistrationNumber:   m.RegistrationNumber,
		Email:                m.Email,
		Phone:                m.Phone,
		Address:              m.Address,
		ParentOrganizationID: m.ParentOrganizationID,
		Status:               cooperative.Status(m.Status),
	}
}

// CooperativeModelFromDomain creates a model from a domain Cooperative
func CooperativeModelFromDomain(c *cooperative.Cooperative) *CooperativeModel {
	m := &CooperativeModel{
		Name:                 c.Name,
		RegistrationNumber:   c.RegistrationNumber,
		Email:                c.Email,
		Phone:                c.Phone,
		Address:              c.Address,
		ParentOrganizationID: c.ParentOrganizationID,
		Status:               string(c.Status),
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// LeaderAssignmentModel is the persistence model for cooperative.LeaderAssignment
type LeaderAssignmentModel struct {
	BaseModel
	CooperativeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leader_cooperative_account,priority:1"`
	AccountID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leader_cooperative_account,priority:2"`
	Title         string    `gorm:"type:varchar(64);not null"`
}

// TableName returns the table name for GORM
func (LeaderAssignmentModel) TableName() string {
	return "leader_assignments"
}

// LeaderAssignmentModelFromDomain creates a model from a domain LeaderAssignment
func LeaderAssignmentModelFromDomain(l *cooperative.LeaderAssignment) *LeaderAssignmentModel {
	m := &LeaderAssignmentModel{
		CooperativeID: l.CooperativeID,
		AccountID:     l.AccountID,
		Title:         l.Title,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// ContributionModel is the persistence model for cooperative.Contribution
type ContributionModel struct {
	BaseModel
	MemberID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CooperativeID uuid.UUID `gorm:"type:uuid;not null;index"`
	AmountMinor   int64     `gorm:"column:amount_minor;not null"`
	Reference     string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Note          string    `gorm:"type:varchar(255)"`
	ContributedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ContributionModel) TableName() string {
	return "contributions"
}

// ToDomain converts the model to a domain Contribution
func (m *ContributionModel) ToDomain() *cooperative.Contribution {
	return &cooperative.Contribution{
		BaseEntity:    m.BaseModel.ToDomain(),
		MemberID:      m.MemberID,
		CooperativeID: m.CooperativeID,
		Amount:        valueobject.FromMinorUnits(m.AmountMinor),
		Reference:     m.Reference,
		Note:          m.Note,
		ContributedAt: m.ContributedAt,
	}
}

// ContributionModelFromDomain creates a model from a domain Contribution
func ContributionModelFromDomain(c *cooperative.Contribution) (*ContributionModel, error) {
	amount, err := valueobject.ToMinorUnits(c.Amount)
	if err != nil {
		return nil, fmt.Errorf("contribution %s amount: %w", c.Reference, err)
	}
	m := &ContributionModel{
		MemberID:      c.MemberID,
		CooperativeID: c.CooperativeID,
		AmountMinor:   amount,
		Reference:     c.Reference,
		Note:          c.Note,
		ContributedAt: c.ContributedAt,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m, nil
}
