package cooperative

import (
	"context"
	"errors"
	"strings"

	"github.com/coopay/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrNameRequired         = errors.New("cooperative: name is required")
	ErrRegistrationRequired = errors.New("cooperative: registration number is required")
)

// Status of a cooperative society
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Cooperative is a registered cooperative society
type Cooperative struct {
	shared.BaseEntity
	Name                 string
	RegistrationNumber   string
	Email                string
	Phone                string
	Address              string
	ParentOrganizationID *uuid.UUID
	Status               Status
}

// NewCooperative creates an active cooperative
func NewCooperative(name, registrationNumber, email, phone, address string, parentID *uuid.UUID) (*Cooperative, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	registrationNumber = strings.TrimSpace(registrationNumber)
	if registrationNumber == "" {
		return nil, ErrRegistrationRequired
	}
	return &Cooperative{
		BaseEntity:           shared.NewBaseEntity(),
		Name:                 name,
		RegistrationNumber:   strings.ToUpper(registrationNumber),
		Email:                strings.ToLower(strings.TrimSpace(email)),
		Phone:                strings.TrimSpace(phone),
		Address:              address,
		ParentOrganizationID: parentID,
		Status:               StatusActive,
	}, nil
}

// IsActive reports whether members can still join and contribute
func (c *Cooperative) IsActive() bool {
	return c.Status == StatusActive
}

// LeaderAssignment ties a leader account to the cooperative it runs
type LeaderAssignment struct {
	shared.BaseEntity
	CooperativeID uuid.UUID
	AccountID     uuid.UUID
	Title         string
}

// NewLeaderAssignment creates a leader-role association
func NewLeaderAssignment(cooperativeID, accountID uuid.UUID, title string) *LeaderAssignment {
	if title == "" {
		title = "President"
	}
	return &LeaderAssignment{
		BaseEntity:    shared.NewBaseEntity(),
		CooperativeID: cooperativeID,
		AccountID:     accountID,
		Title:         title,
	}
}

// Repository reads cooperatives outside settlement units
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Cooperative, error)
	ExistsByRegistrationNumber(ctx context.Context, registrationNumber string) (bool, error)
}
