package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Person is the identity data needed to create a login account.
// Passwords are hashed before they are stored in a payload.
type Person struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `json:"password_hash"`
}

// CooperativeRegistrationPayload materializes a cooperative and its leader
type CooperativeRegistrationPayload struct {
	Name                    string     `json:"name"`
	RegistrationNumber      string     `json:"registration_number"`
	Email                   string     `json:"email"`
	Phone                   string     `json:"phone,omitempty"`
	Address                 string     `json:"address,omitempty"`
	ParentOrganizationID    *uuid.UUID `json:"parent_organization_id,omitempty"`
	CooperativePasswordHash string     `json:"cooperative_password_hash"`
	Leader                  Person     `json:"leader"`
	LeaderTitle             string     `json:"leader_title,omitempty"`
}

// MemberRegistrationPayload materializes a member account
type MemberRegistrationPayload struct {
	CooperativeID uuid.UUID `json:"cooperative_id"`
	Member        Person    `json:"member"`
}

// ContributionPayload materializes a contribution. BaseAmount is what the
// member asked to contribute; it is what the contribution record stores.
type ContributionPayload struct {
	MemberID      uuid.UUID       `json:"member_id"`
	CooperativeID uuid.UUID       `json:"cooperative_id"`
	BaseAmount    decimal.Decimal `json:"base_amount"`
	Note          string          `json:"note,omitempty"`
}
