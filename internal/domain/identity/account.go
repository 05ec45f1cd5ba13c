package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/coopay/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrInvalidRole     = errors.New("identity: invalid role")
	ErrEmailRequired   = errors.New("identity: email is required")
	ErrPasswordMissing = errors.New("identity: password hash is required")
)

// VirtualAccount is a dedicated bank account number issued for a member
type VirtualAccount struct {
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	CustomerCode  string `json:"customer_code"`
}

// Account is a login account. Cooperatives, leaders and members each get one.
type Account struct {
	shared.BaseEntity
	Email          string
	Phone          string
	PasswordHash   string
	Role           Role
	FirstName      string
	LastName       string
	CooperativeID  *uuid.UUID
	VirtualAccount *VirtualAccount
	Active         bool
}

// NewAccount creates an active account
func NewAccount(role Role, email, phone, passwordHash, firstName, lastName string, cooperativeID *uuid.UUID) (*Account, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if passwordHash == "" {
		return nil, ErrPasswordMissing
	}
	return &Account{
		BaseEntity:    shared.NewBaseEntity(),
		Email:         email,
		Phone:         strings.TrimSpace(phone),
		PasswordHash:  passwordHash,
		Role:          role,
		FirstName:     firstName,
		LastName:      lastName,
		CooperativeID: cooperativeID,
		Active:        true,
	}, nil
}

// FullName joins first and last name
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasPhone reports whether an SMS can be sent to the account
func (a *Account) HasPhone() bool {
	return a.Phone != ""
}

// AttachVirtualAccount records a provisioned dedicated account
func (a *Account) AttachVirtualAccount(va VirtualAccount) {
	a.VirtualAccount = &va
	a.Touch()
}

// Principal is the authenticated caller as seen at the HTTP boundary
type Principal struct {
	AccountID     uuid.UUID
	Role          Role
	CooperativeID *uuid.UUID
}

// AccountRepository reads and updates accounts outside settlement units
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SaveVirtualAccount(ctx context.Context, accountID uuid.UUID, va VirtualAccount) error
}
