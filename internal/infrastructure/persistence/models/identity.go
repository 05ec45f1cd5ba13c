package models

import (
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// AccountModel is the persistence model for identity.Account. The dedicated
// virtual account is flattened into nullable va_* columns.
type AccountModel struct {
	BaseModel
	Email           string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone           string     `gorm:"type:varchar(32)"`
	PasswordHash    string     `gorm:"type:varchar(255);not null"`
	Role            string     `gorm:"type:varchar(32);not null;index"`
	FirstName       string     `gorm:"type:varchar(100)"`
	LastName        string     `gorm:"type:varchar(100)"`
	CooperativeID   *uuid.UUID `gorm:"type:uuid;index"`
	VAAccountNumber *string    `gorm:"column:va_account_number;type:varchar(20)"`
	VABankName      *string    `gorm:"column:va_bank_name;type:varchar(100)"`
	VAAccountName   *string    `gorm:"column:va_account_name;type:varchar(200)"`
	VACustomerCode  *string    `gorm:"column:va_customer_code;type:varchar(64)"`
	Active          bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the model to a domain Account
func (m *AccountModel) ToDomain() *identity.Account {
	a := &identity.Account{
		BaseEntity:    m.BaseModel.ToDomain(),
		Email:         m.Email,
		Phone:         m.Phone,
		PasswordHash:  m.PasswordHash,
		Role:          identity.Role(m.Role),
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		CooperativeID: m.CooperativeID,
		Active:        m.Active,
	}
	if m.VAAccountNumber != nil {
		a.VirtualAccount = &identity.VirtualAccount{
			AccountNumber: *m.VAAccountNumber,
			BankName:      deref(m.VABankName),
			AccountName:   deref(m.VAAccountName),
			CustomerCode:  deref(m.VACustomerCode),
		}
	}
	return a
}

// AccountModelFromDomain creates a model from a domain Account
func AccountModelFromDomain(a *identity.Account) *AccountModel {
	m := &AccountModel{
		Email:         a.Email,
		Phone:         a.Phone,
		PasswordHash:  a.PasswordHash,
		Role:          string(a.Role),
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		CooperativeID: a.CooperativeID,
		Active:        a.Active,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	if va := a.VirtualAccount; va != nil {
		m.VAAccountNumber = &va.AccountNumber
		m.VABankName = &va.BankName
		m.VAAccountName = &va.AccountName
		m.VACustomerCode = &va.CustomerCode
	}
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
