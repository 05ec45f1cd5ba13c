package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SharesRequest replaces the allocation table
type SharesRequest struct {
	ApexFunds               decimal.Decimal `json:"apex_funds"`
	PlatformFunds           decimal.Decimal `json:"platform_funds"`
	CooperativeShare        decimal.Decimal `json:"cooperative_share"`
	LeaderShare             decimal.Decimal `json:"leader_share"`
	ParentOrganizationShare decimal.Decimal `json:"parent_organization_share"`
}

// AllocationConfigResponse is one version of the allocation table
type AllocationConfigResponse struct {
	Version                 int             `json:"version"`
	ApexFunds               decimal.Decimal `json:"apex_funds"`
	PlatformFunds           decimal.Decimal `json:"platform_funds"`
	CooperativeShare        decimal.Decimal `json:"cooperative_share"`
	LeaderShare             decimal.Decimal `json:"leader_share"`
	ParentOrganizationShare decimal.Decimal `json:"parent_organization_share"`
	UpdatedBy               string          `json:"updated_by,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
}

// AllocationReportQuery selects the revenue of a report
type AllocationReportQuery struct {
	Source string    `form:"source" binding:"required,oneof=REGISTRATION CONTRIBUTION"`
	From   time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To     time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
	Mode   string    `form:"mode" binding:"omitempty,oneof=exact"`
}

// AllocationEntryResponse is one stakeholder's cut
type AllocationEntryResponse struct {
	Stakeholder string          `json:"stakeholder"`
	Percentage  decimal.Decimal `json:"percentage"`
	Amount      decimal.Decimal `json:"amount"`
}

// AllocationReportResponse is the allocation of a period's revenue
type AllocationReportResponse struct {
	ConfigVersion    int                       `json:"config_version"`
	Source           string                    `json:"source"`
	From             time.Time                 `json:"from"`
	To               time.Time                 `json:"to"`
	TransactionCount int64                     `json:"transaction_count"`
	Gross            decimal.Decimal           `json:"gross"`
	Allocated        decimal.Decimal           `json:"allocated"`
	Exact            bool                      `json:"exact"`
	Entries          []AllocationEntryResponse `json:"entries"`
}
