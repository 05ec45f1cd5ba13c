// Package allocation splits fee revenue between the five stakeholder groups
// according to a versioned percentage table.
package allocation

import (
	"fmt"

	"github.com/coopay/backend/internal/domain/shared"
	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Stakeholder names one revenue share
type Stakeholder string

const (
	ApexFunds               Stakeholder = "APEX_FUNDS"
	PlatformFunds           Stakeholder = "PLATFORM_FUNDS"
	CooperativeShare        Stakeholder = "COOPERATIVE_SHARE"
	LeaderShare             Stakeholder = "LEADER_SHARE"
	ParentOrganizationShare Stakeholder = "PARENT_ORGANIZATION_SHARE"
)

// Stakeholders returns every stakeholder in reporting order
func Stakeholders() []Stakeholder {
	return []Stakeholder{ApexFunds, PlatformFunds, CooperativeShare, LeaderShare, ParentOrganizationShare}
}

// IsValid checks if the stakeholder is known
func (s Stakeholder) IsValid() bool {
	switch s {
	case ApexFunds, PlatformFunds, CooperativeShare, LeaderShare, ParentOrganizationShare:
		return true
	}
	return false
}

// String returns the string representation
func (s Stakeholder) String() string {
	return string(s)
}

// DefaultTolerance is how far the share total may drift from 100. A deviation
// equal to the tolerance is already rejected.
var DefaultTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// ErrInvalidAllocationConfig is the code every share-table validation failure carries
var ErrInvalidAllocationConfig = shared.NewDomainError("INVALID_ALLOCATION_CONFIG", "Invalid allocation configuration")

// Shares is a percentage table, one value per stakeholder
type Shares struct {
	ApexFunds               decimal.Decimal `json:"apex_funds"`
	PlatformFunds           decimal.Decimal `json:"platform_funds"`
	CooperativeShare        decimal.Decimal `json:"cooperative_share"`
	LeaderShare             decimal.Decimal `json:"leader_share"`
	ParentOrganizationShare decimal.Decimal `json:"parent_organization_share"`
}

// Percentage returns the share of one stakeholder
func (s Shares) Percentage(st Stakeholder) decimal.Decimal {
	switch st {
	case ApexFunds:
		return s.ApexFunds
	case PlatformFunds:
		return s.PlatformFunds
	case CooperativeShare:
		return s.CooperativeShare
	case LeaderShare:
		return s.LeaderShare
	case ParentOrganizationShare:
		return s.ParentOrganizationShare
	}
	return decimal.Zero
}

// Sum adds all five percentages
func (s Shares) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, st := range Stakeholders() {
		total = total.Add(s.Percentage(st))
	}
	return total
}

// Validate checks the table with DefaultTolerance
func (s Shares) Validate() error {
	return s.ValidateWithTolerance(DefaultTolerance)
}

// ValidateWithTolerance rejects negative shares, shares above 100 and tables
// whose total is tolerance or more away from 100.
func (s Shares) ValidateWithTolerance(tolerance decimal.Decimal) error {
	for _, st := range Stakeholders() {
		p := s.Percentage(st)
		if p.IsNegative() || p.GreaterThan(hundred) {
			return shared.NewDomainError(ErrInvalidAllocationConfig.Code,
				fmt.Sprintf("%s must be between 0 and 100, got %s", st, p.String()))
		}
	}
	sum := s.Sum()
	if sum.Sub(hundred).Abs().GreaterThanOrEqual(tolerance) {
		return shared.NewDomainError(ErrInvalidAllocationConfig.Code,
			fmt.Sprintf("allocation percentages must sum to 100, got %s", sum.String()))
	}
	return nil
}

// Entry is one stakeholder's cut of a gross amount
type Entry struct {
	Stakeholder Stakeholder
	Percentage  decimal.Decimal
	Amount      decimal.Decimal
}

// Result is the outcome of an allocation
type Result struct {
	Gross   decimal.Decimal
	Entries []Entry
}

// Amount returns the allocated amount for a stakeholder
func (r Result) Amount(st Stakeholder) decimal.Decimal {
	for _, e := range r.Entries {
		if e.Stakeholder == st {
			return e.Amount
		}
	}
	return decimal.Zero
}

// Total sums the allocated amounts. It may differ from Gross by rounding drift.
func (r Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Allocate computes gross * share / 100 for each stakeholder, each rounded to
// two decimals on its own. Rounding drift is left in place.
func Allocate(gross decimal.Decimal, shares Shares) (Result, error) {
	if gross.IsNegative() {
		return Result{}, shared.NewDomainError(shared.ErrInvalidInput.Code, "gross amount must not be negative")
	}
	if err := shares.Validate(); err != nil {
		return Result{}, err
	}

	result := Result{Gross: gross, Entries: make([]Entry, 0, len(Stakeholders()))}
	for _, st := range Stakeholders() {
		p := shares.Percentage(st)
		result.Entries = append(result.Entries, Entry{
			Stakeholder: st,
			Percentage:  p,
			Amount:      valueobject.RoundMoney(gross.Mul(p).Div(hundred)),
		})
	}
	return result, nil
}

// AllocateExact behaves like Allocate but hands the rounding remainder to the
// last stakeholder with a non-zero share so the entries add up to gross.
func AllocateExact(gross decimal.Decimal, shares Shares) (Result, error) {
	result, err := Allocate(gross, shares)
	if err != nil {
		return Result{}, err
	}

	drift := valueobject.RoundMoney(gross).Sub(result.Total())
	if drift.IsZero() {
		return result, nil
	}
	for i := len(result.Entries) - 1; i >= 0; i-- {
		if result.Entries[i].Percentage.IsPositive() {
			result.Entries[i].Amount = result.Entries[i].Amount.Add(drift)
			break
		}
	}
	return result, nil
}
