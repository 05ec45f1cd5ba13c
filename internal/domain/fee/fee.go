// Package fee computes the gateway charge added on top of a base amount and
// recovers the base amount from a gateway-reported total.
package fee

import (
	"errors"
	"fmt"

	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount = errors.New("fee: amount must not be negative")
	ErrInvalidAmount  = errors.New("fee: amount is not a valid number")
	ErrAmountTooLarge = errors.New("fee: amount exceeds the maximum")
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Policy holds the gateway pricing parameters. Amounts are in naira.
type Policy struct {
	Rate      decimal.Decimal // percentage charge as a fraction, 0.015 = 1.5%
	FlatFee   decimal.Decimal // added when the base amount reaches Threshold
	Threshold decimal.Decimal // below this the flat fee is waived
	Cap       decimal.Decimal // upper bound of the total charge
}

// DefaultPolicy is Paystack's local-card pricing: 1.5% + NGN 100, flat fee
// waived under NGN 2,500, capped at NGN 2,000.
func DefaultPolicy() Policy {
	return Policy{
		Rate:      decimal.RequireFromString("0.015"),
		FlatFee:   decimal.NewFromInt(100),
		Threshold: decimal.NewFromInt(2500),
		Cap:       decimal.NewFromInt(2000),
	}
}

// Calculation is the derived fee breakdown for a base amount.
// It is never persisted; only the base amount ends up on a Transaction.
type Calculation struct {
	BaseAmount    decimal.Decimal
	Fee           decimal.Decimal
	TotalAmount   decimal.Decimal
	IsFeeWaived   bool
	IsFeeCapped   bool
	FeePercentage decimal.Decimal
}

// Compute returns the fee breakdown for baseAmount.
func (p Policy) Compute(baseAmount decimal.Decimal) (Calculation, error) {
	if baseAmount.IsNegative() {
		return Calculation{}, fmt.Errorf("%w: %s", ErrNegativeAmount, baseAmount.String())
	}
	if err := checkMax(baseAmount); err != nil {
		return Calculation{}, err
	}

	base := valueobject.RoundMoney(baseAmount)
	waived := baseAmount.LessThan(p.Threshold)
	if baseAmount.IsZero() {
		return Calculation{
			BaseAmount:    base,
			Fee:           decimal.Zero,
			TotalAmount:   base,
			IsFeeWaived:   waived,
			FeePercentage: decimal.Zero,
		}, nil
	}

	charge := baseAmount.Mul(p.Rate)
	if !waived {
		charge = charge.Add(p.FlatFee)
	}
	capped := charge.GreaterThan(p.Cap)
	if capped {
		charge = p.Cap
	}
	charge = valueobject.RoundMoney(charge)

	return Calculation{
		BaseAmount:    base,
		Fee:           charge,
		TotalAmount:   valueobject.RoundMoney(baseAmount.Add(charge)),
		IsFeeWaived:   waived,
		IsFeeCapped:   capped,
		FeePercentage: valueobject.RoundMoney(charge.Div(baseAmount).Mul(hundred)),
	}, nil
}

// RecoverBase inverts Compute: given the total the gateway collected it
// returns the base amount the payer asked for.
//
// Totals under the threshold are returned unchanged. Otherwise the uncapped
// formula total = base*(1+rate) + flat is solved first and kept if the fee it
// implies does not exceed the cap; if it does, the cap must have applied and
// base = total - cap. When the uncapped solution lands under the threshold the
// flat fee cannot have been charged, so the waived formula total = base*(1+rate)
// is solved instead.
func (p Policy) RecoverBase(totalPaid decimal.Decimal) (decimal.Decimal, error) {
	if totalPaid.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeAmount, totalPaid.String())
	}
	if totalPaid.LessThan(p.Threshold) {
		return totalPaid, nil
	}

	growth := one.Add(p.Rate)
	base := totalPaid.Sub(p.FlatFee).Div(growth)

	if base.LessThan(p.Threshold) {
		waivedBase := totalPaid.Div(growth)
		if waivedBase.LessThan(p.Threshold) {
			return valueobject.RoundMoney(waivedBase), nil
		}
		return valueobject.RoundMoney(base), nil
	}

	implied := base.Mul(p.Rate).Add(p.FlatFee)
	if implied.LessThanOrEqual(p.Cap) {
		return valueobject.RoundMoney(base), nil
	}
	return valueobject.RoundMoney(totalPaid.Sub(p.Cap)), nil
}

// Compute applies DefaultPolicy.
func Compute(baseAmount decimal.Decimal) (Calculation, error) {
	return DefaultPolicy().Compute(baseAmount)
}

// RecoverBase applies DefaultPolicy.
func RecoverBase(totalPaid decimal.Decimal) (decimal.Decimal, error) {
	return DefaultPolicy().RecoverBase(totalPaid)
}

// ParseAmount parses a user supplied amount string. Non-numeric, non-finite
// and negative inputs are rejected rather than coerced.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeAmount, raw)
	}
	if err := checkMax(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// FromFloat converts a float amount with the same checks as ParseAmount.
func FromFloat(f float64) (decimal.Decimal, error) {
	d, err := valueobject.FromFloat(f)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNegativeAmount, f)
	}
	if err := checkMax(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func checkMax(d decimal.Decimal) error {
	if err := valueobject.CheckRange(d); err != nil {
		return fmt.Errorf("%w: %v", ErrAmountTooLarge, err)
	}
	return nil
}
