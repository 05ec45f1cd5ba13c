package valueobject

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every monetary output is rounded to
const MoneyScale int32 = 2

// kobo per naira
const minorUnitsPerMajor = 100

var (
	// ErrNonFiniteAmount is returned for NaN or infinite amounts
	ErrNonFiniteAmount = errors.New("amount must be a finite number")
	// ErrAmountOutOfRange is returned for amounts beyond MaxAmount in either direction
	ErrAmountOutOfRange = errors.New("amount is out of range")
)

// MaxAmount is the largest naira amount accepted anywhere in the system
var MaxAmount = decimal.NewFromInt(10_000_000_000)

var hundred = decimal.NewFromInt(minorUnitsPerMajor)

// CheckRange rejects amounts whose magnitude exceeds MaxAmount
func CheckRange(major decimal.Decimal) error {
	if major.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s exceeds %s", ErrAmountOutOfRange, major.String(), MaxAmount.String())
	}
	return nil
}

// RoundMoney rounds an amount half away from zero to MoneyScale places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FromFloat converts a float amount, rejecting NaN and infinities
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNonFiniteAmount
	}
	return decimal.NewFromFloat(f), nil
}

// FromMinorUnits converts kobo to naira
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}

// ToMinorUnits converts naira to kobo, rounding to the nearest kobo
func ToMinorUnits(major decimal.Decimal) (int64, error) {
	if err := CheckRange(major); err != nil {
		return 0, err
	}
	return major.Mul(hundred).Round(0).IntPart(), nil
}
