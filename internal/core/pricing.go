package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCoverageAmount = fmt.Errorf("%w: coverage amount must be > 0", ErrValidation)

	hundred = decimal.NewFromInt(100)
)

// Charges is the financial breakdown of an order.
type Charges struct {
	Discount     decimal.Decimal `json:"discount"`
	VAT          decimal.Decimal `json:"vat"`
	Net          decimal.Decimal `json:"net"`
	FinalPremium decimal.Decimal `json:"final_premium"`
}

// ComputePremium charges ratePerUnit for every started unit of coverage.
func ComputePremium(coverage, unitSize, ratePerUnit decimal.Decimal) (decimal.Decimal, error) {
	if !coverage.IsPositive() {
		return decimal.Zero, ErrInvalidCoverageAmount
	}
	if !unitSize.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: unit size must be > 0", ErrValidation)
	}
	units, rem := coverage.QuoRem(unitSize, 0)
	if rem.IsPositive() {
		units = units.Add(decimal.NewFromInt(1))
	}
	return units.Mul(ratePerUnit), nil
}

// ComputeCharges splits a premium into discount, VAT and the two totals.
// Net subtracts VAT while FinalPremium adds it; both formulas are kept as recorded
// by the business.
func ComputeCharges(premium, discountRatePercent, vatRatePercent decimal.Decimal) Charges {
	discount := premium.Mul(discountRatePercent).Div(hundred)
	vat := premium.Mul(vatRatePercent).Div(hundred)
	return Charges{
		Discount:     discount,
		VAT:          vat,
		Net:          premium.Sub(discount).Sub(vat),
		FinalPremium: premium.Sub(discount).Add(vat),
	}
}
