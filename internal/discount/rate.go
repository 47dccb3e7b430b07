package discount

import (
	"github.com/shopspring/decimal"

	"discount-strategy-api/internal/rules"
)

// InstantAmount converts a rate spec and a base amount into a discount.
//
// Banded rates accrue per whole band unit: floor(base/unit) * (rate*unit).
// Flat rates are base*rate. A base below MinAmount yields zero, MaxDiscount
// caps the result, and the result never exceeds base.
func InstantAmount(base decimal.Decimal, spec rules.RateSpec) decimal.Decimal {
	if base.Sign() <= 0 || spec.Rate <= 0 {
		return decimal.Zero
	}
	if spec.MinAmount > 0 && base.LessThan(decimal.NewFromInt(spec.MinAmount)) {
		return decimal.Zero
	}

	rate := decimal.NewFromFloat(spec.Rate)
	var amount decimal.Decimal
	switch spec.Shape {
	case rules.ShapeFlat:
		amount = base.Mul(rate)
	default:
		unit := spec.BandUnit
		if unit <= 0 {
			unit = rules.DefaultBandUnit
		}
		u := decimal.NewFromInt(unit)
		amount = base.Div(u).Floor().Mul(rate.Mul(u))
	}

	if spec.MaxDiscount != nil {
		amount = decimal.Min(amount, decimal.NewFromInt(*spec.MaxDiscount))
	}
	return clamp(amount, base)
}

// flatRate is InstantAmount for a continuous rate with an optional cap.
func flatRate(base decimal.Decimal, rate float64, max *int64) decimal.Decimal {
	return InstantAmount(base, rules.RateSpec{Rate: rate, Shape: rules.ShapeFlat, MaxDiscount: max})
}

func clamp(amount, base decimal.Decimal) decimal.Decimal {
	if amount.Sign() < 0 {
		return decimal.Zero
	}
	if amount.GreaterThan(base) {
		return base
	}
	return amount
}
