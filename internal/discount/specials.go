package discount

import (
	"github.com/shopspring/decimal"

	"discount-strategy-api/internal/rules"
)

// SpecialOutcome is the value of one ad-hoc store promotion for an amount.
// Specials are informational and never take part in ranking.
type SpecialOutcome struct {
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	Eligible  bool   `json:"eligible"`
	MinAmount int64  `json:"min_amount,omitempty"`
}

// Specials evaluates every special discount of store against amount.
func Specials(store rules.Store, amount int64) []SpecialOutcome {
	base := decimal.NewFromInt(amount)
	out := make([]SpecialOutcome, 0, len(store.Specials))
	for _, sp := range store.Specials {
		o := SpecialOutcome{Name: sp.Name, MinAmount: sp.MinAmount}
		if amount >= sp.MinAmount && amount > 0 {
			o.Eligible = true
			var v decimal.Decimal
			if sp.Rate > 0 {
				v = flatRate(base, sp.Rate, sp.MaxDiscount)
			} else {
				v = decimal.NewFromInt(sp.Amount)
				if sp.MaxDiscount != nil {
					v = decimal.Min(v, decimal.NewFromInt(*sp.MaxDiscount))
				}
				v = clamp(v, base)
			}
			o.Amount = v.Floor().IntPart()
		}
		out = append(out, o)
	}
	return out
}
