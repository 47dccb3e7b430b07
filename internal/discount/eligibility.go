package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"discount-strategy-api/internal/rules"
)

// IsEligible reports whether instrument kind may be applied to req at now.
// base is the amount left after instruments applied earlier in the same
// combination. now must already be in the store's local clock.
func IsEligible(kind InstrumentKind, store rules.Store, req Request, base decimal.Decimal, now time.Time) bool {
	switch kind {
	case InstrumentCarrier:
		rule, ok := store.Carrier(req.Selection.Carrier)
		if !ok || !rule.Enabled {
			return false
		}
		if rule.Window != nil && !rule.Window.Contains(now.Hour()) {
			return false
		}
		if rule.TargetCategory != "" && !req.HasCategory(rule.TargetCategory) {
			return false
		}
		return true

	case InstrumentPlatformMembership:
		rule := store.PlatformMembership
		if !rule.Enabled {
			return false
		}
		if rule.Target == rules.TargetRestricted && !req.HasCategory(rule.Category) {
			return false
		}
		return true

	case InstrumentWeekendWallet:
		rule := store.WeekendWallet
		if !rule.Enabled {
			return false
		}
		if base.LessThan(decimal.NewFromInt(rule.MinAmount)) {
			return false
		}
		return IsWeekend(now)

	case InstrumentPromoWallet:
		return store.PromoWallet.Enabled

	case InstrumentDiscountCard:
		return req.Selection.DiscountCardRate != nil
	}
	return false
}

// IsWeekend uses the Friday-to-Sunday definition of the weekend wallet
// campaigns.
func IsWeekend(now time.Time) bool {
	switch now.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return true
	}
	return false
}

func selected(kind InstrumentKind, sel Selection) bool {
	switch kind {
	case InstrumentCarrier:
		return sel.Carrier != rules.CarrierNone
	case InstrumentPlatformMembership:
		return sel.UsePlatformMembership
	case InstrumentWeekendWallet:
		return sel.UseWeekendWallet
	case InstrumentPromoWallet:
		return sel.UsePromoWallet
	case InstrumentDiscountCard:
		return sel.UseDiscountCard
	}
	return false
}
