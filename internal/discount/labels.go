package discount

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"discount-strategy-api/internal/rules"
)

// NoDiscountMethod is the method label of the sentinel record.
const NoDiscountMethod = "할인 없음"

var printer = message.NewPrinter(language.Korean)

// FormatWon renders an amount with thousands separators, e.g. "1,000원".
func FormatWon(n int64) string {
	return printer.Sprintf("%d원", n)
}

func instrumentLabel(kind InstrumentKind, store rules.Store, carrier rules.CarrierKind) string {
	switch kind {
	case InstrumentCarrier:
		if rule, ok := store.Carrier(carrier); ok && rule.Label != "" {
			return rule.Label
		}
		return carrier.DisplayName()
	case InstrumentPlatformMembership:
		return orDefault(store.PlatformMembership.Label, "플랫폼 멤버십")
	case InstrumentWeekendWallet:
		return orDefault(store.WeekendWallet.Label, "주말 페이 캐시백")
	case InstrumentPromoWallet:
		return orDefault(store.PromoWallet.Label, "프로모션 페이")
	case InstrumentDiscountCard:
		return "할인카드"
	}
	return string(kind)
}

func restrictionText(kind InstrumentKind, store rules.Store, carrier rules.CarrierKind) string {
	switch kind {
	case InstrumentCarrier:
		rule, _ := store.Carrier(carrier)
		return rule.Restrictions
	case InstrumentPlatformMembership:
		return store.PlatformMembership.Restrictions
	case InstrumentWeekendWallet:
		return store.WeekendWallet.Restrictions
	case InstrumentPromoWallet:
		return store.PromoWallet.Restrictions
	}
	return ""
}

func benefitVerb(b BenefitType) string {
	switch b {
	case BenefitPoint:
		return "적립"
	case BenefitCashback:
		return "캐시백"
	default:
		return "할인"
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
