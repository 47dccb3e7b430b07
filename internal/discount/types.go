package discount

import (
	"discount-strategy-api/internal/rules"
	"discount-strategy-api/internal/validation"
)

// InstrumentKind tags every monetary part of an outcome with its source.
type InstrumentKind string

const (
	InstrumentCarrier            InstrumentKind = "carrier"
	InstrumentPlatformMembership InstrumentKind = "platform_membership"
	InstrumentWeekendWallet      InstrumentKind = "weekend_wallet"
	InstrumentPromoWallet        InstrumentKind = "promo_wallet"
	InstrumentDiscountCard       InstrumentKind = "discount_card"
)

// BenefitType says when the shopper receives a benefit.
type BenefitType string

const (
	BenefitInstant  BenefitType = "instant"
	BenefitPoint    BenefitType = "point"
	BenefitCashback BenefitType = "cashback"
)

// MaxAmount bounds request amounts.
const MaxAmount int64 = 100_000_000

// Selection lists the instruments the shopper holds.
type Selection struct {
	Carrier               rules.CarrierKind `json:"carrier,omitempty" validate:"omitempty,oneof=skt kt lgu"`
	UsePlatformMembership bool              `json:"use_platform_membership,omitempty"`
	UseWeekendWallet      bool              `json:"use_weekend_wallet,omitempty"`
	UsePromoWallet        bool              `json:"use_promo_wallet,omitempty"`
	UseDiscountCard       bool              `json:"use_discount_card,omitempty"`
	// DiscountCardRate is in percentage points (5 means 5%).
	DiscountCardRate    *float64    `json:"discount_card_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	DiscountCardBenefit BenefitType `json:"discount_card_benefit,omitempty" validate:"omitempty,oneof=instant point cashback"`
}

// Empty reports whether no instrument is selected.
func (s Selection) Empty() bool {
	return s.Carrier == rules.CarrierNone &&
		!s.UsePlatformMembership &&
		!s.UseWeekendWallet &&
		!s.UsePromoWallet &&
		!s.UseDiscountCard
}

// Request is one evaluation input. The evaluation time is passed separately.
type Request struct {
	Amount        int64           `json:"amount" validate:"gte=0,lte=100000000"`
	StoreID       string          `json:"store_id" validate:"required,max=64"`
	Selection     Selection       `json:"selection"`
	CategoryFlags map[string]bool `json:"category_flags,omitempty"`
}

// Normalize canonicalizes free-form input: "none" carrier, blank card benefit.
func (r Request) Normalize() Request {
	r.StoreID = validation.SanitizeString(r.StoreID)
	if c, ok := rules.ParseCarrier(string(r.Selection.Carrier)); ok {
		r.Selection.Carrier = c
	}
	if r.Selection.UseDiscountCard && r.Selection.DiscountCardBenefit == "" {
		r.Selection.DiscountCardBenefit = BenefitInstant
	}
	return r
}

// Validate rejects inputs the calculator must never see.
func (r Request) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if err := validation.ValidateStoreID(r.StoreID, "store_id"); err != nil {
		return err
	}
	if r.Selection.UseDiscountCard && r.Selection.DiscountCardRate == nil {
		return &validation.ValidationError{
			Field:   "selection.discount_card_rate",
			Message: "is required when use_discount_card is set",
		}
	}
	return nil
}

// HasCategory reports whether the request declares category.
func (r Request) HasCategory(category string) bool {
	return category != "" && r.CategoryFlags[category]
}

// CardInfo describes the discount card taking part in an outcome.
type CardInfo struct {
	Rate    float64     `json:"rate"`
	Benefit BenefitType `json:"benefit"`
}

// Part is one instrument's integer share of an outcome.
type Part struct {
	Instrument InstrumentKind `json:"instrument"`
	Benefit    BenefitType    `json:"benefit"`
	Amount     int64          `json:"amount"`
}

// SentinelReason explains a zero-benefit fallback record.
type SentinelReason string

const (
	SentinelNoRules     SentinelReason = "no_rules"
	SentinelNoSelection SentinelReason = "no_selection"
	SentinelNotEligible SentinelReason = "not_eligible"
)

// OutcomeRecord is one ranked candidate strategy.
type OutcomeRecord struct {
	Method                string            `json:"method"`
	Description           string            `json:"description"`
	Instruments           []InstrumentKind  `json:"instruments"`
	Carrier               rules.CarrierKind `json:"carrier,omitempty"`
	OriginalAmount        int64             `json:"original_amount"`
	InstantDiscountAmount int64             `json:"instant_discount_amount"`
	PointAmount           int64             `json:"point_amount"`
	CashbackAmount        int64             `json:"cashback_amount"`
	TotalBenefitAmount    int64             `json:"total_benefit_amount"`
	FinalAmount           int64             `json:"final_amount"`
	PerceivedAmount       int64             `json:"perceived_amount"`
	DiscountRate          float64           `json:"discount_rate"`
	Rank                  int               `json:"rank"`
	Note                  string            `json:"note,omitempty"`
	Card                  *CardInfo         `json:"card,omitempty"`
	Parts                 []Part            `json:"parts"`
	Sentinel              SentinelReason    `json:"sentinel,omitempty"`
	Clamped               bool              `json:"clamped,omitempty"`
}
