package rules

import "strings"

// RateShape selects how a rate is turned into an amount.
type RateShape string

const (
	// ShapeBanded accrues only per whole band unit of the base amount.
	ShapeBanded RateShape = "banded"
	// ShapeFlat applies the rate continuously to the base amount.
	ShapeFlat RateShape = "flat"
)

// DefaultBandUnit is the band width used when a banded rate omits one.
const DefaultBandUnit int64 = 1000

// CarrierKind identifies a mobile carrier membership program.
type CarrierKind string

const (
	CarrierNone CarrierKind = ""
	CarrierSKT  CarrierKind = "skt"
	CarrierKT   CarrierKind = "kt"
	CarrierLGU  CarrierKind = "lgu"
)

// Carriers lists the supported carriers in display order.
var Carriers = []CarrierKind{CarrierSKT, CarrierKT, CarrierLGU}

// ParseCarrier maps user input to a CarrierKind. "none" and "" both mean no carrier.
func ParseCarrier(s string) (CarrierKind, bool) {
	switch CarrierKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", "none":
		return CarrierNone, true
	case CarrierSKT:
		return CarrierSKT, true
	case CarrierKT:
		return CarrierKT, true
	case CarrierLGU:
		return CarrierLGU, true
	}
	return CarrierNone, false
}

// DisplayName is the default label for the carrier's membership.
func (c CarrierKind) DisplayName() string {
	switch c {
	case CarrierSKT:
		return "SKT 멤버십"
	case CarrierKT:
		return "KT 멤버십"
	case CarrierLGU:
		return "LG U+ 멤버십"
	}
	return ""
}

// StoreKind classifies storefronts.
type StoreKind string

const (
	KindConvenience StoreKind = "convenience"
	KindCafe        StoreKind = "cafe"
)

// Target limits platform membership to all purchases or a marked category.
type Target string

const (
	TargetAll        Target = "all"
	TargetRestricted Target = "restricted"
)

// HourWindow is a store-local time-of-day window. Start is inclusive and End
// exclusive; a window with Start > End wraps past midnight.
type HourWindow struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// Contains reports whether hour (0-23) falls inside the window.
func (w HourWindow) Contains(hour int) bool {
	if w.Start <= w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// RateSpec describes one rate and the gates around it.
type RateSpec struct {
	Rate        float64   `yaml:"rate" json:"rate"`
	Shape       RateShape `yaml:"shape,omitempty" json:"shape,omitempty"`
	BandUnit    int64     `yaml:"band_unit,omitempty" json:"band_unit,omitempty"`
	MinAmount   int64     `yaml:"min_amount,omitempty" json:"min_amount,omitempty"`
	MaxDiscount *int64    `yaml:"max_discount,omitempty" json:"max_discount,omitempty"`
}

type CarrierRule struct {
	Enabled            bool        `yaml:"enabled" json:"enabled"`
	Label              string      `yaml:"label,omitempty" json:"label,omitempty"`
	RateSpec           `yaml:",inline"`
	Window             *HourWindow `yaml:"window,omitempty" json:"window,omitempty"`
	TargetCategory     string      `yaml:"target_category,omitempty" json:"target_category,omitempty"`
	ExcludedCategories []string    `yaml:"excluded_categories,omitempty" json:"excluded_categories,omitempty"`
	Restrictions       string      `yaml:"restrictions,omitempty" json:"restrictions,omitempty"`
}

type PlatformMembershipRule struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Label        string  `yaml:"label,omitempty" json:"label,omitempty"`
	InstantRate  float64 `yaml:"instant_rate" json:"instant_rate"`
	PointRate    float64 `yaml:"point_rate" json:"point_rate"`
	MaxPoint     *int64  `yaml:"max_point,omitempty" json:"max_point,omitempty"`
	Target       Target  `yaml:"target,omitempty" json:"target,omitempty"`
	Category     string  `yaml:"category,omitempty" json:"category,omitempty"`
	Restrictions string  `yaml:"restrictions,omitempty" json:"restrictions,omitempty"`
}

type WeekendWalletRule struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	Label        string `yaml:"label,omitempty" json:"label,omitempty"`
	MinAmount    int64  `yaml:"min_amount" json:"min_amount"`
	Cashback     int64  `yaml:"cashback" json:"cashback"`
	Restrictions string `yaml:"restrictions,omitempty" json:"restrictions,omitempty"`
}

type PromoWalletRule struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Label        string  `yaml:"label,omitempty" json:"label,omitempty"`
	Rate         float64 `yaml:"rate" json:"rate"`
	Restrictions string  `yaml:"restrictions,omitempty" json:"restrictions,omitempty"`
}

// SpecialDiscount is an ad-hoc store promotion given either as a rate or a
// flat amount.
type SpecialDiscount struct {
	Name        string  `yaml:"name" json:"name"`
	Rate        float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
	Amount      int64   `yaml:"amount,omitempty" json:"amount,omitempty"`
	MinAmount   int64   `yaml:"min_amount,omitempty" json:"min_amount,omitempty"`
	MaxDiscount *int64  `yaml:"max_discount,omitempty" json:"max_discount,omitempty"`
}

// Store holds every discount rule of one storefront.
type Store struct {
	ID                 string                      `yaml:"id" json:"id"`
	Name               string                      `yaml:"name" json:"name"`
	Kind               StoreKind                   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Carriers           map[CarrierKind]CarrierRule `yaml:"carriers,omitempty" json:"carriers,omitempty"`
	PlatformMembership PlatformMembershipRule      `yaml:"platform_membership" json:"platform_membership"`
	WeekendWallet      WeekendWalletRule           `yaml:"weekend_wallet" json:"weekend_wallet"`
	PromoWallet        PromoWalletRule             `yaml:"promo_wallet" json:"promo_wallet"`
	Specials           []SpecialDiscount           `yaml:"specials,omitempty" json:"specials,omitempty"`

	promoOverrides map[CarrierKind]float64
}

// Carrier returns the rule for c, if the store declares one.
func (s Store) Carrier(c CarrierKind) (CarrierRule, bool) {
	if c == CarrierNone {
		return CarrierRule{}, false
	}
	rule, ok := s.Carriers[c]
	return rule, ok
}

// PromoWalletRate resolves the promotional wallet rate for a carrier context.
// An exact (store, carrier) override wins over a store-wide override, which
// wins over the store's own rate.
func (s Store) PromoWalletRate(c CarrierKind) float64 {
	if c != CarrierNone {
		if rate, ok := s.promoOverrides[c]; ok {
			return rate
		}
	}
	if rate, ok := s.promoOverrides[CarrierNone]; ok {
		return rate
	}
	return s.PromoWallet.Rate
}

// PromoWalletOverride replaces a store's promotional wallet rate, optionally
// only when the shopper holds a given carrier membership.
type PromoWalletOverride struct {
	StoreID string      `yaml:"store_id" json:"store_id"`
	Carrier CarrierKind `yaml:"carrier,omitempty" json:"carrier,omitempty"`
	Rate    float64     `yaml:"rate" json:"rate"`
}

// Document is the on-disk and in-database shape of a full rule set.
type Document struct {
	Version              string                `yaml:"version" json:"version"`
	Timezone             string                `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Stores               []Store               `yaml:"stores" json:"stores"`
	PromoWalletOverrides []PromoWalletOverride `yaml:"promo_wallet_overrides,omitempty" json:"promo_wallet_overrides,omitempty"`
}
