package models

import (
	"time"

	"discount-strategy-api/internal/discount"
	"discount-strategy-api/internal/features"
	"discount-strategy-api/internal/rules"
)

// EvaluateRequest is the body of POST /evaluations. Now pins the evaluation
// clock (RFC3339); the server clock is used when it is empty.
type EvaluateRequest struct {
	discount.Request
	Now string `json:"now,omitempty"`
}

// Result is one ranked record with its per-instrument breakdown.
type Result struct {
	discount.OutcomeRecord
	LineItems []discount.LineItem `json:"line_items"`
}

// EvaluationResponse is the payload returned for an evaluation.
type EvaluationResponse struct {
	EvaluationID string    `json:"evaluation_id"`
	StoreID      string    `json:"store_id"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
	RulesVersion string    `json:"rules_version"`
	Cached       bool      `json:"cached"`
	Best         Result    `json:"best"`
	Results      []Result  `json:"results"`
}

// StoreSummary lists which instruments a store supports.
type StoreSummary struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Kind               rules.StoreKind     `json:"kind"`
	Carriers           []rules.CarrierKind `json:"carriers"`
	PlatformMembership bool                `json:"platform_membership"`
	WeekendWallet      bool                `json:"weekend_wallet"`
	PromoWallet        bool                `json:"promo_wallet"`
	Specials           int                 `json:"specials"`
}

// StoresResponse is the payload of GET /stores.
type StoresResponse struct {
	RulesVersion string         `json:"rules_version"`
	Timezone     string         `json:"timezone"`
	Stores       []StoreSummary `json:"stores"`
}

// StoreRulesResponse is the payload of GET/PUT /stores/{store_id}/rules.
type StoreRulesResponse struct {
	RulesVersion string      `json:"rules_version"`
	Store        rules.Store `json:"store"`
}

// PromoOverrideRequest is the body of PUT /stores/{store_id}/promo-wallet-overrides.
// An empty carrier applies to every shopper of the store.
type PromoOverrideRequest struct {
	Carrier string   `json:"carrier"`
	Rate    *float64 `json:"rate" validate:"required"`
}

// PromoOverrideResponse echoes the stored override with the new rules version.
type PromoOverrideResponse struct {
	RulesVersion string                    `json:"rules_version"`
	Override     rules.PromoWalletOverride `json:"override"`
}

// FeaturesResponse is the payload of GET /features.
type FeaturesResponse struct {
	Features []features.FeatureFlag `json:"features"`
}

// FeatureUpdateRequest is the body of PUT /features/{name}.
type FeatureUpdateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SpecialsResponse is the payload of GET /stores/{store_id}/specials.
type SpecialsResponse struct {
	StoreID  string                    `json:"store_id"`
	Amount   int64                     `json:"amount"`
	Specials []discount.SpecialOutcome `json:"specials"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	RulesVersion string `json:"rules_version"`
	Stores       int    `json:"stores"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
