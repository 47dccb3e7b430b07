package rules

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"discount-strategy-api/internal/validation"
)

// Validate checks the semantic constraints of a rule document and reports
// every violation at once.
func Validate(doc Document) error {
	var errs []string

	if doc.Timezone != "" {
		if _, err := time.LoadLocation(doc.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("timezone %q is not a valid IANA zone", doc.Timezone))
		}
	}

	seen := make(map[string]bool, len(doc.Stores))
	for i, s := range doc.Stores {
		prefix := fmt.Sprintf("stores[%d]", i)
		if s.ID != "" {
			prefix = fmt.Sprintf("stores[%s]", s.ID)
		}
		if err := validation.ValidateStoreID(s.ID, prefix+".id"); err != nil {
			errs = append(errs, flatten(err))
		}
		if seen[s.ID] {
			errs = append(errs, prefix+".id is duplicated")
		}
		seen[s.ID] = true
		errs = append(errs, validateStore(prefix, s)...)
	}

	type overrideKey struct {
		store   string
		carrier CarrierKind
	}
	seenOverride := make(map[overrideKey]bool)
	for i, o := range doc.PromoWalletOverrides {
		prefix := fmt.Sprintf("promo_wallet_overrides[%d]", i)
		if !seen[o.StoreID] {
			errs = append(errs, fmt.Sprintf("%s.store_id %q does not name a store", prefix, o.StoreID))
		}
		if c, ok := ParseCarrier(string(o.Carrier)); !ok || c != o.Carrier {
			errs = append(errs, fmt.Sprintf("%s.carrier must be one of: skt, kt, lgu or empty", prefix))
		}
		if !validRate(o.Rate) {
			errs = append(errs, prefix+".rate must be in [0,1]")
		}
		k := overrideKey{o.StoreID, o.Carrier}
		if seenOverride[k] {
			errs = append(errs, prefix+" duplicates an earlier override")
		}
		seenOverride[k] = true
	}

	if len(errs) > 0 {
		return &validation.ValidationError{
			Field:   "rules",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ValidateStore checks a single store outside of a document.
func ValidateStore(s Store) error {
	var errs []string
	if err := validation.ValidateStoreID(s.ID, "id"); err != nil {
		errs = append(errs, flatten(err))
	}
	errs = append(errs, validateStore("store", s)...)
	if len(errs) > 0 {
		return &validation.ValidationError{
			Field:   "rules",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

func validateStore(prefix string, s Store) []string {
	var errs []string

	switch s.Kind {
	case "", KindConvenience, KindCafe:
	default:
		errs = append(errs, prefix+".kind must be one of: convenience, cafe")
	}

	for _, c := range slices.Sorted(maps.Keys(s.Carriers)) {
		rule := s.Carriers[c]
		p := fmt.Sprintf("%s.carriers.%s", prefix, c)
		if parsed, ok := ParseCarrier(string(c)); !ok || parsed == CarrierNone || parsed != c {
			errs = append(errs, p+" is not a supported carrier")
			continue
		}
		errs = append(errs, validateRateSpec(p, rule.RateSpec)...)
		if w := rule.Window; w != nil {
			if w.Start < 0 || w.Start > 23 || w.End < 0 || w.End > 24 {
				errs = append(errs, p+".window hours must satisfy 0 <= start <= 23 and 0 <= end <= 24")
			}
			if w.Start == w.End {
				errs = append(errs, p+".window must not be empty (start == end)")
			}
		}
	}

	pm := s.PlatformMembership
	if !validRate(pm.InstantRate) || !validRate(pm.PointRate) {
		errs = append(errs, prefix+".platform_membership rates must be in [0,1]")
	}
	if pm.MaxPoint != nil && *pm.MaxPoint < 0 {
		errs = append(errs, prefix+".platform_membership.max_point must be >= 0")
	}
	switch pm.Target {
	case "", TargetAll:
	case TargetRestricted:
		if strings.TrimSpace(pm.Category) == "" {
			errs = append(errs, prefix+".platform_membership.category is required when target=restricted")
		}
	default:
		errs = append(errs, prefix+".platform_membership.target must be one of: all, restricted")
	}

	if s.WeekendWallet.MinAmount < 0 || s.WeekendWallet.Cashback < 0 {
		errs = append(errs, prefix+".weekend_wallet amounts must be >= 0")
	}

	if !validRate(s.PromoWallet.Rate) {
		errs = append(errs, prefix+".promo_wallet.rate must be in [0,1]")
	}

	for i, sp := range s.Specials {
		p := fmt.Sprintf("%s.specials[%d]", prefix, i)
		if strings.TrimSpace(sp.Name) == "" {
			errs = append(errs, p+".name is required")
		}
		if !validRate(sp.Rate) {
			errs = append(errs, p+".rate must be in [0,1]")
		}
		if sp.Amount < 0 || sp.MinAmount < 0 || (sp.MaxDiscount != nil && *sp.MaxDiscount < 0) {
			errs = append(errs, p+" amounts must be >= 0")
		}
		if sp.Rate > 0 && sp.Amount > 0 {
			errs = append(errs, p+" must set either rate or amount, not both")
		}
	}

	return errs
}

func validateRateSpec(prefix string, spec RateSpec) []string {
	var errs []string
	if !validRate(spec.Rate) {
		errs = append(errs, prefix+".rate must be in [0,1]")
	}
	switch spec.Shape {
	case "", ShapeBanded, ShapeFlat:
	default:
		errs = append(errs, prefix+".shape must be one of: banded, flat")
	}
	if spec.BandUnit < 0 {
		errs = append(errs, prefix+".band_unit must be > 0")
	}
	if spec.MinAmount < 0 {
		errs = append(errs, prefix+".min_amount must be >= 0")
	}
	if spec.MaxDiscount != nil && *spec.MaxDiscount < 0 {
		errs = append(errs, prefix+".max_discount must be >= 0")
	}
	return errs
}

func flatten(err error) string {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return ve.Field + " " + ve.Message
	}
	return err.Error()
}

func validRate(r float64) bool {
	return r >= 0 && r <= 1
}
