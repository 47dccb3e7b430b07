package rules

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/cespare/xxhash/v2"
)

// DefaultTimezone is used when a document does not name one.
const DefaultTimezone = "Asia/Seoul"

// Repository is an immutable snapshot of store rules. It is safe for
// concurrent use; reloading builds a new Repository.
type Repository struct {
	doc     Document
	stores  map[string]Store
	loc     *time.Location
	version string
}

// NewRepository validates doc, fills defaults and returns a read-only snapshot.
func NewRepository(doc Document) (*Repository, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	doc = normalize(cloneDocument(doc))
	loc, err := time.LoadLocation(doc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	overrides := make(map[string]map[CarrierKind]float64)
	for _, o := range doc.PromoWalletOverrides {
		if overrides[o.StoreID] == nil {
			overrides[o.StoreID] = make(map[CarrierKind]float64)
		}
		overrides[o.StoreID][o.Carrier] = o.Rate
	}

	stores := make(map[string]Store, len(doc.Stores))
	for _, s := range doc.Stores {
		s.promoOverrides = overrides[s.ID]
		stores[s.ID] = s
	}

	version, err := fingerprint(doc)
	if err != nil {
		return nil, err
	}

	return &Repository{
		doc:     doc,
		stores:  stores,
		loc:     loc,
		version: version,
	}, nil
}

// Get returns the rules for storeID. A missing store is reported with ok=false.
// The returned Store shares memory with the snapshot and must not be mutated.
func (r *Repository) Get(storeID string) (Store, bool) {
	s, ok := r.stores[storeID]
	return s, ok
}

// Stores returns every store in document order.
func (r *Repository) Stores() []Store {
	out := make([]Store, 0, len(r.doc.Stores))
	for _, s := range r.doc.Stores {
		out = append(out, r.stores[s.ID])
	}
	return out
}

// Location is the store-local clock used for weekday and hour checks.
func (r *Repository) Location() *time.Location {
	return r.loc
}

// Version identifies the snapshot content; it changes whenever any rule does.
func (r *Repository) Version() string {
	return r.version
}

// Document returns a copy of the normalized source document.
func (r *Repository) Document() Document {
	return cloneDocument(r.doc)
}

// WithStore returns a new snapshot in which s replaces the store with the same
// id, or is appended when the id is new.
func (r *Repository) WithStore(s Store) (*Repository, error) {
	if err := ValidateStore(s); err != nil {
		return nil, err
	}

	doc := r.Document()
	replaced := false
	for i := range doc.Stores {
		if doc.Stores[i].ID == s.ID {
			doc.Stores[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Stores = append(doc.Stores, s)
	}
	return NewRepository(doc)
}

// WithOverride returns a new snapshot in which o replaces the override for
// the same (store, carrier) pair, or is added when there is none.
func (r *Repository) WithOverride(o PromoWalletOverride) (*Repository, error) {
	doc := r.Document()
	i := slices.IndexFunc(doc.PromoWalletOverrides, func(x PromoWalletOverride) bool {
		return x.StoreID == o.StoreID && x.Carrier == o.Carrier
	})
	if i >= 0 {
		doc.PromoWalletOverrides[i] = o
	} else {
		doc.PromoWalletOverrides = append(doc.PromoWalletOverrides, o)
	}
	return NewRepository(doc)
}

func normalize(doc Document) Document {
	if doc.Timezone == "" {
		doc.Timezone = DefaultTimezone
	}
	for i := range doc.Stores {
		s := &doc.Stores[i]
		if s.Kind == "" {
			s.Kind = KindConvenience
		}
		for c, rule := range s.Carriers {
			if rule.Shape == "" {
				rule.Shape = ShapeBanded
			}
			if rule.Shape == ShapeBanded && rule.BandUnit == 0 {
				rule.BandUnit = DefaultBandUnit
			}
			if rule.Label == "" {
				rule.Label = c.DisplayName()
			}
			s.Carriers[c] = rule
		}
		if s.PlatformMembership.Target == "" {
			s.PlatformMembership.Target = TargetAll
		}
	}
	slices.SortFunc(doc.PromoWalletOverrides, func(a, b PromoWalletOverride) int {
		return cmp.Or(cmp.Compare(a.StoreID, b.StoreID), cmp.Compare(a.Carrier, b.Carrier))
	})
	return doc
}

func cloneDocument(doc Document) Document {
	out := doc
	out.Stores = make([]Store, len(doc.Stores))
	for i, s := range doc.Stores {
		out.Stores[i] = cloneStore(s)
	}
	out.PromoWalletOverrides = slices.Clone(doc.PromoWalletOverrides)
	return out
}

func cloneStore(s Store) Store {
	out := s
	if s.Carriers != nil {
		out.Carriers = make(map[CarrierKind]CarrierRule, len(s.Carriers))
		for c, rule := range s.Carriers {
			rule.ExcludedCategories = slices.Clone(rule.ExcludedCategories)
			rule.MaxDiscount = cloneInt(rule.MaxDiscount)
			if rule.Window != nil {
				w := *rule.Window
				rule.Window = &w
			}
			out.Carriers[c] = rule
		}
	}
	out.PlatformMembership.MaxPoint = cloneInt(s.PlatformMembership.MaxPoint)
	out.Specials = make([]SpecialDiscount, len(s.Specials))
	for i, sp := range s.Specials {
		sp.MaxDiscount = cloneInt(sp.MaxDiscount)
		out.Specials[i] = sp
	}
	if len(out.Specials) == 0 {
		out.Specials = nil
	}
	out.promoOverrides = maps.Clone(s.promoOverrides)
	return out
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func fingerprint(doc Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint rules: %w", err)
	}
	sum := fmt.Sprintf("%016x", xxhash.Sum64(data))
	if doc.Version == "" {
		return sum, nil
	}
	return doc.Version + "+" + sum[:8], nil
}
