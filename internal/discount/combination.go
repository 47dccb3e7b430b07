package discount

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"discount-strategy-api/internal/rules"
)

// Contribution is one instrument's unrounded share of a combination.
type Contribution struct {
	Instrument InstrumentKind
	Benefit    BenefitType
	Label      string
	Amount     decimal.Decimal
}

// Combination is a sanctioned set of instruments, primary first, with the
// amounts each one contributes.
type Combination struct {
	Method        string
	Instruments   []InstrumentKind
	Contributions []Contribution
	Carrier       rules.CarrierKind
	Card          *CardInfo
	Notes         []string
}

// GenerateCombinations builds the candidate combinations for req, in this
// fixed order:
//
//  1. carrier + weekend wallet
//  2. weekend wallet
//  3. platform membership (+ weekend wallet when it qualifies)
//  4. carrier + discount card
//  5. carrier
//  6. discount card
//  7. carrier + promotional wallet
//  8. promotional wallet
//
// A combination appears only when every instrument in it is selected and
// eligible. Secondary instruments are computed on the remainder left by the
// primary one. now must be in the store's local clock.
func GenerateCombinations(req Request, store rules.Store, now time.Time) []Combination {
	g := generator{
		req:      req,
		store:    store,
		now:      now,
		original: decimal.NewFromInt(req.Amount),
	}
	return g.run()
}

type generator struct {
	req      Request
	store    rules.Store
	now      time.Time
	original decimal.Decimal
}

func (g generator) run() []Combination {
	var out []Combination
	orig := g.original

	carrierOK := g.live(InstrumentCarrier, orig)
	var carrier Contribution
	rem := orig
	if carrierOK {
		carrier = g.carrierPart(orig)
		rem = orig.Sub(carrier.Amount)
	}
	cardOK := g.live(InstrumentDiscountCard, orig)
	promoOK := g.live(InstrumentPromoWallet, orig)

	if carrierOK && g.live(InstrumentWeekendWallet, rem) {
		out = append(out, g.combine(carrier, g.weekendPart(rem)))
	}

	if g.live(InstrumentWeekendWallet, orig) {
		out = append(out, g.combine(g.weekendPart(orig)))
	}

	if g.live(InstrumentPlatformMembership, orig) {
		parts := g.platformParts(orig)
		after := orig.Sub(parts[0].Amount)
		if g.live(InstrumentWeekendWallet, after) {
			parts = append(parts, g.weekendPart(after))
		}
		out = append(out, g.combine(parts...))
	}

	if carrierOK && cardOK {
		out = append(out, g.combine(carrier, g.cardPart(rem)))
	}

	if carrierOK {
		out = append(out, g.combine(carrier))
	}

	if cardOK {
		out = append(out, g.combine(g.cardPart(orig)))
	}

	if carrierOK && promoOK {
		out = append(out, g.combine(carrier, g.promoPart(rem)))
	}

	if promoOK {
		out = append(out, g.combine(g.promoPart(orig)))
	}

	return out
}

func (g generator) live(kind InstrumentKind, base decimal.Decimal) bool {
	return selected(kind, g.req.Selection) && IsEligible(kind, g.store, g.req, base, g.now)
}

func (g generator) label(kind InstrumentKind) string {
	return instrumentLabel(kind, g.store, g.req.Selection.Carrier)
}

func (g generator) carrierPart(base decimal.Decimal) Contribution {
	rule, _ := g.store.Carrier(g.req.Selection.Carrier)
	return Contribution{
		Instrument: InstrumentCarrier,
		Benefit:    BenefitInstant,
		Label:      g.label(InstrumentCarrier),
		Amount:     InstantAmount(base, rule.RateSpec),
	}
}

func (g generator) weekendPart(base decimal.Decimal) Contribution {
	cashback := decimal.NewFromInt(g.store.WeekendWallet.Cashback)
	return Contribution{
		Instrument: InstrumentWeekendWallet,
		Benefit:    BenefitCashback,
		Label:      g.label(InstrumentWeekendWallet),
		Amount:     clamp(cashback, base),
	}
}

// platformParts returns the instant part first, then the point part. Both are
// computed on the base amount; points are capped by MaxPoint.
func (g generator) platformParts(base decimal.Decimal) []Contribution {
	rule := g.store.PlatformMembership
	label := g.label(InstrumentPlatformMembership)
	return []Contribution{
		{
			Instrument: InstrumentPlatformMembership,
			Benefit:    BenefitInstant,
			Label:      label,
			Amount:     flatRate(base, rule.InstantRate, nil),
		},
		{
			Instrument: InstrumentPlatformMembership,
			Benefit:    BenefitPoint,
			Label:      label,
			Amount:     flatRate(base, rule.PointRate, rule.MaxPoint),
		},
	}
}

func (g generator) cardPart(base decimal.Decimal) Contribution {
	sel := g.req.Selection
	rate := decimal.NewFromFloat(*sel.DiscountCardRate).Div(decimal.NewFromInt(100))
	return Contribution{
		Instrument: InstrumentDiscountCard,
		Benefit:    sel.DiscountCardBenefit,
		Label:      g.label(InstrumentDiscountCard),
		Amount:     clamp(base.Mul(rate), base),
	}
}

func (g generator) promoPart(base decimal.Decimal) Contribution {
	rate := g.store.PromoWalletRate(g.req.Selection.Carrier)
	return Contribution{
		Instrument: InstrumentPromoWallet,
		Benefit:    BenefitInstant,
		Label:      g.label(InstrumentPromoWallet),
		Amount:     flatRate(base, rate, nil),
	}
}

func (g generator) combine(parts ...Contribution) Combination {
	c := Combination{Contributions: parts}
	var labels []string
	for _, p := range parts {
		if slices.Contains(c.Instruments, p.Instrument) {
			continue
		}
		c.Instruments = append(c.Instruments, p.Instrument)
		labels = append(labels, p.Label)
		if note := restrictionText(p.Instrument, g.store, g.req.Selection.Carrier); note != "" {
			c.Notes = append(c.Notes, note)
		}
		switch p.Instrument {
		case InstrumentCarrier:
			c.Carrier = g.req.Selection.Carrier
		case InstrumentDiscountCard:
			c.Card = &CardInfo{
				Rate:    *g.req.Selection.DiscountCardRate,
				Benefit: g.req.Selection.DiscountCardBenefit,
			}
		}
	}
	c.Method = strings.Join(labels, " + ")
	return c
}
