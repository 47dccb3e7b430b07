package discount

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var benefitOrder = []BenefitType{BenefitInstant, BenefitPoint, BenefitCashback}

// Rank turns combinations into outcome records sorted by total benefit,
// highest first. Equal totals keep generation order. A combination repeating
// an earlier one's carrier and instrument sequence is dropped; labels play no
// part in identity.
//
// Each benefit category is summed across instruments and floored once; final,
// perceived and rate are derived from the floored figures so that
// total == instant + point + cashback holds exactly.
func Rank(original int64, combos []Combination) []OutcomeRecord {
	seen := make(map[string]bool, len(combos))
	records := make([]OutcomeRecord, 0, len(combos))
	for _, c := range combos {
		key := combinationKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		records = append(records, buildRecord(original, c))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TotalBenefitAmount > records[j].TotalBenefitAmount
	})
	for i := range records {
		records[i].Rank = i + 1
	}
	return records
}

func combinationKey(c Combination) string {
	var b strings.Builder
	b.WriteString(string(c.Carrier))
	for _, kind := range c.Instruments {
		b.WriteByte('|')
		b.WriteString(string(kind))
	}
	return b.String()
}

func buildRecord(original int64, c Combination) OutcomeRecord {
	sums := make(map[BenefitType]decimal.Decimal, len(benefitOrder))
	for _, p := range c.Contributions {
		sums[p.Benefit] = sums[p.Benefit].Add(p.Amount)
	}
	totals := make(map[BenefitType]int64, len(benefitOrder))
	for _, b := range benefitOrder {
		totals[b] = sums[b].Floor().IntPart()
	}

	clamped := false
	if totals[BenefitInstant] > original {
		totals[BenefitInstant] = original
		clamped = true
	}
	total := totals[BenefitInstant] + totals[BenefitPoint] + totals[BenefitCashback]
	if excess := total - original; excess > 0 {
		// deferred benefits give way first
		for _, b := range []BenefitType{BenefitCashback, BenefitPoint} {
			cut := min(excess, totals[b])
			totals[b] -= cut
			excess -= cut
		}
		total = original
		clamped = true
	}

	parts := allocateParts(c.Contributions, totals)

	rec := OutcomeRecord{
		Method:                c.Method,
		Instruments:           c.Instruments,
		Carrier:               c.Carrier,
		OriginalAmount:        original,
		InstantDiscountAmount: totals[BenefitInstant],
		PointAmount:           totals[BenefitPoint],
		CashbackAmount:        totals[BenefitCashback],
		TotalBenefitAmount:    total,
		FinalAmount:           original - totals[BenefitInstant],
		PerceivedAmount:       original - total,
		DiscountRate:          discountRate(total, original),
		Note:                  strings.Join(c.Notes, " / "),
		Card:                  c.Card,
		Parts:                 parts,
		Clamped:               clamped,
	}
	rec.Description = describe(c.Contributions, parts)
	return rec
}

// allocateParts splits each floored category total over the contributions of
// that category by largest remainder, so parts always sum to the totals.
func allocateParts(contribs []Contribution, totals map[BenefitType]int64) []Part {
	parts := make([]Part, len(contribs))
	for i, c := range contribs {
		parts[i] = Part{Instrument: c.Instrument, Benefit: c.Benefit}
	}

	for _, b := range benefitOrder {
		var idx []int
		var amounts []decimal.Decimal
		for i, c := range contribs {
			if c.Benefit == b {
				idx = append(idx, i)
				amounts = append(amounts, c.Amount)
			}
		}
		if len(idx) == 0 {
			continue
		}
		for k, v := range allocate(totals[b], amounts) {
			parts[idx[k]].Amount = v
		}
	}
	return parts
}

func allocate(target int64, amounts []decimal.Decimal) []int64 {
	out := make([]int64, len(amounts))
	type remainder struct {
		idx  int
		frac decimal.Decimal
	}
	rems := make([]remainder, len(amounts))
	var sum int64
	for i, a := range amounts {
		f := a.Floor()
		out[i] = f.IntPart()
		sum += out[i]
		rems[i] = remainder{idx: i, frac: a.Sub(f)}
	}

	diff := target - sum
	if diff > 0 {
		sort.SliceStable(rems, func(i, j int) bool {
			return rems[i].frac.GreaterThan(rems[j].frac)
		})
		for k := 0; diff > 0; k = (k + 1) % len(rems) {
			out[rems[k].idx]++
			diff--
		}
	}
	// clamped totals: take back from the latest instruments first
	for i := len(out) - 1; diff < 0 && i >= 0; i-- {
		cut := min(-diff, out[i])
		out[i] -= cut
		diff += cut
	}
	return out
}

func discountRate(total, original int64) float64 {
	if original == 0 {
		return 0
	}
	return decimal.NewFromInt(total).DivRound(decimal.NewFromInt(original), 4).InexactFloat64()
}

func describe(contribs []Contribution, parts []Part) string {
	var b strings.Builder
	for i, p := range parts {
		if p.Amount == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(contribs[i].Label)
		b.WriteByte(' ')
		b.WriteString(FormatWon(p.Amount))
		b.WriteByte(' ')
		b.WriteString(benefitVerb(p.Benefit))
	}
	if b.Len() == 0 {
		return "적용되는 혜택 금액이 없습니다"
	}
	return b.String()
}

// Sentinel is the single zero-benefit record returned when nothing applies.
func Sentinel(original int64, reason SentinelReason) OutcomeRecord {
	return OutcomeRecord{
		Method:          NoDiscountMethod,
		Description:     sentinelDescription(reason),
		Instruments:     []InstrumentKind{},
		OriginalAmount:  original,
		FinalAmount:     original,
		PerceivedAmount: original,
		Rank:            1,
		Parts:           []Part{},
		Sentinel:        reason,
	}
}

func sentinelDescription(reason SentinelReason) string {
	switch reason {
	case SentinelNoRules:
		return "이 매장에 등록된 할인 정보가 없습니다"
	case SentinelNoSelection:
		return "선택한 할인 수단이 없습니다"
	default:
		return "현재 조건에서 적용 가능한 할인이 없습니다"
	}
}
