package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func contribution(kind InstrumentKind, benefit BenefitType, amount string) Contribution {
	return Contribution{Instrument: kind, Benefit: benefit, Label: string(kind), Amount: decimal.RequireFromString(amount)}
}

func TestRank_FloorAfterSum(t *testing.T) {
	// 0.6 + 0.6 floors to 1 when summed, 0 when floored separately
	records := Rank(1000, []Combination{{
		Method: "a + b",
		Contributions: []Contribution{
			contribution(InstrumentCarrier, BenefitInstant, "100.6"),
			contribution(InstrumentPromoWallet, BenefitInstant, "0.6"),
		},
	}})
	require.Len(t, records, 1)
	require.Equal(t, int64(101), records[0].InstantDiscountAmount)
	require.Equal(t, int64(899), records[0].FinalAmount)
	require.Equal(t, []Part{
		{Instrument: InstrumentCarrier, Benefit: BenefitInstant, Amount: 101},
		{Instrument: InstrumentPromoWallet, Benefit: BenefitInstant, Amount: 0},
	}, records[0].Parts)
	require.Equal(t, 0.101, records[0].DiscountRate)
}

func single(method string, kind InstrumentKind, amount string) Combination {
	return Combination{
		Method:        method,
		Instruments:   []InstrumentKind{kind},
		Contributions: []Contribution{contribution(kind, BenefitInstant, amount)},
	}
}

func TestRank_StableOnTiesAndDedupe(t *testing.T) {
	records := Rank(5000, []Combination{
		single("first", InstrumentCarrier, "300"),
		single("best", InstrumentPromoWallet, "400"),
		single("second", InstrumentDiscountCard, "300"),
		single("again", InstrumentCarrier, "900"),
	})
	require.Equal(t, []string{"best", "first", "second"}, methods(records))
	require.Equal(t, 1, records[0].Rank)
	require.Equal(t, 2, records[1].Rank)
	require.Equal(t, 3, records[2].Rank)
	require.Equal(t, int64(300), records[1].TotalBenefitAmount, "repeated instrument set keeps the first combination")
}

func TestRank_SharedLabelsStayDistinct(t *testing.T) {
	records := Rank(5000, []Combination{
		single("페이", InstrumentWeekendWallet, "500"),
		single("페이", InstrumentPromoWallet, "1000"),
		{
			Method:        "페이",
			Instruments:   []InstrumentKind{InstrumentCarrier},
			Carrier:       "skt",
			Contributions: []Contribution{contribution(InstrumentCarrier, BenefitInstant, "200")},
		},
		{
			Method:        "페이",
			Instruments:   []InstrumentKind{InstrumentCarrier},
			Carrier:       "kt",
			Contributions: []Contribution{contribution(InstrumentCarrier, BenefitInstant, "100")},
		},
	})
	require.Len(t, records, 4)
	require.Equal(t, []InstrumentKind{InstrumentPromoWallet}, records[0].Instruments)
	require.Equal(t, int64(1000), records[0].TotalBenefitAmount)
	require.Equal(t, []InstrumentKind{InstrumentWeekendWallet}, records[1].Instruments)
}

func TestRank_ClampsDeferredBenefitsFirst(t *testing.T) {
	records := Rank(1000, []Combination{{
		Method: "stacked",
		Contributions: []Contribution{
			contribution(InstrumentCarrier, BenefitInstant, "800"),
			contribution(InstrumentPlatformMembership, BenefitPoint, "300"),
			contribution(InstrumentWeekendWallet, BenefitCashback, "200"),
		},
	}})
	rec := records[0]
	require.True(t, rec.Clamped)
	require.Equal(t, int64(800), rec.InstantDiscountAmount)
	require.Equal(t, int64(200), rec.PointAmount)
	require.Equal(t, int64(0), rec.CashbackAmount)
	require.Equal(t, int64(1000), rec.TotalBenefitAmount)
	require.Equal(t, int64(0), rec.PerceivedAmount)
	require.Equal(t, int64(200), rec.FinalAmount)
	require.Equal(t, 1.0, rec.DiscountRate)
}

func TestRank_ZeroAmount(t *testing.T) {
	records := Rank(0, []Combination{{
		Method:        "carrier",
		Contributions: []Contribution{contribution(InstrumentCarrier, BenefitInstant, "0")},
	}})
	require.Equal(t, 0.0, records[0].DiscountRate)
	require.Equal(t, int64(0), records[0].FinalAmount)
}

func TestAllocate(t *testing.T) {
	amounts := []decimal.Decimal{
		decimal.RequireFromString("0.6"),
		decimal.RequireFromString("0.6"),
		decimal.RequireFromString("0.8"),
	}
	require.Equal(t, []int64{1, 0, 1}, allocate(2, amounts))
	require.Equal(t, []int64{1, 0}, allocate(1, amounts[:2]))
	require.Equal(t, []int64{3, 0}, allocate(3, []decimal.Decimal{decimal.NewFromInt(3), decimal.NewFromInt(2)}))
}

func TestSentinel(t *testing.T) {
	rec := Sentinel(4200, SentinelNotEligible)
	require.Equal(t, NoDiscountMethod, rec.Method)
	require.Equal(t, int64(4200), rec.FinalAmount)
	require.Equal(t, int64(4200), rec.PerceivedAmount)
	require.Equal(t, int64(0), rec.TotalBenefitAmount)
	require.Empty(t, rec.Parts)
	require.NotEmpty(t, rec.Description)
}
