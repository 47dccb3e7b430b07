package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"discount-strategy-api/internal/rules"
)

var kst = time.FixedZone("KST", 9*60*60)

var (
	wednesday = time.Date(2026, 10, 14, 12, 0, 0, 0, kst)
	thursday  = time.Date(2026, 10, 15, 12, 0, 0, 0, kst)
	friday    = time.Date(2026, 10, 16, 12, 0, 0, 0, kst)
	saturday  = time.Date(2026, 10, 17, 12, 0, 0, 0, kst)
	sunday    = time.Date(2026, 10, 18, 12, 0, 0, 0, kst)
)

func int64p(v int64) *int64 { return &v }

func float64p(v float64) *float64 { return &v }

func fixtureDocument() rules.Document {
	return rules.Document{
		Version:  "test",
		Timezone: "Asia/Seoul",
		Stores: []rules.Store{
			{
				ID:   "cu",
				Name: "CU",
				Carriers: map[rules.CarrierKind]rules.CarrierRule{
					rules.CarrierSKT: {Enabled: true, RateSpec: rules.RateSpec{Rate: 0.1}, Restrictions: "1일 1회"},
					rules.CarrierKT:  {Enabled: true, RateSpec: rules.RateSpec{Rate: 0.1}, TargetCategory: "ready_meal"},
					rules.CarrierLGU: {Enabled: false, RateSpec: rules.RateSpec{Rate: 0.5}},
				},
				PlatformMembership: rules.PlatformMembershipRule{
					Enabled:     true,
					InstantRate: 0.1,
					PointRate:   0.1,
					MaxPoint:    int64p(5000),
					Target:      rules.TargetRestricted,
					Category:    "popLogo",
				},
				WeekendWallet: rules.WeekendWalletRule{Enabled: true, MinAmount: 2000, Cashback: 500},
				PromoWallet:   rules.PromoWalletRule{Enabled: true, Rate: 0.05},
				Specials: []rules.SpecialDiscount{
					{Name: "1+1", Rate: 0.5, MinAmount: 2000},
					{Name: "app coupon", Amount: 1000, MinAmount: 5000},
				},
			},
			{
				ID:   "gs25",
				Name: "GS25",
				Carriers: map[rules.CarrierKind]rules.CarrierRule{
					rules.CarrierLGU: {Enabled: true, RateSpec: rules.RateSpec{Rate: 0.1, Shape: rules.ShapeFlat}},
					rules.CarrierSKT: {Enabled: true, RateSpec: rules.RateSpec{Rate: 0.1}, Window: &rules.HourWindow{Start: 9, End: 18}},
				},
				WeekendWallet: rules.WeekendWalletRule{Enabled: false, MinAmount: 0, Cashback: 9999},
				PromoWallet:   rules.PromoWalletRule{Enabled: true, Rate: 0.05},
			},
			{
				ID:   "night",
				Name: "Night Mart",
				Carriers: map[rules.CarrierKind]rules.CarrierRule{
					rules.CarrierSKT: {Enabled: true, RateSpec: rules.RateSpec{Rate: 0.1}, Window: &rules.HourWindow{Start: 22, End: 6}},
				},
			},
		},
		PromoWalletOverrides: []rules.PromoWalletOverride{
			{StoreID: "cu", Carrier: rules.CarrierSKT, Rate: 0.07},
			{StoreID: "gs25", Rate: 0.1},
		},
	}
}

func fixtureRepo(t *testing.T) *rules.Repository {
	t.Helper()
	repo, err := rules.NewRepository(fixtureDocument())
	require.NoError(t, err)
	return repo
}

func fixtureStore(t *testing.T, id string) rules.Store {
	t.Helper()
	s, ok := fixtureRepo(t).Get(id)
	require.True(t, ok)
	return s
}

func byMethod(t *testing.T, records []OutcomeRecord, method string) OutcomeRecord {
	t.Helper()
	for _, r := range records {
		if r.Method == method {
			return r
		}
	}
	t.Fatalf("method %q not in results", method)
	return OutcomeRecord{}
}

func methods(records []OutcomeRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Method)
	}
	return out
}
