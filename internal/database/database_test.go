package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"discount-strategy-api/internal/rules"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestImportAndLoadDocument(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	n, err := db.CountStores(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	repo, err := rules.Load(filepath.Join("..", "..", "configs", "rules.yaml"))
	require.NoError(t, err)
	require.NoError(t, db.ImportDocument(ctx, repo.Document()))

	n, err = db.CountStores(ctx)
	require.NoError(t, err)
	require.Equal(t, len(repo.Stores()), n)

	doc, err := db.LoadDocument(ctx)
	require.NoError(t, err)

	again, err := rules.NewRepository(doc)
	require.NoError(t, err)
	require.Equal(t, repo.Version(), again.Version(), "stored rules fingerprint identically")

	var ids []string
	for _, s := range again.Stores() {
		ids = append(ids, s.ID)
	}
	var want []string
	for _, s := range repo.Stores() {
		want = append(want, s.ID)
	}
	require.Equal(t, want, ids, "document order survives the round trip")
}

func TestImportReplacesPreviousRules(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := rules.Document{
		Version: "a",
		Stores:  []rules.Store{{ID: "cu", Name: "CU"}, {ID: "gs25", Name: "GS25"}},
		PromoWalletOverrides: []rules.PromoWalletOverride{
			{StoreID: "gs25", Rate: 0.1},
		},
	}
	require.NoError(t, db.ImportDocument(ctx, first))

	second := rules.Document{Version: "b", Stores: []rules.Store{{ID: "emart24", Name: "이마트24"}}}
	require.NoError(t, db.ImportDocument(ctx, second))

	doc, err := db.LoadDocument(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", doc.Version)
	require.Len(t, doc.Stores, 1)
	require.Equal(t, "emart24", doc.Stores[0].ID)
	require.Empty(t, doc.PromoWalletOverrides)
}

func TestUpsertStoreKeepsPosition(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.UpsertStore(ctx, rules.Store{ID: "cu", Name: "CU"}))
	require.NoError(t, db.UpsertStore(ctx, rules.Store{ID: "gs25", Name: "GS25"}))
	require.NoError(t, db.UpsertStore(ctx, rules.Store{
		ID:          "cu",
		Name:        "CU 편의점",
		PromoWallet: rules.PromoWalletRule{Enabled: true, Rate: 0.05},
	}))

	stores, err := db.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	require.Equal(t, "cu", stores[0].ID)
	require.Equal(t, "CU 편의점", stores[0].Name)
	require.Equal(t, 0.05, stores[0].PromoWallet.Rate)
	require.Equal(t, "gs25", stores[1].ID)
}

func TestUpsertOverride(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.UpsertStore(ctx, rules.Store{ID: "cu", Name: "CU"}))
	require.NoError(t, db.UpsertOverride(ctx, rules.PromoWalletOverride{StoreID: "cu", Carrier: rules.CarrierSKT, Rate: 0.07}))
	require.NoError(t, db.UpsertOverride(ctx, rules.PromoWalletOverride{StoreID: "cu", Carrier: rules.CarrierSKT, Rate: 0.08}))
	require.NoError(t, db.UpsertOverride(ctx, rules.PromoWalletOverride{StoreID: "cu", Rate: 0.03}))

	overrides, err := db.ListOverrides(ctx)
	require.NoError(t, err)
	require.Equal(t, []rules.PromoWalletOverride{
		{StoreID: "cu", Carrier: rules.CarrierNone, Rate: 0.03},
		{StoreID: "cu", Carrier: rules.CarrierSKT, Rate: 0.08},
	}, overrides)

	err = db.UpsertOverride(ctx, rules.PromoWalletOverride{StoreID: "nowhere", Rate: 0.1})
	require.Error(t, err, "overrides must reference a stored store")
}

func TestNewDB_BadPath(t *testing.T) {
	_, err := NewDB(filepath.Join(t.TempDir(), "missing", "dir", "rules.db"))
	require.Error(t, err)
}
