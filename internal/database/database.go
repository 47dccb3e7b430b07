package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"discount-strategy-api/internal/rules"
)

// DB persists rule sets so administrators can edit stores without
// redeploying the rule file.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rule_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS store_rules (
			store_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			position INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS promo_wallet_overrides (
			store_id TEXT NOT NULL REFERENCES store_rules(store_id) ON DELETE CASCADE,
			carrier TEXT NOT NULL DEFAULT '',
			rate REAL NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (store_id, carrier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_store_rules_position ON store_rules(position)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertStore creates or updates a store's rules. New stores are appended
// after existing ones; updates keep their position.
func (db *DB) UpsertStore(ctx context.Context, store rules.Store) error {
	return upsertStore(ctx, db.conn, store)
}

func upsertStore(ctx context.Context, ex execer, store rules.Store) error {
	payload, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to encode store %s: %w", store.ID, err)
	}

	query := `INSERT INTO store_rules (
		store_id, name, kind, position, payload, updated_at
	) VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM store_rules), ?, ?)
	ON CONFLICT(store_id) DO UPDATE SET
		name = excluded.name,
		kind = excluded.kind,
		payload = excluded.payload,
		updated_at = excluded.updated_at`

	_, err = ex.ExecContext(ctx, query,
		store.ID,
		store.Name,
		string(store.Kind),
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert store %s: %w", store.ID, err)
	}
	return nil
}

// UpsertOverride creates or updates a promotional wallet override row.
func (db *DB) UpsertOverride(ctx context.Context, o rules.PromoWalletOverride) error {
	return upsertOverride(ctx, db.conn, o)
}

func upsertOverride(ctx context.Context, ex execer, o rules.PromoWalletOverride) error {
	query := `INSERT INTO promo_wallet_overrides (store_id, carrier, rate, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(store_id, carrier) DO UPDATE SET
		rate = excluded.rate,
		updated_at = excluded.updated_at`

	_, err := ex.ExecContext(ctx, query,
		o.StoreID,
		string(o.Carrier),
		o.Rate,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert override for %s: %w", o.StoreID, err)
	}
	return nil
}

// ListStores returns every stored store in position order.
func (db *DB) ListStores(ctx context.Context) ([]rules.Store, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT store_id, payload FROM store_rules ORDER BY position, store_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	var stores []rules.Store
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		var s rules.Store
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("failed to decode store %s: %w", id, err)
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// ListOverrides returns every promotional wallet override.
func (db *DB) ListOverrides(ctx context.Context) ([]rules.PromoWalletOverride, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT store_id, carrier, rate FROM promo_wallet_overrides ORDER BY store_id, carrier`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var out []rules.PromoWalletOverride
	for rows.Next() {
		var o rules.PromoWalletOverride
		var carrier string
		if err := rows.Scan(&o.StoreID, &carrier, &o.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.Carrier = rules.CarrierKind(carrier)
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountStores returns the number of stored stores.
func (db *DB) CountStores(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM store_rules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stores: %w", err)
	}
	return n, nil
}

// ImportDocument replaces the stored rule set with doc in one transaction.
func (db *DB) ImportDocument(ctx context.Context, doc rules.Document) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM promo_wallet_overrides`, `DELETE FROM store_rules`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear rules: %w", err)
		}
	}
	for _, s := range doc.Stores {
		if err := upsertStore(ctx, tx, s); err != nil {
			return err
		}
	}
	for _, o := range doc.PromoWalletOverrides {
		if err := upsertOverride(ctx, tx, o); err != nil {
			return err
		}
	}
	for key, value := range map[string]string{"version": doc.Version, "timezone": doc.Timezone} {
		if err := setMeta(ctx, tx, key, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadDocument assembles the stored rule set.
func (db *DB) LoadDocument(ctx context.Context) (rules.Document, error) {
	var doc rules.Document
	var err error

	if doc.Version, err = db.meta(ctx, "version"); err != nil {
		return rules.Document{}, err
	}
	if doc.Timezone, err = db.meta(ctx, "timezone"); err != nil {
		return rules.Document{}, err
	}
	if doc.Stores, err = db.ListStores(ctx); err != nil {
		return rules.Document{}, err
	}
	if doc.PromoWalletOverrides, err = db.ListOverrides(ctx); err != nil {
		return rules.Document{}, err
	}
	return doc, nil
}

func setMeta(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO rule_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (db *DB) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM rule_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}
