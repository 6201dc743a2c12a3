package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// schema is the base database schema. Everything added since lives in
// migrations so that databases created by older releases are upgraded in place.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id                      INTEGER PRIMARY KEY AUTOINCREMENT,
    name                    TEXT UNIQUE NOT NULL,
    unit                    TEXT DEFAULT 'pc',
    default_shelf_life_days INTEGER DEFAULT 90
);

CREATE TABLE IF NOT EXISTS stock_lots (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id  INTEGER NOT NULL REFERENCES products(id),
    location_id INTEGER NOT NULL REFERENCES locations(id),
    qty         REAL NOT NULL,
    frozen_on   TEXT,
    best_before TEXT
);

CREATE TABLE IF NOT EXISTS movements (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    lot_id INTEGER NOT NULL REFERENCES stock_lots(id),
    type   TEXT NOT NULL CHECK (type IN ('IN', 'OUT')),
    qty    REAL NOT NULL,
    ts     TEXT NOT NULL,
    note   TEXT
);

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    kind       TEXT NOT NULL,
    details    TEXT
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL
);
`

// column is an additive column definition.
type column struct {
	table string
	name  string
	def   string
}

// migration is one additive schema step. Each step checks the live schema
// before touching it, so re-running a step is harmless.
type migration struct {
	version int
	name    string
	columns []column
	stmts   []string
}

// migrations are applied in order after the base schema. Append new migrations
// at the end; never edit or reorder an existing one.
var migrations = []migration{
	{
		version: 1,
		name:    "products_barcode",
		columns: []column{{"products", "barcode", "TEXT"}},
		stmts: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_barcode_unique
			     ON products(barcode) WHERE barcode IS NOT NULL`,
		},
	},
	{
		version: 2,
		name:    "stock_lots_created_on",
		columns: []column{{"stock_lots", "created_on", "TEXT"}},
		stmts: []string{
			`UPDATE stock_lots
			 SET created_on = (
			     SELECT substr(MIN(m.ts), 1, 10) FROM movements m
			     WHERE m.lot_id = stock_lots.id AND m.type = 'IN'
			 )
			 WHERE created_on IS NULL`,
		},
	},
	{
		version: 3,
		name:    "stock_lots_purchase_metadata",
		columns: []column{
			{"stock_lots", "article_name", "TEXT"},
			{"stock_lots", "brand", "TEXT"},
			{"stock_lots", "ean", "TEXT"},
			{"stock_lots", "price_total", "REAL"},
			{"stock_lots", "store", "TEXT"},
			{"stock_lots", "qty_per_unit", "REAL"},
			{"stock_lots", "multiplier", "INTEGER"},
			{"stock_lots", "unit_at_purchase", "TEXT"},
			{"stock_lots", "name", "TEXT"},
			{"stock_lots", "note", "TEXT"},
		},
	},
	{
		version: 4,
		name:    "locations_freezer",
		columns: []column{
			{"locations", "is_freezer", "INTEGER NOT NULL DEFAULT 0"},
			{"locations", "description", "TEXT"},
		},
	},
	{
		version: 5,
		name:    "products_catalog_fields",
		columns: []column{
			{"products", "min_qty", "REAL"},
			{"products", "description", "TEXT"},
			{"products", "default_location_id", "INTEGER"},
			{"products", "low_stock_enabled", "INTEGER"},
			{"products", "expiry_kind", "TEXT DEFAULT 'DLC'"},
			{"products", "default_freeze_shelf_days", "INTEGER"},
			{"products", "no_freeze", "INTEGER NOT NULL DEFAULT 0"},
			{"products", "category", "TEXT"},
			{"products", "parent_id", "INTEGER"},
		},
	},
	{
		version: 6,
		name:    "stock_lots_lifecycle",
		columns: []column{
			{"stock_lots", "status", "TEXT NOT NULL DEFAULT 'open'"},
			{"stock_lots", "ended_on", "TEXT"},
			{"stock_lots", "initial_qty", "REAL"},
		},
		stmts: []string{
			`UPDATE stock_lots SET initial_qty = qty WHERE initial_qty IS NULL`,
		},
	},
	{
		version: 7,
		name:    "movements_detail",
		columns: []column{
			{"movements", "unit_input", "TEXT"},
			{"movements", "factor_to_pivot", "REAL DEFAULT 1"},
			{"movements", "reason_code", "TEXT"},
			{"movements", "price_allocated", "REAL"},
			{"movements", "location_from_id", "INTEGER"},
			{"movements", "location_to_id", "INTEGER"},
		},
	},
	{
		version: 8,
		name:    "lookup_indexes",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_stock_lots_signature
			     ON stock_lots(product_id, location_id, status, best_before, frozen_on)`,
			`CREATE INDEX IF NOT EXISTS idx_movements_lot ON movements(lot_id)`,
		},
	},
}

// Migrate creates the base schema and applies pending migrations, all inside a
// single transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	applied := map[int]bool{}
	rows, err := tx.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := m.apply(ctx, tx); err != nil {
			return fmt.Errorf("running migration %d (%s): %w", m.version, m.name, err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.version, m.name, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		slog.Info("migration applied", "version", m.version, "name", m.name)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	return nil
}

func (m migration) apply(ctx context.Context, tx *sql.Tx) error {
	for _, c := range m.columns {
		exists, err := columnExists(ctx, tx, c.table, c.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.name, c.def)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.name, err)
		}
	}
	for _, s := range m.stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func columnExists(ctx context.Context, tx *sql.Tx, table, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", table, err)
	}
	return n > 0, nil
}
