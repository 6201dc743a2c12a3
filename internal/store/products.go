package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/domovra/domovra/internal/model"
)

const productColumns = `id, name, COALESCE(unit, 'pc'), COALESCE(default_shelf_life_days, 90),
	barcode, min_qty, low_stock_enabled, COALESCE(expiry_kind, 'DLC'),
	default_freeze_shelf_days, COALESCE(no_freeze, 0), category, description,
	default_location_id, parent_id`

func scanProduct(row interface{ Scan(...any) error }) (model.Product, error) {
	var p model.Product
	var barcode, category, description sql.NullString
	var minQty sql.NullFloat64
	var lowStock, freezeDays, defaultLocation, parent sql.NullInt64
	var noFreeze int
	err := row.Scan(&p.ID, &p.Name, &p.Unit, &p.DefaultShelfLifeDays,
		&barcode, &minQty, &lowStock, &p.ExpiryKind,
		&freezeDays, &noFreeze, &category, &description,
		&defaultLocation, &parent)
	if err != nil {
		return p, err
	}
	p.Barcode = barcode.String
	p.MinQty = floatPtr(minQty)
	if lowStock.Valid {
		enabled := lowStock.Int64 != 0
		p.LowStockEnabled = &enabled
	}
	p.DefaultFreezeShelfDays = intPtr(freezeDays)
	p.NoFreeze = noFreeze != 0
	p.Category = category.String
	p.Description = description.String
	p.DefaultLocationID = intPtr(defaultLocation)
	p.ParentID = intPtr(parent)
	return p, nil
}

// CreateProduct inserts a product. When the name or barcode is already taken
// the existing product's id is returned instead, looked up by name first.
func CreateProduct(ctx context.Context, db *sql.DB, p model.Product) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO products (name, unit, default_shelf_life_days, barcode, min_qty,
		     low_stock_enabled, expiry_kind, default_freeze_shelf_days, no_freeze,
		     category, description, default_location_id, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		p.Name, p.Unit, p.DefaultShelfLifeDays, nullString(p.Barcode), nullFloat(p.MinQty),
		nullBool(p.LowStockEnabled), p.ExpiryKind, nullInt(p.DefaultFreezeShelfDays), boolInt(p.NoFreeze),
		nullString(p.Category), nullString(p.Description), nullInt(p.DefaultLocationID), nullInt(p.ParentID),
	)
	if err != nil {
		return 0, classify("creating product", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("getting product id: %w", err)
		}
		return id, nil
	}

	var id int64
	err = db.QueryRowContext(ctx,
		`SELECT id FROM products WHERE name = ?
		 UNION ALL
		 SELECT id FROM products WHERE barcode = ? AND barcode IS NOT NULL
		 LIMIT 1`,
		p.Name, nullString(p.Barcode),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("creating product: %w", model.ErrConflict)
	}
	if err != nil {
		return 0, classify("finding existing product", err)
	}
	return id, nil
}

// GetProduct returns a product by ID, or nil if it does not exist.
func GetProduct(ctx context.Context, db *sql.DB, id int64) (*model.Product, error) {
	return getProduct(ctx, db, id)
}

func getProduct(ctx context.Context, q querier, id int64) (*model.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("getting product", err)
	}
	return &p, nil
}

// ListProducts returns all products ordered by name, ignoring case.
func ListProducts(ctx context.Context, db *sql.DB) ([]model.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name COLLATE NOCASE`,
	)
	if err != nil {
		return nil, classify("listing products", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct overwrites a product's fields. A name or barcode taken by
// another product yields ErrConflict.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, p model.Product) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products SET name = ?, unit = ?, default_shelf_life_days = ?, barcode = ?,
		     min_qty = ?, low_stock_enabled = ?, expiry_kind = ?, default_freeze_shelf_days = ?,
		     no_freeze = ?, category = ?, description = ?, default_location_id = ?, parent_id = ?
		 WHERE id = ?`,
		p.Name, p.Unit, p.DefaultShelfLifeDays, nullString(p.Barcode),
		nullFloat(p.MinQty), nullBool(p.LowStockEnabled), p.ExpiryKind, nullInt(p.DefaultFreezeShelfDays),
		boolInt(p.NoFreeze), nullString(p.Category), nullString(p.Description), nullInt(p.DefaultLocationID), nullInt(p.ParentID),
		id,
	)
	if err != nil {
		return classify("updating product", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteProduct deletes a product together with its lots and their movements.
// It returns the number of products removed (0 or 1).
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM movements WHERE lot_id IN (SELECT id FROM stock_lots WHERE product_id = ?)`,
		`DELETE FROM stock_lots WHERE product_id = ?`,
		`UPDATE products SET parent_id = NULL WHERE parent_id = ?`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s, id); err != nil {
			return 0, classify("deleting product lots", err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return 0, classify("deleting product", err)
	}
	n, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, classify("committing product deletion", err)
	}
	return n, nil
}

// SetProductBarcodeIfEmpty stores barcode on a product that has none, unless
// another product already carries it. It reports whether the product changed.
func SetProductBarcodeIfEmpty(ctx context.Context, db *sql.DB, id int64, barcode string) (bool, error) {
	return setBarcodeIfEmpty(ctx, db, id, barcode)
}

func setBarcodeIfEmpty(ctx context.Context, q querier, id int64, barcode string) (bool, error) {
	barcode = model.Digits(barcode)
	if barcode == "" {
		return false, nil
	}
	result, err := q.ExecContext(ctx,
		`UPDATE products SET barcode = ?1
		 WHERE id = ?2 AND COALESCE(barcode, '') = ''
		   AND NOT EXISTS (SELECT 1 FROM products WHERE barcode = ?1)`,
		barcode, id,
	)
	if err != nil {
		return false, classify("setting product barcode", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func productExists(ctx context.Context, q querier, id int64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE id = ?`, id).Scan(&n); err != nil {
		return false, classify("checking product", err)
	}
	return n > 0, nil
}

func locationExists(ctx context.Context, q querier, id int64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations WHERE id = ?`, id).Scan(&n); err != nil {
		return false, classify("checking location", err)
	}
	return n > 0, nil
}
