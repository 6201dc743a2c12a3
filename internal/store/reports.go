package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/stock"
	"github.com/shopspring/decimal"
)

// TotalsByProduct sums the quantity of open lots per product.
func TotalsByProduct(ctx context.Context, db *sql.DB) (map[int64]float64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT product_id, SUM(qty) FROM stock_lots WHERE status = 'open' GROUP BY product_id`,
	)
	if err != nil {
		return nil, classify("summing stock", err)
	}
	defer rows.Close()

	totals := map[int64]float64{}
	for rows.Next() {
		var id int64
		var total float64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scanning total: %w", err)
		}
		totals[id] = total
	}
	return totals, rows.Err()
}

// ListLowStock returns the products under their minimum quantity. Products
// without an explicit tracking flag follow defaultFollow.
func ListLowStock(ctx context.Context, db *sql.DB, defaultFollow bool) ([]model.LowStockItem, error) {
	products, err := ListProducts(ctx, db)
	if err != nil {
		return nil, err
	}
	totals, err := TotalsByProduct(ctx, db)
	if err != nil {
		return nil, err
	}
	return stock.LowStock(products, totals, defaultFollow), nil
}

// ProductValuation returns the remaining value of a product's open lots.
func ProductValuation(ctx context.Context, db *sql.DB, productID int64) (decimal.Decimal, error) {
	lots, err := queryLots(ctx, db, `l.status = 'open' AND l.product_id = ?`, `l.id`, productID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(stock.LotValue(l, l.Unit))
	}
	return total, nil
}

// ValuationByProduct returns the remaining value of open lots per product.
// Products with no valued lot are absent.
func ValuationByProduct(ctx context.Context, db *sql.DB) (map[int64]decimal.Decimal, error) {
	lots, err := queryLots(ctx, db, `l.status = 'open'`, `l.id`)
	if err != nil {
		return nil, err
	}
	values := map[int64]decimal.Decimal{}
	for _, l := range lots {
		v := stock.LotValue(l, l.Unit)
		if v.IsZero() {
			continue
		}
		values[l.ProductID] = values[l.ProductID].Add(v)
	}
	return values, nil
}

// PriceHistory returns the latest priced purchases of a product, newest first.
func PriceHistory(ctx context.Context, db *sql.DB, productID int64, limit int) ([]model.PricePoint, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx,
		`SELECT COALESCE(created_on, ?), price_total, qty_per_unit, multiplier, unit_at_purchase, store
		 FROM stock_lots
		 WHERE product_id = ? AND price_total IS NOT NULL
		 ORDER BY COALESCE(created_on, '0000-00-00') DESC, id DESC
		 LIMIT ?`,
		today(), productID, limit,
	)
	if err != nil {
		return nil, classify("listing price history", err)
	}
	defer rows.Close()

	points := []model.PricePoint{}
	for rows.Next() {
		var pp model.PricePoint
		var qty sql.NullFloat64
		var multiplier sql.NullInt64
		var unit, store sql.NullString
		if err := rows.Scan(&pp.Date, &pp.PriceTotal, &qty, &multiplier, &unit, &store); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		pp.QtyPerUnit = floatPtr(qty)
		pp.Multiplier = intPtr(multiplier)
		pp.Unit = unit.String
		pp.Store = store.String
		points = append(points, pp)
	}
	return points, rows.Err()
}

// LastUnitPrice prices the most recent priced purchase of a product per
// kilogram, litre or piece. It returns nil when no purchase can be priced.
func LastUnitPrice(ctx context.Context, db *sql.DB, productID int64) (*model.UnitPrice, error) {
	lots, err := queryLots(ctx, db, `l.product_id = ? AND l.price_total IS NOT NULL`,
		`COALESCE(l.created_on, '0000-00-00') DESC, l.id DESC`, productID)
	if err != nil {
		return nil, err
	}
	for _, l := range lots {
		if price, label, ok := stock.UnitPrice(l.PurchaseInfo); ok {
			return &model.UnitPrice{Price: price, Label: label}, nil
		}
	}
	return nil, nil
}

const insightsSelect = `SELECT p.id,
	(SELECT MAX(m.ts) FROM movements m JOIN stock_lots l ON l.id = m.lot_id
	  WHERE l.product_id = p.id AND m.type = 'IN'),
	(SELECT MAX(m.ts) FROM movements m JOIN stock_lots l ON l.id = m.lot_id
	  WHERE l.product_id = p.id AND m.type = 'OUT'),
	(SELECT AVG(julianday(l.best_before) - julianday(l.created_on)) FROM stock_lots l
	  WHERE l.product_id = p.id AND NULLIF(l.best_before, '') IS NOT NULL
	    AND NULLIF(l.created_on, '') IS NOT NULL),
	(SELECT CASE WHEN COUNT(*) = 0 THEN NULL
	        ELSE 100.0 * SUM(CASE WHEN NULLIF(l.best_before, '') IS NOT NULL AND l.best_before < ?1
	                              THEN 1 ELSE 0 END) / COUNT(*) END
	   FROM stock_lots l WHERE l.product_id = p.id)
	FROM products p`

func scanInsights(row interface{ Scan(...any) error }) (model.Insights, error) {
	var in model.Insights
	var lastIn, lastOut sql.NullString
	var avg, rate sql.NullFloat64
	if err := row.Scan(&in.ProductID, &lastIn, &lastOut, &avg, &rate); err != nil {
		return in, err
	}
	in.LastIn = lastIn.String
	in.LastOut = lastOut.String
	in.AvgShelfDays = floatPtr(avg)
	in.ExpiredRate = floatPtr(rate)
	return in, nil
}

// ProductInsights summarises the history of one product, or returns nil if it
// does not exist. The expired rate is the share of all its lots, open or
// closed, whose best-before date is before today.
func ProductInsights(ctx context.Context, db *sql.DB, productID int64) (*model.Insights, error) {
	in, err := scanInsights(db.QueryRowContext(ctx, insightsSelect+` WHERE p.id = ?2`, today(), productID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("computing insights", err)
	}
	return &in, nil
}

// ListProductInsights returns the insights of every product.
func ListProductInsights(ctx context.Context, db *sql.DB) (map[int64]model.Insights, error) {
	rows, err := db.QueryContext(ctx, insightsSelect, today())
	if err != nil {
		return nil, classify("computing insights", err)
	}
	defer rows.Close()

	out := map[int64]model.Insights{}
	for rows.Next() {
		in, err := scanInsights(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning insights: %w", err)
		}
		out[in.ProductID] = in
	}
	return out, rows.Err()
}
