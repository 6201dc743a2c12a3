package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/units"
)

// RecordPurchase adds a purchase line to stock.
//
// The purchased quantity is converted to the product unit and multiplied, then
// merged into a matching open lot or stored as a new one. The lot is enriched
// with the purchase details that were given, the EAN is copied to the product
// when it has no barcode yet, and an "achats.add" event is logged. Everything
// happens in one transaction.
func RecordPurchase(ctx context.Context, db *sql.DB, p model.Purchase) (model.PurchaseResult, error) {
	if !validQty(p.Qty, false) {
		return model.PurchaseResult{}, model.NewValidationError("qty", "must be positive")
	}
	m := max(p.Multiplier, 1)
	unit := units.Normalize(p.Unit)
	ean := model.Digits(p.EAN)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.PurchaseResult{}, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	product, err := getProduct(ctx, tx, p.ProductID)
	if err != nil {
		return model.PurchaseResult{}, err
	}
	if product == nil {
		return model.PurchaseResult{}, fmt.Errorf("product %d: %w", p.ProductID, model.ErrInvalidReference)
	}

	perUnit := units.Convert(p.Qty, string(unit), product.Unit)
	delta := perUnit * float64(m)
	in := &model.Movement{
		ReasonCode:    "purchase",
		UnitInput:     string(unit),
		FactorToPivot: perUnit / p.Qty,
	}

	res, err := mergeOrCreate(ctx, tx, p.ProductID, p.LocationID, delta, p.BestBefore, p.FrozenOn, in)
	if err != nil {
		return model.PurchaseResult{}, err
	}

	qty := p.Qty
	info := model.PurchaseInfo{
		Name:           strings.TrimSpace(p.Name),
		ArticleName:    strings.TrimSpace(p.Name),
		Brand:          strings.TrimSpace(p.Brand),
		EAN:            ean,
		PriceTotal:     p.PriceTotal,
		QtyPerUnit:     &qty,
		Multiplier:     &m,
		UnitAtPurchase: string(unit),
		Store:          strings.TrimSpace(p.Store),
		Note:           strings.TrimSpace(p.Note),
	}
	if err := enrichLot(ctx, tx, res.LotID, info); err != nil {
		return model.PurchaseResult{}, err
	}

	if _, err := setBarcodeIfEmpty(ctx, tx, p.ProductID, ean); err != nil {
		return model.PurchaseResult{}, err
	}

	details := map[string]any{
		"result":       res.Action,
		"lot_id":       res.LotID,
		"new_qty":      res.NewQty,
		"product_id":   p.ProductID,
		"location_id":  p.LocationID,
		"ean":          nullString(ean),
		"name":         nullString(info.Name),
		"brand":        nullString(info.Brand),
		"unit":         string(unit),
		"qty_per_unit": p.Qty,
		"multiplier":   m,
		"qty_delta":    delta,
		"store":        nullString(info.Store),
		"note":         nullString(info.Note),
		"best_before":  nullString(p.BestBefore),
		"frozen_on":    nullString(p.FrozenOn),
	}
	if p.PriceTotal.Valid {
		details["price_total"] = p.PriceTotal.Decimal.InexactFloat64()
	} else {
		details["price_total"] = nil
	}
	if err := logEvent(ctx, tx, "achats.add", details); err != nil {
		return model.PurchaseResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.PurchaseResult{}, classify("committing purchase", err)
	}
	return model.PurchaseResult{MergeResult: res, QtyDelta: delta}, nil
}

// enrichLot copies the non-empty purchase fields onto a lot.
func enrichLot(ctx context.Context, q querier, lotID int64, info model.PurchaseInfo) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	for _, f := range []struct{ col, v string }{
		{"name", info.Name},
		{"article_name", info.ArticleName},
		{"brand", info.Brand},
		{"ean", info.EAN},
		{"store", info.Store},
		{"note", info.Note},
		{"unit_at_purchase", info.UnitAtPurchase},
	} {
		if f.v != "" {
			set(f.col, f.v)
		}
	}
	if info.PriceTotal.Valid {
		set("price_total", info.PriceTotal)
	}
	if info.QtyPerUnit != nil {
		set("qty_per_unit", *info.QtyPerUnit)
	}
	if info.Multiplier != nil {
		set("multiplier", *info.Multiplier)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, lotID)
	_, err := q.ExecContext(ctx,
		`UPDATE stock_lots SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return classify("enriching lot", err)
	}
	return nil
}
