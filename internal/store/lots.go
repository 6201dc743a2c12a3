package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/stock"
)

// qtyEpsilon absorbs float residue when a lot is drained in several steps.
const qtyEpsilon = 1e-9

const lotSelect = `SELECT l.id, l.product_id, l.location_id, l.qty, COALESCE(l.initial_qty, l.qty),
	COALESCE(l.status, 'open'), l.created_on, l.ended_on, l.frozen_on, l.best_before,
	l.name, l.article_name, l.brand, l.ean, l.price_total, l.qty_per_unit, l.multiplier,
	l.unit_at_purchase, l.store, l.note,
	p.name, COALESCE(NULLIF(l.name, ''), NULLIF(l.article_name, ''), p.name),
	COALESCE(p.unit, 'pc'), loc.name, p.barcode
	FROM stock_lots l
	JOIN products p ON p.id = l.product_id
	JOIN locations loc ON loc.id = l.location_id`

// fifoOrder sorts lots by nearest best-before, undated lots last.
const fifoOrder = `COALESCE(NULLIF(l.best_before, ''), '9999-12-31')`

func scanLot(row interface{ Scan(...any) error }) (model.Lot, error) {
	var l model.Lot
	var createdOn, endedOn, frozenOn, bestBefore sql.NullString
	var name, article, brand, ean, unitAtPurchase, store, note, barcode sql.NullString
	var qtyPerUnit sql.NullFloat64
	var multiplier sql.NullInt64
	err := row.Scan(&l.ID, &l.ProductID, &l.LocationID, &l.Qty, &l.InitialQty,
		&l.Status, &createdOn, &endedOn, &frozenOn, &bestBefore,
		&name, &article, &brand, &ean, &l.PriceTotal, &qtyPerUnit, &multiplier,
		&unitAtPurchase, &store, &note,
		&l.ProductName, &l.DisplayName, &l.Unit, &l.LocationName, &barcode)
	if err != nil {
		return l, err
	}
	l.CreatedOn = createdOn.String
	l.EndedOn = endedOn.String
	l.FrozenOn = frozenOn.String
	l.BestBefore = bestBefore.String
	l.Name = name.String
	l.ArticleName = article.String
	l.Brand = brand.String
	l.EAN = ean.String
	l.QtyPerUnit = floatPtr(qtyPerUnit)
	l.Multiplier = intPtr(multiplier)
	l.UnitAtPurchase = unitAtPurchase.String
	l.Store = store.String
	l.Note = note.String
	l.Barcode = barcode.String
	return l, nil
}

func queryLots(ctx context.Context, q querier, where, order string, args ...any) ([]model.Lot, error) {
	rows, err := q.QueryContext(ctx, lotSelect+" WHERE "+where+" ORDER BY "+order, args...)
	if err != nil {
		return nil, classify("listing lots", err)
	}
	defer rows.Close()

	var lots []model.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// GetLot returns a lot by ID, or nil if it does not exist.
func GetLot(ctx context.Context, db *sql.DB, id int64) (*model.Lot, error) {
	return getLot(ctx, db, id)
}

func getLot(ctx context.Context, q querier, id int64) (*model.Lot, error) {
	l, err := scanLot(q.QueryRowContext(ctx, lotSelect+` WHERE l.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("getting lot", err)
	}
	return &l, nil
}

// ListOpenLots returns the open lots, nearest best-before first, then by
// display name ignoring case.
func ListOpenLots(ctx context.Context, db *sql.DB) ([]model.Lot, error) {
	return queryLots(ctx, db, `l.status = 'open'`,
		fifoOrder+`, COALESCE(NULLIF(l.name, ''), NULLIF(l.article_name, ''), p.name) COLLATE NOCASE, l.id`)
}

// AddLot opens a lot of qty and records the matching IN movement.
func AddLot(ctx context.Context, db *sql.DB, productID, locationID int64, qty float64, frozenOn, bestBefore string) (int64, error) {
	return AddLotPurchase(ctx, db, productID, locationID, qty, frozenOn, bestBefore, model.PurchaseInfo{})
}

// AddLotPurchase is AddLot with purchase metadata stored on the lot.
func AddLotPurchase(ctx context.Context, db *sql.DB, productID, locationID int64, qty float64, frozenOn, bestBefore string, info model.PurchaseInfo) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	id, err := insertLot(ctx, tx, productID, locationID, qty, frozenOn, bestBefore, info, nil)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, classify("committing lot", err)
	}
	return id, nil
}

// checkRefs fails with ErrInvalidReference unless both the product and the
// location exist.
func checkRefs(ctx context.Context, q querier, productID, locationID int64) error {
	ok, err := productExists(ctx, q, productID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("product %d: %w", productID, model.ErrInvalidReference)
	}
	ok, err = locationExists(ctx, q, locationID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("location %d: %w", locationID, model.ErrInvalidReference)
	}
	return nil
}

// insertLot inserts an open lot and its IN movement. in, when set, carries the
// unit details of the IN movement.
func insertLot(ctx context.Context, q querier, productID, locationID int64, qty float64, frozenOn, bestBefore string, info model.PurchaseInfo, in *model.Movement) (int64, error) {
	if !validQty(qty, false) {
		return 0, model.NewValidationError("qty", "must be positive")
	}
	if err := checkRefs(ctx, q, productID, locationID); err != nil {
		return 0, err
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO stock_lots (product_id, location_id, qty, initial_qty, status, created_on,
		     frozen_on, best_before, name, article_name, brand, ean, price_total,
		     qty_per_unit, multiplier, unit_at_purchase, store, note)
		 VALUES (?, ?, ?, ?, 'open', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		productID, locationID, qty, qty, today(),
		nullString(frozenOn), nullString(bestBefore),
		nullString(info.Name), nullString(info.ArticleName), nullString(info.Brand), nullString(info.EAN),
		info.PriceTotal, nullFloat(info.QtyPerUnit), nullInt(info.Multiplier),
		nullString(info.UnitAtPurchase), nullString(info.Store), nullString(info.Note),
	)
	if err != nil {
		return 0, classify("creating lot", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting lot id: %w", err)
	}

	m := model.Movement{}
	if in != nil {
		m = *in
	}
	m.LotID, m.Type, m.Qty = id, model.MovementIn, qty
	if err := insertMovement(ctx, q, &m); err != nil {
		return 0, err
	}
	return id, nil
}

// MergeOrCreate adds qtyDelta to the open lot with the same product, location,
// best-before and frozen-on dates, or opens a new lot when there is none.
// Missing dates match missing dates only. A merge also raises initial_qty and
// records an IN movement for the delta, so the ledger keeps reconciling.
func MergeOrCreate(ctx context.Context, db *sql.DB, productID, locationID int64, qtyDelta float64, bestBefore, frozenOn string) (model.MergeResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.MergeResult{}, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	res, err := mergeOrCreate(ctx, tx, productID, locationID, qtyDelta, bestBefore, frozenOn, nil)
	if err != nil {
		return model.MergeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.MergeResult{}, classify("committing lot merge", err)
	}
	return res, nil
}

func mergeOrCreate(ctx context.Context, q querier, productID, locationID int64, qtyDelta float64, bestBefore, frozenOn string, in *model.Movement) (model.MergeResult, error) {
	if !validQty(qtyDelta, false) {
		return model.MergeResult{}, model.NewValidationError("qty", "must be positive")
	}

	var id int64
	var qty float64
	err := q.QueryRowContext(ctx,
		`SELECT id, qty FROM stock_lots
		 WHERE product_id = ? AND location_id = ? AND status = 'open'
		   AND best_before IS ? AND frozen_on IS ?
		 ORDER BY id LIMIT 1`,
		productID, locationID, nullString(bestBefore), nullString(frozenOn),
	).Scan(&id, &qty)
	if err == sql.ErrNoRows {
		id, err := insertLot(ctx, q, productID, locationID, qtyDelta, frozenOn, bestBefore, model.PurchaseInfo{}, in)
		if err != nil {
			return model.MergeResult{}, err
		}
		return model.MergeResult{Action: model.MergeActionInsert, LotID: id, NewQty: qtyDelta}, nil
	}
	if err != nil {
		return model.MergeResult{}, classify("finding lot to merge", err)
	}

	newQty := qty + qtyDelta
	_, err = q.ExecContext(ctx,
		`UPDATE stock_lots SET qty = ?, initial_qty = COALESCE(initial_qty, ?) + ? WHERE id = ?`,
		newQty, qty, qtyDelta, id,
	)
	if err != nil {
		return model.MergeResult{}, classify("merging lot", err)
	}

	m := model.Movement{ReasonCode: "merge"}
	if in != nil {
		m = *in
	}
	m.LotID, m.Type, m.Qty = id, model.MovementIn, qtyDelta
	if err := insertMovement(ctx, q, &m); err != nil {
		return model.MergeResult{}, err
	}
	return model.MergeResult{Action: model.MergeActionMerge, LotID: id, NewQty: newQty}, nil
}

// Consume takes qty out of a lot and returns the OUT movement recorded.
//
// The amount is clamped to what the lot holds. When the lot is drained it is
// closed (qty 0, status empty, ended_on today) and the movement records the
// whole remaining amount with the closing note. If the lot carries a complete
// purchase basis the movement gets its share of the price.
//
// Consuming a lot that is missing or already empty does nothing and returns a
// nil movement.
func Consume(ctx context.Context, db *sql.DB, lotID int64, qty float64, reason string) (*model.Movement, error) {
	if !validQty(qty, false) {
		return nil, model.NewValidationError("qty", "must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	lot, err := getLot(ctx, tx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, nil
	}
	m, err := consume(ctx, tx, lot, qty, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("committing consumption", err)
	}
	return m, nil
}

func consume(ctx context.Context, q querier, lot *model.Lot, qty float64, reason string) (*model.Movement, error) {
	old := lot.Qty
	if old <= 0 {
		return nil, nil
	}

	m := &model.Movement{
		LotID:          lot.ID,
		Type:           model.MovementOut,
		Qty:            qty,
		ReasonCode:     reason,
		PriceAllocated: stock.AllocatedPrice(lot.PurchaseInfo, lot.Unit, qty, old),
	}

	newQty := old - qty
	var err error
	if newQty <= qtyEpsilon {
		m.Qty = old
		m.Note = model.NoteLotClosed
		_, err = q.ExecContext(ctx,
			`UPDATE stock_lots SET qty = 0, status = 'empty', ended_on = ? WHERE id = ?`,
			today(), lot.ID,
		)
	} else {
		_, err = q.ExecContext(ctx, `UPDATE stock_lots SET qty = ? WHERE id = ?`, newQty, lot.ID)
	}
	if err != nil {
		return nil, classify("consuming lot", err)
	}

	if err := insertMovement(ctx, q, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ConsumeFIFO takes qty of a product out of its open lots, nearest best-before
// first, and returns one movement per lot touched. When the open stock is
// short, everything available is consumed.
func ConsumeFIFO(ctx context.Context, db *sql.DB, productID int64, qty float64, reason string) ([]model.Movement, error) {
	if !validQty(qty, false) {
		return nil, model.NewValidationError("qty", "must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	ok, err := productExists(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, model.ErrNotFound)
	}

	lots, err := queryLots(ctx, tx, `l.status = 'open' AND l.product_id = ? AND l.qty > 0`,
		fifoOrder+`, l.id`, productID)
	if err != nil {
		return nil, err
	}

	var movements []model.Movement
	remaining := qty
	for i := range lots {
		if remaining <= qtyEpsilon {
			break
		}
		take := min(remaining, lots[i].Qty)
		m, err := consume(ctx, tx, &lots[i], take, reason)
		if err != nil {
			return nil, err
		}
		if m != nil {
			movements = append(movements, *m)
			remaining -= m.Qty
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("committing consumption", err)
	}
	return movements, nil
}

// UpdateLot overwrites a lot's quantity, location and dates without recording
// a movement. A quantity of zero closes the lot and a positive quantity
// reopens it.
func UpdateLot(ctx context.Context, db *sql.DB, lotID int64, qty float64, locationID int64, frozenOn, bestBefore string) error {
	if !validQty(qty, true) {
		return model.NewValidationError("qty", "must not be negative")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify("beginning transaction", err)
	}
	defer tx.Rollback()

	ok, err := locationExists(ctx, tx, locationID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("location %d: %w", locationID, model.ErrInvalidReference)
	}

	var result sql.Result
	if qty == 0 {
		result, err = tx.ExecContext(ctx,
			`UPDATE stock_lots SET qty = 0, location_id = ?, frozen_on = ?, best_before = ?,
			     status = 'empty', ended_on = COALESCE(ended_on, ?)
			 WHERE id = ?`,
			locationID, nullString(frozenOn), nullString(bestBefore), today(), lotID,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE stock_lots SET qty = ?, location_id = ?, frozen_on = ?, best_before = ?,
			     status = 'open', ended_on = NULL
			 WHERE id = ?`,
			qty, locationID, nullString(frozenOn), nullString(bestBefore), lotID,
		)
	}
	if err != nil {
		return classify("updating lot", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return classify("committing lot update", err)
	}
	return nil
}

// DeleteLot removes a lot and its movements. It returns 0 when the lot did not
// exist and 1 otherwise.
func DeleteLot(ctx context.Context, db *sql.DB, lotID int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movements WHERE lot_id = ?`, lotID); err != nil {
		return 0, classify("deleting lot movements", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM stock_lots WHERE id = ?`, lotID)
	if err != nil {
		return 0, classify("deleting lot", err)
	}
	n, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, classify("committing lot deletion", err)
	}
	return n, nil
}

// ProductStock returns a product's open lots in FIFO order with their total,
// or nil if the product does not exist.
func ProductStock(ctx context.Context, db *sql.DB, productID int64) (*model.ProductStock, error) {
	p, err := getProduct(ctx, db, productID)
	if err != nil || p == nil {
		return nil, err
	}

	lots, err := queryLots(ctx, db, `l.status = 'open' AND l.product_id = ?`, fifoOrder+`, l.id`, productID)
	if err != nil {
		return nil, err
	}

	ps := &model.ProductStock{
		ProductID: p.ID,
		Unit:      p.Unit,
		LotsCount: len(lots),
		Lots:      lots,
	}
	for i, l := range lots {
		ps.TotalQty += l.Qty
		if ps.Brand == "" {
			ps.Brand = l.Brand
		}
		if i == 0 {
			ps.FIFO = &lots[0]
		}
	}
	if ps.Lots == nil {
		ps.Lots = []model.Lot{}
	}
	return ps, nil
}
