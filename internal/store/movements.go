package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/domovra/domovra/internal/model"
)

// insertMovement appends m to the ledger and sets its ID and timestamp.
func insertMovement(ctx context.Context, q querier, m *model.Movement) error {
	if m.TS == "" {
		m.TS = timestamp()
	}
	if m.FactorToPivot == 0 {
		m.FactorToPivot = 1
	}
	result, err := q.ExecContext(ctx,
		`INSERT INTO movements (lot_id, type, qty, ts, note, reason_code, price_allocated,
		     unit_input, factor_to_pivot, location_from_id, location_to_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.LotID, m.Type, m.Qty, m.TS, nullString(m.Note), nullString(m.ReasonCode), m.PriceAllocated,
		nullString(m.UnitInput), m.FactorToPivot, nullInt(m.LocationFromID), nullInt(m.LocationToID),
	)
	if err != nil {
		return classify("recording movement", err)
	}
	m.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting movement id: %w", err)
	}
	return nil
}

// ListMovements returns the ledger of a lot, oldest first.
func ListMovements(ctx context.Context, db *sql.DB, lotID int64) ([]model.Movement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, lot_id, type, qty, ts, note, reason_code, price_allocated,
		        unit_input, COALESCE(factor_to_pivot, 1), location_from_id, location_to_id
		 FROM movements WHERE lot_id = ? ORDER BY id`, lotID,
	)
	if err != nil {
		return nil, classify("listing movements", err)
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		var note, reason, unitInput sql.NullString
		var from, to sql.NullInt64
		err := rows.Scan(&m.ID, &m.LotID, &m.Type, &m.Qty, &m.TS, &note, &reason, &m.PriceAllocated,
			&unitInput, &m.FactorToPivot, &from, &to)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Note = note.String
		m.ReasonCode = reason.String
		m.UnitInput = unitInput.String
		m.LocationFromID = intPtr(from)
		m.LocationToID = intPtr(to)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
