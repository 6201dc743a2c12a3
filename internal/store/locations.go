package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/domovra/domovra/internal/model"
)

const locationColumns = `id, name, COALESCE(is_freezer, 0), description`

func scanLocation(row interface{ Scan(...any) error }) (model.Location, error) {
	var loc model.Location
	var freezer int
	var description sql.NullString
	if err := row.Scan(&loc.ID, &loc.Name, &freezer, &description); err != nil {
		return loc, err
	}
	loc.IsFreezer = freezer != 0
	loc.Description = description.String
	return loc, nil
}

// CreateLocation inserts a location. When the name is already taken the
// existing location's id is returned instead.
func CreateLocation(ctx context.Context, db *sql.DB, loc model.Location) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO locations (name, is_freezer, description) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		loc.Name, boolInt(loc.IsFreezer), nullString(loc.Description),
	)
	if err != nil {
		return 0, classify("creating location", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var id int64
		err := db.QueryRowContext(ctx, `SELECT id FROM locations WHERE name = ?`, loc.Name).Scan(&id)
		if err != nil {
			return 0, classify("finding existing location", err)
		}
		return id, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting location id: %w", err)
	}
	return id, nil
}

// GetLocation returns a location by ID, or nil if it does not exist.
func GetLocation(ctx context.Context, db *sql.DB, id int64) (*model.Location, error) {
	return getLocation(ctx, db, id)
}

func getLocation(ctx context.Context, q querier, id int64) (*model.Location, error) {
	loc, err := scanLocation(q.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("getting location", err)
	}
	return &loc, nil
}

// ListLocations returns all locations ordered by name.
func ListLocations(ctx context.Context, db *sql.DB) ([]model.Location, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM locations ORDER BY name COLLATE NOCASE`,
	)
	if err != nil {
		return nil, classify("listing locations", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// UpdateLocation overwrites a location's fields.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, loc model.Location) error {
	result, err := db.ExecContext(ctx,
		`UPDATE locations SET name = ?, is_freezer = ?, description = ? WHERE id = ?`,
		loc.Name, boolInt(loc.IsFreezer), nullString(loc.Description), id,
	)
	if err != nil {
		return classify("updating location", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteLocation deletes a location together with the lots it holds and their
// movements. It returns the number of locations removed (0 or 1).
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM movements WHERE lot_id IN (SELECT id FROM stock_lots WHERE location_id = ?)`,
		`DELETE FROM stock_lots WHERE location_id = ?`,
		`UPDATE products SET default_location_id = NULL WHERE default_location_id = ?`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s, id); err != nil {
			return 0, classify("deleting location contents", err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return 0, classify("deleting location", err)
	}
	n, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, classify("committing location deletion", err)
	}
	return n, nil
}

// MoveLots relocates every lot of src to dst. Both locations must have the same
// freezer flag. No movement is recorded since quantities do not change. It
// returns the number of lots moved.
func MoveLots(ctx context.Context, db *sql.DB, src, dst int64) (int64, error) {
	if src == dst {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("beginning transaction", err)
	}
	defer tx.Rollback()

	from, err := getLocation(ctx, tx, src)
	if err != nil {
		return 0, err
	}
	to, err := getLocation(ctx, tx, dst)
	if err != nil {
		return 0, err
	}
	if from == nil || to == nil {
		return 0, fmt.Errorf("moving lots: %w", model.ErrInvalidReference)
	}
	if from.IsFreezer != to.IsFreezer {
		return 0, model.NewValidationError("location", "source and destination freezer flags differ")
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE stock_lots SET location_id = ? WHERE location_id = ?`, dst, src,
	)
	if err != nil {
		return 0, classify("moving lots", err)
	}
	n, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, classify("committing lot move", err)
	}
	return n, nil
}
