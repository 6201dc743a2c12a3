package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/domovra/domovra/internal/db"
	"github.com/domovra/domovra/internal/model"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.Local)

func setup(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	t.Cleanup(SetClock(func() time.Time { return fixedNow }))
	return db.NewTestDB(t), context.Background()
}

func mustProduct(t *testing.T, database *sql.DB, name, unit string) int64 {
	t.Helper()
	id, err := CreateProduct(context.Background(), database, model.Product{
		Name:                 name,
		Unit:                 unit,
		DefaultShelfLifeDays: model.DefaultShelfLifeDays,
		ExpiryKind:           model.ExpiryDLC,
	})
	require.NoError(t, err)
	return id
}

func mustLocation(t *testing.T, database *sql.DB, name string, freezer bool) int64 {
	t.Helper()
	id, err := CreateLocation(context.Background(), database, model.Location{Name: name, IsFreezer: freezer})
	require.NoError(t, err)
	return id
}

func mustLot(t *testing.T, database *sql.DB, id int64) *model.Lot {
	t.Helper()
	lot, err := GetLot(context.Background(), database, id)
	require.NoError(t, err)
	require.NotNil(t, lot)
	return lot
}

func mustMovements(t *testing.T, database *sql.DB, lotID int64) []model.Movement {
	t.Helper()
	ms, err := ListMovements(context.Background(), database, lotID)
	require.NoError(t, err)
	return ms
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
func ptrB(v bool) *bool       { return &v }
