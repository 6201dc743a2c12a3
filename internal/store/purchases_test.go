package store

import (
	"testing"

	"github.com/domovra/domovra/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPurchaseConvertsToProductUnit(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Farine", "g")
	l := mustLocation(t, database, "Placard", false)

	res, err := RecordPurchase(ctx, database, model.Purchase{
		ProductID:  p,
		LocationID: l,
		Qty:        2,
		Unit:       "Kilos",
		Multiplier: 3,
		PriceTotal: decimal.NewNullDecimal(decimal.NewFromInt(9)),
		Name:       "Farine T55",
		Brand:      "Moulin",
		Store:      "Marché",
		BestBefore: "2025-12-01",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionInsert, res.Action)
	assert.Equal(t, 6000.0, res.QtyDelta)
	assert.Equal(t, 6000.0, res.NewQty)

	lot := mustLot(t, database, res.LotID)
	assert.Equal(t, 6000.0, lot.Qty)
	assert.Equal(t, 6000.0, lot.InitialQty)
	assert.Equal(t, "Farine T55", lot.Name)
	assert.Equal(t, "Farine T55", lot.DisplayName)
	assert.Equal(t, "Moulin", lot.Brand)
	assert.Equal(t, "Marché", lot.Store)
	assert.Equal(t, "kg", lot.UnitAtPurchase)
	assert.Equal(t, ptrF(2), lot.QtyPerUnit)
	assert.Equal(t, ptrI(3), lot.Multiplier)

	ms := mustMovements(t, database, res.LotID)
	require.Len(t, ms, 1)
	assert.Equal(t, "kg", ms[0].UnitInput)
	assert.Equal(t, 1000.0, ms[0].FactorToPivot)

	m, err := Consume(ctx, database, res.LotID, 1000, "")
	require.NoError(t, err)
	require.True(t, m.PriceAllocated.Valid)
	assert.True(t, decimal.RequireFromString("1.5").Equal(m.PriceAllocated.Decimal), "got %s", m.PriceAllocated.Decimal)
}

func TestRecordPurchaseMergesAndClampsMultiplier(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Lait", "l")
	l := mustLocation(t, database, "Cave", false)

	first, err := RecordPurchase(ctx, database, model.Purchase{
		ProductID: p, LocationID: l, Qty: 1, Unit: "litre", BestBefore: "2025-06-01",
	})
	require.NoError(t, err)

	second, err := RecordPurchase(ctx, database, model.Purchase{
		ProductID: p, LocationID: l, Qty: 50, Unit: "cl", Multiplier: -2, BestBefore: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionMerge, second.Action)
	assert.Equal(t, first.LotID, second.LotID)
	assert.InDelta(t, 0.5, second.QtyDelta, 1e-9)
	assert.InDelta(t, 1.5, second.NewQty, 1e-9)

	lot := mustLot(t, database, first.LotID)
	assert.Equal(t, ptrI(1), lot.Multiplier)
	assert.Equal(t, "cl", lot.UnitAtPurchase)
}

func TestRecordPurchaseBackfillsBarcode(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Pâte à tartiner", "pc")
	other := mustProduct(t, database, "Chocolat", "pc")
	l := mustLocation(t, database, "Placard", false)

	_, err := RecordPurchase(ctx, database, model.Purchase{
		ProductID: p, LocationID: l, Qty: 1, Unit: "pot", EAN: "3 017620 422003",
	})
	require.NoError(t, err)

	got, err := GetProduct(ctx, database, p)
	require.NoError(t, err)
	assert.Equal(t, "3017620422003", got.Barcode)

	// Same EAN on another product: the purchase goes through, barcode untouched.
	res, err := RecordPurchase(ctx, database, model.Purchase{
		ProductID: other, LocationID: l, Qty: 1, EAN: "3017620422003",
	})
	require.NoError(t, err)
	assert.Equal(t, "3017620422003", mustLot(t, database, res.LotID).EAN)

	got, err = GetProduct(ctx, database, other)
	require.NoError(t, err)
	assert.Empty(t, got.Barcode)
}

func TestRecordPurchaseLogsEvent(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Riz", "kg")
	l := mustLocation(t, database, "Placard", false)

	res, err := RecordPurchase(ctx, database, model.Purchase{
		ProductID: p, LocationID: l, Qty: 500, Unit: "g", Multiplier: 2,
		PriceTotal: decimal.NewNullDecimal(decimal.RequireFromString("3.2")),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.QtyDelta, 1e-9)

	events, err := ListEvents(ctx, database, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, "achats.add", e.Kind)
	assert.NotEmpty(t, e.CreatedAt)
	assert.Equal(t, "insert", e.Details["result"])
	assert.Equal(t, float64(res.LotID), e.Details["lot_id"])
	assert.Equal(t, 3.2, e.Details["price_total"])
	assert.Equal(t, 2.0, e.Details["multiplier"])
	assert.Nil(t, e.Details["ean"])
}

func TestRecordPurchaseRejectsUnknownProduct(t *testing.T) {
	database, ctx := setup(t)
	l := mustLocation(t, database, "Placard", false)

	_, err := RecordPurchase(ctx, database, model.Purchase{ProductID: 42, LocationID: l, Qty: 1})
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	events, err := ListEvents(ctx, database, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
