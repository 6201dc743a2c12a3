package store

import (
	"math"
	"testing"

	"github.com/domovra/domovra/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLot(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Yaourt", "pc")
	l := mustLocation(t, database, "Frigo", false)

	id, err := AddLot(ctx, database, p, l, 10, "", "2025-03-20")
	require.NoError(t, err)

	lot := mustLot(t, database, id)
	assert.Equal(t, 10.0, lot.Qty)
	assert.Equal(t, 10.0, lot.InitialQty)
	assert.Equal(t, model.LotStatusOpen, lot.Status)
	assert.Equal(t, "2025-03-10", lot.CreatedOn)
	assert.Equal(t, "2025-03-20", lot.BestBefore)
	assert.Empty(t, lot.FrozenOn)
	assert.Empty(t, lot.EndedOn)
	assert.Equal(t, "Yaourt", lot.DisplayName)
	assert.Equal(t, "Frigo", lot.LocationName)

	ms := mustMovements(t, database, id)
	require.Len(t, ms, 1)
	assert.Equal(t, model.MovementIn, ms[0].Type)
	assert.Equal(t, 10.0, ms[0].Qty)
	assert.Equal(t, "2025-03-10 09:30:00", ms[0].TS)
}

func TestAddLotInvalidReference(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Yaourt", "pc")
	l := mustLocation(t, database, "Frigo", false)

	_, err := AddLot(ctx, database, 999, l, 1, "", "")
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = AddLot(ctx, database, p, 999, 1, "", "")
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	lots, err := ListOpenLots(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestAddLotRejectsNonPositiveQty(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Yaourt", "pc")
	l := mustLocation(t, database, "Frigo", false)

	_, err := AddLot(ctx, database, p, l, 0, "", "")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "qty", verr.Field)
}

func TestConsumePartialThenExhaust(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Yaourt", "pc")
	l := mustLocation(t, database, "Frigo", false)
	id, err := AddLot(ctx, database, p, l, 10, "", "")
	require.NoError(t, err)

	m, err := Consume(ctx, database, id, 4, "eaten")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.MovementOut, m.Type)
	assert.Equal(t, 4.0, m.Qty)
	assert.Empty(t, m.Note)
	assert.Equal(t, "eaten", m.ReasonCode)

	lot := mustLot(t, database, id)
	assert.Equal(t, 6.0, lot.Qty)
	assert.Equal(t, model.LotStatusOpen, lot.Status)
	assert.Empty(t, lot.EndedOn)

	m, err = Consume(ctx, database, id, 6, "")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 6.0, m.Qty)
	assert.Equal(t, model.NoteLotClosed, m.Note)

	lot = mustLot(t, database, id)
	assert.Equal(t, 0.0, lot.Qty)
	assert.Equal(t, model.LotStatusEmpty, lot.Status)
	assert.Equal(t, "2025-03-10", lot.EndedOn)
	assert.Len(t, mustMovements(t, database, id), 3)
}

func TestConsumeOverdrawRecordsRemaining(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Yaourt", "pc")
	l := mustLocation(t, database, "Frigo", false)
	id, err := AddLot(ctx, database, p, l, 3, "", "")
	require.NoError(t, err)

	m, err := Consume(ctx, database, id, 50, "")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 3.0, m.Qty)

	lot := mustLot(t, database, id)
	assert.Equal(t, 0.0, lot.Qty)
	assert.Equal(t, model.LotStatusEmpty, lot.Status)
}

func TestConsumeEmptyOrMissingLotIsNoop(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Yaourt", "pc")
	l := mustLocation(t, database, "Frigo", false)
	id, err := AddLot(ctx, database, p, l, 2, "", "")
	require.NoError(t, err)

	_, err = Consume(ctx, database, id, 2, "")
	require.NoError(t, err)

	m, err := Consume(ctx, database, id, 1, "")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Len(t, mustMovements(t, database, id), 2)

	m, err = Consume(ctx, database, 4242, 1, "")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestConsumeAllocatesPrice(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Compote", "pc")
	l := mustLocation(t, database, "Placard", false)
	info := model.PurchaseInfo{
		PriceTotal: decimal.NewNullDecimal(decimal.NewFromInt(12)),
		QtyPerUnit: ptrF(1),
		Multiplier: ptrI(4),
	}
	id, err := AddLotPurchase(ctx, database, p, l, 4, "", "", info)
	require.NoError(t, err)

	m, err := Consume(ctx, database, id, 1, "")
	require.NoError(t, err)
	require.True(t, m.PriceAllocated.Valid)
	assert.True(t, decimal.NewFromInt(3).Equal(m.PriceAllocated.Decimal), "got %s", m.PriceAllocated.Decimal)

	ms := mustMovements(t, database, id)
	require.Len(t, ms, 2)
	require.True(t, ms[1].PriceAllocated.Valid)
	assert.True(t, decimal.NewFromInt(3).Equal(ms[1].PriceAllocated.Decimal))
	assert.False(t, ms[0].PriceAllocated.Valid)
}

func TestConsumeAllocatesPriceAcrossUnits(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Farine", "g")
	l := mustLocation(t, database, "Placard", false)

	// Three 2 kg bags for 9 euros, stocked in grams.
	info := model.PurchaseInfo{
		PriceTotal:     decimal.NewNullDecimal(decimal.NewFromInt(9)),
		QtyPerUnit:     ptrF(2),
		Multiplier:     ptrI(3),
		UnitAtPurchase: "kg",
	}
	id, err := AddLotPurchase(ctx, database, p, l, 6000, "", "", info)
	require.NoError(t, err)

	m, err := Consume(ctx, database, id, 1000, "")
	require.NoError(t, err)
	require.True(t, m.PriceAllocated.Valid)
	assert.True(t, decimal.RequireFromString("1.5").Equal(m.PriceAllocated.Decimal), "got %s", m.PriceAllocated.Decimal)

	value, err := ProductValuation(ctx, database, p)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7.5").Equal(value), "got %s", value)
}

func TestNonFiniteQuantitiesRejected(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Compote", "pc")
	l := mustLocation(t, database, "Placard", false)
	info := model.PurchaseInfo{
		PriceTotal: decimal.NewNullDecimal(decimal.NewFromInt(12)),
		QtyPerUnit: ptrF(1),
		Multiplier: ptrI(4),
	}
	id, err := AddLotPurchase(ctx, database, p, l, 4, "", "", info)
	require.NoError(t, err)

	var verr *model.ValidationError
	for _, qty := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := AddLot(ctx, database, p, l, qty, "", "")
		assert.ErrorAs(t, err, &verr, "add %v", qty)

		_, err = MergeOrCreate(ctx, database, p, l, qty, "", "")
		assert.ErrorAs(t, err, &verr, "merge %v", qty)

		_, err = Consume(ctx, database, id, qty, "")
		assert.ErrorAs(t, err, &verr, "consume %v", qty)

		_, err = ConsumeFIFO(ctx, database, p, qty, "")
		assert.ErrorAs(t, err, &verr, "consume fifo %v", qty)

		assert.ErrorAs(t, UpdateLot(ctx, database, id, qty, l, "", ""), &verr, "update %v", qty)

		_, err = RecordPurchase(ctx, database, model.Purchase{ProductID: p, LocationID: l, Qty: qty})
		assert.ErrorAs(t, err, &verr, "purchase %v", qty)
	}

	lot := mustLot(t, database, id)
	assert.Equal(t, 4.0, lot.Qty)
	assert.Equal(t, model.LotStatusOpen, lot.Status)
	assert.Len(t, mustMovements(t, database, id), 1)

	lots, err := ListOpenLots(ctx, database)
	require.NoError(t, err)
	assert.Len(t, lots, 1)
}

func TestConsumeWithoutPriceLeavesAllocationEmpty(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Compote", "pc")
	l := mustLocation(t, database, "Placard", false)
	id, err := AddLot(ctx, database, p, l, 4, "", "")
	require.NoError(t, err)

	m, err := Consume(ctx, database, id, 1, "")
	require.NoError(t, err)
	assert.False(t, m.PriceAllocated.Valid)
}

func TestLedgerReconcilesWithQuantity(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Riz", "g")
	l := mustLocation(t, database, "Placard", false)
	id, err := AddLot(ctx, database, p, l, 1000, "", "")
	require.NoError(t, err)

	for _, q := range []float64{120, 250, 0.5, 300} {
		_, err := Consume(ctx, database, id, q, "")
		require.NoError(t, err)

		lot := mustLot(t, database, id)
		assert.GreaterOrEqual(t, lot.Qty, 0.0)
		assert.LessOrEqual(t, lot.Qty, lot.InitialQty)

		balance := 0.0
		for _, m := range mustMovements(t, database, id) {
			if m.Type == model.MovementIn {
				balance += m.Qty
			} else {
				balance -= m.Qty
			}
		}
		assert.InDelta(t, lot.Qty, balance, 1e-9)
	}
}

func TestMergeOrCreate(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Lait", "l")
	fridge := mustLocation(t, database, "Frigo", false)
	cellar := mustLocation(t, database, "Cave", false)

	first, err := MergeOrCreate(ctx, database, p, fridge, 2, "2025-04-01", "")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionInsert, first.Action)
	assert.Equal(t, 2.0, first.NewQty)

	merged, err := MergeOrCreate(ctx, database, p, fridge, 3, "2025-04-01", "")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionMerge, merged.Action)
	assert.Equal(t, first.LotID, merged.LotID)
	assert.Equal(t, 5.0, merged.NewQty)

	lot := mustLot(t, database, first.LotID)
	assert.Equal(t, 5.0, lot.Qty)
	assert.Equal(t, 5.0, lot.InitialQty)
	ms := mustMovements(t, database, first.LotID)
	require.Len(t, ms, 2)
	assert.Equal(t, 3.0, ms[1].Qty)
	assert.Equal(t, model.MovementIn, ms[1].Type)

	undated, err := MergeOrCreate(ctx, database, p, fridge, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionInsert, undated.Action)
	assert.NotEqual(t, first.LotID, undated.LotID)

	again, err := MergeOrCreate(ctx, database, p, fridge, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionMerge, again.Action)
	assert.Equal(t, undated.LotID, again.LotID)

	frozen, err := MergeOrCreate(ctx, database, p, fridge, 1, "", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionInsert, frozen.Action)

	elsewhere, err := MergeOrCreate(ctx, database, p, cellar, 1, "2025-04-01", "")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionInsert, elsewhere.Action)
}

func TestMergeSkipsClosedLots(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Lait", "l")
	l := mustLocation(t, database, "Frigo", false)

	first, err := MergeOrCreate(ctx, database, p, l, 1, "2025-04-01", "")
	require.NoError(t, err)
	_, err = Consume(ctx, database, first.LotID, 1, "")
	require.NoError(t, err)

	next, err := MergeOrCreate(ctx, database, p, l, 1, "2025-04-01", "")
	require.NoError(t, err)
	assert.Equal(t, model.MergeActionInsert, next.Action)
	assert.NotEqual(t, first.LotID, next.LotID)
}

func TestConsumeFIFO(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Oeufs", "pc")
	l := mustLocation(t, database, "Frigo", false)

	late, err := AddLot(ctx, database, p, l, 6, "", "2025-04-01")
	require.NoError(t, err)
	undated, err := AddLot(ctx, database, p, l, 6, "", "")
	require.NoError(t, err)
	soon, err := AddLot(ctx, database, p, l, 4, "", "2025-03-15")
	require.NoError(t, err)

	ms, err := ConsumeFIFO(ctx, database, p, 7, "omelette")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, soon, ms[0].LotID)
	assert.Equal(t, 4.0, ms[0].Qty)
	assert.Equal(t, model.NoteLotClosed, ms[0].Note)
	assert.Equal(t, late, ms[1].LotID)
	assert.Equal(t, 3.0, ms[1].Qty)

	assert.Equal(t, model.LotStatusEmpty, mustLot(t, database, soon).Status)
	assert.Equal(t, 3.0, mustLot(t, database, late).Qty)
	assert.Equal(t, 6.0, mustLot(t, database, undated).Qty)

	ms, err = ConsumeFIFO(ctx, database, p, 100, "")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, late, ms[0].LotID)
	assert.Equal(t, undated, ms[1].LotID)

	_, err = ConsumeFIFO(ctx, database, 999, 1, "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateLot(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Beurre", "pc")
	fridge := mustLocation(t, database, "Frigo", false)
	freezer := mustLocation(t, database, "Congélateur", true)
	id, err := AddLot(ctx, database, p, fridge, 2, "", "2025-04-01")
	require.NoError(t, err)

	require.NoError(t, UpdateLot(ctx, database, id, 1, freezer, "2025-03-10", ""))
	lot := mustLot(t, database, id)
	assert.Equal(t, 1.0, lot.Qty)
	assert.Equal(t, freezer, lot.LocationID)
	assert.Equal(t, "2025-03-10", lot.FrozenOn)
	assert.Empty(t, lot.BestBefore)
	assert.Len(t, mustMovements(t, database, id), 1)

	require.NoError(t, UpdateLot(ctx, database, id, 0, freezer, "", ""))
	lot = mustLot(t, database, id)
	assert.Equal(t, model.LotStatusEmpty, lot.Status)
	assert.Equal(t, "2025-03-10", lot.EndedOn)

	require.NoError(t, UpdateLot(ctx, database, id, 2, fridge, "", ""))
	lot = mustLot(t, database, id)
	assert.Equal(t, model.LotStatusOpen, lot.Status)
	assert.Empty(t, lot.EndedOn)

	assert.ErrorIs(t, UpdateLot(ctx, database, 999, 1, fridge, "", ""), model.ErrNotFound)
	assert.ErrorIs(t, UpdateLot(ctx, database, id, 1, 999, "", ""), model.ErrInvalidReference)
}

func TestDeleteLot(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Beurre", "pc")
	l := mustLocation(t, database, "Frigo", false)
	id, err := AddLot(ctx, database, p, l, 2, "", "")
	require.NoError(t, err)
	_, err = Consume(ctx, database, id, 1, "")
	require.NoError(t, err)

	n, err := DeleteLot(ctx, database, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	lot, err := GetLot(ctx, database, id)
	require.NoError(t, err)
	assert.Nil(t, lot)
	assert.Empty(t, mustMovements(t, database, id))

	n, err = DeleteLot(ctx, database, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestListOpenLotsOrder(t *testing.T) {
	database, ctx := setup(t)
	milk := mustProduct(t, database, "lait", "l")
	butter := mustProduct(t, database, "Beurre", "pc")
	l := mustLocation(t, database, "Frigo", false)

	undated, err := AddLot(ctx, database, milk, l, 1, "", "")
	require.NoError(t, err)
	milkSoon, err := AddLot(ctx, database, milk, l, 1, "", "2025-03-12")
	require.NoError(t, err)
	butterSoon, err := AddLot(ctx, database, butter, l, 1, "", "2025-03-12")
	require.NoError(t, err)
	named, err := AddLotPurchase(ctx, database, milk, l, 1, "", "2025-03-12", model.PurchaseInfo{Name: "Brique"})
	require.NoError(t, err)
	closed, err := AddLot(ctx, database, butter, l, 1, "", "2025-03-11")
	require.NoError(t, err)
	_, err = Consume(ctx, database, closed, 1, "")
	require.NoError(t, err)

	lots, err := ListOpenLots(ctx, database)
	require.NoError(t, err)
	var ids []int64
	for _, lot := range lots {
		ids = append(ids, lot.ID)
	}
	assert.Equal(t, []int64{butterSoon, named, milkSoon, undated}, ids)
	assert.Equal(t, "Brique", lots[1].DisplayName)
}

func TestProductStock(t *testing.T) {
	database, ctx := setup(t)
	p := mustProduct(t, database, "Café", "g")
	l := mustLocation(t, database, "Placard", false)

	late, err := AddLotPurchase(ctx, database, p, l, 250, "", "2025-09-01", model.PurchaseInfo{Brand: "Arabica"})
	require.NoError(t, err)
	soon, err := AddLot(ctx, database, p, l, 500, "", "2025-06-01")
	require.NoError(t, err)

	ps, err := ProductStock(ctx, database, p)
	require.NoError(t, err)
	require.NotNil(t, ps)
	assert.Equal(t, "g", ps.Unit)
	assert.Equal(t, 750.0, ps.TotalQty)
	assert.Equal(t, 2, ps.LotsCount)
	require.NotNil(t, ps.FIFO)
	assert.Equal(t, soon, ps.FIFO.ID)
	assert.Equal(t, late, ps.Lots[1].ID)
	assert.Equal(t, "Arabica", ps.Brand)

	ps, err = ProductStock(ctx, database, 999)
	require.NoError(t, err)
	assert.Nil(t, ps)
}
