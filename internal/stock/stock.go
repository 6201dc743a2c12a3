// Package stock holds the arithmetic on lots that needs no database: purchase
// basis, price allocation, valuation and low-stock selection.
package stock

import (
	"math"
	"sort"
	"strings"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/units"
	"github.com/shopspring/decimal"
)

// Basis returns the quantity a lot's price was paid for, qty_per_unit times
// multiplier, expressed in the product unit. Unlike the raw qty_per_unit *
// multiplier product, qty_per_unit is first converted from the purchase unit.
// ok is false when the basis is incomplete, not finite or not positive.
func Basis(info model.PurchaseInfo, productUnit string) (float64, bool) {
	if info.QtyPerUnit == nil || info.Multiplier == nil {
		return 0, false
	}
	q, m := *info.QtyPerUnit, *info.Multiplier
	if q <= 0 || m <= 0 || math.IsInf(q, 0) || math.IsNaN(q) {
		return 0, false
	}
	if info.UnitAtPurchase != "" && productUnit != "" {
		q = units.Convert(q, info.UnitAtPurchase, productUnit)
	}
	return q * float64(m), true
}

// share returns price * qty / basis, or an invalid NullDecimal when the lot has
// no usable price or basis.
func share(info model.PurchaseInfo, productUnit string, qty float64) decimal.NullDecimal {
	if !info.PriceTotal.Valid || !info.PriceTotal.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	basis, ok := Basis(info, productUnit)
	if !ok {
		return decimal.NullDecimal{}
	}
	v := info.PriceTotal.Decimal.
		Mul(decimal.NewFromFloat(qty)).
		Div(decimal.NewFromFloat(basis))
	return decimal.NewNullDecimal(v)
}

// AllocatedPrice is the cost of consuming qty from a lot holding remaining.
// The consumed amount is clamped to remaining.
func AllocatedPrice(info model.PurchaseInfo, productUnit string, qty, remaining float64) decimal.NullDecimal {
	return share(info, productUnit, min(qty, remaining))
}

// LotValue is the value of what is left in a lot. Lots without a complete
// basis are worth zero.
func LotValue(lot model.Lot, productUnit string) decimal.Decimal {
	v := share(lot.PurchaseInfo, productUnit, lot.Qty)
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// UnitPrice returns the price per kilogram, litre or piece of a purchase,
// along with the matching label. Count units are priced per multiplier.
func UnitPrice(info model.PurchaseInfo) (decimal.Decimal, string, bool) {
	if !info.PriceTotal.Valid {
		return decimal.Zero, "", false
	}
	m := int64(1)
	if info.Multiplier != nil && *info.Multiplier > 0 {
		m = *info.Multiplier
	}
	label := units.PriceLabel(info.UnitAtPurchase)

	if units.FamilyOf(info.UnitAtPurchase) == units.Count {
		return info.PriceTotal.Decimal.Div(decimal.NewFromInt(m)), label, true
	}
	if info.QtyPerUnit == nil || *info.QtyPerUnit <= 0 {
		return decimal.Zero, "", false
	}
	base, _ := units.ToBase(*info.QtyPerUnit, info.UnitAtPurchase)
	total := base * float64(m)
	if total <= 0 {
		return decimal.Zero, "", false
	}
	return info.PriceTotal.Decimal.Div(decimal.NewFromFloat(total)), label, true
}

// LowStock selects the products whose open stock is strictly below their
// minimum. A product with no explicit tracking flag follows defaultFollow.
// Results are ordered by shortfall descending, then total ascending, then name.
func LowStock(products []model.Product, totals map[int64]float64, defaultFollow bool) []model.LowStockItem {
	var out []model.LowStockItem
	for _, p := range products {
		if p.MinQty == nil || *p.MinQty <= 0 || !p.TracksLowStock(defaultFollow) {
			continue
		}
		total := totals[p.ID]
		if total >= *p.MinQty {
			continue
		}
		out = append(out, model.LowStockItem{
			ProductID: p.ID,
			Name:      p.Name,
			Unit:      p.Unit,
			MinQty:    *p.MinQty,
			TotalQty:  total,
			Shortfall: *p.MinQty - total,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Shortfall != b.Shortfall {
			return a.Shortfall > b.Shortfall
		}
		if a.TotalQty != b.TotalQty {
			return a.TotalQty < b.TotalQty
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return out
}
