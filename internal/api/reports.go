package api

import (
	"database/sql"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/store"
)

// ReportsHandler handles stock reports.
type ReportsHandler struct {
	DB              *sql.DB
	LowStockDefault bool
}

type valuationLine struct {
	ProductID int64           `json:"product_id"`
	Value     decimal.Decimal `json:"value"`
}

type valuationReport struct {
	Total    decimal.Decimal `json:"total"`
	Products []valuationLine `json:"products"`
}

// LowStock returns the products below their minimum quantity, most urgent
// first.
func (h *ReportsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListLowStock(r.Context(), h.DB, h.LowStockDefault)
	if err != nil {
		writeStoreError(w, err, "list low stock")
		return
	}
	if items == nil {
		items = []model.LowStockItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Valuation returns the value of the open stock per product and overall.
func (h *ReportsHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	values, err := store.ValuationByProduct(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "value stock")
		return
	}

	report := valuationReport{Total: decimal.Zero, Products: make([]valuationLine, 0, len(values))}
	for id, v := range values {
		report.Products = append(report.Products, valuationLine{ProductID: id, Value: v})
		report.Total = report.Total.Add(v)
	}
	sort.Slice(report.Products, func(i, j int) bool {
		return report.Products[i].ProductID < report.Products[j].ProductID
	})
	jsonResponse(w, http.StatusOK, report)
}
