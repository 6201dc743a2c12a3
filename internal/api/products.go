package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/store"
)

// ProductsHandler handles product catalog endpoints.
type ProductsHandler struct {
	DB *sql.DB
}

type productDetail struct {
	model.Product
	Valuation     decimal.Decimal  `json:"valuation"`
	LastUnitPrice *model.UnitPrice `json:"last_unit_price"`
}

type consumeRequest struct {
	Qty    any    `json:"qty"`
	Reason string `json:"reason"`
}

// List returns all products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := store.ListProducts(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Create adds a product. A name or barcode that already exists returns the
// existing product.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.Product()
	if err != nil {
		writeStoreError(w, err, "create product")
		return
	}

	id, err := store.CreateProduct(r.Context(), h.DB, p)
	if err != nil {
		writeStoreError(w, err, "create product")
		return
	}
	created, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil || created == nil {
		writeStoreError(w, err, "get product")
		return
	}

	slog.Info("product created", "id", id, "name", created.Name)
	logEvent(r, h.DB, "product.add", map[string]any{"product_id": id, "name": created.Name})
	jsonResponse(w, http.StatusCreated, created)
}

// Get returns a product with its current valuation and last unit price.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	p, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get product")
		return
	}
	if p == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	value, err := store.ProductValuation(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "value product")
		return
	}
	price, err := store.LastUnitPrice(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get unit price")
		return
	}

	jsonResponse(w, http.StatusOK, productDetail{Product: *p, Valuation: value, LastUnitPrice: price})
}

// Update modifies a product.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req model.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.Product()
	if err != nil {
		writeStoreError(w, err, "update product")
		return
	}

	if err := store.UpdateProduct(r.Context(), h.DB, id, p); err != nil {
		writeStoreError(w, err, "update product")
		return
	}
	updated, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil || updated == nil {
		writeStoreError(w, err, "get product")
		return
	}

	slog.Info("product updated", "id", id)
	logEvent(r, h.DB, "product.update", map[string]any{"product_id": id, "name": updated.Name})
	jsonResponse(w, http.StatusOK, updated)
}

// Delete removes a product together with its lots.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	n, err := store.DeleteProduct(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "delete product")
		return
	}
	if n == 0 {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	slog.Info("product deleted", "id", id)
	logEvent(r, h.DB, "product.delete", map[string]any{"product_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Stock returns the product's open lots in FIFO order.
func (h *ProductsHandler) Stock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	s, err := store.ProductStock(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get stock")
		return
	}
	if s == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Insights returns consumption statistics for the product.
func (h *ProductsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	in, err := store.ProductInsights(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get insights")
		return
	}
	if in == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	jsonResponse(w, http.StatusOK, in)
}

// Prices returns the product's recent purchase prices, newest first.
func (h *ProductsHandler) Prices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	points, err := store.PriceHistory(r.Context(), h.DB, id, queryLimit(r, 10))
	if err != nil {
		writeStoreError(w, err, "get price history")
		return
	}
	if points == nil {
		points = []model.PricePoint{}
	}
	jsonResponse(w, http.StatusOK, points)
}

// Consume takes a quantity of the product out of stock, nearest best-before
// first.
func (h *ProductsHandler) Consume(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req consumeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	qty, err := requiredQty(req.Qty, "qty")
	if err != nil {
		writeStoreError(w, err, "consume product")
		return
	}

	movements, err := store.ConsumeFIFO(r.Context(), h.DB, id, qty, strings.TrimSpace(req.Reason))
	if err != nil {
		writeStoreError(w, err, "consume product")
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}

	var consumed float64
	for _, m := range movements {
		consumed += m.Qty
	}
	countMovements(model.MovementOut, len(movements))
	if consumed > 0 {
		logEvent(r, h.DB, "product.consume", map[string]any{"product_id": id, "qty": consumed, "lots": len(movements)})
	}

	jsonResponse(w, http.StatusOK, map[string]any{"consumed": consumed, "movements": movements})
}
