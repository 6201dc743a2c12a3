package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domovra/domovra/internal/config"
	"github.com/domovra/domovra/internal/retention"
)

// NewRouter creates the HTTP router with all API routes. cfg carries the
// resolved retention thresholds and low-stock default.
func NewRouter(db *sql.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	classifier := retention.NewClassifier(cfg.Retention)

	locations := &LocationsHandler{DB: db}
	products := &ProductsHandler{DB: db}
	lots := &LotsHandler{DB: db, Classifier: classifier}
	purchases := &PurchasesHandler{DB: db}
	reports := &ReportsHandler{DB: db, LowStockDefault: cfg.LowStockDefault}
	events := &EventsHandler{DB: db}

	// Locations.
	mux.HandleFunc("GET /api/locations", locations.List)
	mux.HandleFunc("POST /api/locations", locations.Create)
	mux.HandleFunc("PUT /api/locations/{id}", locations.Update)
	mux.HandleFunc("DELETE /api/locations/{id}", locations.Delete)
	mux.HandleFunc("POST /api/locations/{id}/move", locations.Move)

	// Products.
	mux.HandleFunc("GET /api/products", products.List)
	mux.HandleFunc("POST /api/products", products.Create)
	mux.HandleFunc("GET /api/products/{id}", products.Get)
	mux.HandleFunc("PUT /api/products/{id}", products.Update)
	mux.HandleFunc("DELETE /api/products/{id}", products.Delete)
	mux.HandleFunc("GET /api/products/{id}/stock", products.Stock)
	mux.HandleFunc("GET /api/products/{id}/insights", products.Insights)
	mux.HandleFunc("GET /api/products/{id}/prices", products.Prices)
	mux.HandleFunc("POST /api/products/{id}/consume", products.Consume)

	// Lots.
	mux.HandleFunc("GET /api/lots", lots.List)
	mux.HandleFunc("POST /api/lots", lots.Create)
	mux.HandleFunc("GET /api/lots/{id}", lots.Get)
	mux.HandleFunc("PUT /api/lots/{id}", lots.Update)
	mux.HandleFunc("DELETE /api/lots/{id}", lots.Delete)
	mux.HandleFunc("POST /api/lots/{id}/consume", lots.Consume)
	mux.HandleFunc("GET /api/lots/{id}/movements", lots.Movements)

	// Purchases.
	mux.HandleFunc("POST /api/purchases", purchases.Create)

	// Reports.
	mux.HandleFunc("GET /api/reports/low-stock", reports.LowStock)
	mux.HandleFunc("GET /api/reports/valuation", reports.Valuation)

	// Journal.
	mux.HandleFunc("GET /api/events", events.List)

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
