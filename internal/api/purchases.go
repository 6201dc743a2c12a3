package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/store"
)

// PurchasesHandler handles purchase entry.
type PurchasesHandler struct {
	DB *sql.DB
}

type purchaseRequest struct {
	ProductID  any    `json:"product_id"`
	LocationID any    `json:"location_id"`
	Qty        any    `json:"qty"`
	Unit       string `json:"unit"`
	Multiplier any    `json:"multiplier"`
	PriceTotal any    `json:"price_total"`
	EAN        any    `json:"ean"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Store      string `json:"store"`
	Note       string `json:"note"`
	BestBefore string `json:"best_before"`
	FrozenOn   string `json:"frozen_on"`
}

func (req purchaseRequest) purchase() (model.Purchase, error) {
	productID, err := requiredID(req.ProductID, "product_id")
	if err != nil {
		return model.Purchase{}, err
	}
	locationID, err := requiredID(req.LocationID, "location_id")
	if err != nil {
		return model.Purchase{}, err
	}
	qty, err := requiredQty(req.Qty, "qty")
	if err != nil {
		return model.Purchase{}, err
	}

	var price decimal.NullDecimal
	if f := model.NonNegativeOrNil(req.PriceTotal); f != nil {
		price = decimal.NewNullDecimal(decimal.NewFromFloat(*f))
	}

	return model.Purchase{
		ProductID:  productID,
		LocationID: locationID,
		Qty:        qty,
		Unit:       req.Unit,
		Multiplier: int64(model.IntOr(req.Multiplier, 1)),
		PriceTotal: price,
		EAN:        model.Digits(req.EAN),
		Name:       req.Name,
		Brand:      req.Brand,
		Store:      req.Store,
		Note:       req.Note,
		BestBefore: isoDate(req.BestBefore),
		FrozenOn:   isoDate(req.FrozenOn),
	}, nil
}

// Create records a purchase line and returns whether it merged into an
// existing lot.
func (h *PurchasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.purchase()
	if err != nil {
		writeStoreError(w, err, "record purchase")
		return
	}

	res, err := store.RecordPurchase(r.Context(), h.DB, p)
	if err != nil {
		writeStoreError(w, err, "record purchase")
		return
	}

	countMovements(model.MovementIn, 1)
	slog.Info("purchase recorded", "product_id", p.ProductID, "lot_id", res.LotID, "action", res.Action, "qty_delta", res.QtyDelta)

	status := http.StatusCreated
	if res.Action == model.MergeActionMerge {
		status = http.StatusOK
	}
	jsonResponse(w, status, res)
}
