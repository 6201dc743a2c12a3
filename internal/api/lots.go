package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/retention"
	"github.com/domovra/domovra/internal/store"
)

// LotsHandler handles stock lot endpoints.
type LotsHandler struct {
	DB         *sql.DB
	Classifier *retention.Classifier
}

// lotView is a lot with its best-before urgency.
type lotView struct {
	model.Lot
	Urgency retention.Level `json:"urgency"`
}

type lotRequest struct {
	ProductID  any    `json:"product_id"`
	LocationID any    `json:"location_id"`
	Qty        any    `json:"qty"`
	FrozenOn   string `json:"frozen_on"`
	BestBefore string `json:"best_before"`
	Merge      any    `json:"merge"`
}

func (h *LotsHandler) view(l model.Lot) lotView {
	return lotView{Lot: l, Urgency: h.Classifier.Status(l.BestBefore)}
}

// List returns the open lots in FIFO order.
func (h *LotsHandler) List(w http.ResponseWriter, r *http.Request) {
	lots, err := store.ListOpenLots(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list lots")
		return
	}

	views := make([]lotView, 0, len(lots))
	for _, l := range lots {
		views = append(views, h.view(l))
	}
	jsonResponse(w, http.StatusOK, views)
}

// Create adds a lot. With "merge" set, the quantity is added to an open lot
// with the same product, location and dates when there is one.
func (h *LotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := requiredID(req.ProductID, "product_id")
	if err != nil {
		writeStoreError(w, err, "create lot")
		return
	}
	locationID, err := requiredID(req.LocationID, "location_id")
	if err != nil {
		writeStoreError(w, err, "create lot")
		return
	}
	qty, err := requiredQty(req.Qty, "qty")
	if err != nil {
		writeStoreError(w, err, "create lot")
		return
	}
	frozenOn, bestBefore := isoDate(req.FrozenOn), isoDate(req.BestBefore)

	var lotID int64
	action := model.MergeActionInsert
	if model.Flag(req.Merge) {
		res, err := store.MergeOrCreate(r.Context(), h.DB, productID, locationID, qty, bestBefore, frozenOn)
		if err != nil {
			writeStoreError(w, err, "create lot")
			return
		}
		lotID, action = res.LotID, res.Action
	} else {
		lotID, err = store.AddLot(r.Context(), h.DB, productID, locationID, qty, frozenOn, bestBefore)
		if err != nil {
			writeStoreError(w, err, "create lot")
			return
		}
	}

	lot, err := store.GetLot(r.Context(), h.DB, lotID)
	if err != nil || lot == nil {
		writeStoreError(w, err, "get lot")
		return
	}

	countMovements(model.MovementIn, 1)
	slog.Info("lot stored", "id", lotID, "product_id", productID, "qty", qty, "action", action)
	logEvent(r, h.DB, "lot.add", map[string]any{
		"lot_id": lotID, "product_id": productID, "location_id": locationID,
		"qty": qty, "action": string(action),
	})

	status := http.StatusCreated
	if action == model.MergeActionMerge {
		status = http.StatusOK
	}
	jsonResponse(w, status, h.view(*lot))
}

// Get returns a lot by ID, open or not.
func (h *LotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid lot ID")
		return
	}

	lot, err := store.GetLot(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get lot")
		return
	}
	if lot == nil {
		jsonError(w, http.StatusNotFound, "lot not found")
		return
	}
	jsonResponse(w, http.StatusOK, h.view(*lot))
}

// Update overwrites a lot's quantity, location and dates.
func (h *LotsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid lot ID")
		return
	}

	var req lotRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	locationID, err := requiredID(req.LocationID, "location_id")
	if err != nil {
		writeStoreError(w, err, "update lot")
		return
	}
	qty, err := requiredQty(req.Qty, "qty")
	if err != nil {
		writeStoreError(w, err, "update lot")
		return
	}

	err = store.UpdateLot(r.Context(), h.DB, id, qty, locationID, isoDate(req.FrozenOn), isoDate(req.BestBefore))
	if err != nil {
		writeStoreError(w, err, "update lot")
		return
	}
	lot, err := store.GetLot(r.Context(), h.DB, id)
	if err != nil || lot == nil {
		writeStoreError(w, err, "get lot")
		return
	}

	slog.Info("lot updated", "id", id, "qty", qty)
	logEvent(r, h.DB, "lot.update", map[string]any{"lot_id": id, "qty": qty, "location_id": locationID})
	jsonResponse(w, http.StatusOK, h.view(*lot))
}

// Delete removes a lot and its movements. Deleting a lot that does not exist
// succeeds.
func (h *LotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid lot ID")
		return
	}

	n, err := store.DeleteLot(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "delete lot")
		return
	}
	if n > 0 {
		slog.Info("lot deleted", "id", id)
		logEvent(r, h.DB, "lot.delete", map[string]any{"lot_id": id})
	}
	w.WriteHeader(http.StatusNoContent)
}

// Consume takes a quantity out of one lot. A lot that is missing or already
// empty yields no movement.
func (h *LotsHandler) Consume(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid lot ID")
		return
	}

	var req consumeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	qty, err := requiredQty(req.Qty, "qty")
	if err != nil {
		writeStoreError(w, err, "consume lot")
		return
	}

	m, err := store.Consume(r.Context(), h.DB, id, qty, strings.TrimSpace(req.Reason))
	if err != nil {
		writeStoreError(w, err, "consume lot")
		return
	}
	if m == nil {
		jsonResponse(w, http.StatusOK, map[string]any{"movement": nil})
		return
	}

	countMovements(model.MovementOut, 1)
	logEvent(r, h.DB, "lot.consume", map[string]any{"lot_id": id, "qty": m.Qty, "closed": m.Note == model.NoteLotClosed})
	jsonResponse(w, http.StatusOK, map[string]any{"movement": m})
}

// Movements returns the ledger of a lot, oldest first.
func (h *LotsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid lot ID")
		return
	}

	movements, err := store.ListMovements(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "list movements")
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
