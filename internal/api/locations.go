package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/store"
)

// LocationsHandler handles storage location endpoints.
type LocationsHandler struct {
	DB *sql.DB
}

// List returns all locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create adds a location. Creating a name that already exists returns the
// existing location.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.LocationInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	loc, err := req.Location()
	if err != nil {
		writeStoreError(w, err, "create location")
		return
	}

	id, err := store.CreateLocation(r.Context(), h.DB, loc)
	if err != nil {
		writeStoreError(w, err, "create location")
		return
	}
	created, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil || created == nil {
		writeStoreError(w, err, "get location")
		return
	}

	slog.Info("location created", "id", id, "name", created.Name)
	logEvent(r, h.DB, "location.add", map[string]any{"location_id": id, "name": created.Name})
	jsonResponse(w, http.StatusCreated, created)
}

// Update modifies a location.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location ID")
		return
	}

	var req model.LocationInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	loc, err := req.Location()
	if err != nil {
		writeStoreError(w, err, "update location")
		return
	}

	if err := store.UpdateLocation(r.Context(), h.DB, id, loc); err != nil {
		writeStoreError(w, err, "update location")
		return
	}
	updated, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil || updated == nil {
		writeStoreError(w, err, "get location")
		return
	}

	slog.Info("location updated", "id", id)
	logEvent(r, h.DB, "location.update", map[string]any{"location_id": id, "name": updated.Name})
	jsonResponse(w, http.StatusOK, updated)
}

// Delete removes a location together with its lots.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location ID")
		return
	}

	n, err := store.DeleteLocation(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "delete location")
		return
	}
	if n == 0 {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	slog.Info("location deleted", "id", id)
	logEvent(r, h.DB, "location.delete", map[string]any{"location_id": id})
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	To any `json:"to"`
}

// Move transfers every lot of the location to another location.
func (h *LocationsHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location ID")
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to, err := requiredID(req.To, "to")
	if err != nil {
		writeStoreError(w, err, "move lots")
		return
	}

	moved, err := store.MoveLots(r.Context(), h.DB, id, to)
	if err != nil {
		writeStoreError(w, err, "move lots")
		return
	}

	if moved > 0 {
		slog.Info("lots moved", "from", id, "to", to, "count", moved)
		logEvent(r, h.DB, "location.move", map[string]any{"from": id, "to": to, "count": moved})
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"moved": moved})
}

// logEvent records a journal entry. A failure is logged and does not fail
// the request.
func logEvent(r *http.Request, db *sql.DB, kind string, details map[string]any) {
	if err := store.LogEvent(r.Context(), db, kind, details); err != nil {
		slog.Warn("logging event", "kind", kind, "error", err)
	}
}
