package api

import (
	"database/sql"
	"net/http"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/store"
)

// EventsHandler serves the activity journal.
type EventsHandler struct {
	DB *sql.DB
}

// List returns the most recent events, newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := store.ListEvents(r.Context(), h.DB, queryLimit(r, 200))
	if err != nil {
		writeStoreError(w, err, "list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}
