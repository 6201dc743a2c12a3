package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/domovra/domovra/internal/model"
	"github.com/domovra/domovra/internal/retention"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeStoreError maps a store error to a response. Unexpected errors are
// logged and reported as "failed to <action>".
func writeStoreError(w http.ResponseWriter, err error, action string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrConflict):
		jsonError(w, http.StatusConflict, "already exists")
	case errors.Is(err, model.ErrInvalidReference):
		jsonError(w, http.StatusUnprocessableEntity, "unknown product or location")
	default:
		slog.Error("failed to "+action, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// queryLimit parses the limit query parameter, falling back to def.
func queryLimit(r *http.Request, def int) int {
	return model.IntOr(r.URL.Query().Get("limit"), def)
}

// isoDate keeps s when it is a valid calendar date and drops it otherwise.
func isoDate(s string) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(retention.DateLayout, s); err != nil {
		return ""
	}
	return s
}

// requiredID coerces a mandatory reference field.
func requiredID(v any, field string) (int64, error) {
	id := model.IntOrNil(v)
	if id == nil || *id <= 0 {
		return 0, model.NewValidationError(field, "required")
	}
	return *id, nil
}

// requiredQty coerces a mandatory quantity field.
func requiredQty(v any, field string) (float64, error) {
	q := model.FloatOrNil(v)
	if q == nil {
		return 0, model.NewValidationError(field, "required")
	}
	return *q, nil
}
