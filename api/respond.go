package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps an internal failure to its status code and JSON
// body. Store failures beyond "not found" are logged and collapsed to a
// generic 500; internal detail never reaches the client.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *item.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationBody(verr))
	case errors.Is(err, item.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid item id")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// validationBody enumerates the offending field names alongside the
// message: "missing" for omitted required keys, "invalid" for wrong
// types and unknown patch keys, "allowed" for the patchable key set.
func validationBody(verr *item.ValidationError) map[string]any {
	body := map[string]any{"error": verr.Error()}
	switch verr.Kind {
	case item.KindMissingFields:
		body["missing"] = verr.Fields
	case item.KindInvalidType, item.KindUnknownFields:
		body["invalid"] = verr.Fields
	}
	if len(verr.Allowed) > 0 {
		body["allowed"] = verr.Allowed
	}
	return body
}
