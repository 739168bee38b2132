// Package api provides the HTTP surface for the item service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/query"
	"github.com/jacentio/pantry/store"
)

// Handler holds the service dependencies and registers routes.
type Handler struct {
	gateway store.Gateway
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(gateway store.Gateway, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{gateway: gateway, logger: logger, mux: http.NewServeMux()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /health", h.health)

	h.mux.HandleFunc("GET /api/items", h.listItems)
	h.mux.HandleFunc("POST /api/items", h.createItem)
	h.mux.HandleFunc("GET /api/items/{id}", h.getItem)
	h.mux.HandleFunc("PUT /api/items/{id}", h.replaceItem)
	h.mux.HandleFunc("PATCH /api/items/{id}", h.patchItem)
	h.mux.HandleFunc("DELETE /api/items/{id}", h.deleteItem)

	// Historical read-only variant kept for old clients.
	h.mux.HandleFunc("GET /api/products", h.listProducts)

	h.mux.HandleFunc("/", h.notFound)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "API endpoint not found")
}

// ---------- list ----------

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, item.Collection, "items")
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, item.LegacyCollection, "products")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, collection, docsKey string) {
	q, err := query.Build(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := h.gateway.List(r.Context(), collection, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(docs), docsKey: docs})
}

// ---------- single-resource handlers ----------

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := item.ParseID(r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := h.gateway.Get(r.Context(), item.Collection, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	fields, verr := item.ValidateCreate(body, time.Now())
	if verr != nil {
		h.respondError(w, r, verr)
		return
	}
	id, err := h.gateway.Create(r.Context(), item.Collection, fields)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "item created", "id": id})
}

func (h *Handler) replaceItem(w http.ResponseWriter, r *http.Request) {
	id, err := item.ParseID(r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	fields, verr := item.ValidateReplace(body, time.Now())
	if verr != nil {
		h.respondError(w, r, verr)
		return
	}
	if err := h.gateway.Replace(r.Context(), item.Collection, id, fields); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item updated"})
}

func (h *Handler) patchItem(w http.ResponseWriter, r *http.Request) {
	id, err := item.ParseID(r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	fields, verr := item.ValidatePatch(body, time.Now())
	if verr != nil {
		h.respondError(w, r, verr)
		return
	}
	if err := h.gateway.Patch(r.Context(), item.Collection, id, fields); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item updated"})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := item.ParseID(r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.gateway.Delete(r.Context(), item.Collection, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a JSON object body, responding 400 itself on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	defer r.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return body, true
}
