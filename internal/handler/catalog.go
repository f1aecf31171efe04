package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/catalog"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type CatalogHandler struct {
	catalog *store.CatalogStore
	items   *store.ItemStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewCatalogHandler(cs *store.CatalogStore, items *store.ItemStore, hub *ws.Hub, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cs, items: items, hub: hub, logger: logger}
}

// List returns the catalog, or a bounded substring search when ?q= is given.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		products []model.Product
		err      error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = h.catalog.Search(q)
	} else {
		products, err = h.catalog.List()
	}
	if err != nil {
		h.logger.Error("list catalog", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list products"})
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByName(r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get product"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type priceUpdateRequest struct {
	Price float64 `json:"price"`
}

// catalogChangeResponse pairs the updated product with a report of how the
// change fanned out to live list items.
type catalogChangeResponse struct {
	Product *model.Product    `json:"product"`
	FanOut  store.BatchReport `json:"fan_out"`
}

// UpdatePrice changes a product's price, records the change in its history,
// and pushes the new price onto every live item with the same name.
func (h *CatalogHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req priceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Price < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must not be negative"})
		return
	}

	p, err := h.catalog.UpdatePrice(name, req.Price, auth.Email(r.Context()))
	if err != nil {
		h.logger.Error("update price", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update price"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	ids, err := h.items.ListLiveByName(catalog.Normalize(name))
	if err != nil {
		h.logger.Error("find live items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to propagate price"})
		return
	}
	report := h.items.ApplyCatalogChange(ids, &req.Price, nil)
	if report.Err != nil {
		h.logger.Error("propagate price", "error", report.Err)
	}

	h.hub.Broadcast(ws.NewMessage("catalog", "price_updated", 0, 0, map[string]any{
		"product": p.ID,
		"price":   req.Price,
	}))
	status := http.StatusOK
	if !report.Ok() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, catalogChangeResponse{Product: p, FanOut: report})
}

type categoryUpdateRequest struct {
	Category string `json:"category"`
}

// UpdateCategory reassigns a product's category and pushes the change onto
// live items.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req categoryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category is required"})
		return
	}

	p, err := h.catalog.UpdateCategory(name, req.Category)
	if err != nil {
		h.logger.Error("update category", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update category"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	ids, err := h.items.ListLiveByName(catalog.Normalize(name))
	if err != nil {
		h.logger.Error("find live items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to propagate category"})
		return
	}
	report := h.items.ApplyCatalogChange(ids, nil, &req.Category)
	if report.Err != nil {
		h.logger.Error("propagate category", "error", report.Err)
	}

	h.hub.Broadcast(ws.NewMessage("catalog", "category_updated", 0, 0, map[string]any{
		"product":  p.ID,
		"category": req.Category,
	}))
	status := http.StatusOK
	if !report.Ok() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, catalogChangeResponse{Product: p, FanOut: report})
}

// PriceHistory returns a product's price changes, newest first.
func (h *CatalogHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	changes, err := h.catalog.PriceHistory(r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load price history"})
		return
	}
	if changes == nil {
		changes = []model.PriceChange{}
	}
	writeJSON(w, http.StatusOK, changes)
}

// Archive hides a product from lookups without losing its history.
func (h *CatalogHandler) Archive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.catalog.Archive(name, auth.Email(r.Context())); err != nil {
		h.logger.Error("archive product", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to archive product"})
		return
	}
	h.hub.Broadcast(ws.NewMessage("catalog", "archived", 0, 0, map[string]any{"product": catalog.Normalize(name)}))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.catalog.Unarchive(name); err != nil {
		h.logger.Error("unarchive product", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to unarchive product"})
		return
	}
	h.hub.Broadcast(ws.NewMessage("catalog", "unarchived", 0, 0, map[string]any{"product": catalog.Normalize(name)}))
	w.WriteHeader(http.StatusNoContent)
}

// Categories returns the default category sequence.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	names, err := h.catalog.DefaultCategories()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list categories"})
		return
	}
	writeJSON(w, http.StatusOK, names)
}
