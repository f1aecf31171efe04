package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type ShopHandler struct {
	shops   *store.ShopStore
	catalog *store.CatalogStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewShopHandler(shops *store.ShopStore, cs *store.CatalogStore, hub *ws.Hub, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{shops: shops, catalog: cs, hub: hub, logger: logger}
}

// Search finds shops by name fragment. Shops are global; every household
// member searches the same registry.
func (h *ShopHandler) Search(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shops.Search(r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("search shops", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to search shops"})
		return
	}
	if shops == nil {
		shops = []model.Shop{}
	}
	writeJSON(w, http.StatusOK, shops)
}

type shopRequest struct {
	Name string `json:"name"`
}

// Create registers a new shop and seeds the creator's layout with the
// default category order.
func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	defaults, err := h.catalog.DefaultCategories()
	if err != nil {
		h.logger.Error("default categories", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create shop"})
		return
	}

	shop, err := h.shops.Create(req.Name, auth.UserID(r.Context()), defaults)
	if err != nil {
		h.logger.Error("create shop", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create shop"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("shop", "created", shop.ID, 0, map[string]any{"name": shop.Name}))
	writeJSON(w, http.StatusCreated, shop)
}

func (h *ShopHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	shop, err := h.shops.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get shop"})
		return
	}
	if shop == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "shop not found"})
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

// MyShops lists the shops the caller has visited, most recent first, each
// with their personal category layout.
func (h *ShopHandler) MyShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shops.MyShops(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("my shops", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shops"})
		return
	}
	if shops == nil {
		shops = []store.ShopWithLayout{}
	}
	writeJSON(w, http.StatusOK, shops)
}

// Layout returns the caller's learned category order for one shop.
func (h *ShopHandler) Layout(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	layout, err := h.shops.GetLayout(id, auth.UserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get layout"})
		return
	}
	if layout == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no layout for this shop"})
		return
	}
	writeJSON(w, http.StatusOK, layout)
}
