package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/catalog"
	"github.com/dmfarrell/trolley/internal/classify"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
	"github.com/dmfarrell/trolley/internal/trip"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type ItemHandler struct {
	items      *store.ItemStore
	lists      *store.ListStore
	catalog    *store.CatalogStore
	classifier *classify.Service
	hub        *ws.Hub
	logger     *slog.Logger
}

func NewItemHandler(items *store.ItemStore, lists *store.ListStore, cs *store.CatalogStore, classifier *classify.Service, hub *ws.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, lists: lists, catalog: cs, classifier: classifier, hub: hub, logger: logger}
}

func (h *ItemHandler) accessibleList(w http.ResponseWriter, r *http.Request, listID int64) *model.ShoppingList {
	list, err := h.lists.GetByID(listID)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get list"})
		return nil
	}
	if list == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "list not found"})
		return nil
	}
	if !canAccess(list, auth.UserID(r.Context()), auth.Email(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your list"})
		return nil
	}
	return list
}

type itemRequest struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Create adds an item under its canonical catalog name, so case and spacing
// variants of the same product aggregate in history. A catalog hit fills in
// name, category, price, and unit instantly; an unknown product consults the
// classifier (degrading to keyword matching) and seeds a catalog entry so
// the next add is instant.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	if h.accessibleList(w, r, listID) == nil {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	known, err := h.catalog.GetByName(req.Name)
	if err != nil {
		h.logger.Error("catalog lookup", "error", err)
	}
	if known != nil {
		req.Name = known.Name
		if req.Category == "" {
			req.Category = known.Category
		}
		if req.Price == 0 {
			req.Price = known.Price
		}
		if req.Unit == "" {
			req.Unit = known.Unit
		}
	} else {
		req.Name = catalog.Display(req.Name)
		if req.Category == "" {
			req.Category = h.classifier.Categorize(r.Context(), req.Name)
		}
	}

	item, err := h.items.Create(listID, req.Name, req.Quantity, req.Unit, req.Price, req.Category)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
		return
	}

	if _, err := h.catalog.Ensure(req.Name, req.Category, req.Price, req.Unit); err != nil {
		h.logger.Error("ensure catalog entry", "error", err)
	}
	if err := h.catalog.BumpPopularity(req.Name); err != nil {
		h.logger.Error("bump popularity", "error", err)
	}

	h.hub.Broadcast(ws.NewMessage("item", "created", item.ID, listID, map[string]any{"name": item.Name}))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	if h.accessibleList(w, r, listID) == nil {
		return
	}

	items, err := h.items.ListByList(listID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CategoryGroup is one display bucket of the grouped list view.
type CategoryGroup struct {
	Category string               `json:"category"`
	Items    []model.ShoppingItem `json:"items"`
}

// Grouped returns the list's items bucketed by category, ordered by the
// list's learned walking order with catalog defaults as fallback.
func (h *ItemHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list := h.accessibleList(w, r, listID)
	if list == nil {
		return
	}

	items, err := h.items.ListByList(listID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	defaults, err := h.catalog.DefaultCategories()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load categories"})
		return
	}

	byCategory := make(map[string][]model.ShoppingItem)
	var present []string
	for _, item := range items {
		if _, ok := byCategory[item.Category]; !ok {
			present = append(present, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	groups := []CategoryGroup{}
	for _, c := range trip.OrderCategories(present, list.CategoryOrder, defaults) {
		groups = append(groups, CategoryGroup{Category: c, Items: byCategory[c]})
	}
	writeJSON(w, http.StatusOK, groups)
}

type itemPatchRequest struct {
	Name     *string  `json:"name"`
	Quantity *int     `json:"quantity"`
	Unit     *string  `json:"unit"`
	Price    *float64 `json:"price"`
	Category *string  `json:"category"`
	Bought   *bool    `json:"bought"`
}

// Update applies a partial item edit. A manual price change also updates the
// catalog entry so the price sticks for future adds.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	if h.accessibleList(w, r, listID) == nil {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req itemPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Name != nil {
		name := catalog.Display(*req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}
		req.Name = &name
	}

	item, err := h.items.Update(id, store.ItemPatch{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Price:    req.Price,
		Category: req.Category,
		Bought:   req.Bought,
	})
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update item"})
		return
	}
	if item == nil || item.ListID != listID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	if req.Price != nil && *req.Price >= 0 {
		if _, err := h.catalog.UpdatePrice(item.Name, *req.Price, auth.Email(r.Context())); err != nil {
			h.logger.Error("propagate price to catalog", "error", err)
		}
	}

	action := "updated"
	if req.Bought != nil {
		action = "checked"
		if !*req.Bought {
			action = "unchecked"
		}
	}
	h.hub.Broadcast(ws.NewMessage("item", action, item.ID, listID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	if h.accessibleList(w, r, listID) == nil {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.items.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get item"})
		return
	}
	if existing == nil || existing.ListID != listID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	if err := h.items.Delete(id); err != nil {
		h.logger.Error("delete item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete item"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "deleted", id, listID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *ItemHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	if h.accessibleList(w, r, listID) == nil {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids are required"})
		return
	}

	if err := h.items.Reorder(listID, req.IDs); err != nil {
		h.logger.Error("reorder items", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to reorder items"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "reordered", 0, listID, nil))
	w.WriteHeader(http.StatusNoContent)
}
