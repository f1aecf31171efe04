package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/receipt"
	"github.com/dmfarrell/trolley/internal/store"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

const maxReceiptBytes = 10 << 20

type ReceiptHandler struct {
	parser  *receipt.Service
	items   *store.ItemStore
	lists   *store.ListStore
	catalog *store.CatalogStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewReceiptHandler(parser *receipt.Service, items *store.ItemStore, lists *store.ListStore, cs *store.CatalogStore, hub *ws.Hub, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{parser: parser, items: items, lists: lists, catalog: cs, hub: hub, logger: logger}
}

type receiptScanResponse struct {
	Lines   []receipt.Line  `json:"lines"`
	Matches []receipt.Match `json:"matches"`
}

// Scan parses a receipt image and matches its lines against the list's
// items. Parsing is best-effort: an unreachable parser yields zero lines,
// never an error.
func (h *ReceiptHandler) Scan(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list, err := h.lists.GetByID(listID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get list"})
		return
	}
	if list == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "list not found"})
		return
	}
	if !canAccess(list, auth.UserID(r.Context()), auth.Email(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your list"})
		return
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, maxReceiptBytes))
	if err != nil || len(image) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image body is required"})
		return
	}

	lines := h.parser.Parse(r.Context(), image)
	items, err := h.items.ListByList(listID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}

	resp := receiptScanResponse{Lines: lines, Matches: receipt.MatchLines(lines, items)}
	if resp.Lines == nil {
		resp.Lines = []receipt.Line{}
	}
	if resp.Matches == nil {
		resp.Matches = []receipt.Match{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type applyMatchesRequest struct {
	Matches []receipt.Match `json:"matches"`
}

// Apply writes confirmed receipt prices onto items and their catalog
// entries.
func (h *ReceiptHandler) Apply(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list, err := h.lists.GetByID(listID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get list"})
		return
	}
	if list == nil || !canAccess(list, auth.UserID(r.Context()), auth.Email(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your list"})
		return
	}

	var req applyMatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	actor := auth.Email(r.Context())
	updated := make([]model.ShoppingItem, 0, len(req.Matches))
	for _, m := range req.Matches {
		if m.NewPrice < 0 {
			continue
		}
		price := m.NewPrice
		item, err := h.items.Update(m.ItemID, store.ItemPatch{Price: &price})
		if err != nil {
			h.logger.Error("apply receipt price", "item", m.ItemID, "error", err)
			continue
		}
		if item == nil || item.ListID != listID {
			continue
		}
		if _, err := h.catalog.UpdatePrice(item.Name, price, actor); err != nil {
			h.logger.Error("propagate receipt price to catalog", "error", err)
		}
		updated = append(updated, *item)
	}

	h.hub.Broadcast(ws.NewMessage("receipt", "applied", 0, listID, map[string]any{"count": len(updated)}))
	writeJSON(w, http.StatusOK, updated)
}
