package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type ListHandler struct {
	lists  *store.ListStore
	trips  tripForgetter
	hub    *ws.Hub
	logger *slog.Logger
}

// tripForgetter drops in-memory trip state when a list goes away.
type tripForgetter interface {
	Forget(listID int64)
}

func NewListHandler(lists *store.ListStore, trips tripForgetter, hub *ws.Hub, logger *slog.Logger) *ListHandler {
	return &ListHandler{lists: lists, trips: trips, hub: hub, logger: logger}
}

// getAccessible loads a live list and checks the caller may touch it. On any
// failure it writes the response and returns nil.
func (h *ListHandler) getAccessible(w http.ResponseWriter, r *http.Request, id int64) *model.ShoppingList {
	list, err := h.lists.GetByID(id)
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

type listRequest struct {
	Name string `json:"name"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	list, err := h.lists.Create(req.Name, auth.UserID(r.Context()), auth.Email(r.Context()))
	if err != nil {
		h.logger.Error("create list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create list"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("list", "created", list.ID, list.ID, nil))
	writeJSON(w, http.StatusCreated, list)
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.VisibleTo(auth.UserID(r.Context()), auth.Email(r.Context()))
	if err != nil {
		h.logger.Error("visible lists", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list lists"})
		return
	}
	if lists == nil {
		lists = []model.ShoppingList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	list := h.getAccessible(w, r, id)
	if list == nil {
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Active resolves which list a device should show: the remembered one when
// still visible, otherwise the most recently modified visible list.
func (h *ListHandler) Active(w http.ResponseWriter, r *http.Request) {
	remembered, _ := strconv.ParseInt(r.URL.Query().Get("remembered"), 10, 64)

	list, err := h.lists.ResolveActive(remembered, auth.UserID(r.Context()), auth.Email(r.Context()))
	if err != nil {
		h.logger.Error("resolve active", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve active list"})
		return
	}
	if list == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no lists"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	existing := h.getAccessible(w, r, id)
	if existing == nil {
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Name == existing.Name {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is unchanged"})
		return
	}

	list, err := h.lists.Rename(id, req.Name)
	if err != nil {
		h.logger.Error("rename list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to rename list"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("list", "renamed", id, id, map[string]any{"name": req.Name}))
	writeJSON(w, http.StatusOK, list)
}

type shareRequest struct {
	Shared bool `json:"shared"`
}

func (h *ListHandler) SetShared(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if h.getAccessible(w, r, id) == nil {
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	list, err := h.lists.SetShared(id, req.Shared)
	if err != nil {
		h.logger.Error("set shared", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update sharing"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("list", "share_changed", id, id, map[string]any{"shared": req.Shared}))
	writeJSON(w, http.StatusOK, list)
}

type collaboratorRequest struct {
	Email string `json:"email"`
}

func (h *ListHandler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if h.getAccessible(w, r, id) == nil {
		return
	}

	var req collaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	if err := h.lists.AddCollaborator(id, req.Email); err != nil {
		h.logger.Error("add collaborator", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to add collaborator"})
		return
	}

	list, err := h.lists.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reload list"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("list", "collaborator_added", id, id, nil))
	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	list := h.getAccessible(w, r, id)
	if list == nil {
		return
	}

	var req collaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// The owner's membership is structural and cannot be removed.
	if list.OwnerID == auth.UserID(r.Context()) && store.NormalizeEmail(req.Email) == auth.Email(r.Context()) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot remove the owner"})
		return
	}

	if err := h.lists.RemoveCollaborator(id, req.Email); err != nil {
		h.logger.Error("remove collaborator", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove collaborator"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("list", "collaborator_removed", id, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if h.getAccessible(w, r, id) == nil {
		return
	}

	if err := h.lists.SoftDelete(id); err != nil {
		h.logger.Error("delete list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete list"})
		return
	}
	h.trips.Forget(id)

	h.hub.Broadcast(ws.NewMessage("list", "deleted", id, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDelete soft-deletes many lists at once, chunked. The response reports
// how many chunks applied; a partial failure is not rolled back.
func (h *ListHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids are required"})
		return
	}

	userID, email := auth.UserID(r.Context()), auth.Email(r.Context())
	for _, id := range req.IDs {
		list, err := h.lists.GetByID(id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check lists"})
			return
		}
		if list == nil || !canAccess(list, userID, email) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your list"})
			return
		}
	}

	report := h.lists.SoftDeleteAll(req.IDs)
	if report.Err != nil {
		h.logger.Error("bulk delete lists", "error", report.Err)
	}
	for _, id := range req.IDs {
		h.trips.Forget(id)
	}

	h.hub.Broadcast(ws.NewMessage("list", "bulk_deleted", 0, 0, map[string]any{"count": report.Applied}))
	status := http.StatusOK
	if !report.Ok() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}
