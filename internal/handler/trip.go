package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
	"github.com/dmfarrell/trolley/internal/trip"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type TripHandler struct {
	registry *trip.Registry
	lists    *store.ListStore
	items    *store.ItemStore
	sessions *store.SessionStore
	shops    *store.ShopStore
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewTripHandler(registry *trip.Registry, lists *store.ListStore, items *store.ItemStore, sessions *store.SessionStore, shops *store.ShopStore, hub *ws.Hub, logger *slog.Logger) *TripHandler {
	return &TripHandler{registry: registry, lists: lists, items: items, sessions: sessions, shops: shops, hub: hub, logger: logger}
}

func (h *TripHandler) accessibleList(w http.ResponseWriter, r *http.Request, listID int64) *model.ShoppingList {
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

type tripStatus struct {
	Phase     trip.Phase  `json:"phase"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	Draft     *trip.Draft `json:"draft,omitempty"`
}

func statusOf(m *trip.Machine) tripStatus {
	st := tripStatus{Phase: m.Phase(), Draft: m.Draft()}
	if at, ok := m.StartedAt(); ok {
		st.StartedAt = &at
	}
	return st
}

// Status reports the trip phase for a list, resuming a persisted trip start
// after a restart.
func (h *TripHandler) Status(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list := h.accessibleList(w, r, listID)
	if list == nil {
		return
	}

	var st tripStatus
	h.registry.Do(listID, list.TripStartedAt, func(m *trip.Machine) error {
		st = statusOf(m)
		return nil
	})
	writeJSON(w, http.StatusOK, st)
}

// Start begins (or restarts) shopping mode for a list. The start time is
// mirrored onto the list row so an in-progress trip survives a restart.
func (h *TripHandler) Start(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list := h.accessibleList(w, r, listID)
	if list == nil {
		return
	}

	now := time.Now().UTC()
	var st tripStatus
	err = h.registry.Do(listID, list.TripStartedAt, func(m *trip.Machine) error {
		m.Start(now)
		if err := h.lists.SetTripStartedAt(listID, &now); err != nil {
			return err
		}
		st = statusOf(m)
		return nil
	})
	if err != nil {
		h.logger.Error("start trip", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start trip"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("trip", "started", 0, listID, nil))
	writeJSON(w, http.StatusOK, st)
}

type completeRequest struct {
	StoreName string `json:"store_name"`
}

// Complete finalizes the trip into a draft summary: bought items snapshotted,
// unbought ones listed as missed, total and duration computed. Nothing is
// persisted until the draft is saved.
func (h *TripHandler) Complete(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list := h.accessibleList(w, r, listID)
	if list == nil {
		return
	}

	var req completeRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	items, err := h.items.ListByList(listID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}

	var draft *trip.Draft
	err = h.registry.Do(listID, list.TripStartedAt, func(m *trip.Machine) error {
		d, err := m.Complete(listID, list.Name, auth.Email(r.Context()), strings.TrimSpace(req.StoreName), items, time.Now().UTC())
		if err != nil {
			return err
		}
		draft = d
		return nil
	})
	if errors.Is(err, trip.ErrDraftPending) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a completed trip is awaiting save or discard"})
		return
	}
	if err != nil {
		h.logger.Error("complete trip", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete trip"})
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

type saveRequest struct {
	ShopID int64 `json:"shop_id"`
}

// Save persists the pending draft: the session is appended to history, the
// list's bought flags reset, the learned category order stored, and the
// named shop's layout updated.
func (h *TripHandler) Save(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list := h.accessibleList(w, r, listID)
	if list == nil {
		return
	}

	var req saveRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	// Resolve the shop before touching history. A bad shop id must not leave
	// a half-saved trip behind.
	if req.ShopID != 0 {
		shop, err := h.shops.GetByID(req.ShopID)
		if err != nil {
			h.logger.Error("get shop", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save trip"})
			return
		}
		if shop == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown shop"})
			return
		}
	}

	var saved *model.ShoppingSession
	err = h.registry.Do(listID, list.TripStartedAt, func(m *trip.Machine) error {
		draft := m.Draft()
		if draft == nil {
			return errNoDraft
		}

		session, err := h.sessions.Append(draft.Session())
		if err != nil {
			return err
		}
		if _, err := h.items.ResetBought(listID, draft.LearnedOrder, draft.CompletedBy); err != nil {
			return err
		}
		if err := h.lists.SetTripStartedAt(listID, nil); err != nil {
			return err
		}
		m.Reset()

		// The session is already history at this point; a failed layout
		// update must not surface as a failed save.
		if req.ShopID != 0 {
			if _, err := h.shops.RecordVisit(req.ShopID, auth.UserID(r.Context()), draft.LearnedOrder); err != nil {
				h.logger.Error("record shop visit", "shop", req.ShopID, "error", err)
			}
		}

		saved = session
		return nil
	})
	if errors.Is(err, errNoDraft) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no completed trip to save"})
		return
	}
	if err != nil {
		h.logger.Error("save trip", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save trip"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("trip", "completed", saved.ID, listID, map[string]any{"total_spent": saved.TotalSpent}))
	writeJSON(w, http.StatusCreated, saved)
}

var errNoDraft = errors.New("trip: no draft pending")

// Discard drops the pending draft without persisting anything; items keep
// their bought state and the trip returns to shopping mode.
func (h *TripHandler) Discard(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}
	list := h.accessibleList(w, r, listID)
	if list == nil {
		return
	}

	var st tripStatus
	h.registry.Do(listID, list.TripStartedAt, func(m *trip.Machine) error {
		m.Discard()
		st = statusOf(m)
		return nil
	})

	h.hub.Broadcast(ws.NewMessage("trip", "discarded", 0, listID, nil))
	writeJSON(w, http.StatusOK, st)
}
