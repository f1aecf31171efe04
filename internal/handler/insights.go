package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/insights"
	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
)

// InsightsHandler serves the history and analytics read side. Sessions from
// soft-deleted lists are included; completed trips are history regardless of
// what later happened to the list.
type InsightsHandler struct {
	lists    *store.ListStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewInsightsHandler(lists *store.ListStore, sessions *store.SessionStore, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{lists: lists, sessions: sessions, logger: logger}
}

func (h *InsightsHandler) accessibleSessions(w http.ResponseWriter, r *http.Request) ([]model.ShoppingSession, bool) {
	ids, err := h.lists.AccessibleListIDs(auth.UserID(r.Context()), auth.Email(r.Context()))
	if err != nil {
		h.logger.Error("accessible lists", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return nil, false
	}
	sessions, err := h.sessions.ListForLists(ids)
	if err != nil {
		h.logger.Error("load sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return nil, false
	}
	return sessions, true
}

// History returns the user's shopping sessions, newest first.
func (h *InsightsHandler) History(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.accessibleSessions(w, r)
	if !ok {
		return
	}
	if sessions == nil {
		sessions = []model.ShoppingSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Stats returns aggregate spending and habit statistics.
func (h *InsightsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.accessibleSessions(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, insights.Compute(sessions))
}

// Recurring returns items bought on a detectable cadence, most overdue
// first.
func (h *InsightsHandler) Recurring(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.accessibleSessions(w, r)
	if !ok {
		return
	}
	recurring := insights.Recurring(sessions, time.Now().UTC())
	if recurring == nil {
		recurring = []insights.RecurringItem{}
	}
	writeJSON(w, http.StatusOK, recurring)
}

// Overdue returns the recurring items past their predicted repurchase date.
func (h *InsightsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	sessions, ok := h.accessibleSessions(w, r)
	if !ok {
		return
	}
	overdue := insights.Overdue(insights.Recurring(sessions, time.Now().UTC()))
	if overdue == nil {
		overdue = []insights.RecurringItem{}
	}
	writeJSON(w, http.StatusOK, overdue)
}
