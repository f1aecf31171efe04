package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dmfarrell/trolley/internal/model"
	"github.com/dmfarrell/trolley/internal/store"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func parseListIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("list_id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// canAccess reports whether a user may read or mutate a list: its owner, or
// anyone whose normalized email is in the collaborator set.
func canAccess(l *model.ShoppingList, userID int64, email string) bool {
	if l == nil {
		return false
	}
	if l.OwnerID == userID {
		return true
	}
	normalized := store.NormalizeEmail(email)
	for _, c := range l.Collaborators {
		if c == normalized {
			return true
		}
	}
	return false
}
