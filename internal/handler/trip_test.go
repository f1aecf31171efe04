package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dmfarrell/trolley/internal/auth"
	"github.com/dmfarrell/trolley/internal/database"
	"github.com/dmfarrell/trolley/internal/store"
	"github.com/dmfarrell/trolley/internal/trip"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type tripHandlerTest struct {
	handler  *TripHandler
	items    *store.ItemStore
	sessions *store.SessionStore
	listID   int64
	ctx      context.Context
}

func setupTripHandlerTest(t *testing.T) *tripHandlerTest {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	u, err := users.Create("alice@example.com", "Alice", "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	lists := store.NewListStore(db)
	l, err := lists.Create("Groceries", u.ID, u.Email)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	items := store.NewItemStore(db)
	sessions := store.NewSessionStore(db)
	h := NewTripHandler(trip.NewRegistry(), lists, items, sessions, store.NewShopStore(db), ws.NewHub(logger), logger)
	return &tripHandlerTest{
		handler:  h,
		items:    items,
		sessions: sessions,
		listID:   l.ID,
		ctx:      auth.WithAuth(context.Background(), auth.AuthContext{UserID: u.ID, Email: u.Email}),
	}
}

func (tt *tripHandlerTest) post(t *testing.T, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/lists/0/trip", strings.NewReader(body))
	req.SetPathValue("list_id", strconv.FormatInt(tt.listID, 10))
	rec := httptest.NewRecorder()
	fn(rec, req.WithContext(tt.ctx))
	return rec
}

func (tt *tripHandlerTest) completeTrip(t *testing.T) {
	t.Helper()
	item, err := tt.items.Create(tt.listID, "Milk", 1, "", 2.5, "Dairy")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	bought := true
	if _, err := tt.items.Update(item.ID, store.ItemPatch{Bought: &bought}); err != nil {
		t.Fatalf("mark bought: %v", err)
	}
	if rec := tt.post(t, tt.handler.Complete, `{}`); rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func (tt *tripHandlerTest) sessionCount(t *testing.T) int {
	t.Helper()
	sessions, err := tt.sessions.ListForLists([]int64{tt.listID})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	return len(sessions)
}

func TestTripSaveUnknownShopKeepsDraft(t *testing.T) {
	tt := setupTripHandlerTest(t)
	tt.completeTrip(t)

	rec := tt.post(t, tt.handler.Save, `{"shop_id":999}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("save with unknown shop: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if n := tt.sessionCount(t); n != 0 {
		t.Errorf("sessions after rejected save = %d, want 0", n)
	}

	// Draft is still pending; a corrected save lands exactly one session.
	rec = tt.post(t, tt.handler.Save, `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry save: status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if n := tt.sessionCount(t); n != 1 {
		t.Errorf("sessions after save = %d, want 1", n)
	}
}

func TestTripSaveTwiceConflicts(t *testing.T) {
	tt := setupTripHandlerTest(t)
	tt.completeTrip(t)

	if rec := tt.post(t, tt.handler.Save, `{}`); rec.Code != http.StatusCreated {
		t.Fatalf("save: status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if rec := tt.post(t, tt.handler.Save, `{}`); rec.Code != http.StatusConflict {
		t.Errorf("second save: status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if n := tt.sessionCount(t); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}
