package store

import (
	"testing"
	"time"

	"github.com/dmfarrell/trolley/internal/database"
	"github.com/dmfarrell/trolley/internal/model"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *ListStore, *ItemStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := NewUserStore(db)
	ls := NewListStore(db)
	user, err := us.Create("alice@example.com", "Alice", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	list, err := ls.Create("Weekly", user.ID, user.Email)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	return NewSessionStore(db), ls, NewItemStore(db), list.ID
}

func sampleSession(listID int64) model.ShoppingSession {
	completed := time.Date(2026, 8, 29, 18, 30, 0, 0, time.UTC)
	started := completed.Add(-25 * time.Minute)
	duration := int64(1500)
	return model.ShoppingSession{
		ListID:       listID,
		ListName:     "Weekly",
		CompletedAt:  completed,
		CompletedBy:  "alice@example.com",
		TotalSpent:   12.5,
		StartedAt:    &started,
		DurationSecs: &duration,
		DayOfWeek:    int(completed.Weekday()),
		HourOfDay:    completed.Hour(),
		StoreName:    "Corner Market",
		Items: []model.SessionItem{
			{Name: "Milk", Quantity: 2, Price: 2.5, Category: "Dairy"},
			{Name: "Bread", Quantity: 1, Price: 7.5, Category: "Bakery"},
		},
		MissedItems: []string{"Eggs"},
	}
}

func TestSessionAppendRoundTrip(t *testing.T) {
	ss, _, _, listID := setupSessionTestDB(t)

	saved, err := ss.Append(sampleSession(listID))
	if err != nil {
		t.Fatalf("append session: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if saved.TotalSpent != 12.5 {
		t.Errorf("total = %v, want 12.5", saved.TotalSpent)
	}
	if saved.DurationSecs == nil || *saved.DurationSecs != 1500 {
		t.Errorf("duration = %v, want 1500", saved.DurationSecs)
	}
	if len(saved.Items) != 2 || saved.Items[0].Name != "Milk" {
		t.Errorf("items = %v, want snapshot preserved in order", saved.Items)
	}
	if len(saved.MissedItems) != 1 || saved.MissedItems[0] != "Eggs" {
		t.Errorf("missed = %v, want [Eggs]", saved.MissedItems)
	}
	if saved.StoreName != "Corner Market" {
		t.Errorf("store = %q, want Corner Market", saved.StoreName)
	}
}

func TestSessionSnapshotOutlivesItems(t *testing.T) {
	ss, _, is, listID := setupSessionTestDB(t)

	milk, err := is.Create(listID, "Milk", 2, "l", 2.5, "Dairy")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	saved, err := ss.Append(sampleSession(listID))
	if err != nil {
		t.Fatalf("append session: %v", err)
	}

	// Mutating and deleting live items must not touch the history.
	price := 99.0
	if _, err := is.Update(milk.ID, ItemPatch{Price: &price}); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if err := is.Delete(milk.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	got, err := ss.GetByID(saved.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Items[0].Name != "Milk" || got.Items[0].Price != 2.5 {
		t.Errorf("snapshot item = %+v, want the original values", got.Items[0])
	}
}

func TestSessionListForLists(t *testing.T) {
	ss, ls, _, listID := setupSessionTestDB(t)

	first := sampleSession(listID)
	second := sampleSession(listID)
	second.CompletedAt = first.CompletedAt.Add(48 * time.Hour)
	second.MissedItems = nil

	if _, err := ss.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := ss.Append(second); err != nil {
		t.Fatalf("append: %v", err)
	}

	sessions, err := ss.ListForLists([]int64{listID})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if !sessions[0].CompletedAt.After(sessions[1].CompletedAt) {
		t.Error("sessions not in newest-first order")
	}
	if sessions[0].MissedItems == nil {
		t.Error("missed items should decode to an empty slice, not nil")
	}

	// History survives the list's soft delete.
	if err := ls.SoftDelete(listID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	sessions, err = ss.ListForLists([]int64{listID})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions after list delete, want 2", len(sessions))
	}
}

func TestSessionListForListsEmpty(t *testing.T) {
	ss, _, _, _ := setupSessionTestDB(t)

	sessions, err := ss.ListForLists(nil)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if sessions != nil {
		t.Errorf("got %v, want nil for no lists", sessions)
	}
}
