package trip

import (
	"reflect"
	"testing"
	"time"

	"github.com/dmfarrell/trolley/internal/model"
)

func tp(t time.Time) *time.Time { return &t }

func TestMachineTransitions(t *testing.T) {
	m := NewMachine()
	if m.Phase() != PhaseIdle {
		t.Fatalf("new machine phase = %q, want idle", m.Phase())
	}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m.Start(start)
	if m.Phase() != PhaseActive {
		t.Fatalf("phase after start = %q, want active", m.Phase())
	}

	// Starting again restamps the clock.
	restart := start.Add(5 * time.Minute)
	m.Start(restart)
	if got, ok := m.StartedAt(); !ok || !got.Equal(restart) {
		t.Errorf("started at = %v (%v), want %v", got, ok, restart)
	}

	now := restart.Add(30 * time.Minute)
	draft, err := m.Complete(1, "Groceries", "a@b.com", "", nil, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if m.Phase() != PhaseCompleted {
		t.Errorf("phase after complete = %q, want completed", m.Phase())
	}
	if draft.DurationSecs == nil || *draft.DurationSecs != 1800 {
		t.Errorf("duration = %v, want 1800", draft.DurationSecs)
	}

	// A second completion is rejected while the draft is pending.
	if _, err := m.Complete(1, "Groceries", "a@b.com", "", nil, now); err != ErrDraftPending {
		t.Errorf("second complete err = %v, want ErrDraftPending", err)
	}

	// Discard returns to Active because the trip was started.
	m.Discard()
	if m.Phase() != PhaseActive {
		t.Errorf("phase after discard = %q, want active", m.Phase())
	}

	m.Reset()
	if m.Phase() != PhaseIdle {
		t.Errorf("phase after reset = %q, want idle", m.Phase())
	}
	if _, ok := m.StartedAt(); ok {
		t.Error("started at should be cleared after reset")
	}
}

func TestCompleteWithoutStart(t *testing.T) {
	m := NewMachine()
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	draft, err := m.Complete(1, "Groceries", "a@b.com", "", nil, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if draft.StartedAt != nil || draft.DurationSecs != nil {
		t.Errorf("unstarted trip should have no start/duration, got %v/%v", draft.StartedAt, draft.DurationSecs)
	}
}

func TestCompleteFullTrip(t *testing.T) {
	// Milk and Bread both checked: nothing missed, total = 2*20 + 1*30.
	base := time.Date(2025, 3, 5, 18, 30, 0, 0, time.UTC) // a Wednesday
	items := []model.ShoppingItem{
		{Name: "Milk", Quantity: 2, Price: 20, Category: "Dairy", Bought: true, CheckedAt: tp(base.Add(1 * time.Minute))},
		{Name: "Bread", Quantity: 1, Price: 30, Category: "Bakery", Bought: true, CheckedAt: tp(base.Add(2 * time.Minute))},
	}

	m := NewMachine()
	draft, err := m.Complete(7, "Groceries", "a@b.com", "", items, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(draft.MissedItems) != 0 {
		t.Errorf("missed = %v, want none", draft.MissedItems)
	}
	if draft.TotalSpent != 70 {
		t.Errorf("total = %v, want 70", draft.TotalSpent)
	}
	if !reflect.DeepEqual(draft.LearnedOrder, []string{"Dairy", "Bakery"}) {
		t.Errorf("learned order = %v, want [Dairy Bakery]", draft.LearnedOrder)
	}
	if draft.DayOfWeek != 3 {
		t.Errorf("day of week = %d, want 3 (Wednesday)", draft.DayOfWeek)
	}
	if draft.HourOfDay != 18 {
		t.Errorf("hour = %d, want 18", draft.HourOfDay)
	}
}

func TestCompletePartialTrip(t *testing.T) {
	// Only Milk checked: Bread is missed and excluded from the snapshot.
	base := time.Date(2025, 3, 5, 18, 30, 0, 0, time.UTC)
	items := []model.ShoppingItem{
		{Name: "Milk", Quantity: 2, Price: 20, Category: "Dairy", Bought: true, CheckedAt: tp(base)},
		{Name: "Bread", Quantity: 1, Price: 30, Category: "Bakery"},
	}

	m := NewMachine()
	draft, err := m.Complete(7, "Groceries", "a@b.com", "", items, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if !reflect.DeepEqual(draft.MissedItems, []string{"Bread"}) {
		t.Errorf("missed = %v, want [Bread]", draft.MissedItems)
	}
	if draft.TotalSpent != 40 {
		t.Errorf("total = %v, want 40", draft.TotalSpent)
	}
	if len(draft.Items) != 1 || draft.Items[0].Name != "Milk" {
		t.Errorf("snapshot = %v, want only Milk", draft.Items)
	}
}

func TestLearnOrderFirstSeen(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	items := []model.ShoppingItem{
		{Name: "A", Category: "X", Bought: true, CheckedAt: tp(base.Add(1 * time.Minute))},
		{Name: "B", Category: "Y", Bought: true, CheckedAt: tp(base.Add(2 * time.Minute))},
		{Name: "C", Category: "X", Bought: true, CheckedAt: tp(base.Add(3 * time.Minute))},
		{Name: "D", Category: "Z", Bought: true, CheckedAt: tp(base.Add(4 * time.Minute))},
	}

	got := LearnOrder(items)
	if !reflect.DeepEqual(got, []string{"X", "Y", "Z"}) {
		t.Errorf("learned order = %v, want [X Y Z]", got)
	}
}

func TestLearnOrderIgnoresInputOrder(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	// Input slice is in reverse check order; timestamps decide.
	items := []model.ShoppingItem{
		{Name: "Late", Category: "Z", Bought: true, CheckedAt: tp(base.Add(time.Hour))},
		{Name: "Early", Category: "X", Bought: true, CheckedAt: tp(base)},
	}
	got := LearnOrder(items)
	if !reflect.DeepEqual(got, []string{"X", "Z"}) {
		t.Errorf("learned order = %v, want [X Z]", got)
	}
}

func TestLearnOrderBulkMarked(t *testing.T) {
	// Bought items without check timestamps teach nothing.
	items := []model.ShoppingItem{
		{Name: "A", Category: "X", Bought: true},
		{Name: "B", Category: "Y", Bought: true},
	}
	if got := LearnOrder(items); got != nil {
		t.Errorf("learned order = %v, want nil", got)
	}
}

func TestOrderCategories(t *testing.T) {
	defaults := []string{"Produce", "Dairy", "Bakery", "Other"}
	present := []string{"Bakery", "Dairy", "Exotic", "Produce"}
	learned := []string{"Dairy", "Frozen", "Produce"}

	got := OrderCategories(present, learned, defaults)
	want := []string{"Dairy", "Produce", "Bakery", "Exotic"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("OrderCategories = %v, want %v", got, want)
	}
}

func TestOrderCategoriesNoLearned(t *testing.T) {
	defaults := []string{"Produce", "Dairy", "Bakery"}
	got := OrderCategories([]string{"Bakery", "Produce"}, nil, defaults)
	want := []string{"Produce", "Bakery"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("OrderCategories = %v, want %v", got, want)
	}
}

func TestRegistryResume(t *testing.T) {
	r := NewRegistry()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	m := r.For(42, &start)
	if m.Phase() != PhaseActive {
		t.Fatalf("resumed phase = %q, want active", m.Phase())
	}
	if got, _ := m.StartedAt(); !got.Equal(start) {
		t.Errorf("resumed start = %v, want %v", got, start)
	}

	// Same machine on subsequent lookups; persisted start ignored once cached.
	if r.For(42, nil) != m {
		t.Error("registry returned a different machine for the same list")
	}

	r.Forget(42)
	if r.For(42, nil).Phase() != PhaseIdle {
		t.Error("machine after forget should be idle")
	}
}
