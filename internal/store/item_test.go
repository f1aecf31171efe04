package store

import (
	"testing"

	"github.com/dmfarrell/trolley/internal/database"
	"github.com/dmfarrell/trolley/internal/model"
)

func setupItemTestDB(t *testing.T) (*ItemStore, *ListStore, int64) {
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
	return NewItemStore(db), ls, list.ID
}

func TestItemCreateDefaults(t *testing.T) {
	is, _, listID := setupItemTestDB(t)

	item, err := is.Create(listID, "Milk", 0, "", 0, "")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", item.Quantity)
	}
	if item.Category != model.UncategorizedLabel {
		t.Errorf("category = %q, want %q", item.Category, model.UncategorizedLabel)
	}
	if item.Bought {
		t.Error("new item should not be bought")
	}
	if item.CheckedAt != nil {
		t.Error("new item should have no check timestamp")
	}
}

func TestItemSortOrderAppends(t *testing.T) {
	is, _, listID := setupItemTestDB(t)

	for i, name := range []string{"Milk", "Bread", "Eggs"} {
		item, err := is.Create(listID, name, 1, "", 0, "")
		if err != nil {
			t.Fatalf("create item: %v", err)
		}
		if item.SortOrder != i {
			t.Errorf("%s sort_order = %d, want %d", name, item.SortOrder, i)
		}
	}

	items, err := is.ListByList(listID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	want := []string{"Milk", "Bread", "Eggs"}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Name, name)
		}
	}
}

func TestItemBoughtStampsCheckedAt(t *testing.T) {
	is, _, listID := setupItemTestDB(t)

	item, _ := is.Create(listID, "Milk", 1, "", 0, "Dairy")

	bought := true
	updated, err := is.Update(item.ID, ItemPatch{Bought: &bought})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if !updated.Bought {
		t.Fatal("expected bought")
	}
	if updated.CheckedAt == nil {
		t.Fatal("bought item must carry a check timestamp")
	}

	unbought := false
	updated, err = is.Update(item.ID, ItemPatch{Bought: &unbought})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Bought {
		t.Fatal("expected unbought")
	}
	if updated.CheckedAt != nil {
		t.Fatal("unbought item must not carry a check timestamp")
	}
}

func TestItemUpdatePartial(t *testing.T) {
	is, _, listID := setupItemTestDB(t)

	item, _ := is.Create(listID, "Milk", 1, "l", 2.5, "Dairy")

	qty := 3
	updated, err := is.Update(item.ID, ItemPatch{Quantity: &qty})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", updated.Quantity)
	}
	if updated.Name != "Milk" || updated.Unit != "l" || updated.Price != 2.5 {
		t.Error("untouched fields changed")
	}
}

func TestItemUpdateMissing(t *testing.T) {
	is, _, _ := setupItemTestDB(t)

	qty := 3
	updated, err := is.Update(999, ItemPatch{Quantity: &qty})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated != nil {
		t.Error("expected nil for missing item")
	}
}

func TestItemReorder(t *testing.T) {
	is, _, listID := setupItemTestDB(t)

	milk, _ := is.Create(listID, "Milk", 1, "", 0, "")
	bread, _ := is.Create(listID, "Bread", 1, "", 0, "")
	eggs, _ := is.Create(listID, "Eggs", 1, "", 0, "")

	if err := is.Reorder(listID, []int64{eggs.ID, milk.ID, bread.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	items, _ := is.ListByList(listID)
	want := []string{"Eggs", "Milk", "Bread"}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Name, name)
		}
	}
}

func TestItemReorderRejectsForeignItem(t *testing.T) {
	is, ls, listID := setupItemTestDB(t)

	milk, _ := is.Create(listID, "Milk", 1, "", 0, "")
	bread, _ := is.Create(listID, "Bread", 1, "", 0, "")

	other, err := ls.Create("Other", 1, "alice@example.com")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	foreign, _ := is.Create(other.ID, "Soap", 1, "", 0, "")

	err = is.Reorder(listID, []int64{foreign.ID, bread.ID, milk.ID})
	if err == nil {
		t.Fatal("expected error reordering an item from another list")
	}

	// The whole reorder rolled back.
	items, _ := is.ListByList(listID)
	if items[0].Name != "Milk" || items[1].Name != "Bread" {
		t.Errorf("order changed after failed reorder: %q, %q", items[0].Name, items[1].Name)
	}
}

func TestItemResetBought(t *testing.T) {
	is, ls, listID := setupItemTestDB(t)

	milk, _ := is.Create(listID, "Milk", 1, "", 0, "Dairy")
	is.Create(listID, "Bread", 1, "", 0, "Bakery")

	bought := true
	if _, err := is.Update(milk.ID, ItemPatch{Bought: &bought}); err != nil {
		t.Fatalf("update item: %v", err)
	}

	cleared, err := is.ResetBought(listID, []string{"Dairy", "Bakery"}, "Alice@Example.com")
	if err != nil {
		t.Fatalf("reset bought: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}

	items, _ := is.ListByList(listID)
	for _, item := range items {
		if item.Bought || item.CheckedAt != nil {
			t.Errorf("%s still marked bought after reset", item.Name)
		}
	}

	list, _ := ls.GetByID(listID)
	if len(list.CategoryOrder) != 2 || list.CategoryOrder[0] != "Dairy" {
		t.Errorf("category order = %v, want learned order persisted", list.CategoryOrder)
	}
	if list.LastShopperEmail != "alice@example.com" {
		t.Errorf("last shopper = %q, want normalized email", list.LastShopperEmail)
	}
}

func TestItemResetBoughtKeepsOrderWhenNilLearned(t *testing.T) {
	is, ls, listID := setupItemTestDB(t)

	is.Create(listID, "Milk", 1, "", 0, "Dairy")
	if _, err := is.ResetBought(listID, []string{"Dairy"}, "alice@example.com"); err != nil {
		t.Fatalf("reset bought: %v", err)
	}

	// Bulk-marked trips learn nothing; the earlier order stays.
	if _, err := is.ResetBought(listID, nil, "bob@example.com"); err != nil {
		t.Fatalf("reset bought: %v", err)
	}

	list, _ := ls.GetByID(listID)
	if len(list.CategoryOrder) != 1 || list.CategoryOrder[0] != "Dairy" {
		t.Errorf("category order = %v, want earlier learned order kept", list.CategoryOrder)
	}
	if list.LastShopperEmail != "bob@example.com" {
		t.Errorf("last shopper = %q, want updated", list.LastShopperEmail)
	}
}

func TestItemApplyCatalogChange(t *testing.T) {
	is, _, listID := setupItemTestDB(t)

	is.Create(listID, "Milk", 1, "", 2.0, "Dairy")
	is.Create(listID, " MILK ", 1, "", 2.0, "Dairy")
	is.Create(listID, "Bread", 1, "", 1.0, "Bakery")

	ids, err := is.ListLiveByName("milk")
	if err != nil {
		t.Fatalf("items by name: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("matched %d items, want 2", len(ids))
	}

	price := 2.5
	report := is.ApplyCatalogChange(ids, &price, nil)
	if !report.Ok() {
		t.Fatalf("batch failed: %v", report.Err)
	}
	if report.Applied != 2 {
		t.Errorf("applied = %d, want 2", report.Applied)
	}

	items, _ := is.ListByList(listID)
	for _, item := range items {
		want := 2.5
		if item.Name == "Bread" {
			want = 1.0
		}
		if item.Price != want {
			t.Errorf("%s price = %v, want %v", item.Name, item.Price, want)
		}
	}
}
