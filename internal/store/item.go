package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dmfarrell/trolley/internal/model"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemCols = `id, list_id, name, quantity, unit, price, category, bought, checked_at, sort_order, created_at`

func scanItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	var bought int
	var checkedAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
		&item.Price, &item.Category, &bought, &checkedAt, &item.SortOrder,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Bought = bought != 0
	if checkedAt.Valid {
		item.CheckedAt = &checkedAt.Time
	}
	return &item, nil
}

func (s *ItemStore) GetByID(id int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM shopping_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Create inserts an item at the end of the list: sort order is one past the
// current maximum (0 for an empty list).
func (s *ItemStore) Create(listID int64, name string, quantity int, unit string, price float64, category string) (*model.ShoppingItem, error) {
	if quantity < 1 {
		quantity = 1
	}
	if category == "" {
		category = model.UncategorizedLabel
	}

	var id int64
	err := inTx(s.db, func(tx *sql.Tx) error {
		var maxSort sql.NullInt64
		if err := tx.QueryRow(
			`SELECT MAX(sort_order) FROM shopping_items WHERE list_id = ?`, listID,
		).Scan(&maxSort); err != nil {
			return fmt.Errorf("max sort order: %w", err)
		}
		sortOrder := int64(0)
		if maxSort.Valid {
			sortOrder = maxSort.Int64 + 1
		}

		result, err := tx.Exec(
			`INSERT INTO shopping_items (list_id, name, quantity, unit, price, category, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			listID, name, quantity, unit, price, category, sortOrder,
		)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// ListByList returns a list's items in display order: sort order ascending,
// ties broken by creation time descending.
func (s *ItemStore) ListByList(listID int64) ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM shopping_items WHERE list_id = ? ORDER BY sort_order ASC, created_at DESC, id DESC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ItemPatch is a partial item update; nil fields are left untouched.
type ItemPatch struct {
	Name     *string
	Quantity *int
	Unit     *string
	Price    *float64
	Category *string
	Bought   *bool
}

// Update applies a field patch. A bought transition to true stamps the check
// timestamp; a transition to false clears it. Writes are last-write-wins per
// column; there is no version check.
func (s *ItemStore) Update(id int64, patch ItemPatch) (*model.ShoppingItem, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Quantity != nil && *patch.Quantity > 0 {
		add("quantity", *patch.Quantity)
	}
	if patch.Unit != nil {
		add("unit", *patch.Unit)
	}
	if patch.Price != nil && *patch.Price >= 0 {
		add("price", *patch.Price)
	}
	if patch.Category != nil && *patch.Category != "" {
		add("category", *patch.Category)
	}
	if patch.Bought != nil && *patch.Bought != existing.Bought {
		add("bought", boolToInt(*patch.Bought))
		if *patch.Bought {
			add("checked_at", time.Now().UTC())
		} else {
			add("checked_at", nil)
		}
	}

	if len(set) == 0 {
		return existing, nil
	}

	args = append(args, id)
	query := "UPDATE shopping_items SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = ?"

	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Reorder assigns each item a sort order equal to its position in ids, in a
// single transaction: partial application is not acceptable.
func (s *ItemStore) Reorder(listID int64, ids []int64) error {
	return inTx(s.db, func(tx *sql.Tx) error {
		for pos, id := range ids {
			result, err := tx.Exec(
				`UPDATE shopping_items SET sort_order = ? WHERE id = ? AND list_id = ?`,
				pos, id, listID,
			)
			if err != nil {
				return fmt.Errorf("reorder item %d: %w", id, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("reorder: item %d not in list %d", id, listID)
			}
		}
		return nil
	})
}

// ResetBought clears the bought flag and check timestamp on every bought
// item and, in the same transaction, persists the learned category order and
// last shopper onto the list. A nil learnedOrder leaves the stored order
// untouched.
func (s *ItemStore) ResetBought(listID int64, learnedOrder []string, shopperEmail string) (int64, error) {
	var cleared int64
	err := inTx(s.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			`UPDATE shopping_items SET bought = 0, checked_at = NULL WHERE list_id = ? AND bought = 1`,
			listID,
		)
		if err != nil {
			return fmt.Errorf("reset bought: %w", err)
		}
		cleared, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		now := time.Now().UTC()
		if learnedOrder != nil {
			_, err = tx.Exec(
				`UPDATE shopping_lists SET category_order = ?, last_shopper_email = ?, updated_at = ? WHERE id = ?`,
				encodeOrder(learnedOrder), NormalizeEmail(shopperEmail), now, listID,
			)
		} else {
			_, err = tx.Exec(
				`UPDATE shopping_lists SET last_shopper_email = ?, updated_at = ? WHERE id = ?`,
				NormalizeEmail(shopperEmail), now, listID,
			)
		}
		if err != nil {
			return fmt.Errorf("update list after reset: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// ListLiveByName returns the ids of live items across all lists whose name
// normalizes to the given catalog id. Used by the catalog fan-out. Handlers
// write item names in canonical display form, so a case fold is enough to
// match the id.
func (s *ItemStore) ListLiveByName(normalizedName string) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT i.id FROM shopping_items i
		 JOIN shopping_lists l ON l.id = i.list_id
		 WHERE l.deleted_at IS NULL AND LOWER(TRIM(i.name)) = ?`,
		normalizedName,
	)
	if err != nil {
		return nil, fmt.Errorf("items by name: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyCatalogChange pushes a catalog price/category change onto live items
// by id, chunked. Best-effort: a failed chunk does not roll back earlier
// ones.
func (s *ItemStore) ApplyCatalogChange(ids []int64, price *float64, category *string) BatchReport {
	return applyChunked(s.db, ids, func(tx *sql.Tx, chunk []int64) error {
		for _, id := range chunk {
			if price != nil {
				if _, err := tx.Exec(`UPDATE shopping_items SET price = ? WHERE id = ?`, *price, id); err != nil {
					return fmt.Errorf("propagate price to item %d: %w", id, err)
				}
			}
			if category != nil {
				if _, err := tx.Exec(`UPDATE shopping_items SET category = ? WHERE id = ?`, *category, id); err != nil {
					return fmt.Errorf("propagate category to item %d: %w", id, err)
				}
			}
		}
		return nil
	})
}
