package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmfarrell/trolley/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

// NormalizeEmail is the identity comparison form: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func encodeOrder(order []string) any {
	if len(order) == 0 {
		return nil
	}
	b, _ := json.Marshal(order)
	return string(b)
}

func decodeOrder(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var order []string
	if err := json.Unmarshal([]byte(raw.String), &order); err != nil {
		return nil
	}
	return order
}

const listCols = `id, name, owner_id, shared, category_order, last_shopper_email, trip_started_at, deleted_at, created_at, updated_at`

func scanShoppingList(scanner interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	var shared int
	var order, lastShopper sql.NullString
	var tripStarted, deleted sql.NullTime

	err := scanner.Scan(
		&l.ID, &l.Name, &l.OwnerID, &shared, &order,
		&lastShopper, &tripStarted, &deleted, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Shared = shared != 0
	l.CategoryOrder = decodeOrder(order)
	if lastShopper.Valid {
		l.LastShopperEmail = lastShopper.String
	}
	if tripStarted.Valid {
		l.TripStartedAt = &tripStarted.Time
	}
	if deleted.Valid {
		l.DeletedAt = &deleted.Time
	}
	return &l, nil
}

// Create inserts a list and registers the owner as a collaborator in the
// same transaction: the owner is always a member of the collaborator set.
func (s *ListStore) Create(name string, ownerID int64, ownerEmail string) (*model.ShoppingList, error) {
	var id int64
	err := inTx(s.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			`INSERT INTO shopping_lists (name, owner_id) VALUES (?, ?)`,
			name, ownerID,
		)
		if err != nil {
			return fmt.Errorf("insert list: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO list_collaborators (list_id, email) VALUES (?, ?)`,
			id, NormalizeEmail(ownerEmail),
		)
		if err != nil {
			return fmt.Errorf("insert owner collaborator: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// GetByID returns a live list, or nil if it does not exist or is soft-deleted.
func (s *ListStore) GetByID(id int64) (*model.ShoppingList, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM shopping_lists WHERE id = ? AND deleted_at IS NULL`, id)
	l, err := scanShoppingList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	if err := s.loadCollaborators(l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListStore) loadCollaborators(l *model.ShoppingList) error {
	rows, err := s.db.Query(`SELECT email FROM list_collaborators WHERE list_id = ? ORDER BY email ASC`, l.ID)
	if err != nil {
		return fmt.Errorf("load collaborators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return fmt.Errorf("scan collaborator: %w", err)
		}
		l.Collaborators = append(l.Collaborators, email)
	}
	return rows.Err()
}

// VisibleTo returns the live lists a user can see: owned, or with the user's
// normalized email in the collaborator set. Most recently modified first.
func (s *ListStore) VisibleTo(userID int64, email string) ([]model.ShoppingList, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT l.`+strings.ReplaceAll(listCols, ", ", ", l.")+`
		 FROM shopping_lists l
		 LEFT JOIN list_collaborators c ON c.list_id = l.id
		 WHERE l.deleted_at IS NULL AND (l.owner_id = ? OR c.email = ?)
		 ORDER BY l.updated_at DESC, l.id DESC`,
		userID, NormalizeEmail(email),
	)
	if err != nil {
		return nil, fmt.Errorf("visible lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	for rows.Next() {
		l, err := scanShoppingList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range lists {
		if err := s.loadCollaborators(&lists[i]); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

// AccessibleListIDs returns the ids of every list the user owns or
// collaborates on, soft-deleted ones included: their sessions remain valid
// history even after the list itself is hidden.
func (s *ListStore) AccessibleListIDs(userID int64, email string) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT l.id
		 FROM shopping_lists l
		 LEFT JOIN list_collaborators c ON c.list_id = l.id
		 WHERE l.owner_id = ? OR c.email = ?`,
		userID, NormalizeEmail(email),
	)
	if err != nil {
		return nil, fmt.Errorf("accessible list ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan list id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResolveActive picks the active list: the remembered one if still visible,
// otherwise the most recently modified visible list, otherwise none.
func (s *ListStore) ResolveActive(remembered int64, userID int64, email string) (*model.ShoppingList, error) {
	lists, err := s.VisibleTo(userID, email)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, nil
	}
	for i := range lists {
		if lists[i].ID == remembered {
			return &lists[i], nil
		}
	}
	return &lists[0], nil
}

func (s *ListStore) Rename(id int64, name string) (*model.ShoppingList, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_lists SET name = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename list: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) SetShared(id int64, shared bool) (*model.ShoppingList, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_lists SET shared = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		boolToInt(shared), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set shared: %w", err)
	}
	return s.GetByID(id)
}

// AddCollaborator adds a normalized email to the list's collaborator set.
// Adding an existing collaborator is a no-op.
func (s *ListStore) AddCollaborator(id int64, email string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO list_collaborators (list_id, email) VALUES (?, ?)`,
		id, NormalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}

func (s *ListStore) RemoveCollaborator(id int64, email string) error {
	_, err := s.db.Exec(
		`DELETE FROM list_collaborators WHERE list_id = ? AND email = ?`,
		id, NormalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	return nil
}

// SoftDelete hides a list from all active queries. The row and its history
// are retained.
func (s *ListStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(
		`UPDATE shopping_lists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft delete list: %w", err)
	}
	return nil
}

// SoftDeleteAll soft-deletes many lists in chunked transactions and reports
// the per-chunk outcome.
func (s *ListStore) SoftDeleteAll(ids []int64) BatchReport {
	now := time.Now().UTC()
	return applyChunked(s.db, ids, func(tx *sql.Tx, chunk []int64) error {
		for _, id := range chunk {
			if _, err := tx.Exec(
				`UPDATE shopping_lists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
				now, id,
			); err != nil {
				return fmt.Errorf("soft delete list %d: %w", id, err)
			}
		}
		return nil
	})
}

// SetTripStartedAt mirrors the trip machine's Active phase onto the list so
// an in-progress trip survives a restart. Pass nil to clear.
func (s *ListStore) SetTripStartedAt(id int64, startedAt *time.Time) error {
	var v any
	if startedAt != nil {
		v = startedAt.UTC()
	}
	_, err := s.db.Exec(
		`UPDATE shopping_lists SET trip_started_at = ? WHERE id = ? AND deleted_at IS NULL`,
		v, id,
	)
	if err != nil {
		return fmt.Errorf("set trip started: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
