package store

import (
	"database/sql"
	"fmt"

	"github.com/dmfarrell/trolley/internal/model"
)

// SessionStore persists completed shopping sessions. Sessions are historical
// facts: this store only ever inserts and reads them.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionCols = `id, list_id, list_name, completed_at, completed_by, total_spent, started_at, duration_secs, day_of_week, hour_of_day, store_name, created_at`

func scanSession(scanner interface{ Scan(...any) error }) (*model.ShoppingSession, error) {
	var s model.ShoppingSession
	var startedAt sql.NullTime
	var durationSecs sql.NullInt64
	var storeName sql.NullString

	err := scanner.Scan(
		&s.ID, &s.ListID, &s.ListName, &s.CompletedAt, &s.CompletedBy,
		&s.TotalSpent, &startedAt, &durationSecs, &s.DayOfWeek, &s.HourOfDay,
		&storeName, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		s.StartedAt = &startedAt.Time
	}
	if durationSecs.Valid {
		s.DurationSecs = &durationSecs.Int64
	}
	if storeName.Valid {
		s.StoreName = storeName.String
	}
	return &s, nil
}

// Append inserts a finalized session with its item snapshots and missed-item
// names in one transaction.
func (s *SessionStore) Append(session model.ShoppingSession) (*model.ShoppingSession, error) {
	var id int64
	err := inTx(s.db, func(tx *sql.Tx) error {
		var startedAt, storeName any
		if session.StartedAt != nil {
			startedAt = session.StartedAt.UTC()
		}
		if session.StoreName != "" {
			storeName = session.StoreName
		}
		var durationSecs any
		if session.DurationSecs != nil {
			durationSecs = *session.DurationSecs
		}

		result, err := tx.Exec(
			`INSERT INTO shopping_sessions (list_id, list_name, completed_at, completed_by, total_spent, started_at, duration_secs, day_of_week, hour_of_day, store_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ListID, session.ListName, session.CompletedAt.UTC(), session.CompletedBy,
			session.TotalSpent, startedAt, durationSecs, session.DayOfWeek, session.HourOfDay, storeName,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		for _, item := range session.Items {
			if _, err := tx.Exec(
				`INSERT INTO session_items (session_id, name, quantity, price, category) VALUES (?, ?, ?, ?, ?)`,
				id, item.Name, item.Quantity, item.Price, item.Category,
			); err != nil {
				return fmt.Errorf("insert session item: %w", err)
			}
		}
		for _, name := range session.MissedItems {
			if _, err := tx.Exec(
				`INSERT INTO session_missed_items (session_id, name) VALUES (?, ?)`,
				id, name,
			); err != nil {
				return fmt.Errorf("insert missed item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *SessionStore) GetByID(id int64) (*model.ShoppingSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM shopping_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := s.loadChildren(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionStore) loadChildren(session *model.ShoppingSession) error {
	rows, err := s.db.Query(
		`SELECT name, quantity, price, category FROM session_items WHERE session_id = ? ORDER BY id ASC`,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("load session items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item model.SessionItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Price, &item.Category); err != nil {
			return fmt.Errorf("scan session item: %w", err)
		}
		session.Items = append(session.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	session.MissedItems = []string{}
	missed, err := s.db.Query(
		`SELECT name FROM session_missed_items WHERE session_id = ? ORDER BY id ASC`,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("load missed items: %w", err)
	}
	defer missed.Close()
	for missed.Next() {
		var name string
		if err := missed.Scan(&name); err != nil {
			return fmt.Errorf("scan missed item: %w", err)
		}
		session.MissedItems = append(session.MissedItems, name)
	}
	return missed.Err()
}

// ListForLists returns all sessions belonging to the given lists, newest
// first. This is the read side for history and insights; soft-deleted lists
// are included deliberately, since their sessions remain valid history.
func (s *SessionStore) ListForLists(listIDs []int64) ([]model.ShoppingSession, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + sessionCols + ` FROM shopping_sessions WHERE list_id IN (`
	args := make([]any, 0, len(listIDs))
	for i, id := range listIDs {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, id)
	}
	query += `) ORDER BY completed_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.ShoppingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range sessions {
		if err := s.loadChildren(&sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}
