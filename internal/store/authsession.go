package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmfarrell/trolley/internal/model"
)

// AuthSessionStore manages login sessions keyed by opaque bearer tokens.
type AuthSessionStore struct {
	db *sql.DB
}

func NewAuthSessionStore(db *sql.DB) *AuthSessionStore {
	return &AuthSessionStore{db: db}
}

const authSessionTTL = 30 * 24 * time.Hour

const authSessionCols = `id, token, user_id, expires_at, created_at`

func scanAuthSession(scanner interface{ Scan(...any) error }) (*model.AuthSession, error) {
	var as model.AuthSession
	err := scanner.Scan(&as.ID, &as.Token, &as.UserID, &as.ExpiresAt, &as.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &as, nil
}

// Create mints a session for a user with a fresh random token.
func (s *AuthSessionStore) Create(userID int64) (*model.AuthSession, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(authSessionTTL)

	result, err := s.db.Exec(
		`INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert auth session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+authSessionCols+` FROM auth_sessions WHERE id = ?`, id)
	return scanAuthSession(row)
}

// GetByToken returns the live session for a token, or nil when the token is
// unknown or expired.
func (s *AuthSessionStore) GetByToken(token string) (*model.AuthSession, error) {
	row := s.db.QueryRow(
		`SELECT `+authSessionCols+` FROM auth_sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC(),
	)
	as, err := scanAuthSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth session: %w", err)
	}
	return as, nil
}

// Delete revokes one session. Used on logout.
func (s *AuthSessionStore) Delete(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete auth session: %w", err)
	}
	return nil
}

// DeleteForUser revokes every session a user holds.
func (s *AuthSessionStore) DeleteForUser(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired reaps expired sessions and reports how many were removed.
func (s *AuthSessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
