package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kindergarten/internal/database"
	"kindergarten/internal/models"
	"kindergarten/internal/security"
)

// SessionRepository stores browser sessions. Bearer tokens are sealed before
// they reach the database.
type SessionRepository struct {
	db     database.DBTX
	sealer *security.Sealer
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.DBTX, sealer *security.Sealer) *SessionRepository {
	return &SessionRepository{db: db, sealer: sealer}
}

// Load retrieves a session by id. It returns nil, nil when no row exists.
// A token that cannot be unsealed loads as an unauthenticated session.
func (r *SessionRepository) Load(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, identity, token_sealed, authenticated, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	var s models.Session
	var sealed string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Identity,
		&sealed,
		&s.Authenticated,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	token, err := r.sealer.Open(sealed)
	if err != nil {
		slog.Warn("discarding session with unreadable token", "session_id", id, "error", err)
		s.Authenticated = false
		s.Identity = ""
		token = ""
	}
	s.Token = token
	if s.Token == "" {
		s.Authenticated = false
	}

	return &s, nil
}

// Save inserts or updates a session
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	sealed, err := r.sealer.Seal(s.Token)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.GetDialect().UpsertSessionQuery(),
		s.ID,
		s.Identity,
		sealed,
		s.Authenticated,
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session and reports whether it existed
func (r *SessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return n > 0, nil
}

// List returns all sessions, most recently changed first. Tokens are not unsealed.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	query := `
		SELECT id, identity, authenticated, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Identity, &s.Authenticated, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteIdleBefore removes every session not changed since cutoff
func (r *SessionRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteLoggedOutBefore removes unauthenticated sessions not changed since cutoff
func (r *SessionRepository) DeleteLoggedOutBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE authenticated = ? AND updated_at < ?", false, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune logged out sessions: %w", err)
	}
	return result.RowsAffected()
}
