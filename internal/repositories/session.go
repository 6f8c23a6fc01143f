package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
)

// SessionRepository persists [models.Session] rows.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create opens a new session for the identity with the given TTL and returns
// it. The SessionID is the opaque value placed in the sid cookie.
func (r *SessionRepository) Create(identityID string, ttl time.Duration) (*models.Session, error) {
	if identityID == "" {
		return nil, fmt.Errorf("identity id is required")
	}

	now := time.Now()
	session := &models.Session{
		ID:         shared.GenerateID(),
		SessionID:  shared.GenerateID(),
		IdentityID: identityID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	query := `
		INSERT INTO sessions (id, session_id, identity_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, session.ID, session.SessionID, session.IdentityID,
		session.CreatedAt, session.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return session, nil
}

// Get retrieves an unexpired session by its cookie value.
func (r *SessionRepository) Get(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, session_id, identity_id, created_at, expires_at
		FROM sessions
		WHERE session_id = ? AND expires_at > ?
	`

	var session models.Session
	err := r.db.QueryRow(query, sessionID, time.Now()).Scan(
		&session.ID, &session.SessionID, &session.IdentityID,
		&session.CreatedAt, &session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &session, nil
}

// Delete invalidates a session by its cookie value. Used on logout.
func (r *SessionRepository) Delete(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (r *SessionRepository) DeleteExpired(now time.Time) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
