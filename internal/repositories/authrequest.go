package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
)

// AuthRequestTTL is how long a stored state → verifier pair stays usable.
const AuthRequestTTL = 10 * time.Minute

// AuthRequestRepository persists [models.AuthRequest] rows, the short-lived
// mapping from a CSRF state token to its PKCE code verifier.
type AuthRequestRepository struct {
	db *sql.DB
}

// NewAuthRequestRepository creates a new [AuthRequestRepository] with the given database connection
func NewAuthRequestRepository(db *sql.DB) *AuthRequestRepository {
	return &AuthRequestRepository{db: db}
}

// Create stores a state → verifier pair with a 10-minute expiry.
//
// State values are unique; a duplicate insert fails rather than silently
// overwriting a pending handshake.
func (r *AuthRequestRepository) Create(state, codeVerifier string) (*models.AuthRequest, error) {
	if state == "" || codeVerifier == "" {
		return nil, fmt.Errorf("state and code verifier are required")
	}

	now := time.Now()
	req := &models.AuthRequest{
		ID:           shared.GenerateID(),
		State:        state,
		CodeVerifier: codeVerifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(AuthRequestTTL),
	}

	query := `
		INSERT INTO auth_requests (id, state, code_verifier, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, req.ID, req.State, req.CodeVerifier, req.CreatedAt, req.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to insert auth request: %w", err)
	}

	return req, nil
}

// Consume atomically looks up and removes the verifier for the given state.
//
// Missing, already-consumed, and expired states are indistinguishable to the
// caller: all yield [shared.ErrStateMismatch]. This single-use removal is the
// CSRF defense; it must happen before any token exchange.
func (r *AuthRequestRepository) Consume(state string) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id       string
		verifier string
	)
	err = tx.QueryRow(
		"SELECT id, code_verifier FROM auth_requests WHERE state = ? AND expires_at > ?",
		state, time.Now(),
	).Scan(&id, &verifier)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: no pending auth request for state", shared.ErrStateMismatch)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query auth request: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM auth_requests WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("failed to delete auth request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit auth request consumption: %w", err)
	}

	return verifier, nil
}

// DeleteExpired removes auth requests past their expiry.
func (r *AuthRequestRepository) DeleteExpired(now time.Time) error {
	if _, err := r.db.Exec("DELETE FROM auth_requests WHERE expires_at <= ?", now); err != nil {
		return fmt.Errorf("failed to delete expired auth requests: %w", err)
	}
	return nil
}
