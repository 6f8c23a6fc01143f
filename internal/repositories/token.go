package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
)

// TokenRepository persists [models.TokenSet] rows, one active set per identity.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Store replaces the identity's token set with the given tokens.
//
// Any previous rows for the identity are deleted first so exactly one set is
// active at a time.
func (r *TokenRepository) Store(identityID, accessToken, refreshToken, tokenType, scope string, expiresAt time.Time) (*models.TokenSet, error) {
	if identityID == "" {
		return nil, fmt.Errorf("identity id is required")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM token_sets WHERE identity_id = ?", identityID); err != nil {
		return nil, fmt.Errorf("failed to clear previous tokens: %w", err)
	}

	now := time.Now()
	ts := &models.TokenSet{
		ID:           shared.GenerateID(),
		IdentityID:   identityID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		Scope:        scope,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO token_sets (id, identity_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(query, ts.ID, ts.IdentityID, ts.AccessToken, nullable(ts.RefreshToken),
		ts.TokenType, ts.Scope, ts.ExpiresAt, ts.CreatedAt, ts.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert token set: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit token set: %w", err)
	}

	return ts, nil
}

// Get retrieves the identity's token set regardless of expiry.
//
// Expiry is the Token-Refresh Guard's concern, not the store's.
func (r *TokenRepository) Get(identityID string) (*models.TokenSet, error) {
	query := `
		SELECT id, identity_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at
		FROM token_sets
		WHERE identity_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var (
		ts           models.TokenSet
		refreshToken sql.NullString
	)
	err := r.db.QueryRow(query, identityID).Scan(
		&ts.ID, &ts.IdentityID, &ts.AccessToken, &refreshToken,
		&ts.TokenType, &ts.Scope, &ts.ExpiresAt, &ts.CreatedAt, &ts.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no token set for identity %s", shared.ErrNotAuthenticated, identityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token set: %w", err)
	}

	if refreshToken.Valid {
		ts.RefreshToken = refreshToken.String
	}

	return &ts, nil
}

// UpdateAccessToken mutates the token set in place after a refresh.
//
// The refresh token is rotated only when the provider returned a new one;
// an empty newRefreshToken keeps the stored value.
func (r *TokenRepository) UpdateAccessToken(id, accessToken, newRefreshToken string, expiresAt time.Time) error {
	now := time.Now()

	var (
		result sql.Result
		err    error
	)
	if newRefreshToken != "" {
		query := `
			UPDATE token_sets SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ? WHERE id = ?
		`
		result, err = r.db.Exec(query, accessToken, newRefreshToken, expiresAt, now, id)
	} else {
		query := `
			UPDATE token_sets SET access_token = ?, expires_at = ?, updated_at = ? WHERE id = ?
		`
		result, err = r.db.Exec(query, accessToken, expiresAt, now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update token set: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("token set not found: %s", id)
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
