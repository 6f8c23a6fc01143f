package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
)

// IdentityRepository persists [models.Identity] rows.
type IdentityRepository struct {
	db *sql.DB
}

// NewIdentityRepository creates a new [IdentityRepository] with the given database connection
func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// FindOrCreate returns the identity for the given Spotify user id, creating
// it on first login. Display name and profile image are refreshed from the
// provider profile on every call.
func (r *IdentityRepository) FindOrCreate(spotifyUserID, displayName, profileImage string) (*models.Identity, error) {
	if spotifyUserID == "" {
		return nil, fmt.Errorf("spotify user id is required")
	}

	existing, err := r.GetBySpotifyID(spotifyUserID)
	if err == nil {
		now := time.Now()
		query := `
			UPDATE identities SET display_name = ?, profile_image = ?, updated_at = ? WHERE id = ?
		`
		if _, err := r.db.Exec(query, displayName, profileImage, now, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to update identity: %w", err)
		}
		existing.DisplayName = displayName
		existing.ProfileImage = profileImage
		existing.UpdatedAt = now
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	identity := &models.Identity{
		ID:            shared.GenerateID(),
		SpotifyUserID: spotifyUserID,
		DisplayName:   displayName,
		ProfileImage:  profileImage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO identities (id, spotify_user_id, display_name, profile_image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, identity.ID, identity.SpotifyUserID, identity.DisplayName,
		identity.ProfileImage, identity.CreatedAt, identity.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert identity: %w", err)
	}

	return identity, nil
}

// Get retrieves an identity by its local id.
func (r *IdentityRepository) Get(id string) (*models.Identity, error) {
	return r.scanOne("SELECT id, spotify_user_id, display_name, profile_image, created_at, updated_at FROM identities WHERE id = ?", id)
}

// GetBySpotifyID retrieves an identity by the provider's user id.
//
// Returns [sql.ErrNoRows] unwrapped when absent so callers can distinguish
// not-found from query failure.
func (r *IdentityRepository) GetBySpotifyID(spotifyUserID string) (*models.Identity, error) {
	return r.scanOne("SELECT id, spotify_user_id, display_name, profile_image, created_at, updated_at FROM identities WHERE spotify_user_id = ?", spotifyUserID)
}

func (r *IdentityRepository) scanOne(query string, arg any) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.QueryRow(query, arg).Scan(
		&identity.ID, &identity.SpotifyUserID, &identity.DisplayName,
		&identity.ProfileImage, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query identity: %w", err)
	}
	return &identity, nil
}
