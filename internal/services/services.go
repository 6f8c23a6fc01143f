package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
	"golang.org/x/oauth2"
)

// Service defines the upstream provider operations the rest of the system
// consumes. [SpotifyService] is the production implementation; tests use
// doubles.
//
// Every method takes the access token explicitly because the server handles
// many identities concurrently; token resolution and refresh belong to
// [Authenticator], not the client.
type Service interface {
	// AuthorizeURL builds the provider authorize redirect for the given CSRF
	// state and PKCE verifier (challenge derived via S256).
	AuthorizeURL(state, verifier string) string

	// Exchange trades an authorization code plus its PKCE verifier for tokens.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// Profile fetches the authenticated user's profile.
	Profile(ctx context.Context, accessToken string) (*models.Profile, error)

	// UserPlaylistsAll drains every page of the user's playlists,
	// de-duplicated by id preserving first-seen order.
	UserPlaylistsAll(ctx context.Context, accessToken string) ([]models.Playlist, error)

	// Playlist fetches a single playlist's metadata.
	Playlist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error)

	// PlaylistTracksAll drains every page of a playlist's tracks, dropping
	// wrapper entries with no underlying track.
	PlaylistTracksAll(ctx context.Context, accessToken, playlistID string) ([]models.Track, error)

	// CreatePlaylist creates a playlist owned by the given user.
	CreatePlaylist(ctx context.Context, accessToken, userID, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends up to 100 track URIs to a playlist.
	AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) error

	// UploadCoverImage PUTs a base64-encoded JPEG as the playlist cover.
	UploadCoverImage(ctx context.Context, accessToken, playlistID string, jpeg []byte) error
}

// APIError is a non-2xx response from the upstream API, carrying the status
// and body verbatim for the caller's error surface.
type APIError struct {
	Status   int
	Body     string
	Endpoint string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error on %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// IsUnauthorized reports whether the error is an upstream 401, the one case
// that triggers the single refresh-and-retry in [Authenticator.WithToken].
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}
