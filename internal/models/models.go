package models

import (
	"time"
)

// Identity is a local account matched or created on the first successful
// OAuth callback for a given Spotify user id. Long-lived; owns one TokenSet.
type Identity struct {
	ID            string
	SpotifyUserID string
	DisplayName   string
	ProfileImage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TokenSet holds the access/refresh token pair and metadata for one Identity.
//
// Created on code exchange, mutated in place on refresh, never shared across
// identities.
type TokenSet struct {
	ID           string
	IdentityID   string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is past (or within skew of) its
// expiry and needs a refresh before use.
func (t *TokenSet) Expired(skew time.Duration) bool {
	return time.Now().Add(skew).After(t.ExpiresAt)
}

// AuthRequest maps a CSRF state token to its PKCE code verifier for the
// duration of one OAuth handshake. Read-once: consumed and deleted when the
// callback arrives, expired after a short TTL otherwise.
type AuthRequest struct {
	ID           string
	State        string
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Session maps the opaque sid browser cookie to an authenticated Identity.
type Session struct {
	ID         string
	SessionID  string
	IdentityID string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session is past its TTL.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Playlist is a transient view of an upstream playlist. Not owned by this
// system; fetched on demand and discarded after the request.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CoverImages []Image `json:"images,omitempty"`
	TrackCount  int     `json:"track_count"`
	Public      bool    `json:"public"`
	ExternalURL string  `json:"external_url,omitempty"`
}

// Image is an upstream image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Track is a transient view of an upstream track.
type Track struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists,omitempty"`
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
	Explicit   bool     `json:"explicit,omitempty"`
}

// NewPlaylistDetails describes the playlist a completed shuffle published.
type NewPlaylistDetails struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ExternalURL string `json:"external_url"`
}

// Profile is the authenticated user's upstream profile view.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Images      []Image `json:"images,omitempty"`
}
