package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// OAuth handshake errors
	ErrStateMismatch       = fmt.Errorf("state mismatch")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrNoRefreshToken      = fmt.Errorf("no refresh token available")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrSessionNotFound     = fmt.Errorf("session not found")

	// API and pagination errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrMalformedCursor  = fmt.Errorf("malformed pagination cursor")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrEmptyPlaylist    = fmt.Errorf("playlist is empty")

	// Workflow errors
	ErrJobNotFound = fmt.Errorf("shuffle job not found")
)
