// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// AddTracksBatchLimit is the upstream per-request cap on POST /playlists/{id}/tracks.
	AddTracksBatchLimit = 100

	// trackFields projects the playlist-tracks endpoint down to what the
	// shuffle workflow consumes.
	trackFields = "items(track(id,uri,name,duration_ms,explicit,album(name),artists(name))),limit,offset,total,next"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is a pointer: the upstream wrapper can carry a null track (removed
// episodes, local files) and those entries are filtered out, not decoded
// into zero values.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object from the single-playlist and
// listing endpoints.
type SpotifyPlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Public       bool              `json:"public"`
	Images       []SpotifyImage    `json:"images"`
	Tracks       playlistTracksRef `json:"tracks"`
	ExternalURLs externalURLs      `json:"external_urls"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// SpotifyService implements [Service] against the Spotify Web API.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	tokenURL   string
}

// NewSpotifyService creates a new Spotify service with the given application credentials.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirect_uri", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
			"ugc-image-upload",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		tokenURL:   spotifyTokenURL,
	}, nil
}

// AuthorizeURL builds the provider authorize redirect with response_type=code,
// client_id, redirect_uri, scope, state, and the S256 challenge derived from
// the verifier.
func (s *SpotifyService) AuthorizeURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code plus its PKCE verifier for tokens.
//
// The token endpoint authenticates the application via HTTP Basic with
// client_id:client_secret.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchangeFailed, err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new access token.
//
// The response may or may not rotate the refresh token; the caller keeps the
// old one when RefreshToken comes back empty.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrRefreshFailed, err)
	}
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrRefreshFailed, resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrRefreshFailed, err)
	}

	token := &oauth2.Token{
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return token, nil
}

// doRequest performs an authenticated HTTP request against the API base URL.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, accessToken string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(raw), Endpoint: endpoint}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
		}
	}

	return nil
}

func (s *SpotifyService) doJSON(ctx context.Context, method, endpoint, accessToken string, body, result any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	return s.doRequest(ctx, method, endpoint, accessToken, reader, "application/json", result)
}

// Profile retrieves the authenticated user's profile.
func (s *SpotifyService) Profile(ctx context.Context, accessToken string) (*models.Profile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", accessToken, nil, "", &user); err != nil {
		return nil, err
	}

	profile := &models.Profile{ID: user.ID, DisplayName: user.DisplayName}
	for _, img := range user.Images {
		profile.Images = append(profile.Images, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return profile, nil
}

// UserPlaylistsAll retrieves every page of the current user's playlists.
//
// The result is de-duplicated by playlist id preserving first-seen order;
// the listing endpoint can return overlapping entries across pages.
func (s *SpotifyService) UserPlaylistsAll(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	items, err := fetchAllPages(ctx, func(ctx context.Context, limit, offset int) (*page[SpotifyPlaylist], error) {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
		var pg page[SpotifyPlaylist]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, accessToken, nil, "", &pg); err != nil {
			return nil, err
		}
		return &pg, nil
	})
	if err != nil {
		return nil, err
	}

	items = dedupeByID(items, func(p SpotifyPlaylist) string { return p.ID })

	playlists := make([]models.Playlist, 0, len(items))
	for _, sp := range items {
		playlists = append(playlists, toPlaylist(sp))
	}
	return playlists, nil
}

// Playlist retrieves a playlist's metadata by id.
func (s *SpotifyService) Playlist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
	var sp SpotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, accessToken, nil, "", &sp); err != nil {
		return nil, err
	}

	playlist := toPlaylist(sp)
	return &playlist, nil
}

// PlaylistTracksAll retrieves every page of a playlist's tracks.
//
// Wrapper entries with no underlying track are dropped.
func (s *SpotifyService) PlaylistTracksAll(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
	items, err := fetchAllPages(ctx, func(ctx context.Context, limit, offset int) (*page[SpotifyPlaylistTrack], error) {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d&fields=%s",
			playlistID, limit, offset, url.QueryEscape(trackFields))
		var pg page[SpotifyPlaylistTrack]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, accessToken, nil, "", &pg); err != nil {
			return nil, err
		}
		return &pg, nil
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.Track == nil {
			continue
		}
		track := models.Track{
			ID:         item.Track.ID,
			URI:        item.Track.URI,
			Name:       item.Track.Name,
			Album:      item.Track.Album.Name,
			DurationMS: item.Track.DurationMS,
			Explicit:   item.Track.Explicit,
		}
		for _, artist := range item.Track.Artists {
			track.Artists = append(track.Artists, artist.Name)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// CreatePlaylist creates a playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, accessToken, userID, name, description string, public bool) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := createPlaylistRequest{Name: name, Description: description, Public: public}

	var sp SpotifyPlaylist
	if err := s.doJSON(ctx, http.MethodPost, endpoint, accessToken, body, &sp); err != nil {
		return nil, err
	}

	playlist := toPlaylist(sp)
	return &playlist, nil
}

// AddTracks appends track URIs to a playlist. The upstream cap is 100 URIs
// per call; batching is the workflow's responsibility.
func (s *SpotifyService) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("no track URIs provided")
	}
	if len(uris) > AddTracksBatchLimit {
		return fmt.Errorf("maximum %d track URIs allowed per call, got %d", AddTracksBatchLimit, len(uris))
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doJSON(ctx, http.MethodPost, endpoint, accessToken, addTracksRequest{URIs: uris}, nil)
}

// UploadCoverImage PUTs a base64-encoded JPEG as the playlist's cover.
func (s *SpotifyService) UploadCoverImage(ctx context.Context, accessToken, playlistID string, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("no image data provided")
	}

	encoded := base64.StdEncoding.EncodeToString(jpeg)
	endpoint := fmt.Sprintf("/playlists/%s/images", playlistID)
	return s.doRequest(ctx, http.MethodPut, endpoint, accessToken, strings.NewReader(encoded), "image/jpeg", nil)
}

func toPlaylist(sp SpotifyPlaylist) models.Playlist {
	playlist := models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
		ExternalURL: sp.ExternalURLs.Spotify,
	}
	for _, img := range sp.Images {
		playlist.CoverImages = append(playlist.CoverImages, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return playlist
}
