// package testing contains shared testing utilities
package testing

import (
	"context"

	"github.com/desertthunder/betterd/internal/models"
	"golang.org/x/oauth2"
)

// MockService is a configurable test double for services.Service. Each
// behavior is a function field; unset fields return zero values so tests only
// stub what they exercise.
type MockService struct {
	AuthorizeURLFunc      func(state, verifier string) string
	ExchangeFunc          func(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	RefreshFunc           func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	ProfileFunc           func(ctx context.Context, accessToken string) (*models.Profile, error)
	UserPlaylistsAllFunc  func(ctx context.Context, accessToken string) ([]models.Playlist, error)
	PlaylistFunc          func(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error)
	PlaylistTracksAllFunc func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error)
	CreatePlaylistFunc    func(ctx context.Context, accessToken, userID, name, description string, public bool) (*models.Playlist, error)
	AddTracksFunc         func(ctx context.Context, accessToken, playlistID string, uris []string) error
	UploadCoverImageFunc  func(ctx context.Context, accessToken, playlistID string, jpeg []byte) error
}

func (m *MockService) AuthorizeURL(state, verifier string) string {
	if m.AuthorizeURLFunc != nil {
		return m.AuthorizeURLFunc(state, verifier)
	}
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code, verifier)
	}
	return &oauth2.Token{AccessToken: "mock-access-token"}, nil
}

func (m *MockService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return &oauth2.Token{AccessToken: "mock-refreshed-token"}, nil
}

func (m *MockService) Profile(ctx context.Context, accessToken string) (*models.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, accessToken)
	}
	return &models.Profile{ID: "mock-user", DisplayName: "Mock User"}, nil
}

func (m *MockService) UserPlaylistsAll(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	if m.UserPlaylistsAllFunc != nil {
		return m.UserPlaylistsAllFunc(ctx, accessToken)
	}
	return []models.Playlist{}, nil
}

func (m *MockService) Playlist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, accessToken, playlistID)
	}
	return &models.Playlist{ID: playlistID}, nil
}

func (m *MockService) PlaylistTracksAll(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
	if m.PlaylistTracksAllFunc != nil {
		return m.PlaylistTracksAllFunc(ctx, accessToken, playlistID)
	}
	return []models.Track{}, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, accessToken, userID, name, description string, public bool) (*models.Playlist, error) {
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, accessToken, userID, name, description, public)
	}
	return &models.Playlist{ID: "mock-new-playlist", Name: name}, nil
}

func (m *MockService) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) error {
	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(ctx, accessToken, playlistID, uris)
	}
	return nil
}

func (m *MockService) UploadCoverImage(ctx context.Context, accessToken, playlistID string, jpeg []byte) error {
	if m.UploadCoverImageFunc != nil {
		return m.UploadCoverImageFunc(ctx, accessToken, playlistID, jpeg)
	}
	return nil
}

// StaticTokenProvider hands every call the same access token without any
// refresh behavior. Satisfies tasks.TokenProvider.
type StaticTokenProvider struct {
	Token string
}

func (p *StaticTokenProvider) WithToken(ctx context.Context, identityID string, call func(accessToken string) error) error {
	return call(p.Token)
}

// MockImageFetcher returns canned image bytes or a canned error.
type MockImageFetcher struct {
	Data []byte
	Err  error
}

func (f *MockImageFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Data, nil
}
