package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/repositories"
	"golang.org/x/oauth2"
)

// expirySkew treats tokens expiring within this window as already expired so
// a request never goes out with a token about to die mid-flight.
const expirySkew = 30 * time.Second

// Authenticator is the token-refresh guard: it resolves an identity to a
// valid access token, refreshing and persisting the token set when expired.
type Authenticator struct {
	service Service
	tokens  *repositories.TokenRepository
	logger  *log.Logger
}

// NewAuthenticator creates an [Authenticator] over the given provider service and token store.
func NewAuthenticator(service Service, tokens *repositories.TokenRepository, logger *log.Logger) *Authenticator {
	return &Authenticator{service: service, tokens: tokens, logger: logger}
}

// AccessToken returns a usable access token for the identity, refreshing
// the stored token set first if it is expired.
func (a *Authenticator) AccessToken(ctx context.Context, identityID string) (string, error) {
	ts, err := a.tokens.Get(identityID)
	if err != nil {
		return "", err
	}

	if !ts.Expired(expirySkew) {
		return ts.AccessToken, nil
	}

	refreshed, err := a.refresh(ctx, ts)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh refreshes the identity's token set regardless of expiry.
//
// Used when the upstream rejected a token the local clock still considered
// valid.
func (a *Authenticator) ForceRefresh(ctx context.Context, identityID string) (string, error) {
	ts, err := a.tokens.Get(identityID)
	if err != nil {
		return "", err
	}

	refreshed, err := a.refresh(ctx, ts)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// WithToken runs call with a valid access token for the identity.
//
// An upstream 401 triggers exactly one forced refresh and retry; any second
// failure surfaces to the caller. This is the only automatic retry in the
// system.
func (a *Authenticator) WithToken(ctx context.Context, identityID string, call func(accessToken string) error) error {
	token, err := a.AccessToken(ctx, identityID)
	if err != nil {
		return err
	}

	err = call(token)
	if err == nil || !IsUnauthorized(err) {
		return err
	}

	a.logger.Warn("access token rejected upstream, refreshing once", "identity", identityID)

	token, refreshErr := a.ForceRefresh(ctx, identityID)
	if refreshErr != nil {
		return fmt.Errorf("retry after 401 failed: %w", refreshErr)
	}

	return call(token)
}

func (a *Authenticator) refresh(ctx context.Context, ts *models.TokenSet) (*models.TokenSet, error) {
	token, err := a.service.Refresh(ctx, ts.RefreshToken)
	if err != nil {
		return nil, err
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}

	if err := a.tokens.UpdateAccessToken(ts.ID, token.AccessToken, token.RefreshToken, expiry); err != nil {
		return nil, err
	}

	ts.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		ts.RefreshToken = token.RefreshToken
	}
	ts.ExpiresAt = expiry

	a.logger.Debug("refreshed access token", "identity", ts.IdentityID)
	return ts, nil
}

// StoreExchangedToken persists the token set returned by a code exchange
// against the identity, replacing any previous set.
func (a *Authenticator) StoreExchangedToken(identityID string, token *oauth2.Token, scope string) (*models.TokenSet, error) {
	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}
	return a.tokens.Store(identityID, token.AccessToken, token.RefreshToken, token.TokenType, scope, expiry)
}
