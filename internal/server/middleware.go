package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/repositories"
)

// SessionCookieName is the browser cookie carrying the opaque session id.
const SessionCookieName = "sid"

type contextKey int

const identityContextKey contextKey = iota

// RequestLogger logs method, path, and duration for every request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

// SessionLoader resolves the session cookie into an identity and attaches it
// to the request context. Requests without a valid session pass through
// untouched; enforcement belongs to [RequireSession].
func SessionLoader(stores *repositories.Stores) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := stores.Sessions.Get(cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := stores.Identities.Get(session.IdentityID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that did not resolve to an identity.
//
// API paths get a 401 JSON body; page paths are redirected to the login page
// with a reason the page can render.
func RequireSession() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentIdentity(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSONError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			http.Redirect(w, r, "/login?reason=no_session", http.StatusTemporaryRedirect)
		})
	}
}

// CurrentIdentity returns the identity attached by [SessionLoader], if any.
func CurrentIdentity(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*models.Identity)
	return identity, ok
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
