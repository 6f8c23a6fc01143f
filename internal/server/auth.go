package server

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/repositories"
	"github.com/desertthunder/betterd/internal/services"
	"github.com/desertthunder/betterd/internal/shared"
)

// AuthHandler implements the browser-facing OAuth flow: login kickoff,
// provider callback, and logout.
type AuthHandler struct {
	service services.Service
	auth    *services.Authenticator
	stores  *repositories.Stores
	config  *shared.Config
	logger  *log.Logger
}

// NewAuthHandler creates an [AuthHandler] over the provider service and stores.
func NewAuthHandler(service services.Service, auth *services.Authenticator, stores *repositories.Stores, config *shared.Config, logger *log.Logger) *AuthHandler {
	return &AuthHandler{service: service, auth: auth, stores: stores, config: config, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /login", "GET /callback", "GET /logout"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	case "/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login starts a fresh OAuth authorization. When the request carries an error
// or reason query parameter it renders the login page instead, so failed
// callbacks have somewhere to land without looping straight back upstream.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if _, ok := CurrentIdentity(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	query := r.URL.Query()
	if query.Get("error") != "" || query.Get("reason") != "" {
		renderLoginPage(w, query.Get("error"), query.Get("reason"))
		return
	}

	verifier, err := services.GenerateCodeVerifier()
	if err != nil {
		h.logger.Error("failed to generate code verifier", "err", err)
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}
	state, err := services.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "err", err)
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	if _, err := h.stores.AuthRequests.Create(state, verifier); err != nil {
		h.logger.Error("failed to persist auth request", "err", err)
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.service.AuthorizeURL(state, verifier), http.StatusTemporaryRedirect)
}

// callback finishes the authorization code flow. Every failure redirects back
// to the login page with a machine-readable error code; no session cookie is
// ever set on a failed flow.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if upstreamErr := query.Get("error"); upstreamErr != "" {
		h.failLogin(w, r, upstreamErr)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.failLogin(w, r, "missing_code")
		return
	}
	state := query.Get("state")
	if state == "" {
		h.failLogin(w, r, "missing_state")
		return
	}

	// Single-use: consuming deletes the record, so a replayed state lands
	// here again and fails.
	verifier, err := h.stores.AuthRequests.Consume(state)
	if err != nil {
		h.logger.Warn("state validation failed", "err", err)
		h.failLogin(w, r, "state_mismatch")
		return
	}

	token, err := h.service.Exchange(r.Context(), code, verifier)
	if err != nil {
		h.logger.Error("code exchange failed", "err", err)
		h.failLogin(w, r, "token_exchange_failed")
		return
	}

	profile, err := h.service.Profile(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Error("profile fetch failed", "err", err)
		h.failLogin(w, r, "profile_fetch_failed")
		return
	}

	profileImage := ""
	if len(profile.Images) > 0 {
		profileImage = profile.Images[0].URL
	}
	identity, err := h.stores.Identities.FindOrCreate(profile.ID, profile.DisplayName, profileImage)
	if err != nil {
		h.logger.Error("failed to upsert identity", "err", err)
		h.failLogin(w, r, "internal_error")
		return
	}

	scope := ""
	if extra := token.Extra("scope"); extra != nil {
		scope = fmt.Sprint(extra)
	}
	if _, err := h.auth.StoreExchangedToken(identity.ID, token, scope); err != nil {
		h.logger.Error("failed to store token set", "err", err)
		h.failLogin(w, r, "internal_error")
		return
	}

	ttl := time.Duration(h.config.SessionTTLHours()) * time.Hour
	session, err := h.stores.Sessions.Create(identity.ID, ttl)
	if err != nil {
		h.logger.Error("failed to create session", "err", err)
		h.failLogin(w, r, "internal_error")
		return
	}

	http.SetCookie(w, h.sessionCookie(session.SessionID, ttl))
	h.logger.Info("login complete", "identity", identity.ID, "user", profile.ID)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.stores.Sessions.Delete(cookie.Value); err != nil {
			h.logger.Warn("failed to delete session", "err", err)
		}
	}

	http.SetCookie(w, h.sessionCookie("", -time.Hour))
	http.Redirect(w, r, "/login?reason=logged_out", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.Server.Production,
	}
}
