package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/services"
	"github.com/desertthunder/betterd/internal/shared"
	"github.com/desertthunder/betterd/internal/tasks"
)

// APIHandler serves the JSON endpoints the browser polls: the signed-in
// profile, the playlist listing, and shuffle job control.
type APIHandler struct {
	service  services.Service
	auth     *services.Authenticator
	registry *tasks.Registry
	engine   *tasks.ShuffleEngine
	logger   *log.Logger
}

// NewAPIHandler creates an [APIHandler].
func NewAPIHandler(service services.Service, auth *services.Authenticator, registry *tasks.Registry, engine *tasks.ShuffleEngine, logger *log.Logger) *APIHandler {
	return &APIHandler{service: service, auth: auth, registry: registry, engine: engine, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"GET /api/me",
		"GET /api/playlists",
		"POST /api/playlists/{id}/shuffle",
		"GET /api/shuffle/{id}",
	}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/me":
		h.me(w, r)
	case r.URL.Path == "/api/playlists":
		h.playlists(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/shuffle/"):
		h.shuffleStatus(w, r)
	case strings.HasSuffix(r.URL.Path, "/shuffle"):
		h.startShuffle(w, r)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":            identity.ID,
		"user_id":       identity.SpotifyUserID,
		"display_name":  identity.DisplayName,
		"profile_image": identity.ProfileImage,
	})
}

// playlists returns every playlist on the account, fully paginated upstream
// before responding.
func (h *APIHandler) playlists(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var playlists []models.Playlist
	err := h.auth.WithToken(r.Context(), identity.ID, func(accessToken string) error {
		var err error
		playlists, err = h.service.UserPlaylistsAll(r.Context(), accessToken)
		return err
	})
	if err != nil {
		h.respondUpstreamError(w, "failed to list playlists", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists, "total": len(playlists)})
}

// startShuffle validates the source playlist, registers a job, and runs the
// workflow on its own goroutine. The response is the job's initial snapshot;
// the browser polls the status endpoint from there.
func (h *APIHandler) startShuffle(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	playlistID := r.PathValue("id")
	if playlistID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing playlist id")
		return
	}

	var playlist *models.Playlist
	err := h.auth.WithToken(r.Context(), identity.ID, func(accessToken string) error {
		var err error
		playlist, err = h.service.Playlist(r.Context(), accessToken, playlistID)
		return err
	})
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			writeJSONError(w, http.StatusNotFound, shared.ErrPlaylistNotFound.Error())
			return
		}
		h.respondUpstreamError(w, "failed to load playlist", err)
		return
	}

	job := tasks.NewShuffleJob(playlist.ID, playlist.Name)
	h.registry.Add(job)

	// The job outlives the request, so it gets a fresh context.
	go h.engine.Run(context.Background(), job, identity.ID, identity.SpotifyUserID)

	h.logger.Info("shuffle started", "job", job.ID, "playlist", playlist.ID, "identity", identity.ID)
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (h *APIHandler) shuffleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, err := h.registry.Get(jobID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, shared.ErrJobNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (h *APIHandler) respondUpstreamError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, "err", err)

	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrNoRefreshToken), errors.Is(err, shared.ErrRefreshFailed):
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
	default:
		writeJSONError(w, http.StatusBadGateway, message)
	}
}
