// package tasks implements the shuffle-and-publish workflow.
//
// A [ShuffleJob] is a sequential state machine advanced by [ShuffleEngine.Run]
// on its own goroutine; callers observe progress by polling [ShuffleJob.Snapshot].
package tasks

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/services"
	"github.com/desertthunder/betterd/internal/shared"
	"golang.org/x/time/rate"
)

// Stage is a shuffle job's position in its state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageFetchingTracks
	StageShufflingAndCreating
	StageCompleted
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageFetchingTracks:
		return "fetching_tracks"
	case StageShufflingAndCreating:
		return "shuffling_and_creating"
	case StageCompleted:
		return "completed"
	case StageError:
		return "error"
	default:
		return ""
	}
}

// Terminal reports whether the stage ends the state machine.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// ShuffleJob is one in-flight (or finished) shuffle run. Jobs live only in
// memory for the duration of one browser interaction; nothing survives a
// process restart.
type ShuffleJob struct {
	ID                 string
	SourcePlaylistID   string
	SourcePlaylistName string
	CreatedAt          time.Time

	mu         sync.Mutex
	stage      Stage
	trackCount int
	message    string
	details    *models.NewPlaylistDetails
}

// JobStatus is a point-in-time snapshot of a job, safe to serialize.
type JobStatus struct {
	ID                 string                     `json:"id"`
	SourcePlaylistID   string                     `json:"source_playlist_id"`
	SourcePlaylistName string                     `json:"source_playlist_name"`
	Stage              string                     `json:"stage"`
	TrackCount         int                        `json:"track_count,omitempty"`
	Error              string                     `json:"error,omitempty"`
	Result             *models.NewPlaylistDetails `json:"result,omitempty"`
}

// NewShuffleJob creates a job in [StageIdle] for the given source playlist.
func NewShuffleJob(playlistID, playlistName string) *ShuffleJob {
	return &ShuffleJob{
		ID:                 shared.GenerateID(),
		SourcePlaylistID:   playlistID,
		SourcePlaylistName: playlistName,
		CreatedAt:          time.Now(),
		stage:              StageIdle,
	}
}

// Snapshot returns the job's current observable state.
func (j *ShuffleJob) Snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	return JobStatus{
		ID:                 j.ID,
		SourcePlaylistID:   j.SourcePlaylistID,
		SourcePlaylistName: j.SourcePlaylistName,
		Stage:              j.stage.String(),
		TrackCount:         j.trackCount,
		Error:              j.message,
		Result:             j.details,
	}
}

// Stage returns the job's current stage.
func (j *ShuffleJob) Stage() Stage {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stage
}

func (j *ShuffleJob) toFetching() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage = StageFetchingTracks
}

func (j *ShuffleJob) toShuffling(trackCount int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage = StageShufflingAndCreating
	j.trackCount = trackCount
}

func (j *ShuffleJob) complete(details *models.NewPlaylistDetails) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage = StageCompleted
	j.details = details
}

func (j *ShuffleJob) fail(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage = StageError
	j.message = message
}

// TokenProvider supplies valid access tokens for upstream calls; the
// production implementation is [services.Authenticator].
type TokenProvider interface {
	WithToken(ctx context.Context, identityID string, call func(accessToken string) error) error
}

// ImageFetcher downloads cover art; the production implementation is
// [services.CoverFetcher].
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// defaultBatchInterval is the fixed courtesy pause between track-insert
// batches. Not an adaptive backoff.
const defaultBatchInterval = 250 * time.Millisecond

// ShuffleEngine orchestrates fetch → shuffle → create → batch-insert → cover
// copy against the upstream provider.
type ShuffleEngine struct {
	service services.Service
	tokens  TokenProvider
	covers  ImageFetcher
	logger  *log.Logger

	// batchInterval overrides defaultBatchInterval; tests shorten it.
	batchInterval time.Duration
}

// NewShuffleEngine creates a new engine over the provider service, token
// guard, and cover fetcher.
func NewShuffleEngine(service services.Service, tokens TokenProvider, covers ImageFetcher, logger *log.Logger) *ShuffleEngine {
	return &ShuffleEngine{
		service:       service,
		tokens:        tokens,
		covers:        covers,
		logger:        logger,
		batchInterval: defaultBatchInterval,
	}
}

// Run advances the job from Idle to a terminal stage. It is inherently
// sequential: each step depends on the previous step's output. Run never
// returns an error; failures land in the job's Error stage where the UI
// reads them.
//
// There is no rollback: a batch failure leaves the destination playlist
// partially populated and later batches unsent.
func (e *ShuffleEngine) Run(ctx context.Context, job *ShuffleJob, identityID, spotifyUserID string) {
	logger := shared.WithLogger(e.logger, "job", job.ID, "playlist", job.SourcePlaylistID)

	job.toFetching()

	var tracks []models.Track
	err := e.tokens.WithToken(ctx, identityID, func(accessToken string) error {
		var err error
		tracks, err = e.service.PlaylistTracksAll(ctx, accessToken, job.SourcePlaylistID)
		return err
	})
	if err != nil {
		logger.Error("failed to fetch tracks", "err", err)
		job.fail(fmt.Sprintf("failed to fetch tracks: %v", err))
		return
	}
	if len(tracks) == 0 {
		job.fail(shared.ErrEmptyPlaylist.Error())
		return
	}

	job.toShuffling(len(tracks))

	uris := trackURIs(tracks)
	if len(uris) == 0 {
		job.fail("no playable tracks found in playlist")
		return
	}

	ShuffleURIs(uris)

	name := job.SourcePlaylistName + " - TRUE SHUFFLED"
	description := fmt.Sprintf("A uniformly shuffled copy of %s (%d tracks), generated by betterd.",
		job.SourcePlaylistName, len(uris))

	var created *models.Playlist
	err = e.tokens.WithToken(ctx, identityID, func(accessToken string) error {
		var err error
		created, err = e.service.CreatePlaylist(ctx, accessToken, spotifyUserID, name, description, false)
		return err
	})
	if err != nil {
		logger.Error("failed to create playlist", "err", err)
		job.fail(fmt.Sprintf("failed to create playlist: %v", err))
		return
	}

	if err := e.addTracksInBatches(ctx, identityID, created.ID, uris, logger); err != nil {
		// Earlier batches are not rolled back; the new playlist stays
		// partially populated.
		job.fail(fmt.Sprintf("failed to add tracks: %v", err))
		return
	}

	e.copyCoverImage(ctx, identityID, job.SourcePlaylistID, created.ID, logger)

	job.complete(&models.NewPlaylistDetails{
		ID:          created.ID,
		Name:        created.Name,
		ExternalURL: created.ExternalURL,
	})
	logger.Info("shuffle complete", "new_playlist", created.ID, "tracks", len(uris))
}

// addTracksInBatches sends URIs in order in fixed batches of 100, pacing
// batches after the first with the engine's interval.
func (e *ShuffleEngine) addTracksInBatches(ctx context.Context, identityID, playlistID string, uris []string, logger *log.Logger) error {
	interval := e.batchInterval
	if interval <= 0 {
		interval = defaultBatchInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	total := (len(uris) + services.AddTracksBatchLimit - 1) / services.AddTracksBatchLimit
	for i := 0; i < len(uris); i += services.AddTracksBatchLimit {
		end := min(i+services.AddTracksBatchLimit, len(uris))

		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("batch pacing interrupted: %w", err)
		}

		batch := uris[i:end]
		err := e.tokens.WithToken(ctx, identityID, func(accessToken string) error {
			return e.service.AddTracks(ctx, accessToken, playlistID, batch)
		})
		if err != nil {
			return fmt.Errorf("batch %d of %d failed: %w", i/services.AddTracksBatchLimit+1, total, err)
		}

		logger.Debug("added track batch", "batch", i/services.AddTracksBatchLimit+1, "of", total, "size", len(batch))
	}

	return nil
}

// copyCoverImage copies the source playlist's cover to the new playlist.
//
// Best-effort by contract: every failure is logged and swallowed, never
// reaching the caller, so the signature returns nothing.
func (e *ShuffleEngine) copyCoverImage(ctx context.Context, identityID, sourceID, destID string, logger *log.Logger) {
	var source *models.Playlist
	err := e.tokens.WithToken(ctx, identityID, func(accessToken string) error {
		var err error
		source, err = e.service.Playlist(ctx, accessToken, sourceID)
		return err
	})
	if err != nil {
		logger.Warn("cover copy skipped: failed to re-fetch source playlist", "err", err)
		return
	}
	if len(source.CoverImages) == 0 {
		logger.Debug("cover copy skipped: source has no cover image")
		return
	}

	data, err := e.covers.Fetch(ctx, source.CoverImages[0].URL)
	if err != nil {
		logger.Warn("cover copy skipped: download failed", "err", err)
		return
	}

	err = e.tokens.WithToken(ctx, identityID, func(accessToken string) error {
		return e.service.UploadCoverImage(ctx, accessToken, destID, data)
	})
	if err != nil {
		logger.Warn("cover copy skipped: upload failed", "err", err)
		return
	}

	logger.Debug("copied cover image", "source", sourceID, "dest", destID)
}

// trackURIs extracts provider URIs, dropping tracks lacking an id.
func trackURIs(tracks []models.Track) []string {
	uris := make([]string, 0, len(tracks))
	for _, track := range tracks {
		if track.ID == "" || track.URI == "" {
			continue
		}
		uris = append(uris, track.URI)
	}
	return uris
}

// ShuffleURIs applies an unbiased Fisher-Yates shuffle in place, seeded from
// a cryptographic source. This is the whole point of the service: the
// upstream's own shuffle is not uniform.
func ShuffleURIs(uris []string) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// globally seeded generator rather than abort the shuffle.
		rand.Shuffle(len(uris), func(i, j int) {
			uris[i], uris[j] = uris[j], uris[i]
		})
		return
	}

	rng := rand.New(rand.NewChaCha8(seed))
	for i := len(uris) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		uris[i], uris[j] = uris[j], uris[i]
	}
}
