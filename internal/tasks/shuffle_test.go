package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/betterd/internal/models"
	"github.com/desertthunder/betterd/internal/shared"
	mocks "github.com/desertthunder/betterd/internal/testing"
)

func makeTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		id := fmt.Sprintf("t%04d", i)
		tracks[i] = models.Track{ID: id, URI: "spotify:track:" + id, Name: "Track " + id}
	}
	return tracks
}

func newTestEngine(svc *mocks.MockService, covers ImageFetcher, interval time.Duration) *ShuffleEngine {
	engine := NewShuffleEngine(svc, &mocks.StaticTokenProvider{Token: "tok"}, covers, shared.NewLogger(io.Discard))
	engine.batchInterval = interval
	return engine
}

func TestShuffleURIs(t *testing.T) {
	t.Run("preserves the multiset of elements", func(t *testing.T) {
		original := make([]string, 200)
		for i := range original {
			original[i] = fmt.Sprintf("uri-%d", i)
		}
		shuffled := append([]string(nil), original...)

		ShuffleURIs(shuffled)

		if len(shuffled) != len(original) {
			t.Fatalf("length changed: got %d want %d", len(shuffled), len(original))
		}
		a := append([]string(nil), original...)
		b := append([]string(nil), shuffled...)
		sort.Strings(a)
		sort.Strings(b)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("element mismatch at %d: %s vs %s", i, a[i], b[i])
			}
		}
	})

	t.Run("produces different orderings across runs", func(t *testing.T) {
		original := make([]string, 50)
		for i := range original {
			original[i] = fmt.Sprintf("uri-%d", i)
		}

		changed := false
		for run := 0; run < 100 && !changed; run++ {
			shuffled := append([]string(nil), original...)
			ShuffleURIs(shuffled)
			for i := range shuffled {
				if shuffled[i] != original[i] {
					changed = true
					break
				}
			}
		}
		if !changed {
			t.Error("100 shuffles of 50 elements never changed the order")
		}
	})

	t.Run("first position is roughly uniform", func(t *testing.T) {
		const items, runs = 5, 5000
		counts := make(map[string]int, items)
		for run := 0; run < runs; run++ {
			uris := []string{"a", "b", "c", "d", "e"}
			ShuffleURIs(uris)
			counts[uris[0]]++
		}
		// Expected 1000 each; a biased shuffle (e.g. naive swap) skews far
		// beyond this window.
		for uri, n := range counts {
			if n < 800 || n > 1200 {
				t.Errorf("element %q landed first %d times out of %d", uri, n, runs)
			}
		}
	})

	t.Run("handles empty and single-element slices", func(t *testing.T) {
		ShuffleURIs(nil)
		one := []string{"only"}
		ShuffleURIs(one)
		if one[0] != "only" {
			t.Errorf("single element changed: %s", one[0])
		}
	})
}

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		StageIdle:                 "idle",
		StageFetchingTracks:       "fetching_tracks",
		StageShufflingAndCreating: "shuffling_and_creating",
		StageCompleted:            "completed",
		StageError:                "error",
	}
	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", stage, got, want)
		}
	}
	if !StageCompleted.Terminal() || !StageError.Terminal() {
		t.Error("completed and error should be terminal")
	}
	if StageFetchingTracks.Terminal() {
		t.Error("fetching_tracks should not be terminal")
	}
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("shuffles and publishes in batches of 100", func(t *testing.T) {
		var mu sync.Mutex
		var batches [][]string
		var createdName string
		var createdPublic bool

		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return makeTracks(250), nil
			},
			CreatePlaylistFunc: func(ctx context.Context, accessToken, userID, name, description string, public bool) (*models.Playlist, error) {
				createdName = name
				createdPublic = public
				return &models.Playlist{ID: "new-pl", Name: name, ExternalURL: "https://open.example.com/new-pl"}, nil
			},
			AddTracksFunc: func(ctx context.Context, accessToken, playlistID string, uris []string) error {
				mu.Lock()
				defer mu.Unlock()
				batches = append(batches, append([]string(nil), uris...))
				return nil
			},
			PlaylistFunc: func(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
				return &models.Playlist{ID: playlistID}, nil
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, time.Millisecond)

		job := NewShuffleJob("src-pl", "Road Trip")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		status := job.Snapshot()
		if status.Stage != "completed" {
			t.Fatalf("stage = %q (err %q), want completed", status.Stage, status.Error)
		}
		if status.TrackCount != 250 {
			t.Errorf("track count = %d, want 250", status.TrackCount)
		}
		if status.Result == nil || status.Result.ID != "new-pl" {
			t.Fatalf("result = %+v, want new playlist details", status.Result)
		}

		if createdName != "Road Trip - TRUE SHUFFLED" {
			t.Errorf("created playlist name = %q", createdName)
		}
		if createdPublic {
			t.Error("new playlist should be private")
		}

		if len(batches) != 3 {
			t.Fatalf("got %d batches, want 3", len(batches))
		}
		for i, want := range []int{100, 100, 50} {
			if len(batches[i]) != want {
				t.Errorf("batch %d size = %d, want %d", i+1, len(batches[i]), want)
			}
		}

		var all []string
		for _, b := range batches {
			all = append(all, b...)
		}
		seen := make(map[string]bool, len(all))
		for _, uri := range all {
			if seen[uri] {
				t.Errorf("uri sent twice: %s", uri)
			}
			seen[uri] = true
		}
		for _, track := range makeTracks(250) {
			if !seen[track.URI] {
				t.Errorf("uri never sent: %s", track.URI)
			}
		}
	})

	t.Run("paces batches after the first", func(t *testing.T) {
		const interval = 40 * time.Millisecond

		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return makeTracks(250), nil
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, interval)

		job := NewShuffleJob("src-pl", "Paced")
		start := time.Now()
		engine.Run(ctx, job, "identity-1", "spotify-user")
		elapsed := time.Since(start)

		if job.Stage() != StageCompleted {
			t.Fatalf("stage = %v", job.Stage())
		}
		// 3 batches, so 2 inter-batch delays.
		if elapsed < 2*interval {
			t.Errorf("elapsed %v, want at least %v for two delays", elapsed, 2*interval)
		}
	})

	t.Run("single batch incurs no delay", func(t *testing.T) {
		const interval = 200 * time.Millisecond

		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return makeTracks(30), nil
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, interval)

		job := NewShuffleJob("src-pl", "Small")
		start := time.Now()
		engine.Run(ctx, job, "identity-1", "spotify-user")
		elapsed := time.Since(start)

		if job.Stage() != StageCompleted {
			t.Fatalf("stage = %v", job.Stage())
		}
		if elapsed >= interval {
			t.Errorf("single batch waited %v, want under %v", elapsed, interval)
		}
	})

	t.Run("empty playlist fails before creating anything", func(t *testing.T) {
		created := false
		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return []models.Track{}, nil
			},
			CreatePlaylistFunc: func(ctx context.Context, accessToken, userID, name, description string, public bool) (*models.Playlist, error) {
				created = true
				return &models.Playlist{ID: "should-not-exist"}, nil
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, time.Millisecond)

		job := NewShuffleJob("src-pl", "Empty")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		status := job.Snapshot()
		if status.Stage != "error" {
			t.Fatalf("stage = %q, want error", status.Stage)
		}
		if status.Error != "playlist is empty" {
			t.Errorf("error = %q", status.Error)
		}
		if created {
			t.Error("playlist was created for an empty source")
		}
	})

	t.Run("tracks without ids are dropped before shuffling", func(t *testing.T) {
		tracks := makeTracks(10)
		tracks[3].ID = ""
		tracks[3].URI = ""
		tracks[7].ID = ""
		tracks[7].URI = ""

		var sent []string
		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return tracks, nil
			},
			AddTracksFunc: func(ctx context.Context, accessToken, playlistID string, uris []string) error {
				sent = append(sent, uris...)
				return nil
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, time.Millisecond)

		job := NewShuffleJob("src-pl", "Local Files")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		if job.Stage() != StageCompleted {
			t.Fatalf("stage = %v", job.Stage())
		}
		if len(sent) != 8 {
			t.Errorf("sent %d uris, want 8", len(sent))
		}
	})

	t.Run("batch failure halts without rollback", func(t *testing.T) {
		var calls int
		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return makeTracks(250), nil
			},
			AddTracksFunc: func(ctx context.Context, accessToken, playlistID string, uris []string) error {
				calls++
				if calls == 2 {
					return errors.New("upstream exploded")
				}
				return nil
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, time.Millisecond)

		job := NewShuffleJob("src-pl", "Halted")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		status := job.Snapshot()
		if status.Stage != "error" {
			t.Fatalf("stage = %q, want error", status.Stage)
		}
		if calls != 2 {
			t.Errorf("AddTracks called %d times, want 2 (third batch must never be sent)", calls)
		}
	})

	t.Run("cover copy failure does not fail the job", func(t *testing.T) {
		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return makeTracks(5), nil
			},
			PlaylistFunc: func(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
				return &models.Playlist{
					ID:          playlistID,
					CoverImages: []models.Image{{URL: "https://img.example.com/cover.jpg"}},
				}, nil
			},
		}
		covers := &mocks.MockImageFetcher{Err: errors.New("404 not found")}
		engine := newTestEngine(svc, covers, time.Millisecond)

		job := NewShuffleJob("src-pl", "No Cover")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		if job.Stage() != StageCompleted {
			t.Fatalf("stage = %v, want completed despite cover failure", job.Stage())
		}
	})

	t.Run("cover upload failure does not fail the job", func(t *testing.T) {
		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return makeTracks(5), nil
			},
			PlaylistFunc: func(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
				return &models.Playlist{
					ID:          playlistID,
					CoverImages: []models.Image{{URL: "https://img.example.com/cover.jpg"}},
				}, nil
			},
			UploadCoverImageFunc: func(ctx context.Context, accessToken, playlistID string, jpeg []byte) error {
				return errors.New("413 payload too large")
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{Data: []byte("jpeg-bytes")}, time.Millisecond)

		job := NewShuffleJob("src-pl", "Big Cover")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		if job.Stage() != StageCompleted {
			t.Fatalf("stage = %v, want completed despite upload failure", job.Stage())
		}
	})

	t.Run("fetch failure reports an error stage", func(t *testing.T) {
		svc := &mocks.MockService{
			PlaylistTracksAllFunc: func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
				return nil, errors.New("503 service unavailable")
			},
		}
		engine := newTestEngine(svc, &mocks.MockImageFetcher{}, time.Millisecond)

		job := NewShuffleJob("src-pl", "Down")
		engine.Run(ctx, job, "identity-1", "spotify-user")

		status := job.Snapshot()
		if status.Stage != "error" {
			t.Fatalf("stage = %q, want error", status.Stage)
		}
		if status.Error == "" {
			t.Error("error message should be populated")
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("add and get", func(t *testing.T) {
		reg := NewRegistry()
		job := NewShuffleJob("pl", "Test")
		reg.Add(job)

		got, err := reg.Get(job.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ID != job.ID {
			t.Errorf("got job %s, want %s", got.ID, job.ID)
		}
		if reg.Len() != 1 {
			t.Errorf("Len = %d, want 1", reg.Len())
		}
	})

	t.Run("unknown id returns ErrJobNotFound", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Get("nope")
		if !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("err = %v, want ErrJobNotFound", err)
		}
	})
}
