package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/betterd/internal/shared"
)

func TestFetchAllPages(t *testing.T) {
	ctx := context.Background()

	t.Run("drains three pages in original order", func(t *testing.T) {
		// 107 items split 50/50/7, with next cursors chaining the windows.
		total := 107
		fetch := func(ctx context.Context, limit, offset int) (*page[string], error) {
			if limit != 50 {
				t.Errorf("limit = %d, want 50", limit)
			}
			end := offset + limit
			if end > total {
				end = total
			}
			items := make([]string, 0, end-offset)
			for i := offset; i < end; i++ {
				items = append(items, fmt.Sprintf("item-%03d", i))
			}
			pg := &page[string]{Items: items, Limit: limit, Offset: offset, Total: total}
			if end < total {
				next := fmt.Sprintf("https://api.example.com/v1/things?offset=%d&limit=%d", end, limit)
				pg.Next = &next
			}
			return pg, nil
		}

		items, err := fetchAllPages(ctx, fetch)
		if err != nil {
			t.Fatalf("fetchAllPages failed: %v", err)
		}
		if len(items) != total {
			t.Fatalf("got %d items, want %d", len(items), total)
		}
		for i, item := range items {
			if want := fmt.Sprintf("item-%03d", i); item != want {
				t.Fatalf("item %d = %q, want %q (order must match upstream)", i, item, want)
			}
		}
	})

	t.Run("single page without next", func(t *testing.T) {
		calls := 0
		fetch := func(ctx context.Context, limit, offset int) (*page[int], error) {
			calls++
			return &page[int]{Items: []int{1, 2, 3}, Total: 3}, nil
		}

		items, err := fetchAllPages(ctx, fetch)
		if err != nil {
			t.Fatalf("fetchAllPages failed: %v", err)
		}
		if calls != 1 {
			t.Errorf("fetch called %d times, want 1", calls)
		}
		if len(items) != 3 {
			t.Errorf("got %d items, want 3", len(items))
		}
	})

	t.Run("empty collection", func(t *testing.T) {
		fetch := func(ctx context.Context, limit, offset int) (*page[int], error) {
			return &page[int]{Items: nil, Total: 0}, nil
		}
		items, err := fetchAllPages(ctx, fetch)
		if err != nil {
			t.Fatalf("fetchAllPages failed: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("got %d items, want 0", len(items))
		}
	})

	t.Run("next URL missing offset is a malformed cursor", func(t *testing.T) {
		next := "https://api.example.com/v1/things?limit=50"
		fetch := func(ctx context.Context, limit, offset int) (*page[int], error) {
			return &page[int]{Items: []int{1}, Next: &next}, nil
		}

		_, err := fetchAllPages(ctx, fetch)
		if !errors.Is(err, shared.ErrMalformedCursor) {
			t.Errorf("err = %v, want ErrMalformedCursor", err)
		}
	})

	t.Run("next URL with garbage offset is a malformed cursor", func(t *testing.T) {
		next := "https://api.example.com/v1/things?offset=banana&limit=50"
		fetch := func(ctx context.Context, limit, offset int) (*page[int], error) {
			return &page[int]{Items: []int{1}, Next: &next}, nil
		}

		_, err := fetchAllPages(ctx, fetch)
		if !errors.Is(err, shared.ErrMalformedCursor) {
			t.Errorf("err = %v, want ErrMalformedCursor", err)
		}
	})

	t.Run("fetch error propagates", func(t *testing.T) {
		boom := errors.New("upstream down")
		fetch := func(ctx context.Context, limit, offset int) (*page[int], error) {
			return nil, boom
		}
		_, err := fetchAllPages(ctx, fetch)
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want the fetch error", err)
		}
	})
}

func TestParseCursor(t *testing.T) {
	t.Run("extracts limit and offset", func(t *testing.T) {
		limit, offset, err := parseCursor("https://api.example.com/v1/me/playlists?offset=100&limit=50")
		if err != nil {
			t.Fatalf("parseCursor failed: %v", err)
		}
		if limit != 50 || offset != 100 {
			t.Errorf("got limit=%d offset=%d, want 50/100", limit, offset)
		}
	})

	t.Run("missing limit", func(t *testing.T) {
		_, _, err := parseCursor("https://api.example.com/v1/me/playlists?offset=100")
		if !errors.Is(err, shared.ErrMalformedCursor) {
			t.Errorf("err = %v, want ErrMalformedCursor", err)
		}
	})
}

func TestDedupeByID(t *testing.T) {
	type thing struct{ id string }
	items := []thing{{"a"}, {"b"}, {"a"}, {"c"}, {"b"}}

	out := dedupeByID(items, func(t thing) string { return t.id })

	if len(out) != 3 {
		t.Fatalf("got %d items, want 3", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].id != want {
			t.Errorf("item %d = %q, want %q (first-seen order)", i, out[i].id, want)
		}
	}
}
