package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/betterd/internal/shared"
)

const defaultPageLimit = 50

// page is the envelope every cursor-paginated Spotify list endpoint returns.
type page[T any] struct {
	Items  []T     `json:"items"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Total  int     `json:"total"`
	Next   *string `json:"next"`
}

// pageFetch issues one page request at the given window.
type pageFetch[T any] func(ctx context.Context, limit, offset int) (*page[T], error)

// fetchAllPages drains a cursor-paginated collection in original order.
//
// The next window is taken from the upstream "next" URL rather than computed
// locally, so the accumulator follows whatever cursor the provider hands
// back. A present next URL with a missing or unparsable offset/limit is a
// terminal [shared.ErrMalformedCursor], never a panic or an infinite loop.
func fetchAllPages[T any](ctx context.Context, fetch pageFetch[T]) ([]T, error) {
	limit, offset := defaultPageLimit, 0

	var items []T
	for {
		pg, err := fetch(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		items = append(items, pg.Items...)

		if pg.Next == nil || *pg.Next == "" {
			return items, nil
		}

		limit, offset, err = parseCursor(*pg.Next)
		if err != nil {
			return nil, err
		}
	}
}

// parseCursor extracts the limit and offset query parameters from a next URL.
func parseCursor(next string) (limit, offset int, err error) {
	parsed, err := url.Parse(next)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", shared.ErrMalformedCursor, err)
	}

	query := parsed.Query()

	rawOffset := query.Get("offset")
	if rawOffset == "" {
		return 0, 0, fmt.Errorf("%w: next URL missing offset", shared.ErrMalformedCursor)
	}
	offset, err = strconv.Atoi(rawOffset)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: unparsable offset %q", shared.ErrMalformedCursor, rawOffset)
	}

	rawLimit := query.Get("limit")
	if rawLimit == "" {
		return 0, 0, fmt.Errorf("%w: next URL missing limit", shared.ErrMalformedCursor)
	}
	limit, err = strconv.Atoi(rawLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: unparsable limit %q", shared.ErrMalformedCursor, rawLimit)
	}

	return limit, offset, nil
}

// dedupeByID removes duplicate entries preserving first-seen order.
//
// The provider's top-level playlist listing can return overlapping entries
// across pages; this is defensive, not a correctness guarantee.
func dedupeByID[T any](items []T, id func(T) string) []T {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, item := range items {
		key := id(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
