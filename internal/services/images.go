package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// CoverFetcher downloads playlist cover art from the provider's CDN.
//
// Cover URLs are plain public image links, so this client is separate from
// the bearer-authenticated API client and carries a small retry budget of
// its own. Cover copying is best-effort end to end; callers log failures
// and move on.
type CoverFetcher struct {
	client *resty.Client
}

// NewCoverFetcher creates a [CoverFetcher] with a short timeout and two retries.
func NewCoverFetcher() *CoverFetcher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &CoverFetcher{client: client}
}

// Fetch downloads the image at the given URL and returns its raw bytes.
func (f *CoverFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("no image URL provided")
	}

	resp, err := f.client.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("cover image download failed: status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("cover image response was empty")
	}
	return body, nil
}
