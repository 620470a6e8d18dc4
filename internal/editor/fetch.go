package editor

import (
	"context"
	"fmt"
	"time"

	apperrors "deal-service/pkg/errors"

	"github.com/go-resty/resty/v2"
)

const defaultContentType = "application/octet-stream"

// FetchResult carries the edited bytes and the metadata captured at download
// time.
type FetchResult struct {
	Body        []byte
	SizeBytes   int64
	ContentType string
	FetchedAt   time.Time
}

// Fetcher downloads edited document bytes from the document server.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher builds a fetcher with a hard request timeout; a hung document
// server surfaces as a retryable upstream error instead of a stuck commit.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, contentURL string) (*FetchResult, error) {
	resp, err := f.client.R().SetContext(ctx).Get(contentURL)
	if err != nil {
		return nil, apperrors.Upstream("failed to fetch edited document", err)
	}
	if resp.IsError() {
		return nil, apperrors.Upstream(
			fmt.Sprintf("document server returned status %d", resp.StatusCode()), nil,
		)
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &FetchResult{
		Body:        body,
		SizeBytes:   int64(len(body)),
		ContentType: contentType,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
