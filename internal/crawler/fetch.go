package crawler

import (
	"context"
	"io"

	"sjsage522/rentalworker/helpers"
)

// HTTPFetcher fetches pages with a plain HTTP GET
type HTTPFetcher struct {
	client *helpers.Client
}

// NewHTTPFetcher creates an HTTPFetcher around a helpers.Client
func NewHTTPFetcher(client *helpers.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	return f.client.Fetch(ctx, url)
}

// Name implements Fetcher
func (f *HTTPFetcher) Name() string {
	return "http"
}
