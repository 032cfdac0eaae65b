package helpers

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	apperrors "sjsage522/rentalworker/pkg/errors"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html/charset"
)

// Fixed browser-like request headers
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	Accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	AcceptEncoding = "gzip"
	AcceptLanguage = "en-US,en;q=0.9"
)

// Client fetches pages with fixed headers, an explicit timeout and an
// optional number of retries.
type Client struct {
	http *retryablehttp.Client
}

// NewClient creates a client. retryMax of 0 means a single attempt.
func NewClient(timeout time.Duration, retryMax int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	// Hand the last response back so status codes can be inspected
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{http: rc}
}

// Fetch sends a GET request with the fixed headers and returns the body
// converted to UTF-8. Non-200 responses and transport failures are returned
// as typed errors from pkg/errors.
func (c *Client) Fetch(ctx context.Context, url string) (io.Reader, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewNetwork(url, "failed to create request", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", Accept)
	req.Header.Set("Accept-Encoding", AcceptEncoding)
	req.Header.Set("Accept-Language", AcceptLanguage)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewNetwork(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, apperrors.NewRateLimit(url, resp.Header.Get("Retry-After"))
	}

	// Check for other error status codes
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewStatus(url, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, apperrors.NewNetwork(url, "failed to open gzip body", err)
		}
		defer gz.Close()
		body = gz
	}

	// Read the entire response body
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.NewNetwork(url, "failed to read response body", err)
	}

	return ToUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// ToUTF8 converts a body to UTF-8 using the Content-Type header and the
// body's own meta tags.
func ToUTF8(bodyBytes []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, contentType)

	// If already UTF-8, return as is
	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(bodyBytes), nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, apperrors.NewParsing(name, "failed to read converted UTF-8 body", err)
	}

	return &buf, nil
}
