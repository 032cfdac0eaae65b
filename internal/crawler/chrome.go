package crawler

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	apperrors "sjsage522/rentalworker/pkg/errors"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the headless browser
type ChromeOptions struct {
	// ExecPath is the browser binary; empty means autodetect
	ExecPath string
	// Timeout bounds one page load
	Timeout   time.Duration
	UserAgent string
}

// ChromeFetcher renders pages in headless Chrome and returns the resulting
// DOM. One browser process is shared by all fetches; each fetch opens a tab.
type ChromeFetcher struct {
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	timeout       time.Duration

	startOnce sync.Once
	startErr  error
}

// NewChromeFetcher prepares the browser allocator. The browser itself is
// launched on the first fetch.
func NewChromeFetcher(opts ChromeOptions) *ChromeFetcher {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	execPath := opts.ExecPath
	if execPath == "" {
		execPath = FindChromeBinary()
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ChromeFetcher{
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		timeout:       timeout,
	}
}

// start launches the shared browser once. Tabs created from browserCtx
// afterwards attach to it instead of allocating their own process.
func (f *ChromeFetcher) start() error {
	f.startOnce.Do(func() {
		if err := chromedp.Run(f.browserCtx); err != nil {
			f.startErr = apperrors.NewNetwork("chrome", "failed to start browser", err)
		}
	})
	return f.startErr
}

// Fetch implements Fetcher. The main document's status is checked like the
// HTTP transport does: 429/430 is a rate-limit error, anything else that is
// not 200 a status error.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	if err := f.start(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, f.timeout)
	defer cancel()

	// Tie the tab to the caller's context as well
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		return nil, f.renderError(ctx, url, err)
	}
	// RunResponse waits for the main document's network.EventResponseReceived
	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, f.renderError(ctx, url, err)
	}
	if resp != nil {
		switch code := int(resp.Status); {
		case code == http.StatusTooManyRequests || code == 430:
			return nil, apperrors.NewRateLimit(url, headerString(resp.Headers, "Retry-After"))
		case code != http.StatusOK:
			return nil, apperrors.NewStatus(url, code)
		}
	}

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, f.renderError(ctx, url, err)
	}
	return strings.NewReader(html), nil
}

func (f *ChromeFetcher) renderError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperrors.NewNetwork(url, "browser render failed", err)
}

// headerString looks up a response header case-insensitively
func headerString(headers network.Headers, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Name implements Fetcher
func (f *ChromeFetcher) Name() string {
	return "chrome"
}

// Close shuts the browser down
func (f *ChromeFetcher) Close() error {
	f.cancelBrowser()
	f.cancelAlloc()
	return nil
}

// FindChromeBinary looks for a Chrome or Chromium binary, honoring CHROME_BIN
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
