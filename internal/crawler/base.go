package crawler

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sjsage522/rentalworker/logger"
	apperrors "sjsage522/rentalworker/pkg/errors"
	"sjsage522/rentalworker/services/cache"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// BaseCrawler provides the fetch path shared by the index and detail
// crawlers: the fixed pacing limiter, the rate-limit block and document
// parsing.
type BaseCrawler struct {
	Fetcher   Fetcher
	BaseURL   string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration

	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewBaseCrawler creates a BaseCrawler. pacing is the fixed delay between
// two fetches; zero disables pacing.
func NewBaseCrawler(fetcher Fetcher, baseURL string, pacing time.Duration, log *logger.Logger) *BaseCrawler {
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BaseCrawler{
		Fetcher: fetcher,
		BaseURL: baseURL,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
	}
}

// WithBlockCache enables the rate-limit block: after the site answers with a
// rate-limit status, fetches fail fast for blockTime.
func (c *BaseCrawler) WithBlockCache(cacheSvc cache.CacheService, key string, blockTime time.Duration) *BaseCrawler {
	c.CacheSvc = cacheSvc
	c.CacheKey = key
	c.BlockTime = blockTime
	return c
}

// fetch waits for the pacing limiter and fetches url
func (c *BaseCrawler) fetch(ctx context.Context, url string) (io.Reader, error) {
	// Check if the site is rate limited
	if c.blocked() {
		return nil, apperrors.NewRateLimit(url, "")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
			if blockErr := c.block(); blockErr != nil {
				c.logger.Warn().Err(blockErr).Msg("Rate-limit block not stored")
			}
		}
		return nil, err
	}
	return body, nil
}

// blocked reports whether a rate-limit block is active. An unreachable cache
// counts as not blocked.
func (c *BaseCrawler) blocked() bool {
	if c.CacheSvc == nil || c.CacheKey == "" {
		return false
	}
	_, err := c.CacheSvc.Get(c.CacheKey)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().
			Err(apperrors.NewCache(c.CacheKey, "failed to read rate-limit block", err)).
			Msg("Ignoring rate-limit block")
	}
	return err == nil
}

func (c *BaseCrawler) block() error {
	if c.CacheSvc == nil || c.CacheKey == "" || c.BlockTime <= 0 {
		return nil
	}
	seconds := []byte(strconv.Itoa(int(c.BlockTime / time.Second)))
	if err := c.CacheSvc.Set(c.CacheKey, seconds, c.BlockTime); err != nil {
		return apperrors.NewCache(c.CacheKey, "failed to store rate-limit block", err)
	}
	c.logger.Warn().
		Str("key", c.CacheKey).
		Dur("block", c.BlockTime).
		Msg("Site rate limited us; pausing fetches")
	return nil
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(source string, reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, apperrors.NewParsing(source, "failed to parse HTML", err)
	}
	return doc, nil
}

// ResolveURL makes href absolute against the page it was found on. pageURL
// falls back to BaseURL when it is empty or not absolute.
func (c *BaseCrawler) ResolveURL(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		if base, err = url.Parse(c.BaseURL); err != nil {
			return href
		}
	}
	return base.ResolveReference(ref).String()
}
