package crawler

import (
	"io"
	"net/url"

	"sjsage522/rentalworker/config"
	"sjsage522/rentalworker/helpers"
	"sjsage522/rentalworker/logger"
	"sjsage522/rentalworker/services/cache"
)

// Crawler bundles the index and detail crawlers of one site. Both share the
// same fetcher, pacing limiter and rate-limit block.
type Crawler struct {
	Index   *IndexCrawler
	Detail  *DetailCrawler
	Fetcher Fetcher
}

// Close releases the fetcher's resources
func (c *Crawler) Close() error {
	if closer, ok := c.Fetcher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// CreateCrawler builds the crawler described by cfg. cacheSvc may be nil,
// which disables the rate-limit block.
func CreateCrawler(cfg *config.Config, cacheSvc cache.CacheService, log *logger.Logger) (*Crawler, error) {
	if log == nil {
		log = logger.Nop()
	}
	selectors := DefaultSelectors()
	if cfg.SelectorsFile != "" {
		loaded, err := LoadSelectors(cfg.SelectorsFile)
		if err != nil {
			return nil, err
		}
		selectors = loaded
	}

	fetcher := CreateFetcher(cfg)
	log.Info().
		Str("transport", fetcher.Name()).
		Str("base_url", cfg.BaseURL).
		Dur("pacing", cfg.PacingDelay).
		Msg("Created fetcher")

	base := NewBaseCrawler(fetcher, cfg.BaseURL, cfg.PacingDelay, log.ForComponent("fetch"))
	if cacheSvc != nil {
		base.WithBlockCache(cacheSvc, blockKey(cfg.BaseURL), cfg.BlockTime)
	}

	return &Crawler{
		Index:   NewIndexCrawler(base, selectors.Index, cfg.MaxIndexPages, log.ForComponent("index")),
		Detail:  NewDetailCrawler(base, NewExtractor(selectors.Detail, cfg.DetailsSeparator)),
		Fetcher: fetcher,
	}, nil
}

// CreateFetcher picks the transport named in cfg
func CreateFetcher(cfg *config.Config) Fetcher {
	if cfg.Transport == config.TransportChrome {
		return NewChromeFetcher(ChromeOptions{
			ExecPath:  cfg.ChromeBin,
			Timeout:   cfg.FetchTimeout,
			UserAgent: helpers.UserAgent,
		})
	}
	return NewHTTPFetcher(helpers.NewClient(cfg.FetchTimeout, cfg.FetchRetries))
}

// blockKey is the cache key holding the rate-limit block for a site
func blockKey(baseURL string) string {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return "rental_rate_limited:" + host
}
