package crawler

import (
	"context"

	"sjsage522/rentalworker/logger"

	"github.com/PuerkitoBio/goquery"
)

// Stop reasons reported in CrawlStats
const (
	StopLastPage    = "last_page"
	StopFetchFailed = "fetch_failed"
	StopMaxPages    = "max_pages"
	StopCycle       = "cycle"
)

// IndexCrawler walks paginated listing-index pages and collects detail-page
// URLs. It has two states: crawling the current page, or done.
type IndexCrawler struct {
	*BaseCrawler
	Selectors IndexSelectors
	// MaxPages caps the number of index pages; 0 means unbounded
	MaxPages int

	logger *logger.Logger
}

// NewIndexCrawler creates an IndexCrawler sharing base's fetch path
func NewIndexCrawler(base *BaseCrawler, selectors IndexSelectors, maxPages int, log *logger.Logger) *IndexCrawler {
	if log == nil {
		log = logger.Nop()
	}
	return &IndexCrawler{
		BaseCrawler: base,
		Selectors:   selectors,
		MaxPages:    maxPages,
		logger:      log,
	}
}

// Crawl follows "next page" links from startURL until none is left and
// returns every listing URL in encounter order. A page that cannot be fetched
// ends the crawl with what was collected so far; only context cancellation
// is returned as an error.
func (c *IndexCrawler) Crawl(ctx context.Context, startURL string) (Frontier, CrawlStats, error) {
	frontier := Frontier{}
	stats := CrawlStats{}
	visited := make(map[string]struct{})

	current := startURL
	for crawling := true; crawling; {
		if err := ctx.Err(); err != nil {
			return frontier, stats, err
		}

		stats.Pages++
		visited[current] = struct{}{}
		if stats.Pages%10 == 0 {
			c.logger.Info().
				Int("page", stats.Pages).
				Int("urls", len(frontier)).
				Msg("Index crawl progress")
		}

		doc, err := c.fetchDocument(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return frontier, stats, ctx.Err()
			}
			stats.FailedPages++
			stats.StopReason = StopFetchFailed
			c.logger.Warn().Err(err).Str("url", current).Msg("Index page fetch failed; ending crawl")
			break
		}

		urls := c.listingURLs(current, doc)
		frontier = append(frontier, urls...)
		c.logger.Debug().Str("url", current).Int("listings", len(urls)).Msg("Index page parsed")

		next, ok := c.nextPage(current, doc)
		switch {
		case !ok:
			stats.StopReason = StopLastPage
			crawling = false
		case c.MaxPages > 0 && stats.Pages >= c.MaxPages:
			stats.StopReason = StopMaxPages
			c.logger.Warn().Int("max_pages", c.MaxPages).Msg("Index page cap reached")
			crawling = false
		default:
			if _, seen := visited[next]; seen {
				stats.StopReason = StopCycle
				c.logger.Warn().Str("next", next).Msg("Next page already visited; ending crawl")
				crawling = false
				break
			}
			current = next
		}
	}

	stats.Listings = len(frontier)
	return frontier, stats, nil
}

func (c *IndexCrawler) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return c.createDocument(url, body)
}

// listingURLs extracts one absolute URL per listing card; cards without a
// link are skipped.
func (c *IndexCrawler) listingURLs(pageURL string, doc *goquery.Document) []string {
	var urls []string
	doc.Find(c.Selectors.ListingCard).Each(func(_ int, card *goquery.Selection) {
		link := card
		if c.Selectors.ListingLink != "" {
			link = card.Find(c.Selectors.ListingLink).First()
		}
		href, exists := link.Attr("href")
		if !exists {
			return
		}
		if resolved := c.ResolveURL(pageURL, href); resolved != "" {
			urls = append(urls, resolved)
		}
	})
	return urls
}

// nextPage returns the resolved "next page" link if the page has one
func (c *IndexCrawler) nextPage(pageURL string, doc *goquery.Document) (string, bool) {
	href, exists := doc.Find(c.Selectors.NextPage).First().Attr("href")
	if !exists {
		return "", false
	}
	next := c.ResolveURL(pageURL, href)
	return next, next != ""
}
