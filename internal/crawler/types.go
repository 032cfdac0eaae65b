package crawler

import (
	"context"
	"io"

	"sjsage522/rentalworker/internal/listing"
)

// Fetcher retrieves the markup of a page. Implementations differ only in
// transport (plain HTTP or a rendered browser page).
type Fetcher interface {
	// Fetch returns the page body as UTF-8 markup
	Fetch(ctx context.Context, url string) (io.Reader, error)

	// Name identifies the transport for logging
	Name() string
}

// IndexSource produces the frontier of detail-page URLs for a start page
type IndexSource interface {
	Crawl(ctx context.Context, startURL string) (Frontier, CrawlStats, error)
}

// ListingSource turns one detail-page URL into raw records
type ListingSource interface {
	FetchListing(ctx context.Context, url, date string) Result
}

// Frontier is the ordered list of detail-page URLs found by the index crawl
type Frontier []string

// Unique returns the frontier with repeated URLs removed, keeping the first
// occurrence of each.
func (f Frontier) Unique() Frontier {
	seen := make(map[string]struct{}, len(f))
	out := make(Frontier, 0, len(f))
	for _, u := range f {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// CrawlStats describes one index crawl
type CrawlStats struct {
	Pages       int
	FailedPages int
	Listings    int
	// StopReason is "last_page", "fetch_failed", "max_pages" or "cycle"
	StopReason string
}

// Outcome tells whether a listing produced records or was skipped
type Outcome int

const (
	Extracted Outcome = iota
	Skipped
)

// SkipReason explains a skipped listing
type SkipReason string

const (
	ReasonFetchFailed SkipReason = "fetch_failed"
	ReasonRateLimited SkipReason = "rate_limited"
	ReasonParseFailed SkipReason = "parse_failed"
	ReasonMissingNode SkipReason = "missing_node"
)

// Result is the per-listing outcome: either Extracted with zero or more
// records, or Skipped with a reason and the underlying error.
type Result struct {
	URL     string
	Outcome Outcome
	Records []listing.RawListing
	Reason  SkipReason
	Err     error
}

func extracted(url string, records []listing.RawListing) Result {
	return Result{URL: url, Outcome: Extracted, Records: records}
}

func skipped(url string, reason SkipReason, err error) Result {
	return Result{URL: url, Outcome: Skipped, Reason: reason, Err: err}
}

// IndexSelectors locate elements on a listing-index page
type IndexSelectors struct {
	// ListingCard matches one element per listing
	ListingCard string `yaml:"listing_card"`
	// ListingLink is the anchor inside a card; empty means the card itself
	ListingLink string `yaml:"listing_link"`
	// NextPage is the "next page" anchor, found by its accessible label
	NextPage string `yaml:"next_page"`
}

// DetailSelectors locate elements on a listing detail page
type DetailSelectors struct {
	FloorPlanTable string `yaml:"floor_plan_table"`
	Row            string `yaml:"row"`
	Unit           string `yaml:"unit"`
	Sqft           string `yaml:"sqft"`
	// Features matches the bed cell (position 0) and bath cell (position 1)
	Features   string `yaml:"features"`
	Price      string `yaml:"price"`
	PriceIndex int    `yaml:"price_index"`

	Name string `yaml:"name"`
	// CityState matches the street address (position 0) and the combined
	// "city, state zip" line (position 1)
	CityState   string `yaml:"city_state"`
	Description string `yaml:"description"`
	Amenities   string `yaml:"amenities"`
}

// Selectors is the field-locator configuration for a site
type Selectors struct {
	Index  IndexSelectors  `yaml:"index"`
	Detail DetailSelectors `yaml:"detail"`
}
