package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sjsage522/rentalworker/helpers"
	"sjsage522/rentalworker/internal/listing"
	apperrors "sjsage522/rentalworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls floor-plan rows out of a listing detail page
type Extractor struct {
	Selectors DetailSelectors
	// DetailsSeparator joins the amenity strings
	DetailsSeparator string
}

// NewExtractor creates an Extractor
func NewExtractor(selectors DetailSelectors, detailsSeparator string) *Extractor {
	return &Extractor{Selectors: selectors, DetailsSeparator: detailsSeparator}
}

// pageFields holds the values shared by every row of one page
type pageFields struct {
	name, address, city, state, zip, description, details string
}

// Extract parses one detail page. Any missing expected element skips the
// whole listing; a page without floor-plan rows yields zero records.
func (e *Extractor) Extract(r io.Reader, sourceURL, date string) Result {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return skipped(sourceURL, ReasonParseFailed, apperrors.NewParsing(sourceURL, "failed to parse HTML", err))
	}

	records, err := e.extractDocument(doc, sourceURL, date)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeStructure) {
			return skipped(sourceURL, ReasonMissingNode, err)
		}
		return skipped(sourceURL, ReasonParseFailed, err)
	}
	return extracted(sourceURL, records)
}

func (e *Extractor) extractDocument(doc *goquery.Document, sourceURL, date string) ([]listing.RawListing, error) {
	sel := e.Selectors
	rows := doc.Find(sel.FloorPlanTable).Find(sel.Row)
	records := make([]listing.RawListing, 0, rows.Length())
	if rows.Length() == 0 {
		return records, nil
	}

	page, err := e.pageFields(doc, sourceURL)
	if err != nil {
		return nil, err
	}

	for i := range rows.Nodes {
		row := rows.Eq(i)

		unit, err := textAt(row, sel.Unit, 0, sourceURL)
		if err != nil {
			return nil, err
		}
		sqft, err := textAt(row, sel.Sqft, 0, sourceURL)
		if err != nil {
			return nil, err
		}
		bed, err := textAt(row, sel.Features, 0, sourceURL)
		if err != nil {
			return nil, err
		}
		bath, err := textAt(row, sel.Features, 1, sourceURL)
		if err != nil {
			return nil, err
		}
		price, err := textAt(row, sel.Price, sel.PriceIndex, sourceURL)
		if err != nil {
			return nil, err
		}

		records = append(records, listing.RawListing{
			Name:        page.name,
			Address:     page.address,
			Unit:        unit,
			Sqft:        sqft,
			Bed:         bed,
			Bath:        bath,
			Price:       price,
			City:        page.city,
			State:       page.state,
			Zip:         page.zip,
			Description: page.description,
			Details:     page.details,
			URL:         sourceURL,
			Date:        date,
		})
	}

	return records, nil
}

func (e *Extractor) pageFields(doc *goquery.Document, sourceURL string) (pageFields, error) {
	sel := e.Selectors
	var page pageFields
	var err error

	if page.name, err = textAt(doc.Selection, sel.Name, 0, sourceURL); err != nil {
		return page, err
	}
	if page.address, err = textAt(doc.Selection, sel.CityState, 0, sourceURL); err != nil {
		return page, err
	}
	cityStateZip, err := textAt(doc.Selection, sel.CityState, 1, sourceURL)
	if err != nil {
		return page, err
	}
	if page.city, page.state, page.zip, err = SplitCityStateZip(cityStateZip); err != nil {
		return page, apperrors.NewParsing(sourceURL, "malformed city/state/zip", err)
	}
	if page.description, err = textAt(doc.Selection, sel.Description, 0, sourceURL); err != nil {
		return page, err
	}

	var amenities []string
	if sel.Amenities != "" {
		doc.Find(sel.Amenities).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				amenities = append(amenities, text)
			}
		})
	}
	page.details = strings.Join(amenities, e.DetailsSeparator)

	return page, nil
}

// SplitCityStateZip splits "Woburn, MA 01801" from the right: the last two
// whitespace-separated tokens are state and zip, the rest is the city.
func SplitCityStateZip(s string) (city, state, zip string, err error) {
	parts, err := helpers.SplitRight(strings.ReplaceAll(s, ",", ""), 3)
	if err != nil {
		return "", "", "", fmt.Errorf("%q: %w", s, err)
	}
	return parts[0], parts[1], parts[2], nil
}

// textAt returns the trimmed text of the idx-th match of selector within s,
// or a structure error when there are not enough matches.
func textAt(s *goquery.Selection, selector string, idx int, sourceURL string) (string, error) {
	matches := s.Find(selector)
	if matches.Length() <= idx {
		if idx == 0 {
			return "", apperrors.NewStructure(sourceURL, selector)
		}
		return "", apperrors.NewStructure(sourceURL, fmt.Sprintf("%s #%d", selector, idx+1))
	}
	return strings.TrimSpace(matches.Eq(idx).Text()), nil
}

// DetailCrawler fetches detail pages and extracts their records
type DetailCrawler struct {
	*BaseCrawler
	Extractor *Extractor
}

// NewDetailCrawler creates a DetailCrawler sharing base's fetch path
func NewDetailCrawler(base *BaseCrawler, extractor *Extractor) *DetailCrawler {
	return &DetailCrawler{BaseCrawler: base, Extractor: extractor}
}

// FetchListing fetches one detail page and extracts it. It never returns an
// error; failures are reported as a Skipped result.
func (c *DetailCrawler) FetchListing(ctx context.Context, url, date string) Result {
	body, err := c.fetch(ctx, url)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
			return skipped(url, ReasonRateLimited, err)
		}
		return skipped(url, ReasonFetchFailed, err)
	}
	return c.Extractor.Extract(body, url, date)
}
