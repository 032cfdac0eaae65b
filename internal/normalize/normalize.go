package normalize

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"sjsage522/rentalworker/internal/listing"
	"sjsage522/rentalworker/logger"
	apperrors "sjsage522/rentalworker/pkg/errors"
)

// Policy decides what happens to rows with missing fields
type Policy string

const (
	// Lenient keeps rows that have missing fields
	Lenient Policy = "lenient"
	// Strict drops any row with a missing field
	Strict Policy = "strict"
)

// DropReason explains why a row was excluded
type DropReason string

const (
	DropEmptySqft    DropReason = "empty_sqft"
	DropPriceRange   DropReason = "price_range"
	DropMissingField DropReason = "missing_field"
)

var (
	sqftUnitRe = regexp.MustCompile(`(?i)sq\.?\s*ft\.?`)
	bedUnitRe  = regexp.MustCompile(`(?i)\s*(beds?|bd)\.?\s*$`)
	bathUnitRe = regexp.MustCompile(`(?i)\s*(baths?|ba)\.?\s*$`)
	contactRe  = regexp.MustCompile(`(?i)contact`)

	priceJunk = strings.NewReplacer("$", "", ",", "", "+", "", "/mo", "")

	errNotNumeric = errors.New("not a number in range")
)

// Report summarizes one Normalize call
type Report struct {
	Input   int
	Kept    int
	Dropped map[DropReason]int
	// Unparsed counts values per column that were present but not numeric
	Unparsed map[string]int
}

// Normalizer turns raw listings into typed listings
type Normalizer struct {
	policy Policy
	logger *logger.Logger
}

// New creates a Normalizer. An unknown policy is treated as Lenient.
func New(policy Policy, log *logger.Logger) *Normalizer {
	if policy != Strict {
		policy = Lenient
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{policy: policy, logger: log}
}

// Normalize cleans every raw row, preserving input order. It never mutates
// its input.
func (n *Normalizer) Normalize(raw []listing.RawListing) ([]listing.Listing, Report) {
	report := Report{
		Input:    len(raw),
		Dropped:  make(map[DropReason]int),
		Unparsed: make(map[string]int),
	}
	out := make([]listing.Listing, 0, len(raw))

	for _, r := range raw {
		row, reason := n.normalizeRow(r, report.Unparsed)
		if reason != "" {
			report.Dropped[reason]++
			n.logger.Debug().
				Str("url", r.URL).
				Str("unit", r.Unit).
				Str("reason", string(reason)).
				Msg("Dropping row")
			continue
		}
		out = append(out, row)
	}

	report.Kept = len(out)
	return out, report
}

func (n *Normalizer) normalizeRow(r listing.RawListing, unparsed map[string]int) (listing.Listing, DropReason) {
	sqftText := cleanSqft(r.Sqft)
	if sqftText == "" {
		return listing.Listing{}, DropEmptySqft
	}

	priceText, contact := cleanPrice(r.Price)
	if isRange(priceText) {
		return listing.Listing{}, DropPriceRange
	}
	// "Contact for price" leaves no number behind and means missing
	if contact && !strings.ContainsAny(priceText, "0123456789") {
		priceText = ""
	}

	row := listing.Listing{
		Name:        strings.TrimSpace(r.Name),
		Address:     strings.TrimSpace(r.Address),
		Unit:        strings.TrimSpace(r.Unit),
		City:        strings.TrimSpace(r.City),
		State:       strings.TrimSpace(r.State),
		Description: strings.TrimSpace(r.Description),
		Details:     strings.TrimSpace(r.Details),
		URL:         strings.TrimSpace(r.URL),
		Date:        strings.TrimSpace(r.Date),
	}

	row.Sqft = track(n, r.URL, unparsed, "sqft", sqftText, parseSqft)
	row.Price = track(n, r.URL, unparsed, "price", priceText, parseInt)
	row.Bath = track(n, r.URL, unparsed, "bath", cleanBath(r.Bath), parseFloat)
	row.Bed = track(n, r.URL, unparsed, "bed", cleanBed(r.Bed), parseFloat)
	row.Zipcode = track(n, r.URL, unparsed, "zipcode", strings.TrimSpace(r.Zip), parseZip)

	if n.policy == Strict && row.HasMissing() {
		return listing.Listing{}, DropMissingField
	}
	return row, ""
}

// track parses a non-empty cleaned value and counts failures
func track[T any](n *Normalizer, sourceURL string, unparsed map[string]int, column, text string, parse func(string) (T, bool)) *T {
	if text == "" {
		return nil
	}
	v, ok := parse(text)
	if !ok {
		unparsed[column]++
		if n.logger.IsDebugEnabled() {
			n.logger.Debug().
				Err(apperrors.NewNormalization(column, text, errNotNumeric)).
				Str("url", sourceURL).
				Msg("Value left missing")
		}
		return nil
	}
	return &v
}

// cleanSqft strips the unit and thousands separators
func cleanSqft(s string) string {
	s = sqftUnitRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// cleanPrice strips the word "contact" and currency formatting. The second
// return value reports whether the word was present.
func cleanPrice(s string) (string, bool) {
	contact := contactRe.MatchString(s)
	s = contactRe.ReplaceAllString(s, "")
	return strings.TrimSpace(priceJunk.Replace(s)), contact
}

func cleanBath(s string) string {
	return strings.TrimSpace(bathUnitRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

// cleanBed maps studios and missing values to zero
func cleanBed(s string) string {
	s = strings.ToLower(strings.TrimSpace(bedUnitRe.ReplaceAllString(strings.TrimSpace(s), "")))
	if s == "" || s == "studio" {
		return "0"
	}
	return s
}

func isRange(s string) bool {
	return strings.ContainsAny(s, "-–")
}

// parseSqft resolves "N-M" to the truncated mean of its endpoints
func parseSqft(s string) (int, bool) {
	if !isRange(s) {
		return parseInt(s)
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '–' })
	if len(parts) != 2 {
		return 0, false
	}
	lo, ok1 := parseFloat(strings.TrimSpace(parts[0]))
	hi, ok2 := parseFloat(strings.TrimSpace(parts[1]))
	if !ok1 || !ok2 {
		return 0, false
	}
	return toInt(lo/2 + hi/2)
}

// parseInt accepts integers and decimals, truncating the latter
func parseInt(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, ok := parseFloat(s)
	if !ok {
		return 0, false
	}
	return toInt(f)
}

// parseZip accepts digits only
func parseZip(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// toInt truncates f, rejecting values an int cannot hold
func toInt(f float64) (int, bool) {
	f = math.Trunc(f)
	if f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
