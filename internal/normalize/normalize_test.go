package normalize

import (
	"bytes"
	"fmt"
	"testing"

	"sjsage522/rentalworker/internal/listing"
	"sjsage522/rentalworker/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRow() listing.RawListing {
	return listing.RawListing{
		Name:        " The Residences ",
		Address:     "1 Main St",
		Unit:        "A1",
		Sqft:        "750 sqft",
		Bed:         "1 bd",
		Bath:        "1 ba",
		Price:       "$2,150",
		City:        "Woburn",
		State:       "MA",
		Zip:         "01801",
		Description: "Bright units\n",
		Details:     "Pool, Gym",
		URL:         "https://example.com/p/1",
		Date:        "2024-05-01",
	}
}

func normalizeOne(t *testing.T, policy Policy, r listing.RawListing) ([]listing.Listing, Report) {
	t.Helper()
	return New(policy, nil).Normalize([]listing.RawListing{r})
}

func TestNormalizeFullRow(t *testing.T) {
	rows, report := normalizeOne(t, Strict, rawRow())
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "The Residences", row.Name)
	assert.Equal(t, 750, *row.Sqft)
	assert.Equal(t, 1.0, *row.Bed)
	assert.Equal(t, 1.0, *row.Bath)
	assert.Equal(t, 2150, *row.Price)
	assert.Equal(t, 1801, *row.Zipcode)
	assert.Equal(t, "Bright units", row.Description)
	assert.Equal(t, "https://example.com/p/1", row.URL)
	assert.Equal(t, "2024-05-01", row.Date)
	assert.Equal(t, 1, report.Kept)
	assert.Empty(t, report.Dropped)
}

func TestSqftRangeResolvesToMean(t *testing.T) {
	testCases := []struct {
		n, m int
	}{
		{800, 950}, {700, 701}, {1000, 1000}, {1, 2}, {1200, 2405},
	}

	for _, tc := range testCases {
		r := rawRow()
		r.Sqft = fmt.Sprintf("%d-%d sqft", tc.n, tc.m)
		rows, _ := normalizeOne(t, Lenient, r)
		require.Len(t, rows, 1)
		assert.Equal(t, (tc.n+tc.m)/2, *rows[0].Sqft, r.Sqft)
	}
}

func TestSqftCleanup(t *testing.T) {
	testCases := []struct {
		input    string
		expected *int
	}{
		{"1,250 sqft", listing.Int(1250)},
		{"1,000-1,200 sqft", listing.Int(1100)},
		{"900 Sq Ft", listing.Int(900)},
		{"  640 ", listing.Int(640)},
		{"about 700 sqft", nil},
	}

	for _, tc := range testCases {
		r := rawRow()
		r.Sqft = tc.input
		rows, _ := normalizeOne(t, Lenient, r)
		require.Len(t, rows, 1, tc.input)
		assert.Equal(t, tc.expected, rows[0].Sqft, tc.input)
	}
}

func TestEmptySqftExcluded(t *testing.T) {
	for _, policy := range []Policy{Lenient, Strict} {
		for _, sqft := range []string{"", "sqft", " , "} {
			r := rawRow()
			r.Sqft = sqft
			rows, report := normalizeOne(t, policy, r)
			assert.Empty(t, rows)
			assert.Equal(t, 1, report.Dropped[DropEmptySqft])
		}
	}
}

func TestContactPriceIsMissing(t *testing.T) {
	for _, price := range []string{"Contact", "contact for price", "CONTACT"} {
		r := rawRow()
		r.Price = price

		rows, _ := normalizeOne(t, Lenient, r)
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0].Price)

		rows, report := normalizeOne(t, Strict, r)
		assert.Empty(t, rows)
		assert.Equal(t, 1, report.Dropped[DropMissingField])
	}
}

func TestPriceRangeExcluded(t *testing.T) {
	for _, policy := range []Policy{Lenient, Strict} {
		for _, price := range []string{"$1,500 - $2,000", "$1500-1700", "$2,100–$2,400"} {
			r := rawRow()
			r.Price = price
			rows, report := normalizeOne(t, policy, r)
			assert.Empty(t, rows, price)
			assert.Equal(t, 1, report.Dropped[DropPriceRange], price)
		}
	}
}

func TestPriceRangeExcludedEvenWhenOtherwiseInvalid(t *testing.T) {
	r := rawRow()
	r.Price = "$1,500 - $2,000"
	r.Zip = "n/a"
	r.Bath = "lots"
	rows, report := normalizeOne(t, Lenient, r)
	assert.Empty(t, rows)
	assert.Equal(t, 1, report.Dropped[DropPriceRange])
}

func TestPriceCleanup(t *testing.T) {
	testCases := []struct {
		input    string
		expected *int
	}{
		{"$2,150", listing.Int(2150)},
		{"$1,995+", listing.Int(1995)},
		{"$3,000/mo", listing.Int(3000)},
		{"", nil},
		{"Call us", nil},
	}

	for _, tc := range testCases {
		r := rawRow()
		r.Price = tc.input
		rows, _ := normalizeOne(t, Lenient, r)
		require.Len(t, rows, 1, tc.input)
		assert.Equal(t, tc.expected, rows[0].Price, tc.input)
	}
}

func TestStudioBedIsZero(t *testing.T) {
	for _, bed := range []string{"Studio", "studio", "STUDIO", " Studio "} {
		r := rawRow()
		r.Bed = bed
		rows, _ := normalizeOne(t, Strict, r)
		require.Len(t, rows, 1, bed)
		assert.Equal(t, 0.0, *rows[0].Bed, bed)
	}
}

func TestMissingBedIsZeroMissingBathStaysMissing(t *testing.T) {
	r := rawRow()
	r.Bed = ""
	r.Bath = ""

	rows, _ := normalizeOne(t, Lenient, r)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Bed)
	assert.Equal(t, 0.0, *rows[0].Bed)
	assert.Nil(t, rows[0].Bath)
}

func TestBedAndBathUnits(t *testing.T) {
	r := rawRow()
	r.Bed = "2 Beds"
	r.Bath = "1.5 ba"
	rows, _ := normalizeOne(t, Strict, r)
	require.Len(t, rows, 1)
	assert.Equal(t, 2.0, *rows[0].Bed)
	assert.Equal(t, 1.5, *rows[0].Bath)
}

func TestUnparseableNumericsFollowPolicy(t *testing.T) {
	r := rawRow()
	r.Zip = "MA01801"
	r.Bath = "NaN ba"

	rows, report := normalizeOne(t, Lenient, r)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Zipcode)
	assert.Nil(t, rows[0].Bath)
	assert.Equal(t, 1, report.Unparsed["zipcode"])
	assert.Equal(t, 1, report.Unparsed["bath"])

	rows, report = normalizeOne(t, Strict, r)
	assert.Empty(t, rows)
	assert.Equal(t, 1, report.Dropped[DropMissingField])
}

func TestWhitespaceStringsBecomeMissing(t *testing.T) {
	r := rawRow()
	r.Unit = "   "

	rows, _ := normalizeOne(t, Lenient, r)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Unit)

	rows, _ = normalizeOne(t, Strict, r)
	assert.Empty(t, rows)
}

func TestNormalizePreservesOrderAndInput(t *testing.T) {
	a, b, c := rawRow(), rawRow(), rawRow()
	a.Unit, b.Unit, c.Unit = "A", "B", "C"
	b.Price = "$1-2"
	input := []listing.RawListing{a, b, c}

	rows, report := New(Lenient, nil).Normalize(input)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Unit)
	assert.Equal(t, "C", rows[1].Unit)
	assert.Equal(t, 3, report.Input)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, "$1-2", input[1].Price)
	assert.Equal(t, " The Residences ", input[0].Name)
}

func TestUnknownPolicyIsLenient(t *testing.T) {
	r := rawRow()
	r.Bath = ""
	rows, _ := normalizeOne(t, Policy("whatever"), r)
	assert.Len(t, rows, 1)
}

func TestContactWordIsStrippedBeforeRangeCheck(t *testing.T) {
	testCases := []struct {
		input   string
		dropped bool
		price   *int
	}{
		{"$1,500 - Contact", true, nil},
		{"Contact - $1,500", true, nil},
		{"$1,800 contact", false, listing.Int(1800)},
		{"Contact for price", false, nil},
	}

	for _, tc := range testCases {
		r := rawRow()
		r.Price = tc.input
		rows, report := normalizeOne(t, Lenient, r)
		if tc.dropped {
			assert.Empty(t, rows, tc.input)
			assert.Equal(t, 1, report.Dropped[DropPriceRange], tc.input)
			continue
		}
		require.Len(t, rows, 1, tc.input)
		assert.Equal(t, tc.price, rows[0].Price, tc.input)
		assert.Empty(t, report.Unparsed, tc.input)
	}
}

func TestOutOfRangeNumericsBecomeMissing(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*listing.RawListing)
		column string
		value  func(listing.Listing) *int
	}{
		{"huge zip", func(r *listing.RawListing) { r.Zip = "1e25" }, "zipcode", func(l listing.Listing) *int { return l.Zipcode }},
		{"exponent zip", func(r *listing.RawListing) { r.Zip = "1e4" }, "zipcode", func(l listing.Listing) *int { return l.Zipcode }},
		{"decimal zip", func(r *listing.RawListing) { r.Zip = "01801.9" }, "zipcode", func(l listing.Listing) *int { return l.Zipcode }},
		{"overflowing zip digits", func(r *listing.RawListing) { r.Zip = "99999999999999999999" }, "zipcode", func(l listing.Listing) *int { return l.Zipcode }},
		{"huge sqft", func(r *listing.RawListing) { r.Sqft = "1e30 sqft" }, "sqft", func(l listing.Listing) *int { return l.Sqft }},
		{"huge sqft range", func(r *listing.RawListing) { r.Sqft = "1e300-1e308 sqft" }, "sqft", func(l listing.Listing) *int { return l.Sqft }},
		{"huge price", func(r *listing.RawListing) { r.Price = "$1e19" }, "price", func(l listing.Listing) *int { return l.Price }},
		{"infinite price", func(r *listing.RawListing) { r.Price = "$Inf" }, "price", func(l listing.Listing) *int { return l.Price }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := rawRow()
			tc.mutate(&r)

			rows, report := normalizeOne(t, Lenient, r)
			require.Len(t, rows, 1)
			assert.Nil(t, tc.value(rows[0]))
			assert.Equal(t, 1, report.Unparsed[tc.column])

			rows, report = normalizeOne(t, Strict, r)
			assert.Empty(t, rows)
			assert.Equal(t, 1, report.Dropped[DropMissingField])
		})
	}
}

func TestUnparsedValuesAreLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	r := rawRow()
	r.Zip = "MA01801"

	New(Lenient, logger.New(&buf)).Normalize([]listing.RawListing{r})

	assert.Contains(t, buf.String(), "Value left missing")
	assert.Contains(t, buf.String(), `[normalization] zipcode: cannot parse \"MA01801\"`)
	assert.Contains(t, buf.String(), `"url":"https://example.com/p/1"`)
}
