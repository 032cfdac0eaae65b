package listing

// Columns is the output header, in order
var Columns = []string{
	"name", "address", "unit", "sqft", "bed", "bath", "price",
	"city", "state", "zipcode", "description", "details", "url", "date",
}

// RawListing is one floor-plan row as scraped from a detail page. Every
// field is text; an empty string means the value was missing. URL and Date
// are always set.
type RawListing struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Unit        string `json:"unit"`
	Sqft        string `json:"sqft"`
	Bed         string `json:"bed"`
	Bath        string `json:"bath"`
	Price       string `json:"price"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Description string `json:"description"`
	Details     string `json:"details"`
	URL         string `json:"url"`
	Date        string `json:"date"`
}

// Listing is the typed projection of a RawListing. Nil numeric pointers and
// empty strings mean missing.
type Listing struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Unit        string   `json:"unit"`
	Sqft        *int     `json:"sqft"`
	Bed         *float64 `json:"bed"`
	Bath        *float64 `json:"bath"`
	Price       *int     `json:"price"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Zipcode     *int     `json:"zipcode"`
	Description string   `json:"description"`
	Details     string   `json:"details"`
	URL         string   `json:"url"`
	Date        string   `json:"date"`
}

// HasMissing reports whether any column is missing
func (l Listing) HasMissing() bool {
	if l.Sqft == nil || l.Bed == nil || l.Bath == nil || l.Price == nil || l.Zipcode == nil {
		return true
	}
	for _, s := range []string{l.Name, l.Address, l.Unit, l.City, l.State, l.Description, l.Details, l.URL, l.Date} {
		if s == "" {
			return true
		}
	}
	return false
}

// Aggregate concatenates per-listing batches in crawl order. It neither
// dedupes nor validates.
func Aggregate(batches ...[]RawListing) []RawListing {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	out := make([]RawListing, 0, total)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }
