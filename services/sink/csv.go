package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sjsage522/rentalworker/internal/listing"
	apperrors "sjsage522/rentalworker/pkg/errors"
)

// DateLayout is the date format used in file names and the date column
const DateLayout = "2006-01-02"

// Path returns <root>/<id>/<YYYY-MM-DD>.<ext>
func Path(root, id string, date time.Time, ext string) string {
	return filepath.Join(root, id, date.Format(DateLayout)+"."+strings.TrimPrefix(ext, "."))
}

// CityID turns a city id such as "Woburn,MA" into a directory name
// ("Woburn_MA").
func CityID(city string) string {
	id := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(city))
	return strings.Trim(id, "_")
}

// CSVWriter writes listings as comma-separated files
type CSVWriter struct{}

// NewCSVWriter creates a CSVWriter
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Write creates missing directories and writes the header followed by one
// line per listing. overwrote reports that a file already existed at path.
func (w *CSVWriter) Write(path string, rows []listing.Listing) (overwrote bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, apperrors.NewStorage(path, "failed to create output directory", err)
	}
	if _, err := os.Stat(path); err == nil {
		overwrote = true
	}

	// Write next to the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return overwrote, apperrors.NewStorage(path, "failed to create output file", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(listing.Columns); err != nil {
		tmp.Close()
		return overwrote, apperrors.NewStorage(path, "failed to write header", err)
	}
	for _, row := range rows {
		if err := cw.Write(encodeRow(row)); err != nil {
			tmp.Close()
			return overwrote, apperrors.NewStorage(path, "failed to write row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return overwrote, apperrors.NewStorage(path, "failed to flush rows", err)
	}
	if err := tmp.Close(); err != nil {
		return overwrote, apperrors.NewStorage(path, "failed to close output file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return overwrote, apperrors.NewStorage(path, "failed to move output file into place", err)
	}
	return overwrote, nil
}

// ReadCSV parses a file written by CSVWriter
func ReadCSV(path string) ([]listing.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorage(path, "failed to open file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(listing.Columns)
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsing(path, "malformed csv", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsing(path, "missing header", nil)
	}
	for i, name := range listing.Columns {
		if records[0][i] != name {
			return nil, apperrors.NewParsing(path, fmt.Sprintf("unexpected column %q at position %d", records[0][i], i), nil)
		}
	}

	rows := make([]listing.Listing, 0, len(records)-1)
	for n, rec := range records[1:] {
		row, err := decodeRow(rec)
		if err != nil {
			return nil, apperrors.NewParsing(path, fmt.Sprintf("line %d", n+2), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeRow(l listing.Listing) []string {
	return []string{
		l.Name,
		l.Address,
		l.Unit,
		formatInt(l.Sqft),
		formatFloat(l.Bed),
		formatFloat(l.Bath),
		formatInt(l.Price),
		l.City,
		l.State,
		formatInt(l.Zipcode),
		l.Description,
		l.Details,
		l.URL,
		l.Date,
	}
}

func decodeRow(rec []string) (listing.Listing, error) {
	l := listing.Listing{
		Name:        rec[0],
		Address:     rec[1],
		Unit:        rec[2],
		City:        rec[7],
		State:       rec[8],
		Description: rec[10],
		Details:     rec[11],
		URL:         rec[12],
		Date:        rec[13],
	}
	var err error
	if l.Sqft, err = parseInt(rec[3]); err != nil {
		return l, fmt.Errorf("sqft: %w", err)
	}
	if l.Bed, err = parseFloat(rec[4]); err != nil {
		return l, fmt.Errorf("bed: %w", err)
	}
	if l.Bath, err = parseFloat(rec[5]); err != nil {
		return l, fmt.Errorf("bath: %w", err)
	}
	if l.Price, err = parseInt(rec[6]); err != nil {
		return l, fmt.Errorf("price: %w", err)
	}
	if l.Zipcode, err = parseInt(rec[9]); err != nil {
		return l, fmt.Errorf("zipcode: %w", err)
	}
	return l, nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// formatFloat uses the shortest representation that parses back to the same
// value.
func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
