package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"pulsegin/trends/internal/db"
)

// ErrMissingColumns is returned when the CSV header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// Review is one input row
type Review struct {
	Line   int    // 1-based data row number
	Date   string // YYYY-MM-DD, empty when the source date could not be parsed
	Text   string
	Rating *int
}

// Source yields reviews until io.EOF
type Source interface {
	Next() (Review, error)
}

// Columns names the CSV columns holding each review field. Rating is optional.
type Columns struct {
	Date   string
	Text   string
	Rating string
}

// CSVSource reads reviews from delimited text with a header row
type CSVSource struct {
	r         *csv.Reader
	dateIdx   int
	textIdx   int
	ratingIdx int
	line      int
}

// NewCSVSource reads the header from r and locates the configured columns.
func NewCSVSource(r io.Reader, cols Columns) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reading header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range []string{cols.Date, cols.Text} {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	s := &CSVSource{r: cr, dateIdx: index[cols.Date], textIdx: index[cols.Text], ratingIdx: -1}
	if i, ok := index[cols.Rating]; ok && cols.Rating != "" {
		s.ratingIdx = i
	}
	return s, nil
}

// Next returns the next review, or io.EOF after the last row.
func (s *CSVSource) Next() (Review, error) {
	record, err := s.r.Read()
	if err != nil {
		if err == io.EOF {
			return Review{}, io.EOF
		}
		return Review{}, fmt.Errorf("reading row %d: %w", s.line+1, err)
	}
	s.line++

	rev := Review{
		Line: s.line,
		Date: NormalizeDate(field(record, s.dateIdx)),
		Text: field(record, s.textIdx),
	}
	if s.ratingIdx >= 0 {
		rev.Rating = parseRating(field(record, s.ratingIdx))
	}
	return rev, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

var dateLayouts = []string{
	db.DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// NormalizeDate converts a timestamp in any of the accepted layouts to its
// calendar day as written, in YYYY-MM-DD form. It returns "" when no layout
// matches.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(db.DateLayout)
		}
	}
	return ""
}

func parseRating(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	r := int(f)
	return &r
}
