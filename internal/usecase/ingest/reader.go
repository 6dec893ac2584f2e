package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// Feed columns. Extra columns are ignored, order is free.
const (
	ColumnID          = "id"
	ColumnTitle       = "title"
	ColumnBrand       = "brand"
	ColumnDescription = "description"
	ColumnCategory    = "category"
	ColumnPrice       = "price"
	ColumnRating      = "rating"
)

var requiredColumns = []string{ColumnID, ColumnTitle, ColumnPrice}

// RowError is a feed row that could not be turned into a product.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err.Error())
}

func (e *RowError) Unwrap() error { return e.Err }

// Reader decodes products from a CSV feed with a header row.
type Reader struct {
	csv  *csv.Reader
	cols map[string]int
}

// NewReader reads the header and checks that the required columns exist.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("product feed is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("product feed header lacks column %q", c)
		}
	}

	return &Reader{csv: cr, cols: cols}, nil
}

// Next returns the next product. A malformed row yields a *RowError and the
// reader stays usable; io.EOF marks the end of the feed.
func (r *Reader) Next() (domprod.Product, error) {
	rec, err := r.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return domprod.Product{}, &RowError{Line: parseErr.Line, Err: fmt.Errorf("%w: %w", domain.ErrInvalidProduct, err)}
		}
		return domprod.Product{}, err //nolint:wrapcheck // io.EOF must stay comparable
	}

	line, _ := r.csv.FieldPos(0)
	p, err := r.parse(rec)
	if err != nil {
		return domprod.Product{}, &RowError{Line: line, Err: fmt.Errorf("%w: %w", domain.ErrInvalidProduct, err)}
	}
	return p, nil
}

func (r *Reader) parse(rec []string) (domprod.Product, error) {
	price, err := r.number(rec, ColumnPrice, false)
	if err != nil {
		return domprod.Product{}, err
	}
	rating, err := r.number(rec, ColumnRating, true)
	if err != nil {
		return domprod.Product{}, err
	}

	return domprod.New(
		r.field(rec, ColumnID),
		r.field(rec, ColumnTitle),
		r.field(rec, ColumnBrand),
		r.field(rec, ColumnDescription),
		strings.ToLower(r.field(rec, ColumnCategory)),
		price, rating,
	)
}

func (r *Reader) field(rec []string, col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (r *Reader) number(rec []string, col string, optional bool) (float64, error) {
	s := r.field(rec, col)
	if s == "" {
		if optional {
			return 0, nil
		}
		return 0, fmt.Errorf("%s is required", col)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", col, s)
	}
	return v, nil
}
