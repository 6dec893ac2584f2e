package product

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
)

// buildHashFields converts a product into the flat hash the FT index reads.
func buildHashFields(p *domprod.Product) map[string]string {
	return map[string]string{
		keyspace.FieldTitle:       p.Title(),
		keyspace.FieldBrand:       p.Brand(),
		keyspace.FieldDescription: p.Description(),
		keyspace.FieldCategory:    p.Category(),
		keyspace.FieldPrice:       strconv.FormatFloat(p.Price(), 'f', -1, 64),
		keyspace.FieldRating:      strconv.FormatFloat(p.Rating(), 'f', -1, 64),
		keyspace.FieldVector:      vectorToBytes(p.Vector()),
	}
}

// parseHashFields rebuilds a product from its hash. The vector field is never read back.
func parseHashFields(id string, m map[string]string) (domprod.Product, error) {
	price, err := parseNumber(m, keyspace.FieldPrice)
	if err != nil {
		return domprod.Product{}, err
	}
	rating, err := parseNumber(m, keyspace.FieldRating)
	if err != nil {
		return domprod.Product{}, err
	}

	return domprod.New(
		id,
		m[keyspace.FieldTitle],
		m[keyspace.FieldBrand],
		m[keyspace.FieldDescription],
		m[keyspace.FieldCategory],
		price, rating,
	)
}

func parseNumber(m map[string]string, field string) (float64, error) {
	raw, ok := m[field]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return v, nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
