package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

func TestReader_ValidFeed(t *testing.T) {
	feed := "id,title,brand,description,category,price,rating\n" +
		"1,ZenBook 14,ASUS,Thin laptop,Laptop,499.99,4.5\n" +
		`2,"QC45, Black",Bose,"Noise cancelling, wireless",headphones,279,` + "\n"

	r, err := NewReader(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	p, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.ID() != "1" || p.Title() != "ZenBook 14" || p.Brand() != "ASUS" {
		t.Errorf("product = %+v", p)
	}
	if p.Category() != "laptop" {
		t.Errorf("category = %q, want lowercased", p.Category())
	}
	if p.Price() != 499.99 || p.Rating() != 4.5 {
		t.Errorf("price/rating = %v/%v", p.Price(), p.Rating())
	}

	p, err = r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.Title() != "QC45, Black" || p.Description() != "Noise cancelling, wireless" {
		t.Errorf("quoted fields = %q / %q", p.Title(), p.Description())
	}
	if p.Rating() != 0 {
		t.Errorf("empty rating = %v, want 0", p.Rating())
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReader_ColumnOrderAndExtras(t *testing.T) {
	feed := "\ufeffPrice, ID ,sku,Title\n" +
		"10,p-1,SKU1,Cable\n"

	r, err := NewReader(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	p, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.ID() != "p-1" || p.Title() != "Cable" || p.Price() != 10 {
		t.Errorf("product = %+v", p)
	}
}

func TestReader_Header(t *testing.T) {
	tests := []struct {
		name string
		feed string
	}{
		{"empty", ""},
		{"missing price", "id,title\n1,x\n"},
		{"missing id", "title,price\nx,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewReader(strings.NewReader(tt.feed)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReader_InvalidRows(t *testing.T) {
	feed := "id,title,price,rating\n" +
		",no id,10,4\n" +
		"2,,10,4\n" +
		"3,bad price,ten,4\n" +
		"4,negative,-1,4\n" +
		"5,too good,10,7\n" +
		"6,missing price,,4\n" +
		"7,ok,10,4\n"

	r, err := NewReader(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	for line := 2; line <= 7; line++ {
		_, err := r.Next()
		var rowErr *RowError
		if !errors.As(err, &rowErr) {
			t.Fatalf("line %d: expected RowError, got %v", line, err)
		}
		if rowErr.Line != line {
			t.Errorf("RowError.Line = %d, want %d", rowErr.Line, line)
		}
		if !errors.Is(err, domain.ErrInvalidProduct) {
			t.Errorf("line %d: expected ErrInvalidProduct, got %v", line, err)
		}
	}

	p, err := r.Next()
	if err != nil {
		t.Fatalf("reader must recover after bad rows: %v", err)
	}
	if p.ID() != "7" {
		t.Errorf("ID = %q, want 7", p.ID())
	}
}
