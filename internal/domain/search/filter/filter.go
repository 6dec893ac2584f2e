package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// Filter keys recognized in a Set.
const (
	KeyPriceMax = "price_max"
	KeyPriceMin = "price_min"
	KeyCategory = "category"
)

// Indexed product fields the keys are translated to.
const (
	FieldPrice    = "price"
	FieldCategory = "category"
)

// Set is the structured filter extracted from a query. Absent keys mean no constraint.
type Set struct {
	priceMax *float64
	priceMin *float64
	category string
}

// WithPriceMax returns a copy with an upper price bound.
func (s Set) WithPriceMax(v float64) Set {
	s.priceMax = &v
	return s
}

// WithPriceMin returns a copy with a lower price bound.
func (s Set) WithPriceMin(v float64) Set {
	s.priceMin = &v
	return s
}

// WithCategory returns a copy constrained to one category.
func (s Set) WithCategory(c string) Set {
	s.category = c
	return s
}

// PriceMax returns the upper price bound, if set.
func (s Set) PriceMax() (float64, bool) {
	if s.priceMax == nil {
		return 0, false
	}
	return *s.priceMax, true
}

// PriceMin returns the lower price bound, if set.
func (s Set) PriceMin() (float64, bool) {
	if s.priceMin == nil {
		return 0, false
	}
	return *s.priceMin, true
}

// Category returns the category constraint, if set.
func (s Set) Category() (string, bool) {
	return s.category, s.category != ""
}

// IsEmpty reports whether the set carries no constraint.
func (s Set) IsEmpty() bool {
	return s.priceMax == nil && s.priceMin == nil && s.category == ""
}

// Validate checks per-key value types: prices finite and >= 0, category non-blank.
func (s Set) Validate() error {
	bounds := []struct {
		key string
		v   *float64
	}{{KeyPriceMax, s.priceMax}, {KeyPriceMin, s.priceMin}}
	for _, b := range bounds {
		if b.v == nil {
			continue
		}
		if math.IsNaN(*b.v) || math.IsInf(*b.v, 0) || *b.v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", domain.ErrInvalidFilter, b.key, *b.v)
		}
	}
	if s.category != "" && strings.TrimSpace(s.category) == "" {
		return fmt.Errorf("%w: %s must not be blank", domain.ErrInvalidFilter, KeyCategory)
	}
	return nil
}

// Expression translates the set into AND-combined engine conditions:
// price bounds become one range condition, every other key an exact match.
func (s Set) Expression() (Expression, error) {
	if err := s.Validate(); err != nil {
		return Expression{}, err
	}

	var must []Condition
	if s.priceMin != nil || s.priceMax != nil {
		rng, err := NewRangeFilter(s.priceMin, s.priceMax)
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		c, err := NewRange(FieldPrice, rng)
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		must = append(must, c)
	}
	if s.category != "" {
		c, err := NewMatch(FieldCategory, s.category)
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		must = append(must, c)
	}
	return NewExpression(must)
}

// String renders the set as key=value pairs in a fixed key order, for logs.
func (s Set) String() string {
	var parts []string
	if s.priceMax != nil {
		parts = append(parts, KeyPriceMax+"="+strconv.FormatFloat(*s.priceMax, 'f', -1, 64))
	}
	if s.priceMin != nil {
		parts = append(parts, KeyPriceMin+"="+strconv.FormatFloat(*s.priceMin, 'f', -1, 64))
	}
	if s.category != "" {
		parts = append(parts, KeyCategory+"="+s.category)
	}
	return strings.Join(parts, " ")
}

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 32

// Expression is a conjunction of conditions in engine-neutral form.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(must []Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Must returns the conditions that all have to hold.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Condition is a single filter clause: either a tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is an inclusive numeric range; a nil bound is open.
type Range struct {
	gte *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range. At least one bound is required
// and the lower bound may not exceed the upper one.
func NewRangeFilter(gte, lte *float64) (Range, error) {
	if gte == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Range{}, fmt.Errorf("lower bound %g exceeds upper bound %g", *gte, *lte)
	}
	return Range{gte: gte, lte: lte}, nil
}

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
