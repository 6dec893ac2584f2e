// Package query turns free-text product queries into search text plus structured filters.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
)

// DefaultCategories is the category vocabulary in match order.
// "headphones" precedes "phone" so it is not shadowed by the shorter term.
var DefaultCategories = []string{"laptop", "headphones", "phone", "watch", "camera"}

// thousandsUnit multiplies a price followed by the "k" marker. The marker must end
// the word; any other trailing unit ("500rs", "2kg") is left in the query text.
const thousandsUnit = 1000

var pricePattern = regexp.MustCompile(`(?i)\bunder\s+(\d+)(k\b)?`)

// Normalizer extracts a price ceiling and a category from query text.
// It is safe for concurrent use.
type Normalizer struct {
	categories []string
}

// NewNormalizer creates a normalizer with the given category vocabulary.
// An empty vocabulary falls back to DefaultCategories.
func NewNormalizer(categories []string) *Normalizer {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	vocab := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			vocab = append(vocab, c)
		}
	}
	return &Normalizer{categories: vocab}
}

// Normalize returns the cleaned query and the filters found in raw.
//
// Only the first "under <n>[k]" phrase is recognized; it sets price_max and is cut
// out of the query, keeping the original casing of the rest. The first vocabulary
// category contained in the query sets category and stays in the text.
// Unrecognized text is never an error.
func (n *Normalizer) Normalize(raw string) (string, filter.Set) {
	var filters filter.Set
	clean := strings.TrimSpace(raw)

	if loc := pricePattern.FindStringSubmatchIndex(clean); loc != nil {
		// Digits only, so ParseFloat cannot fail; huge values saturate to +Inf
		// and are rejected by filter validation downstream.
		amount, _ := strconv.ParseFloat(clean[loc[2]:loc[3]], 64)
		if loc[5] > loc[4] {
			amount *= thousandsUnit
		}
		filters = filters.WithPriceMax(amount)
		clean = joinAround(clean[:loc[0]], clean[loc[1]:])
	}

	lower := strings.ToLower(clean)
	for _, c := range n.categories {
		if strings.Contains(lower, c) {
			filters = filters.WithCategory(c)
			break
		}
	}

	return clean, filters
}

// joinAround glues the text on both sides of a removed span with a single space.
func joinAround(before, after string) string {
	before = strings.TrimSpace(before)
	after = strings.TrimSpace(after)
	switch {
	case before == "":
		return after
	case after == "":
		return before
	default:
		return before + " " + after
	}
}
