package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
)

// Weights is the linear fusion policy. All values are non-negative.
type Weights struct {
	Semantic float64 // multiplier for semantic similarity
	Keyword  float64 // multiplier for max-normalized keyword relevance
	Rating   float64 // boost at the top of the rating scale
	// RatingExplainMin is the rating boost above which "High rating" is explained.
	RatingExplainMin float64
	// PriceBoost is added to every hydrated candidate regardless of its price.
	PriceBoost float64
}

// DefaultWeights returns the calibrated default policy.
func DefaultWeights() Weights {
	return Weights{
		Semantic:         0.5,
		Keyword:          0.3,
		Rating:           0.1,
		RatingExplainMin: 0.08,
		PriceBoost:       0.1,
	}
}

// Fuser merges semantic and keyword candidates into one ranked, explained list.
// It holds no per-request state and is safe for concurrent use.
type Fuser struct {
	w Weights
}

// NewFuser creates a fuser with the given weights.
func NewFuser(w Weights) *Fuser {
	return &Fuser{w: w}
}

type accumulated struct {
	score       float64
	explanation []string
}

// Fuse scores every candidate that has a hydrated product and returns them by
// descending score. Ties keep first-seen order: semantic list first, then keyword.
// The caller truncates to its limit.
func (f *Fuser) Fuse(
	semantic, keyword []candidate.Result, products map[string]domprod.Product,
) ([]result.Ranked, error) {
	for _, list := range [][]candidate.Result{semantic, keyword} {
		for _, c := range list {
			if err := c.Validate(); err != nil {
				return nil, err
			}
		}
	}

	var order []string
	acc := make(map[string]*accumulated, len(semantic)+len(keyword))
	entry := func(id string) *accumulated {
		e, ok := acc[id]
		if !ok {
			e = &accumulated{}
			acc[id] = e
			order = append(order, id)
		}
		return e
	}

	for _, c := range semantic {
		e := entry(c.ID)
		e.score += f.w.Semantic * c.Score
		e.explanation = append(e.explanation, fmt.Sprintf("Semantic match (%.2f)", c.Score))
	}

	if len(keyword) > 0 {
		maxScore := keyword[0].Score
		for _, c := range keyword[1:] {
			maxScore = max(maxScore, c.Score)
		}
		for _, c := range keyword {
			var norm float64
			if maxScore > 0 {
				norm = c.Score / maxScore
			}
			e := entry(c.ID)
			e.score += f.w.Keyword * norm
			e.explanation = append(e.explanation, fmt.Sprintf("Keyword match (%.2f)", norm))
		}
	}

	ranked := make([]result.Ranked, 0, len(order))
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			continue
		}
		e := acc[id]

		ratingBoost := p.Rating() / domprod.MaxRating * f.w.Rating
		e.score += ratingBoost
		if ratingBoost > f.w.RatingExplainMin {
			e.explanation = append(e.explanation, "High rating ("+formatRating(p.Rating())+")")
		}

		e.score += f.w.PriceBoost

		ranked = append(ranked, result.New(p, e.score, e.explanation))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})

	return ranked, nil
}

// formatRating prints the raw rating with at least one decimal place: 4.5, 5.0.
func formatRating(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
