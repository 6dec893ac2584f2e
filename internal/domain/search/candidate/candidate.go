package candidate

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// Source identifies the retrieval source a candidate came from.
type Source string

// Supported retrieval sources.
const (
	SourceKeyword  Source = "keyword"
	SourceSemantic Source = "semantic"
)

// Result is one scored candidate ID from a single source.
// For keyword hits Score is the raw relevance, for semantic hits a similarity in [0,1].
type Result struct {
	ID     string
	Score  float64
	Source Source
}

// Validate rejects candidates that fusion cannot score.
func (r Result) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: %s candidate without ID", domain.ErrInvalidCandidate, r.Source)
	}
	if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) || r.Score < 0 {
		return fmt.Errorf("%w: %s candidate %s has score %v", domain.ErrInvalidCandidate, r.Source, r.ID, r.Score)
	}
	return nil
}

// SimilarityFromDistance maps a non-negative distance to a similarity in (0,1].
func SimilarityFromDistance(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// UnionIDs returns the distinct IDs of all lists in first-seen order.
func UnionIDs(lists ...[]Result) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, list := range lists {
		for _, r := range list {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			ids = append(ids, r.ID)
		}
	}
	return ids
}
