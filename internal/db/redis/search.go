package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
)

// KNNScoreField is the alias the KNN distance is returned under.
const KNNScoreField = "knn_dist"

const defaultVectorField = "__vector"

// SearchKNN runs a KNN vector search via FT.SEARCH.
// Entry scores are the raw distances, nearest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, field, KNNScoreField)
	prefilter := "*"
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		prefilter = "(" + filterStr + ")"
	}

	args := []string{q.IndexName, prefilter + "=>" + knnPart}

	returnFields := append([]string{KNNScoreField}, q.ReturnFields...)
	args = append(args, "RETURN", strconv.Itoa(len(returnFields)))
	args = append(args, returnFields...)

	args = append(args,
		"SORTBY", KNNScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// SearchBM25 runs a BM25 text search via FT.SEARCH.
// Query terms are OR-ed so any matching term makes a document a candidate.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	textPart, err := buildTextClause(q.Query, q.Fields)
	if err != nil {
		return nil, err
	}

	queryStr := textPart
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = filterStr + " " + textPart
	}

	args := []string{q.IndexName, queryStr, "WITHSCORES", "SCORER", "BM25STD"}

	withContent := len(q.ReturnFields) > 0
	if withContent {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	} else {
		args = append(args, "NOCONTENT")
	}

	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseBM25Result(raw, withContent)
}

// buildTextClause renders "@f1|f2:(t1|t2)" from the whitespace-separated query terms.
func buildTextClause(query string, fields []string) (string, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return "", fmt.Errorf("query is required")
	}
	for i, t := range terms {
		terms[i] = escapeQuery(t)
	}
	clause := "(" + strings.Join(terms, "|") + ")"
	if len(fields) == 0 {
		return clause, nil
	}
	return "@" + strings.Join(fields, "|") + ":" + clause, nil
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)}

		scoreStr, ok := entry.Fields[KNNScoreField]
		if !ok {
			continue
		}
		dist, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		entry.Score = dist
		delete(entry.Fields, KNNScoreField)

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseBM25Result(raw []rueidis.RedisMessage, withContent bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	// [total, key, score(, fields), key, score(, fields), ...]
	stride := 2
	if withContent {
		stride = 3
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/stride)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Score: score}
		if withContent {
			fields, err := raw[i+2].ToArray()
			if err != nil {
				continue
			}
			entry.Fields = parseFieldPairs(fields)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter;
// conditions are space-joined, which the query engine treats as AND.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Must()))
	for _, cond := range expr.Must() {
		switch {
		case cond.IsRange():
			parts = append(parts, buildNumericFilter(cond.Key(), *cond.Range()))
		case cond.IsMatch():
			parts = append(parts, buildTagFilter(cond.Key(), cond.Match()))
		}
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GTE() != nil {
		minBound = strconv.FormatFloat(*r.GTE(), 'f', -1, 64)
	}
	if r.LTE() != nil {
		maxBound = strconv.FormatFloat(*r.LTE(), 'f', -1, 64)
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)

// vectorToBytes encodes v as little-endian FLOAT32, the layout the VECTOR field expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
