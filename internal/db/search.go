package db

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// SearchTerms splits a query into lower-cased search words.
// Stopwords and words shorter than 3 characters are dropped and punctuation
// is trimmed from both ends.
func SearchTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(query) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len([]rune(trimmed)) < 3 {
			continue
		}
		lower := strings.ToLower(trimmed)
		if stopwords[lower] {
			continue
		}
		terms = append(terms, lower)
	}
	return terms
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// SearchTopics returns topics whose label contains any query term, most
// matched terms first, then by id. An empty query returns no topics.
func (d *DB) SearchTopics(ctx context.Context, query string, limit int) ([]Topic, error) {
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return []Topic{}, nil
	}

	clauses := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, term := range terms {
		clauses[i] = `lower(label) LIKE ? ESCAPE '\'`
		args[i] = likePattern(term)
	}
	found, err := queryTopics(ctx, d.conn,
		"SELECT "+topicColumns+" FROM topics WHERE "+strings.Join(clauses, " OR ")+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}

	score := func(t Topic) int {
		label := strings.ToLower(t.Label)
		n := 0
		for _, term := range terms {
			if strings.Contains(label, term) {
				n++
			}
		}
		return n
	}
	sort.SliceStable(found, func(i, j int) bool { return score(found[i]) > score(found[j]) })

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}
