package ranker

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/idf"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
)

// Query is the set of normalized tokens a question was reduced to.
type Query map[string]struct{}

// NewQuery collapses tokens into a Query.
func NewQuery(tokens []string) Query {
	q := make(Query, len(tokens))
	for _, t := range tokens {
		q[t] = struct{}{}
	}
	return q
}

func (q Query) Contains(token string) bool {
	_, ok := q[token]
	return ok
}

// Terms returns the query tokens in sorted order.
func (q Query) Terms() []string {
	terms := make([]string, 0, len(q))
	for t := range q {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

type ScoredFile struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type ScoredSentence struct {
	Text    string  `json:"text"`
	IDFSum  float64 `json:"idf_sum"`
	Density float64 `json:"density"`
}

// RankFiles scores every file by the sum over query terms of term count
// times IDF, ordered by score descending and then id ascending. Terms missing
// from idfs contribute nothing.
func RankFiles(query Query, files map[string][]string, idfs idf.Table, limit int) []ScoredFile {
	if limit <= 0 {
		return []ScoredFile{}
	}
	result := make([]ScoredFile, 0, len(files))
	for id, tokens := range files {
		var score float64
		for _, tok := range tokens {
			if query.Contains(tok) {
				score += idfs[tok]
			}
		}
		result = append(result, ScoredFile{ID: id, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ID < result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// TopFiles returns the ids of the n best files for query.
func TopFiles(query Query, files map[string][]string, idfs idf.Table, n int) []string {
	ranked := RankFiles(query, files, idfs, n)
	ids := make([]string, len(ranked))
	for i, f := range ranked {
		ids[i] = f.ID
	}
	return ids
}

// RankSentences orders sentences by matched IDF sum, then query term density,
// then text. Each query term counts once towards the IDF sum no matter how
// often it occurs. Every sentence must have at least one token.
func RankSentences(query Query, sentences map[string][]string, idfs idf.Table, limit int) ([]ScoredSentence, error) {
	result := make([]ScoredSentence, 0, len(sentences))
	for text, tokens := range sentences {
		if len(tokens) == 0 {
			return nil, fmt.Errorf("ranking sentence %q: %w", text, apperrors.ErrEmptySentence)
		}
		var (
			idfSum  float64
			matches int
		)
		seen := make(map[string]struct{}, len(query))
		for _, tok := range tokens {
			if !query.Contains(tok) {
				continue
			}
			matches++
			if _, dup := seen[tok]; !dup {
				seen[tok] = struct{}{}
				idfSum += idfs[tok]
			}
		}
		result = append(result, ScoredSentence{
			Text:    text,
			IDFSum:  idfSum,
			Density: float64(matches) / float64(len(tokens)),
		})
	}
	if limit <= 0 {
		return []ScoredSentence{}, nil
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.IDFSum != b.IDFSum {
			return a.IDFSum > b.IDFSum
		}
		if a.Density != b.Density {
			return a.Density > b.Density
		}
		return a.Text < b.Text
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// TopSentences returns the text of the n best sentences for query.
func TopSentences(query Query, sentences map[string][]string, idfs idf.Table, n int) ([]string, error) {
	ranked, err := RankSentences(query, sentences, idfs, n)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(ranked))
	for i, s := range ranked {
		texts[i] = s.Text
	}
	return texts, nil
}
