// Package idf computes inverse document frequencies over a collection of
// token sequences.
package idf

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
)

// Table maps a token to ln(N / d), where N is the number of documents in the
// collection and d the number of documents containing the token. Every token
// seen in the collection has exactly one entry.
type Table map[string]float64

// Get returns the IDF of token, or 0 when the token never occurred in the
// collection the table was built from.
func (t Table) Get(token string) float64 {
	return t[token]
}

// Compute builds the IDF table for documents. Presence, not frequency, is
// counted: a token repeated in one document counts once for that document.
// The collection must be non-empty; individual sequences may be empty.
func Compute(documents map[string][]string) (Table, error) {
	if len(documents) == 0 {
		return nil, fmt.Errorf("computing idf: %w", apperrors.ErrEmptyCollection)
	}
	docFreq := make(map[string]int)
	for _, tokens := range documents {
		for term := range presence(tokens) {
			docFreq[term]++
		}
	}
	total := float64(len(documents))
	table := make(Table, len(docFreq))
	for term, df := range docFreq {
		table[term] = math.Log(total / float64(df))
	}
	return table, nil
}

func presence(tokens []string) map[string]struct{} {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return seen
}
