// Package tokenizer provides text tokenisation for question answering.
// It strips ASCII punctuation, splits on whitespace, lower-cases input,
// removes stop-words from an injected set, and can optionally apply the
// Snowball English stemmer.
package tokenizer

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// Tokenizer converts raw text into an ordered sequence of normalised tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// StopwordSet holds the lower-case words dropped during tokenisation.
type StopwordSet map[string]struct{}

// NewStopwordSet builds a set from the given words, lower-casing each one.
func NewStopwordSet(words ...string) StopwordSet {
	set := make(StopwordSet, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Contains reports whether word is a stop-word.
func (s StopwordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var punctReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(punctuation)*2)
	for _, r := range punctuation {
		pairs = append(pairs, string(r), "")
	}
	return strings.NewReplacer(pairs...)
}()

// Word is the default Tokenizer.
type Word struct {
	stopwords StopwordSet
	stem      bool
}

// Option configures a Word tokenizer.
type Option func(*Word)

// WithStemming reduces every kept token to its Snowball English stem.
func WithStemming(enabled bool) Option {
	return func(w *Word) {
		w.stem = enabled
	}
}

// New returns a Word tokenizer that drops tokens found in stopwords. A nil set
// keeps every token.
func New(stopwords StopwordSet, opts ...Option) *Word {
	if stopwords == nil {
		stopwords = StopwordSet{}
	}
	w := &Word{stopwords: stopwords}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tokenize returns the lower-cased, punctuation-free, stop-word-filtered words
// of text in their original order.
func (w *Word) Tokenize(text string) []string {
	fields := strings.Fields(punctReplacer.Replace(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.ToLower(field)
		if w.stopwords.Contains(word) {
			continue
		}
		if w.stem {
			word = english.Stem(word, false)
			if word == "" {
				continue
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}
