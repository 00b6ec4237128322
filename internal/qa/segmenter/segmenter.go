// Package segmenter splits passages of prose into sentences using
// punctuation and abbreviation rules.
package segmenter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segmenter splits text into sentence strings.
type Segmenter interface {
	Segment(text string) []string
}

var defaultAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt", "vs", "etc",
	"e.g", "i.e", "al", "fig", "vol", "ca", "approx", "dept", "est", "inc",
	"ltd", "co", "corp", "jan", "feb", "mar", "apr", "jun", "jul", "aug",
	"sep", "sept", "oct", "nov", "dec", "u.s", "u.k", "a.m", "p.m", "gen",
	"col", "lt", "sgt", "capt", "rev", "ph.d",
}

// numberAbbreviations only abbreviate when a number follows, so "No. 5" holds
// together while "I said no. Then" still splits.
var numberAbbreviations = map[string]struct{}{"no": {}, "nos": {}}

// Rules is a rule-based Segmenter. A sentence ends at '.', '!' or '?' (and any
// closing quotes or brackets right after it) when followed by whitespace or
// the end of the text. A period does not end a sentence after a known
// abbreviation, a single capital initial, or a number or dotted word followed
// by a lowercase continuation.
type Rules struct {
	abbreviations map[string]struct{}
}

// New returns a Rules segmenter knowing the default abbreviations plus extra.
// Abbreviations are given without their final period, e.g. "e.g" or "dr".
func New(extra ...string) *Rules {
	abbrevs := make(map[string]struct{}, len(defaultAbbreviations)+len(extra))
	for _, a := range defaultAbbreviations {
		abbrevs[a] = struct{}{}
	}
	for _, a := range extra {
		abbrevs[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return &Rules{abbreviations: abbrevs}
}

// Segment returns the trimmed, non-empty sentences of text in order.
func (r *Rules) Segment(text string) []string {
	sentences := make([]string, 0, 4)
	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	start, i := 0, 0
	for i < len(text) {
		if !isTerminator(text[i]) {
			i++
			continue
		}
		end := i + 1
		for end < len(text) && isTerminator(text[end]) {
			end++
		}
		singlePeriod := text[i] == '.' && end == i+1
		for end < len(text) {
			c, size := utf8.DecodeRuneInString(text[end:])
			if !isCloser(c) {
				break
			}
			end += size
		}
		if end < len(text) {
			c, _ := utf8.DecodeRuneInString(text[end:])
			if !unicode.IsSpace(c) {
				i = end
				continue
			}
		}
		if singlePeriod && r.isAbbreviation(text[start:i], nextRune(text[end:])) {
			i = end
			continue
		}
		emit(text[start:end])
		start, i = end, end
	}
	emit(text[start:])
	return sentences
}

// isAbbreviation reports whether the last word of prefix, which directly
// precedes a period, is an abbreviation rather than a sentence end.
func (r *Rules) isAbbreviation(prefix string, next rune) bool {
	fields := strings.Fields(prefix)
	if len(fields) == 0 {
		return false
	}
	word := strings.TrimLeft(fields[len(fields)-1], "\"'([{“‘")
	if word == "" {
		return false
	}
	if _, ok := r.abbreviations[strings.ToLower(word)]; ok {
		return true
	}
	if _, ok := numberAbbreviations[strings.ToLower(word)]; ok && unicode.IsDigit(next) {
		return true
	}
	if first, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(first) && first != 'I' {
		return true
	}
	return (strings.Contains(word, ".") || isNumber(word)) && unicode.IsLower(next)
}

func isNumber(word string) bool {
	for _, c := range word {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

func nextRune(rest string) rune {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if rest == "" {
		return utf8.RuneError
	}
	c, _ := utf8.DecodeRuneInString(rest)
	return c
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isCloser(c rune) bool {
	switch c {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}
