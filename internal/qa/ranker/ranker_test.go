package ranker

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/idf"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
)

func TestNewQueryDeduplicates(t *testing.T) {
	q := NewQuery([]string{"cat", "dog", "cat"})
	if len(q) != 2 {
		t.Fatalf("len = %d, want 2", len(q))
	}
	if got := q.Terms(); !reflect.DeepEqual(got, []string{"cat", "dog"}) {
		t.Errorf("Terms() = %q", got)
	}
}

func TestTopFilesTermFrequency(t *testing.T) {
	files := map[string][]string{
		"d1": {"cat", "dog"},
		"d2": {"cat", "cat"},
	}
	idfs := idf.Table{"cat": 1.0, "dog": 1.0}
	got := TopFiles(NewQuery([]string{"cat"}), files, idfs, 2)
	want := []string{"d2", "d1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopFiles = %q, want %q", got, want)
	}
}

func TestTopFilesTruncation(t *testing.T) {
	files := map[string][]string{
		"a": {"x"},
		"b": {"y"},
		"c": {"x", "y"},
	}
	idfs, err := idf.Compute(files)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	q := NewQuery([]string{"x", "y"})
	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{}},
		{-1, []string{}},
		{1, []string{"c"}},
		{10, []string{"c", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			got := TopFiles(q, files, idfs, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopFiles(n=%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestTopFilesTieBreaksOnID(t *testing.T) {
	files := map[string][]string{
		"zeta":  {"cat"},
		"alpha": {"cat"},
		"mid":   {"cat"},
	}
	idfs := idf.Table{"cat": 0.7}
	for i := 0; i < 20; i++ {
		got := TopFiles(NewQuery([]string{"cat"}), files, idfs, 3)
		if !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
			t.Fatalf("iteration %d: got %q", i, got)
		}
	}
}

func TestRankFilesUnknownTermContributesZero(t *testing.T) {
	files := map[string][]string{
		"a": {"cat"},
		"b": {"dog"},
	}
	idfs := idf.Table{"cat": math.Log(2), "dog": math.Log(2)}
	got := RankFiles(NewQuery([]string{"cat", "unicorn"}), files, idfs, 2)
	if got[0].ID != "a" || got[0].Score != math.Log(2) {
		t.Errorf("first = %+v, want a with ln 2", got[0])
	}
	if got[1].Score != 0 {
		t.Errorf("second score = %v, want 0", got[1].Score)
	}
}

func TestRankFilesDoesNotMutateInputs(t *testing.T) {
	files := map[string][]string{"a": {"x", "y"}, "b": {"y"}}
	idfs := idf.Table{"x": 1, "y": 0.5}
	filesCopy := map[string][]string{"a": {"x", "y"}, "b": {"y"}}
	idfsCopy := idf.Table{"x": 1, "y": 0.5}
	RankFiles(NewQuery([]string{"x"}), files, idfs, 5)
	if !reflect.DeepEqual(files, filesCopy) || !reflect.DeepEqual(idfs, idfsCopy) {
		t.Error("inputs were mutated")
	}
}

func TestTopSentencesDensityTieBreak(t *testing.T) {
	sentences := map[string][]string{
		"long":  {"cat", "dog", "a1", "a2", "a3", "a4", "a5", "a6"},
		"short": {"cat", "dog", "b1", "b2"},
	}
	idfs := idf.Table{"cat": 1.2, "dog": 0.3}
	got, err := TopSentences(NewQuery([]string{"cat", "dog"}), sentences, idfs, 2)
	if err != nil {
		t.Fatalf("TopSentences: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"short", "long"}) {
		t.Errorf("got %q, want short before long", got)
	}
}

func TestRankSentencesIDFCountsPresenceOnly(t *testing.T) {
	sentences := map[string][]string{
		"repeat": {"cat", "cat", "cat"},
		"both":   {"cat", "dog", "x", "y", "z", "w"},
	}
	idfs := idf.Table{"cat": 1.0, "dog": 0.5}
	got, err := RankSentences(NewQuery([]string{"cat", "dog"}), sentences, idfs, 2)
	if err != nil {
		t.Fatalf("RankSentences: %v", err)
	}
	if got[0].Text != "both" {
		t.Fatalf("order = %+v, want both first", got)
	}
	if got[0].IDFSum != 1.5 || got[1].IDFSum != 1.0 {
		t.Errorf("idf sums = %v, %v", got[0].IDFSum, got[1].IDFSum)
	}
	if got[1].Density != 1.0 {
		t.Errorf("density(repeat) = %v, want 1", got[1].Density)
	}
	if math.Abs(got[0].Density-2.0/6.0) > 1e-12 {
		t.Errorf("density(both) = %v, want 1/3", got[0].Density)
	}
}

func TestRankSentencesFinalTieBreakOnText(t *testing.T) {
	sentences := map[string][]string{
		"b sentence": {"cat", "x"},
		"a sentence": {"cat", "y"},
	}
	idfs := idf.Table{"cat": 1}
	got, err := TopSentences(NewQuery([]string{"cat"}), sentences, idfs, 2)
	if err != nil {
		t.Fatalf("TopSentences: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a sentence", "b sentence"}) {
		t.Errorf("got %q", got)
	}
}

func TestTopSentencesEmptyTokensRejected(t *testing.T) {
	sentences := map[string][]string{
		"ok":    {"cat"},
		"empty": {},
	}
	_, err := TopSentences(NewQuery([]string{"cat"}), sentences, idf.Table{"cat": 1}, 1)
	if !errors.Is(err, apperrors.ErrEmptySentence) {
		t.Fatalf("err = %v, want ErrEmptySentence", err)
	}
	_, err = TopSentences(NewQuery([]string{"cat"}), sentences, idf.Table{"cat": 1}, 0)
	if !errors.Is(err, apperrors.ErrEmptySentence) {
		t.Fatalf("n=0: err = %v, want ErrEmptySentence", err)
	}
}

func TestTopSentencesTruncation(t *testing.T) {
	sentences := map[string][]string{
		"one":   {"cat"},
		"two":   {"dog"},
		"three": {"cat", "dog"},
	}
	idfs := idf.Table{"cat": 1, "dog": 1}
	q := NewQuery([]string{"cat", "dog"})

	got, err := TopSentences(q, sentences, idfs, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("n=0: got %q, %v", got, err)
	}
	got, err = TopSentences(q, sentences, idfs, 10)
	if err != nil {
		t.Fatalf("TopSentences: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"three", "one", "two"}) {
		t.Errorf("n=10: got %q", got)
	}
}

func BenchmarkRankFiles(b *testing.B) {
	files := make(map[string][]string, 500)
	for i := 0; i < 500; i++ {
		tokens := make([]string, 0, 200)
		for j := 0; j < 200; j++ {
			tokens = append(tokens, fmt.Sprintf("term%d", (i*7+j)%1000))
		}
		files[fmt.Sprintf("doc-%d", i)] = tokens
	}
	idfs, err := idf.Compute(files)
	if err != nil {
		b.Fatal(err)
	}
	q := NewQuery([]string{"term1", "term42", "term512", "term999"})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = RankFiles(q, files, idfs, 5)
	}
}

func BenchmarkRankSentences(b *testing.B) {
	sentences := make(map[string][]string, 2000)
	for i := 0; i < 2000; i++ {
		tokens := make([]string, 0, 20)
		for j := 0; j < 20; j++ {
			tokens = append(tokens, fmt.Sprintf("term%d", (i*3+j)%400))
		}
		sentences[fmt.Sprintf("sentence %d", i)] = tokens
	}
	idfs, err := idf.Compute(sentences)
	if err != nil {
		b.Fatal(err)
	}
	q := NewQuery([]string{"term3", "term77", "term200"})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RankSentences(q, sentences, idfs, 3); err != nil {
			b.Fatal(err)
		}
	}
}
