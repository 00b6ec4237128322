// Package engine answers questions over a loaded corpus. Documents are ranked
// by TF-IDF, then the sentences of the best documents are ranked by matched
// IDF and query term density.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/corpus"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/idf"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/ranker"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/segmenter"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/tracing"
)

// Span names recorded under the caller's span for each answer.
const (
	StageRankFiles     = "rank_files"
	StageSegment       = "segment"
	StageSentenceIDF   = "sentence_idf"
	StageRankSentences = "rank_sentences"
)

type Options struct {
	Tokenizer       tokenizer.Tokenizer
	Segmenter       segmenter.Segmenter
	FileMatches     int
	SentenceMatches int
	// Workers bounds parallel document tokenization.
	Workers int
}

type Answer struct {
	Question  string                  `json:"question"`
	Terms     []string                `json:"terms"`
	Files     []ranker.ScoredFile     `json:"files"`
	Sentences []ranker.ScoredSentence `json:"sentences"`
}

// Answered reports whether at least one sentence was found.
func (a *Answer) Answered() bool {
	return len(a.Sentences) > 0
}

// Texts returns the matched sentence texts in rank order.
func (a *Answer) Texts() []string {
	texts := make([]string, len(a.Sentences))
	for i, s := range a.Sentences {
		texts[i] = s.Text
	}
	return texts
}

// FileIDs returns the selected document ids in rank order.
func (a *Answer) FileIDs() []string {
	ids := make([]string, len(a.Files))
	for i, f := range a.Files {
		ids[i] = f.ID
	}
	return ids
}

type Stats struct {
	Documents   int      `json:"documents"`
	Vocabulary  int      `json:"vocabulary"`
	Fingerprint string   `json:"fingerprint"`
	IDs         []string `json:"ids"`
}

// Engine holds the tokenized corpus and its IDF table. It is immutable after
// New and safe for concurrent use.
type Engine struct {
	corpus      corpus.Corpus
	files       map[string][]string
	idfs        idf.Table
	opts        Options
	fingerprint string
	logger      *slog.Logger
}

// New tokenizes every document of c and computes the document IDF table.
func New(ctx context.Context, c corpus.Corpus, opts Options) (*Engine, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("building engine: %w", apperrors.ErrEmptyCorpus)
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.New(tokenizer.English())
	}
	if opts.Segmenter == nil {
		opts.Segmenter = segmenter.New()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := slog.Default().With("component", "qa-engine")
	start := time.Now()

	files, err := tokenizeAll(ctx, c, opts.Tokenizer, opts.Workers)
	if err != nil {
		return nil, err
	}
	idfs, err := idf.Compute(files)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}
	e := &Engine{
		corpus:      c,
		files:       files,
		idfs:        idfs,
		opts:        opts,
		fingerprint: c.Fingerprint(),
		logger:      logger,
	}
	logger.Info("engine ready",
		"documents", len(files),
		"vocabulary", len(idfs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return e, nil
}

func tokenizeAll(ctx context.Context, c corpus.Corpus, tok tokenizer.Tokenizer, workers int) (map[string][]string, error) {
	var mu sync.Mutex
	files := make(map[string][]string, len(c))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for id, text := range c {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens := tok.Tokenize(text)
			mu.Lock()
			files[id] = tokens
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tokenizing corpus: %w", err)
	}
	return files, nil
}

func (e *Engine) Stats() Stats {
	return Stats{
		Documents:   len(e.files),
		Vocabulary:  len(e.idfs),
		Fingerprint: e.fingerprint,
		IDs:         e.corpus.IDs(),
	}
}

// Fingerprint identifies the corpus the engine was built from.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Query reduces a question to its normalized token set.
func (e *Engine) Query(question string) ranker.Query {
	return ranker.NewQuery(e.opts.Tokenizer.Tokenize(question))
}

// Answer answers question with the configured match counts.
func (e *Engine) Answer(ctx context.Context, question string) (*Answer, error) {
	return e.AnswerN(ctx, question, e.opts.FileMatches, e.opts.SentenceMatches)
}

// AnswerN answers question, selecting up to fileMatches documents and
// returning up to sentenceMatches sentences from them. A question with no
// meaningful tokens gets an empty answer.
func (e *Engine) AnswerN(ctx context.Context, question string, fileMatches, sentenceMatches int) (*Answer, error) {
	query := e.Query(question)
	answer := &Answer{
		Question:  question,
		Terms:     query.Terms(),
		Files:     []ranker.ScoredFile{},
		Sentences: []ranker.ScoredSentence{},
	}
	if len(query) == 0 {
		return answer, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	_, span := tracing.StartChildSpan(ctx, StageRankFiles)
	answer.Files = ranker.RankFiles(query, e.files, e.idfs, fileMatches)
	span.SetAttr("files", len(answer.Files))
	span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	_, span = tracing.StartChildSpan(ctx, StageSegment)
	sentences := e.sentences(answer.FileIDs())
	span.SetAttr("sentences", len(sentences))
	span.End()
	if len(sentences) == 0 {
		return answer, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	_, span = tracing.StartChildSpan(ctx, StageSentenceIDF)
	sentenceIDFs, err := idf.Compute(sentences)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	_, span = tracing.StartChildSpan(ctx, StageRankSentences)
	ranked, err := ranker.RankSentences(query, sentences, sentenceIDFs, sentenceMatches)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("answering: %w", err)
	}
	answer.Sentences = ranked

	e.logger.Debug("question answered",
		"terms", len(query),
		"files", len(answer.Files),
		"candidate_sentences", len(sentences),
		"sentences", len(answer.Sentences),
	)
	return answer, nil
}

// sentences splits the given documents into passages on newlines, segments
// each passage and keeps every sentence with at least one token. A sentence
// seen twice keeps its last tokenization.
func (e *Engine) sentences(ids []string) map[string][]string {
	sentences := make(map[string][]string)
	for _, id := range ids {
		for _, passage := range strings.Split(e.corpus[id], "\n") {
			for _, s := range e.opts.Segmenter.Segment(passage) {
				if tokens := e.opts.Tokenizer.Tokenize(s); len(tokens) > 0 {
					sentences[s] = tokens
				}
			}
		}
	}
	return sentences
}
