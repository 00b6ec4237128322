// Package setup builds a question answering engine from configuration.
package setup

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/corpus"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/engine"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/segmenter"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/internal/qa/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/resilience"
)

// Engine loads cfg.Corpus.Dir within cfg.Corpus.LoadTimeout and indexes it.
func Engine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	docs, err := resilience.WithTimeoutValue(ctx, cfg.Corpus.LoadTimeout, "corpus-load",
		func(ctx context.Context) (corpus.Corpus, error) {
			return corpus.Load(ctx, cfg.Corpus.Dir, corpus.Options{
				Extensions:  cfg.Corpus.Extensions,
				MaxFileSize: cfg.Corpus.MaxFileSize,
				Workers:     cfg.Retrieval.Workers,
			})
		})
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	e, err := engine.New(ctx, docs, engine.Options{
		Tokenizer:       tokenizer.New(tokenizer.English(), tokenizer.WithStemming(cfg.Retrieval.Stemming)),
		Segmenter:       segmenter.New(),
		FileMatches:     cfg.Retrieval.FileMatches,
		SentenceMatches: cfg.Retrieval.SentenceMatches,
		Workers:         cfg.Retrieval.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("indexing corpus: %w", err)
	}
	return e, nil
}
