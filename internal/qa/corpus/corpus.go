// Package corpus loads a directory of documents into memory.
package corpus

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
)

// DefaultExtensions are the file types a corpus directory is scanned for.
var DefaultExtensions = []string{".txt", ".html", ".htm"}

// Corpus maps a document id (its file name) to the document's text.
type Corpus map[string]string

// IDs returns the document ids in sorted order.
func (c Corpus) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fingerprint identifies the corpus contents. Two corpora with the same ids
// and texts have the same fingerprint.
func (c Corpus) Fingerprint() string {
	h := sha256.New()
	for _, id := range c.IDs() {
		h.Write([]byte(id))
		h.Write([]byte{0})
		h.Write([]byte(c[id]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type Options struct {
	// Extensions restricts which files are loaded. Empty accepts every file.
	Extensions []string
	// MaxFileSize rejects larger files when positive.
	MaxFileSize int64
	// Workers bounds concurrent file reads. Defaults to 4.
	Workers int
}

// Load reads every regular, non-hidden file directly inside dir. HTML files
// are reduced to their visible text.
func Load(ctx context.Context, dir string, opts Options) (Corpus, error) {
	logger := slog.Default().With("component", "corpus-loader")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading corpus %s: %w", dir, apperrors.ErrCorpusNotFound)
		}
		return nil, fmt.Errorf("reading corpus %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !acceptExtension(e.Name(), opts.Extensions) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("reading corpus %s: %w", dir, apperrors.ErrEmptyCorpus)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	var mu sync.Mutex
	docs := make(Corpus, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := readDocument(filepath.Join(dir, name), opts.MaxFileSize)
			if err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			mu.Lock()
			docs[name] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("corpus loaded", "dir", dir, "documents", len(docs))
	return docs, nil
}

func readDocument(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "file is %d bytes, limit is %d", info.Size(), maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return extractText(bytes.NewReader(data))
	}
	return string(data), nil
}

func acceptExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
