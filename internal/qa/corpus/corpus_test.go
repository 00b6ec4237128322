package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Question-Answering/pkg/errors"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"python.txt":  "Python is a language.",
		"ai.txt":      "AI is a field.",
		".hidden.txt": "ignored",
		"notes.md":    "ignored by extension",
		"page.html":   "<html><body><p>Hello there.</p></body></html>",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, filepath.Join(dir, "nested"), map[string]string{"inner.txt": "skipped"})

	c, err := Load(context.Background(), dir, Options{Extensions: DefaultExtensions})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.IDs(); !reflect.DeepEqual(got, []string{"ai.txt", "page.html", "python.txt"}) {
		t.Fatalf("IDs() = %q", got)
	}
	if c["python.txt"] != "Python is a language." {
		t.Errorf("python.txt = %q", c["python.txt"])
	}
	if c["page.html"] != "Hello there." {
		t.Errorf("page.html = %q", c["page.html"])
	}
}

func TestLoadAcceptsAnyExtensionWhenUnrestricted(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.md": "one", "b": "two"})
	c, err := Load(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 2 {
		t.Errorf("len = %d, want 2", len(c))
	}
}

func TestLoadErrors(t *testing.T) {
	empty := t.TempDir()
	writeFiles(t, empty, map[string]string{"only.md": "wrong extension"})

	big := t.TempDir()
	writeFiles(t, big, map[string]string{"huge.txt": strings.Repeat("x", 128)})

	tests := []struct {
		name string
		dir  string
		opts Options
		want error
	}{
		{"missing directory", filepath.Join(empty, "does-not-exist"), Options{}, apperrors.ErrCorpusNotFound},
		{"no eligible files", empty, Options{Extensions: []string{".txt"}}, apperrors.ErrEmptyCorpus},
		{"file too large", big, Options{MaxFileSize: 64}, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.dir, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "one"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, dir, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Corpus{"x.txt": "alpha", "y.txt": "beta"}
	b := Corpus{"y.txt": "beta", "x.txt": "alpha"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint depends on map order")
	}
	c := Corpus{"x.txt": "alpha", "y.txt": "betA"}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("fingerprint ignores content")
	}
	d := Corpus{"x.txtalpha": "", "y.txt": "beta"}
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("fingerprint ambiguous across id/content boundary")
	}
}

func TestExtractText(t *testing.T) {
	doc := `<html><head><title>Guide</title><style>p { color: red; }</style>
<script>var x = "hidden";</script></head>
<body><h1>Intro</h1><p>First   paragraph
spans lines.</p><div>Second <b>bold</b> block.</div><br/>Tail</body></html>`
	got, err := extractText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	want := "Guide\nIntro\nFirst paragraph spans lines.\nSecond bold block.\nTail"
	if got != want {
		t.Errorf("extractText =\n%q\nwant\n%q", got, want)
	}
}

func TestExtractTextSelfClosingScript(t *testing.T) {
	doc := `<html><head><script src="a.js"/><style/></head><body><p>The cat sat.</p><script>hidden()</script><p>The dog ran.</p></body></html>`
	got, err := extractText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	want := "The cat sat.\nThe dog ran."
	if got != want {
		t.Errorf("extractText = %q, want %q", got, want)
	}
}
