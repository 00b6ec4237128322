package corpus

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true,
	"article": true, "header": true, "footer": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
	"table": true, "ul": true, "ol": true, "title": true, "dd": true, "dt": true,
}

// extractText returns the visible text of an HTML document with one line per
// block element. Script and style bodies are dropped.
func extractText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	var (
		out  strings.Builder
		line strings.Builder
		skip int
	)
	flush := func() {
		if text := strings.Join(strings.Fields(line.String()), " "); text != "" {
			out.WriteString(text)
			out.WriteByte('\n')
		}
		line.Reset()
	}
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			flush()
			return strings.TrimRight(out.String(), "\n"), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			switch {
			case tt == html.SelfClosingTagToken:
				// A self-closing <script/> or <style/> has no body.
				tokenizer.NextIsNotRawText()
			case tag == "script" || tag == "style":
				skip++
			}
			if blockTags[tag] {
				flush()
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				flush()
			}
		case html.TextToken:
			if skip == 0 {
				line.Write(tokenizer.Text())
				line.WriteByte(' ')
			}
		}
	}
}
