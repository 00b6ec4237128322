package segmenter

import (
	"reflect"
	"testing"
)

func TestSegment(t *testing.T) {
	seg := New()
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two simple sentences",
			text: "The cat sat. The dog ran.",
			want: []string{"The cat sat.", "The dog ran."},
		},
		{
			name: "question and exclamation",
			text: "Is it raining? Yes! Bring a coat.",
			want: []string{"Is it raining?", "Yes!", "Bring a coat."},
		},
		{
			name: "stacked terminators",
			text: "Wait?! Really...  Fine.",
			want: []string{"Wait?!", "Really...", "Fine."},
		},
		{
			name: "closing quote stays with sentence",
			text: `He said "Stop." Then he left.`,
			want: []string{`He said "Stop."`, "Then he left."},
		},
		{
			name: "known abbreviations",
			text: "Dr. Smith met Mr. Jones at 5 p.m. on Monday. They talked.",
			want: []string{"Dr. Smith met Mr. Jones at 5 p.m. on Monday.", "They talked."},
		},
		{
			name: "dotted abbreviation before lowercase",
			text: "Eat fruit, e.g. apples, daily. Then rest.",
			want: []string{"Eat fruit, e.g. apples, daily.", "Then rest."},
		},
		{
			name: "initials",
			text: "J. R. R. Tolkien wrote books. He was British.",
			want: []string{"J. R. R. Tolkien wrote books.", "He was British."},
		},
		{
			name: "pronoun I ends a sentence",
			text: "So did I. Then we left.",
			want: []string{"So did I.", "Then we left."},
		},
		{
			name: "decimal numbers",
			text: "Pi is roughly 3.14 in value. Yes.",
			want: []string{"Pi is roughly 3.14 in value.", "Yes."},
		},
		{
			name: "number before lowercase continuation",
			text: "Chapter 3. the end came quickly. Then it closed.",
			want: []string{"Chapter 3. the end came quickly.", "Then it closed."},
		},
		{
			name: "number ends sentence before capital",
			text: "The score was 3. Then it rained.",
			want: []string{"The score was 3.", "Then it rained."},
		},
		{
			name: "No. before a number",
			text: "It was founded in No. 5 and grew. Later it moved.",
			want: []string{"It was founded in No. 5 and grew.", "Later it moved."},
		},
		{
			name: "no as a word ends a sentence",
			text: "I said no. Then we left.",
			want: []string{"I said no.", "Then we left."},
		},
		{
			name: "no terminator",
			text: "  a heading without punctuation ",
			want: []string{"a heading without punctuation"},
		},
		{
			name: "empty",
			text: "   ",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seg.Segment(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segment(%q)\n got  %q\n want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtraAbbreviations(t *testing.T) {
	text := "See approx. Sect. Four for details. Done."
	if got := New().Segment(text); len(got) != 3 {
		t.Fatalf("without extra abbreviation expected 3 sentences, got %q", got)
	}
	got := New("Sect.").Segment(text)
	want := []string{"See approx. Sect. Four for details.", "Done."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
