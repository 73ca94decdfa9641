package collect

import (
	"strings"
	"testing"

	"qapipe/internal/storage"
	"qapipe/pkg/logx"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "collapses whitespace", in: "a  b\t\tc\n\nd", want: "a b c d"},
		{
			name: "strips odd characters",
			in:   "Charging costs $0.30/kWh @home <b>fast</b>",
			want: "Charging costs 0.30kWh home bfastb",
		},
		{name: "trims", in: "   padded   ", want: "padded"},
		{name: "keeps punctuation", in: "Level 2, or DC-fast (50 kW)?", want: "Level 2, or DC-fast (50 kW)?"},
	}

	c := NewCleaner(logx.Nop())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := c.CleanText(tt.in); got != tt.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	t.Parallel()

	c := NewCleaner(logx.Nop())
	if c.IsDuplicate("first text") {
		t.Fatal("fresh text flagged as duplicate")
	}
	if !c.IsDuplicate("first text") {
		t.Fatal("repeat not flagged as duplicate")
	}
	if c.IsDuplicate("second text") {
		t.Fatal("different text flagged as duplicate")
	}
}

func TestQualityFilter(t *testing.T) {
	t.Parallel()

	goodText := "The charging station connects to the grid and delivers power for electric vehicles."

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "good english", in: goodText, want: true},
		{name: "empty", in: "", want: false},
		{name: "too short", in: "the and", want: false},
		{name: "too long", in: strings.Repeat("the and ", 2000), want: false},
		{name: "not english enough", in: strings.Repeat("zzzz qqqq ", 10), want: false},
	}

	c := NewCleaner(logx.Nop())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := c.QualityFilter(tt.in); got != tt.want {
				t.Fatalf("QualityFilter(%q...) = %v, want %v", tt.in[:min(len(tt.in), 20)], got, tt.want)
			}
		})
	}
}

func TestProcessDropsDuplicatesAndJunk(t *testing.T) {
	t.Parallel()

	good := "The charging station connects to the grid and delivers power for electric vehicles."
	docs := []storage.Document{
		{URL: "a", Content: good},
		{URL: "b", Content: good}, // exact duplicate
		{URL: "c", Content: ""},
		{URL: "d", Content: "short"},
		{URL: "e", Content: good + " It also reports status to the operator over the network."},
	}

	c := NewCleaner(logx.Nop())
	kept := c.Process(docs)

	if len(kept) != 2 {
		t.Fatalf("kept %d documents, want 2", len(kept))
	}
	if kept[0].URL != "a" || kept[1].URL != "e" {
		t.Fatalf("kept wrong documents: %q, %q", kept[0].URL, kept[1].URL)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
