package dict

import (
	"strings"
	"testing"
)

func testDict() *Dict {
	return New("hello", "help", "hell", "world", "word", "groan")
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"hello", "hello", 0},
		{"hello", "helo", 1},
		{"hello", "help", 2},
		{"word", "world", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	d := testDict()

	// hello (insert), hell and help (substitute) are all one edit away
	suggestions := d.Suggest("helo", 1)
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %v", suggestions)
	}

	words := make(map[string]int)
	for _, s := range suggestions {
		if s.Distance > 1 {
			t.Errorf("suggestion %q has distance %d > 1", s.Word, s.Distance)
		}
		words[s.Word] = s.Distance
	}
	for _, want := range []string{"hello", "hell", "help"} {
		if _, ok := words[want]; !ok {
			t.Errorf("expected %s among suggestions, got %v", want, suggestions)
		}
	}
}

func TestSuggest_ClosestFirst(t *testing.T) {
	d := testDict()

	suggestions := d.Suggest("wrd", 2)
	if len(suggestions) < 2 {
		t.Fatalf("expected at least 2 suggestions, got %v", suggestions)
	}
	if suggestions[0].Word != "word" || suggestions[0].Distance != 1 {
		t.Errorf("closest = %+v, want word at distance 1", suggestions[0])
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i-1].Distance > suggestions[i].Distance {
			t.Errorf("suggestions out of order: %v", suggestions)
		}
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	d := testDict()

	if s := d.Suggest("xyzzy", 1); s != nil {
		t.Errorf("expected nil for unmatched word, got %v", s)
	}
}

func TestSuggest_CaseInsensitive(t *testing.T) {
	d := testDict()

	suggestions := d.Suggest("Hello", 0)
	if len(suggestions) != 1 || suggestions[0].Word != "hello" {
		t.Errorf("expected exact match for Hello, got %v", suggestions)
	}
}

func TestContains(t *testing.T) {
	d := testDict()

	if !d.Contains("hello") {
		t.Error("hello should be in dictionary")
	}
	if !d.Contains("HELLO") {
		t.Error("lookup should be case insensitive")
	}
	if d.Contains("helo") {
		t.Error("helo should not be in dictionary")
	}
}

func TestBest(t *testing.T) {
	d := testDict()

	best, ok := d.Best("wrd", 2)
	if !ok {
		t.Fatal("expected a suggestion for wrd")
	}
	if best.Word != "word" {
		t.Errorf("best = %q, want word", best.Word)
	}

	if _, ok := d.Best("xyzzy", 1); ok {
		t.Error("expected no suggestion for xyzzy")
	}
}

func TestLoad(t *testing.T) {
	input := `# common words
hello
world

Help
`
	d, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if d.Len() != 3 {
		t.Errorf("len = %d, want 3 (comment and blank skipped)", d.Len())
	}
	if !d.Contains("help") {
		t.Error("words should be lowercased on load")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/words.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAdd_IgnoresEmpty(t *testing.T) {
	d := New()
	d.Add("  ")
	d.Add("")
	if d.Len() != 0 {
		t.Errorf("len = %d, want 0", d.Len())
	}
}
