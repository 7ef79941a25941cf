// Package dict provides spelling suggestions from a word list indexed
// by edit distance.
package dict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"simdex/bktree"
)

// Suggestion is one candidate correction for a query word
type Suggestion struct {
	Word     string `json:"word"`
	Distance int    `json:"distance"`
}

// Dict indexes a word list for nearest-word lookups
type Dict struct {
	tree *bktree.Tree[string]
}

func editDistance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

// New creates a Dict containing the given words
func New(words ...string) *Dict {
	d := &Dict{tree: bktree.New(editDistance)}
	for _, w := range words {
		d.Add(w)
	}
	return d
}

// Load reads a word list, one word per line. Blank lines and lines
// starting with # are skipped. Words are lowercased.
func Load(r io.Reader) (*Dict, error) {
	d := New()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		d.Add(word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	return d, nil
}

// LoadFile reads a word list from a file
func LoadFile(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer f.Close()

	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return d, nil
}

// Add indexes one word
func (d *Dict) Add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	d.tree.Add(word)
}

// Len returns the number of indexed words
func (d *Dict) Len() int {
	return d.tree.Len()
}

// Contains reports whether word is in the dictionary
func (d *Dict) Contains(word string) bool {
	return len(d.tree.Find(strings.ToLower(word), 0)) > 0
}

// Suggest returns words within maxDist edits of the query, closest
// first
func (d *Dict) Suggest(word string, maxDist int) []Suggestion {
	hits := d.tree.Find(strings.ToLower(word), maxDist)
	if len(hits) == 0 {
		return nil
	}

	suggestions := make([]Suggestion, 0, len(hits))
	for _, hit := range hits {
		suggestions = append(suggestions, Suggestion{
			Word:     hit.Item,
			Distance: hit.Distance,
		})
	}
	return suggestions
}

// Best returns the closest suggestion within maxDist, if any
func (d *Dict) Best(word string, maxDist int) (Suggestion, bool) {
	suggestions := d.Suggest(word, maxDist)
	if len(suggestions) == 0 {
		return Suggestion{}, false
	}
	return suggestions[0], true
}
