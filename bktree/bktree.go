// Package bktree implements an in-memory BK-tree, a data structure for
// approximate-match queries over a metric space (Burkhard & Keller, 1973).
// Given a distance function such as Hamming distance over perceptual
// hashes or Levenshtein distance over words, the tree answers "which
// indexed items lie within distance n of this query" without scanning
// every item, using the triangle inequality to prune whole subtrees.
//
// Write operations are not safe for concurrent use. Read operations
// (Find, All, Len, String) may run concurrently with each other as long
// as no Add runs at the same time; callers that need mixed concurrent
// access must synchronize externally.
package bktree

import (
	"fmt"
	"iter"
	"math/bits"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// DistanceFunc scores the dissimilarity of two items as a non-negative
// integer. For Find to return every qualifying item the function must be
// a true metric: symmetric, zero for identical items, and satisfying the
// triangle inequality d(a,c) <= d(a,b) + d(b,c). The tree never verifies
// these properties; a function that breaks them makes Find silently miss
// matches rather than fail.
type DistanceFunc[T any] func(a, b T) int

// Match is a single Find result: an indexed item and its distance to the
// query item.
type Match[T any] struct {
	Distance int
	Item     T
}

type node[T any] struct {
	item     T
	children map[int]*node[T] // distance to this node -> subtree
}

// Tree is a BK-tree over items of type T. Items are added one at a time
// and are permanent: there is no delete or rebalance. The zero value is
// not usable; construct trees with New.
type Tree[T any] struct {
	distance DistanceFunc[T]
	root     *node[T]
	length   int
}

// New creates a tree bound to the given distance function and adds the
// initial items in order. The distance function is fixed for the life of
// the tree.
func New[T any](distance DistanceFunc[T], items ...T) *Tree[T] {
	t := &Tree[T]{distance: distance}
	for _, item := range items {
		t.Add(item)
	}
	return t
}

// Add inserts item into the tree. Duplicate items are kept as separate
// entries; they chain below the original at distance zero.
func (t *Tree[T]) Add(item T) {
	t.length++
	if t.root == nil {
		t.root = &node[T]{item: item}
		return
	}
	cur := t.root
	for {
		d := t.distance(item, cur.item)
		child, ok := cur.children[d]
		if !ok {
			if cur.children == nil {
				cur.children = make(map[int]*node[T])
			}
			cur.children[d] = &node[T]{item: item}
			return
		}
		cur = child
	}
}

// Find returns every indexed item whose distance to item is at most n,
// sorted ascending by distance. The relative order of items tying on
// distance is unspecified. A negative n yields no results, never an
// error.
func (t *Tree[T]) Find(item T, n int) []Match[T] {
	if t.root == nil {
		return nil
	}

	var found []Match[T]
	queue := []*node[T]{t.root}
	for len(queue) > 0 {
		cand := queue[0]
		queue = queue[1:]

		d := t.distance(cand.item, item)
		if d <= n {
			found = append(found, Match[T]{Distance: d, Item: cand.item})
		}

		// Triangle inequality: a child stored at key k roots a subtree
		// whose items are all exactly k from cand, so only keys within
		// [d-n, d+n] can lead to an item within n of the query.
		low, high := d-n, d+n
		for k, child := range cand.children {
			if k >= low && k <= high {
				queue = append(queue, child)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Distance < found[j].Distance
	})
	return found
}

// All returns an iterator over every item in the tree, duplicates
// included, in unspecified order. Each call starts a fresh traversal.
// Adding to the tree while an iteration is in progress has undefined
// effect on that iteration.
func (t *Tree[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if t.root == nil {
			return
		}
		// Explicit queue rather than recursion: degenerate metrics can
		// produce trees as deep as the number of items.
		queue := []*node[T]{t.root}
		for len(queue) > 0 {
			cand := queue[0]
			queue = queue[1:]
			if !yield(cand.item) {
				return
			}
			for _, child := range cand.children {
				queue = append(queue, child)
			}
		}
	}
}

// Len returns the number of items in the tree.
func (t *Tree[T]) Len() int {
	return t.length
}

// String describes the tree for logs and debugging: the metric in use
// and the fan-out of the root.
func (t *Tree[T]) String() string {
	name := funcName(t.distance)
	if t.root == nil {
		return fmt.Sprintf("BKTree using %s with no top-level nodes", name)
	}
	return fmt.Sprintf("BKTree using %s with %d top-level nodes", name, len(t.root.children))
}

// funcName reports fn's name trimmed to "pkg.Func". Closures come out
// with their compiler-assigned names, e.g. "dict.Load.func1".
func funcName[T any](fn DistanceFunc[T]) string {
	if fn == nil {
		return "<nil>"
	}
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "unknown"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Hamming returns the number of differing bits between x and y. It is
// the natural metric for 64-bit perceptual hashes and fingerprints.
func Hamming(x, y uint64) int {
	return bits.OnesCount64(x ^ y)
}
