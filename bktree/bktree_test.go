package bktree

import (
	"math/rand"
	"sort"
	"strings"
	"testing"
)

func TestTree_Empty(t *testing.T) {
	tree := New(Hamming)

	if got := tree.Find(0, 10); len(got) != 0 {
		t.Errorf("Find on empty tree returned %d results, want 0", len(got))
	}

	count := 0
	for range tree.All() {
		count++
	}
	if count != 0 {
		t.Errorf("All on empty tree yielded %d items, want 0", count)
	}

	if tree.Len() != 0 {
		t.Errorf("Len = %d, want 0", tree.Len())
	}
}

func TestTree_SingleItem(t *testing.T) {
	tree := New(Hamming)
	tree.Add(0b1111)

	// Exact match at radius 0.
	got := tree.Find(0b1111, 0)
	if len(got) != 1 || got[0].Distance != 0 || got[0].Item != 0b1111 {
		t.Errorf("Find(0b1111, 0) = %v, want [(0, 15)]", got)
	}

	// One bit off, within radius.
	got = tree.Find(0b1110, 1)
	if len(got) != 1 || got[0].Distance != 1 {
		t.Errorf("Find(0b1110, 1) = %v, want one match at distance 1", got)
	}

	// Distance 4, outside radius.
	if got := tree.Find(0b0000, 3); len(got) != 0 {
		t.Errorf("Find(0b0000, 3) = %v, want empty", got)
	}
}

// The classic bit-distance scenario: 13 differs from 5 and 15 by one
// bit, from 4 and 14 by two, and matches nothing exactly.
func TestFind_BitDistance(t *testing.T) {
	tree := New(Hamming, 0, 4, 5, 14, 15)

	got := tree.Find(13, 1)
	want := []Match[uint64]{{1, 5}, {1, 15}}
	if !matchesEqual(got, want) {
		t.Errorf("Find(13, 1) = %v, want %v in any tie order", got, want)
	}

	got = tree.Find(13, 2)
	want = []Match[uint64]{{1, 5}, {1, 15}, {2, 4}, {2, 14}}
	if !matchesEqual(got, want) {
		t.Errorf("Find(13, 2) = %v, want %v in any tie order", got, want)
	}

	if got := tree.Find(13, 0); len(got) != 0 {
		t.Errorf("Find(13, 0) = %v, want empty", got)
	}
}

func TestFind_SortedByDistance(t *testing.T) {
	tree := New(Hamming)
	for i := 0; i < 200; i++ {
		tree.Add(uint64(i) * 0x9E3779B9)
	}

	got := tree.Find(0, 40)
	if len(got) == 0 {
		t.Fatal("expected matches at radius 40")
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Distance > got[i].Distance {
			t.Fatalf("results out of order at %d: %d before %d",
				i, got[i-1].Distance, got[i].Distance)
		}
	}
}

func TestFind_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	items := make([]uint64, 500)
	for i := range items {
		items[i] = rng.Uint64()
	}
	tree := New(Hamming, items...)

	for _, n := range []int{0, 1, 3, 8, 20, 32} {
		q := rng.Uint64()
		got := tree.Find(q, n)

		var want []Match[uint64]
		for _, it := range items {
			if d := Hamming(it, q); d <= n {
				want = append(want, Match[uint64]{Distance: d, Item: it})
			}
		}

		if !matchesEqual(got, want) {
			t.Errorf("radius %d: Find = %v, linear scan = %v", n, got, want)
		}
	}
}

func TestFind_ExhaustiveRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tree := New(Hamming)
	for i := 0; i < 300; i++ {
		tree.Add(rng.Uint64())
	}

	q := rng.Uint64()
	got := tree.Find(q, 64) // no two uint64s differ by more than 64 bits

	var want []Match[uint64]
	for item := range tree.All() {
		want = append(want, Match[uint64]{Distance: Hamming(item, q), Item: item})
	}

	if !matchesEqual(got, want) {
		t.Errorf("exhaustive Find returned %d items, traversal has %d", len(got), len(want))
	}
}

func TestFind_NegativeRadius(t *testing.T) {
	tree := New(Hamming, 1, 2, 3)
	if got := tree.Find(1, -1); len(got) != 0 {
		t.Errorf("Find with negative radius = %v, want empty", got)
	}
}

func TestTree_Duplicates(t *testing.T) {
	tree := New(Hamming, 7, 7, 7, 9)

	if tree.Len() != 4 {
		t.Errorf("Len = %d, want 4", tree.Len())
	}

	got := tree.Find(7, 0)
	if len(got) != 3 {
		t.Errorf("Find(7, 0) returned %d matches, want 3 duplicates", len(got))
	}

	counts := make(map[uint64]int)
	for item := range tree.All() {
		counts[item]++
	}
	if counts[7] != 3 || counts[9] != 1 {
		t.Errorf("traversal multiset = %v, want 7x3 and 9x1", counts)
	}
}

func TestAll_Restartable(t *testing.T) {
	tree := New(Hamming, 0, 4, 5, 14, 15)

	collect := func() map[uint64]int {
		m := make(map[uint64]int)
		for item := range tree.All() {
			m[item]++
		}
		return m
	}

	first, second := collect(), collect()
	if len(first) != 5 {
		t.Fatalf("first traversal yielded %d distinct items, want 5", len(first))
	}
	for item, n := range first {
		if second[item] != n {
			t.Errorf("second traversal disagrees on %d: %d vs %d", item, second[item], n)
		}
	}
}

func TestAll_EarlyStop(t *testing.T) {
	tree := New(Hamming, 1, 2, 3, 4)
	seen := 0
	for range tree.All() {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("saw %d items after break, want 1", seen)
	}
}

func TestNew_InitialItems(t *testing.T) {
	sequential := New(Hamming)
	for _, item := range []uint64{0, 4, 5, 14, 15} {
		sequential.Add(item)
	}
	bulk := New(Hamming, 0, 4, 5, 14, 15)

	for q := uint64(0); q < 16; q++ {
		got, want := bulk.Find(q, 2), sequential.Find(q, 2)
		if !matchesEqual(got, want) {
			t.Errorf("query %d: bulk = %v, sequential = %v", q, got, want)
		}
	}
}

func TestTree_Determinism(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	items := make([]uint64, 200)
	for i := range items {
		items[i] = rng.Uint64()
	}

	a := New(Hamming, items...)
	b := New(Hamming, items...)

	for i := 0; i < 20; i++ {
		q := rng.Uint64()
		if !matchesEqual(a.Find(q, 16), b.Find(q, 16)) {
			t.Errorf("trees built from the same sequence disagree on query %x", q)
		}
	}
}

// A metric that sends every distinct pair to distance 1 chains all items
// into one path, so the tree gets as deep as it has items. Traversal and
// search must survive that without recursing. The chain is built
// directly because constructing it through Add is quadratic.
func TestAll_DegenerateDepth(t *testing.T) {
	discrete := func(a, b int) int {
		if a == b {
			return 0
		}
		return 1
	}

	const depth = 200000
	root := &node[int]{item: 0}
	cur := root
	for i := 1; i < depth; i++ {
		next := &node[int]{item: i}
		cur.children = map[int]*node[int]{1: next}
		cur = next
	}
	tree := &Tree[int]{distance: discrete, root: root, length: depth}

	count := 0
	for range tree.All() {
		count++
	}
	if count != depth {
		t.Errorf("traversal visited %d items, want %d", count, depth)
	}

	if got := len(tree.Find(0, 1)); got != depth {
		t.Errorf("Find(0, 1) matched %d items, want %d", got, depth)
	}
}

func TestTree_String(t *testing.T) {
	tree := New(Hamming)
	if got := tree.String(); !strings.Contains(got, "bktree.Hamming") || !strings.Contains(got, "no top-level nodes") {
		t.Errorf("empty tree String = %q", got)
	}

	// 4 and 8 are both one bit from 0 and share the root's distance-1
	// slot, so the root ends up with three direct children.
	for _, item := range []uint64{0, 4, 8, 14, 15} {
		tree.Add(item)
	}
	if got := tree.String(); !strings.Contains(got, "3 top-level nodes") {
		t.Errorf("String = %q, want 3 top-level nodes", got)
	}
}

func TestTree_StructItems(t *testing.T) {
	type entry struct {
		name string
		hash uint64
	}

	byHash := func(a, b entry) int { return Hamming(a.hash, b.hash) }
	tree := New(byHash,
		entry{"a", 0b0000},
		entry{"b", 0b0001},
		entry{"c", 0b0111},
	)

	got := tree.Find(entry{hash: 0b0011}, 1)
	if len(got) != 2 {
		t.Fatalf("Find = %v, want matches b and c", got)
	}
	for _, m := range got {
		if m.Distance != 1 {
			t.Errorf("match %q at distance %d, want 1", m.Item.name, m.Distance)
		}
	}
}

func TestHamming(t *testing.T) {
	tests := []struct {
		name string
		x, y uint64
		want int
	}{
		{"identical", 0, 0, 0},
		{"one bit", 1, 0, 1},
		{"two bits", 3, 0, 2},
		{"all bits", 0xFFFFFFFFFFFFFFFF, 0, 64},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
		{"high and low", 0x8000000000000000, 0x8000000000000001, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hamming(tt.x, tt.y); got != tt.want {
				t.Errorf("Hamming(%x, %x) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

// matchesEqual compares result sets treating equal-distance entries as
// an unordered group, since tie order is not part of the contract.
func matchesEqual(a, b []Match[uint64]) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(ms []Match[uint64]) []Match[uint64] {
		out := make([]Match[uint64], len(ms))
		copy(out, ms)
		sort.Slice(out, func(i, j int) bool {
			if out[i].Distance != out[j].Distance {
				return out[i].Distance < out[j].Distance
			}
			return out[i].Item < out[j].Item
		})
		return out
	}
	as, bs := key(a), key(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func BenchmarkTree_Add(b *testing.B) {
	tree := New(Hamming)
	for i := 0; i < b.N; i++ {
		tree.Add(uint64(i * 12345))
	}
}

func BenchmarkTree_Find(b *testing.B) {
	tree := New(Hamming)
	for i := 0; i < 10000; i++ {
		tree.Add(uint64(i * 12345))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Find(uint64(i*67890), 10)
	}
}
