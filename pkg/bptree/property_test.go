package bptree

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// model mirrors a tree in a map so random operation sequences can be
// checked key by key.
type model map[int]int

func (m model) sortedKeys() []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m model) between(lo, hi int) []Entry[int, int] {
	var out []Entry[int, int]
	for _, k := range m.sortedKeys() {
		if k >= lo && k <= hi {
			out = append(out, Entry[int, int]{Key: k, Value: m[k]})
		}
	}
	return out
}

func requireMatchesModel(t *testing.T, tree *Tree[int, int], m model) {
	t.Helper()
	require.NoError(t, tree.Verify())
	require.Equal(t, len(m), tree.Len())

	var got []int
	tree.Ascend(func(k, v int) bool {
		require.Equal(t, m[k], v, "value of key %d", k)
		got = append(got, k)
		return true
	})
	want := m.sortedKeys()
	if len(want) == 0 {
		require.Empty(t, got)
		return
	}
	require.Equal(t, want, got)
}

func TestRandomOperationsPreserveInvariants(t *testing.T) {
	for order := MinOrder; order <= 9; order++ {
		rng := rand.New(rand.NewPCG(uint64(order), 7))
		tree := newTestTree[int](t, order)
		m := model{}

		for step := 0; step < 3000; step++ {
			k := rng.IntN(400)
			if rng.IntN(100) < 60 {
				tree.Insert(k, step)
				m[k] = step
			} else {
				_, present := m[k]
				require.Equal(t, present, tree.Delete(k), "order %d step %d delete %d", order, step, k)
				delete(m, k)
				_, ok := tree.TrySearch(k)
				require.False(t, ok)
			}
			if step%50 == 0 {
				requireMatchesModel(t, tree, m)
			}
		}
		requireMatchesModel(t, tree, m)

		for k := range m {
			require.True(t, tree.Delete(k))
			delete(m, k)
			require.NoError(t, tree.Verify(), "order %d draining %d", order, k)
		}
		requireMatchesModel(t, tree, m)
		require.Equal(t, 1, tree.Height())
	}
}

func TestRandomRangeQueriesMatchModel(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	tree := newTestTree[int](t, 5)
	m := model{}
	for i := 0; i < 1500; i++ {
		k := rng.IntN(5000)
		tree.Insert(k, i)
		m[k] = i
	}
	for i := 0; i < 300; i++ {
		k := rng.IntN(5000)
		tree.Delete(k)
		delete(m, k)
	}

	for i := 0; i < 200; i++ {
		lo := rng.IntN(5200) - 100
		hi := lo + rng.IntN(800)
		got := tree.RangeQuery(lo, hi)
		want := m.between(lo, hi)
		if len(want) == 0 {
			require.Empty(t, got, "range [%d,%d]", lo, hi)
			continue
		}
		require.Equal(t, want, got, "range [%d,%d]", lo, hi)
	}
}

func TestAlternatingHotspotChurn(t *testing.T) {
	// Repeatedly empty and refill one region so merges and borrows happen
	// at several depths in both directions.
	tree := newTestTree[int](t, 4)
	m := model{}
	for k := 0; k < 1000; k++ {
		tree.Insert(k, k)
		m[k] = k
	}
	for round := 0; round < 5; round++ {
		for k := 200; k < 800; k++ {
			require.True(t, tree.Delete(k))
			delete(m, k)
		}
		requireMatchesModel(t, tree, m)
		for k := 799; k >= 200; k-- {
			tree.Insert(k, round)
			m[k] = round
		}
		requireMatchesModel(t, tree, m)
	}
}
