package bptree

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree[V any](t *testing.T, order int) *Tree[int, V] {
	t.Helper()
	tree, err := New[int, V](order)
	require.NoError(t, err)
	return tree
}

func TestNewRejectsSmallOrder(t *testing.T) {
	for _, order := range []int{-1, 0, 1, 2} {
		_, err := New[int, string](order)
		require.Error(t, err, "order %d", order)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	}

	tree, err := New[int, string](MinOrder)
	require.NoError(t, err)
	assert.Equal(t, MinOrder, tree.Order())
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 1, tree.Height())
}

func TestEmptyTree(t *testing.T) {
	tree := newTestTree[string](t, 4)

	_, err := tree.Search(1)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, ok := tree.TrySearch(1)
	assert.False(t, ok)
	assert.False(t, tree.Delete(1))
	assert.Empty(t, tree.RangeQuery(0, 100))
	_, ok = tree.Min()
	assert.False(t, ok)
	_, ok = tree.Max()
	assert.False(t, ok)
	require.NoError(t, tree.Verify())
}

func TestInsertDeleteScenario(t *testing.T) {
	tree := newTestTree[string](t, 4)
	for k := 1; k <= 6; k++ {
		tree.Insert(k, fmt.Sprintf("V%d", k))
		require.NoError(t, tree.Verify())
	}
	assert.Equal(t, 6, tree.Len())
	assert.Greater(t, tree.Height(), 1)

	for _, k := range []int{3, 1, 6} {
		assert.True(t, tree.Delete(k))
		require.NoError(t, tree.Verify())
	}

	for _, k := range []int{3, 1, 6} {
		_, ok := tree.TrySearch(k)
		assert.False(t, ok, "key %d", k)
	}
	v, err := tree.Search(2)
	require.NoError(t, err)
	assert.Equal(t, "V2", v)
	v, err = tree.Search(4)
	require.NoError(t, err)
	assert.Equal(t, "V4", v)
	assert.Equal(t, 3, tree.Len())
}

func TestInsertUpsertKeepsShape(t *testing.T) {
	tree := newTestTree[string](t, 4)
	for k := 0; k < 50; k++ {
		tree.Insert(k, "v1")
	}
	before := tree.Stats()

	tree.Insert(17, "v2")

	after := tree.Stats()
	assert.Equal(t, before, after)
	v, err := tree.Search(17)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 50, tree.Len())
}

func TestInsertGrowsHeightOnRootSplit(t *testing.T) {
	tree := newTestTree[int](t, 3)

	tree.Insert(1, 1)
	tree.Insert(2, 2)
	assert.Equal(t, 1, tree.Height())

	// Third key fills a leaf of order 3 and forces the first root split.
	tree.Insert(3, 3)
	assert.Equal(t, 2, tree.Height())
	require.NoError(t, tree.Verify())

	for k := 4; k <= 64; k++ {
		tree.Insert(k, k)
	}
	require.NoError(t, tree.Verify())
	assert.GreaterOrEqual(t, tree.Height(), 4)
}

func TestDeleteCollapsesToEmptyLeaf(t *testing.T) {
	tree := newTestTree[int](t, 4)
	for k := 0; k < 100; k++ {
		tree.Insert(k, k)
	}
	for k := 99; k >= 0; k-- {
		require.True(t, tree.Delete(k))
		require.NoError(t, tree.Verify(), "after deleting %d", k)
	}

	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 1, tree.Height())
	assert.Empty(t, tree.RangeQuery(0, 100))

	tree.Insert(5, 5)
	v, ok := tree.TrySearch(5)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	tree := newTestTree[int](t, 5)
	for k := 0; k < 40; k += 2 {
		tree.Insert(k, k)
	}
	before := tree.Stats()

	assert.False(t, tree.Delete(7))
	assert.False(t, tree.Delete(-1))
	assert.False(t, tree.Delete(1000))

	assert.Equal(t, before, tree.Stats())
	require.NoError(t, tree.Verify())
}

func TestDeleteKeepsOtherValues(t *testing.T) {
	tree := newTestTree[string](t, 4)
	for k := 0; k < 200; k++ {
		tree.Insert(k, fmt.Sprintf("v%d", k))
	}

	for k := 0; k < 200; k += 3 {
		require.True(t, tree.Delete(k))
		_, ok := tree.TrySearch(k)
		require.False(t, ok)
	}
	require.NoError(t, tree.Verify())

	for k := 0; k < 200; k++ {
		v, ok := tree.TrySearch(k)
		if k%3 == 0 {
			assert.False(t, ok, "key %d", k)
			continue
		}
		assert.True(t, ok, "key %d", k)
		assert.Equal(t, fmt.Sprintf("v%d", k), v)
	}
}

func TestMinMaxAndContains(t *testing.T) {
	tree := newTestTree[string](t, 5)
	for _, k := range []int{40, 10, 30, 20, 50} {
		tree.Insert(k, fmt.Sprint(k))
	}

	lo, ok := tree.Min()
	require.True(t, ok)
	assert.Equal(t, Entry[int, string]{Key: 10, Value: "10"}, lo)
	hi, ok := tree.Max()
	require.True(t, ok)
	assert.Equal(t, Entry[int, string]{Key: 50, Value: "50"}, hi)

	assert.True(t, tree.Contains(30))
	assert.False(t, tree.Contains(35))
}

func TestStringKeys(t *testing.T) {
	tree, err := New[string, int](4)
	require.NoError(t, err)

	words := []string{"pear", "apple", "fig", "kiwi", "banana", "cherry", "date", "grape"}
	for i, w := range words {
		tree.Insert(w, i)
	}
	require.NoError(t, tree.Verify())

	got := tree.RangeQuery("b", "g")
	keys := make([]string, len(got))
	for i, e := range got {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"banana", "cherry", "date", "fig"}, keys)
}

func TestStatsCountsNodes(t *testing.T) {
	tree := newTestTree[int](t, 4)
	s := tree.Stats()
	assert.Equal(t, 1, s.Leaves)
	assert.Equal(t, 0, s.Internals)
	assert.Equal(t, 1, s.Nodes())

	for k := 0; k < 30; k++ {
		tree.Insert(k, k)
	}
	s = tree.Stats()
	assert.Equal(t, 30, s.Keys)
	assert.Greater(t, s.Leaves, 1)
	assert.Greater(t, s.Internals, 0)
	assert.Contains(t, s.String(), "keys=30")
}

func TestClear(t *testing.T) {
	tree := newTestTree[int](t, 4)
	for k := 0; k < 30; k++ {
		tree.Insert(k, k)
	}
	tree.Clear()

	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 1, tree.Height())
	assert.Equal(t, 4, tree.Order())
	require.NoError(t, tree.Verify())
}
