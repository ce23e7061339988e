package bptree

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTree(t *testing.T, order, n int) *Tree[int, string] {
	t.Helper()
	tree := newTestTree[string](t, order)
	for k := 0; k < n; k++ {
		tree.Insert(k*3, fmt.Sprintf("v%d", k))
	}
	for k := 0; k < n; k += 7 {
		tree.Delete(k * 3)
	}
	return tree
}

func requireSameContents(t *testing.T, want, got *Tree[int, string]) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	require.Equal(t, want.Height(), got.Height())
	require.Equal(t, want.Order(), got.Order())
	require.Equal(t, want.RangeQuery(-1, 1<<30), got.RangeQuery(-1, 1<<30))
	want.Ascend(func(k int, v string) bool {
		gv, err := got.Search(k)
		require.NoError(t, err)
		require.Equal(t, v, gv)
		return true
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, order := range []int{3, 4, 6, 32} {
		tree := buildTestTree(t, order, 400)

		restored, err := Import(tree.Export())
		require.NoError(t, err)
		require.NoError(t, restored.Verify())
		requireSameContents(t, tree, restored)
		assert.Equal(t, tree.Stats(), restored.Stats())
	}
}

func TestExportImportThroughJSON(t *testing.T) {
	tree := buildTestTree(t, 5, 250)

	data, err := json.Marshal(tree.Export())
	require.NoError(t, err)
	var snap Snapshot[int, string]
	require.NoError(t, json.Unmarshal(data, &snap))

	restored, err := Import(&snap)
	require.NoError(t, err)
	requireSameContents(t, tree, restored)
}

func TestExportSharesNoMemory(t *testing.T) {
	tree := buildTestTree(t, 4, 20)
	snap := tree.Export()

	tree.Insert(1000, "late")
	restored, err := Import(snap)
	require.NoError(t, err)
	assert.False(t, restored.Contains(1000))

	snap.Root.Keys[0] = -99
	require.NoError(t, tree.Verify())
	require.NoError(t, restored.Verify())
}

func TestImportEmpty(t *testing.T) {
	tree := newTestTree[string](t, 4)

	restored, err := Import(tree.Export())
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Len())
	assert.Equal(t, 1, restored.Height())

	restored, err = Import(&Snapshot[int, string]{Order: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Len())
}

func TestImportRejectsCorruptSnapshots(t *testing.T) {
	leaf := func(keys ...int) *NodeRecord[int, string] {
		vals := make([]string, len(keys))
		return &NodeRecord[int, string]{Leaf: true, Keys: keys, Values: vals}
	}
	inner := func(keys []int, children ...*NodeRecord[int, string]) *NodeRecord[int, string] {
		return &NodeRecord[int, string]{Keys: keys, Children: children}
	}

	cases := map[string]*Snapshot[int, string]{
		"nil":         nil,
		"small order": {Order: 2, Root: leaf(1)},
		"values mismatch": {Order: 4, Root: &NodeRecord[int, string]{
			Leaf: true, Keys: []int{1, 2}, Values: []string{"a"},
		}},
		"children mismatch": {Order: 4, Root: inner([]int{5, 9}, leaf(1, 2), leaf(5, 6))},
		"nil child":         {Order: 4, Root: inner([]int{5}, leaf(1, 2), nil)},
		"uneven depth": {Order: 4, Root: inner([]int{5},
			leaf(1, 2),
			inner([]int{7}, leaf(5, 6), leaf(7, 8)),
		)},
		"unsorted keys":     {Order: 4, Root: leaf(3, 1, 2)},
		"overfull leaf":     {Order: 4, Root: leaf(1, 2, 3, 4)},
		"separator bound":   {Order: 4, Root: inner([]int{5}, leaf(1, 6), leaf(7, 8))},
		"underfull child":   {Order: 6, Root: inner([]int{5}, leaf(1, 2, 3), leaf(5))},
		"internal root one": {Order: 4, Root: inner(nil, leaf(1, 2))},
		"leaf with children": {Order: 4, Root: &NodeRecord[int, string]{
			Leaf: true, Keys: []int{1}, Values: []string{"a"}, Children: []*NodeRecord[int, string]{leaf(1)},
		}},
	}

	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Import(snap)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestRebuildLeafLinks(t *testing.T) {
	tree := buildTestTree(t, 4, 100)

	// Break the chain on purpose.
	tree.walkLeaves(func(leaf *node[int, string]) { leaf.next = nil })
	require.Error(t, tree.Verify())

	tree.RebuildLeafLinks()
	require.NoError(t, tree.Verify())
	assert.Len(t, tree.RangeQuery(-1, 1<<30), tree.Len())
}
