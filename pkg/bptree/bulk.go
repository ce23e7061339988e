package bptree

import (
	"cmp"

	"github.com/google/btree"
)

// stagingDegree is the degree of the btree used to order unsorted input.
const stagingDegree = 32

// Build returns a tree of the given order holding items. See BulkLoad.
func Build[K cmp.Ordered, V any](order int, items []Entry[K, V]) (*Tree[K, V], error) {
	t, err := New[K, V](order)
	if err != nil {
		return nil, err
	}
	t.BulkLoad(items)
	return t, nil
}

// BulkLoad replaces the contents of t with items. Items may arrive in any
// order; when a key repeats the last occurrence wins, as with Insert.
//
// Leaves are packed with up to Order-1 entries and linked left to right,
// then parents of up to Order children are built level by level until a
// single root remains. Entries are spread evenly over each level so that
// every node meets the minimum occupancy.
func (t *Tree[K, V]) BulkLoad(items []Entry[K, V]) {
	sorted := sortEntries(items)
	t.Clear()
	if len(sorted) == 0 {
		return
	}

	leaves := t.packLeaves(sorted)
	level := leaves
	firsts := make([]K, len(leaves))
	for i, l := range leaves {
		firsts[i] = l.keys[0]
	}

	height := 1
	for len(level) > 1 {
		level, firsts = t.packParents(level, firsts)
		height++
	}

	t.root = level[0]
	t.size = len(sorted)
	t.height = height
}

// sortEntries returns items in strictly ascending key order. Input that is
// already strictly ascending is used as is; anything else is staged through
// a btree, which also drops earlier duplicates.
func sortEntries[K cmp.Ordered, V any](items []Entry[K, V]) []Entry[K, V] {
	ascending := true
	for i := 1; i < len(items); i++ {
		if !cmp.Less(items[i-1].Key, items[i].Key) {
			ascending = false
			break
		}
	}
	if ascending {
		return items
	}

	staging := btree.NewG[Entry[K, V]](stagingDegree, func(a, b Entry[K, V]) bool {
		return cmp.Less(a.Key, b.Key)
	})
	for _, e := range items {
		staging.ReplaceOrInsert(e)
	}
	out := make([]Entry[K, V], 0, staging.Len())
	staging.Ascend(func(e Entry[K, V]) bool {
		out = append(out, e)
		return true
	})
	return out
}

func (t *Tree[K, V]) packLeaves(sorted []Entry[K, V]) []*node[K, V] {
	sizes := spread(len(sorted), t.order-1)
	leaves := make([]*node[K, V], len(sizes))

	off := 0
	for i, n := range sizes {
		leaf := &node[K, V]{
			leaf:   true,
			keys:   make([]K, n),
			values: make([]V, n),
		}
		for j, e := range sorted[off : off+n] {
			leaf.keys[j] = e.Key
			leaf.values[j] = e.Value
		}
		if i > 0 {
			leaves[i-1].next = leaf
		}
		leaves[i] = leaf
		off += n
	}
	return leaves
}

// packParents groups level into parents of up to Order children. firsts
// holds the smallest key below each node of level; the separator in front
// of a child is its smallest key.
func (t *Tree[K, V]) packParents(level []*node[K, V], firsts []K) ([]*node[K, V], []K) {
	sizes := spread(len(level), t.order)
	parents := make([]*node[K, V], len(sizes))
	parentFirsts := make([]K, len(sizes))

	off := 0
	for i, n := range sizes {
		children := make([]*node[K, V], n)
		copy(children, level[off:off+n])
		keys := make([]K, n-1)
		copy(keys, firsts[off+1:off+n])

		parents[i] = newInternal(keys, children)
		parentFirsts[i] = firsts[off]
		off += n
	}
	return parents, parentFirsts
}

// spread splits total into the fewest groups of at most limit, with group
// sizes differing by at most one.
func spread(total, limit int) []int {
	groups := (total + limit - 1) / limit
	base, extra := total/groups, total%groups
	sizes := make([]int, groups)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}
