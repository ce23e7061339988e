package bptree

import (
	"cmp"
	"slices"
)

// RangeQuery returns every entry with begin <= key <= end in ascending key
// order. It returns nil when begin > end.
func (t *Tree[K, V]) RangeQuery(begin, end K) []Entry[K, V] {
	var out []Entry[K, V]
	it := t.Range(begin, end)
	for it.Next() {
		out = append(out, Entry[K, V]{Key: it.Key(), Value: it.Value()})
	}
	return out
}

// Ascend calls fn for every entry in key order until fn returns false.
func (t *Tree[K, V]) Ascend(fn func(key K, value V) bool) {
	for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
		for i, k := range leaf.keys {
			if !fn(k, leaf.values[i]) {
				return
			}
		}
	}
}

// Iterator walks the leaf chain over an inclusive key range. The tree must
// not be modified while an iterator is in use.
type Iterator[K cmp.Ordered, V any] struct {
	leaf *node[K, V]
	i    int
	end  K
	key  K
	val  V
}

// Range returns a lazy iterator over begin <= key <= end.
func (t *Tree[K, V]) Range(begin, end K) *Iterator[K, V] {
	if cmp.Less(end, begin) {
		return &Iterator[K, V]{}
	}
	leaf := t.findLeaf(begin)
	i, _ := slices.BinarySearch(leaf.keys, begin)
	return &Iterator[K, V]{leaf: leaf, i: i, end: end}
}

// Next advances to the next entry and reports whether there is one.
func (it *Iterator[K, V]) Next() bool {
	for it.leaf != nil {
		if it.i < len(it.leaf.keys) {
			k := it.leaf.keys[it.i]
			if cmp.Less(it.end, k) {
				it.leaf = nil
				return false
			}
			it.key, it.val = k, it.leaf.values[it.i]
			it.i++
			return true
		}
		it.leaf, it.i = it.leaf.next, 0
	}
	return false
}

func (it *Iterator[K, V]) Key() K   { return it.key }
func (it *Iterator[K, V]) Value() V { return it.val }

// Close releases the iterator's position.
func (it *Iterator[K, V]) Close() {
	it.leaf = nil
}
