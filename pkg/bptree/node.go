package bptree

import (
	"cmp"
	"slices"
)

// node is either a leaf or an internal node, selected by the leaf tag.
//
// Internal: len(children) == len(keys)+1 and keys[i] separates children[i]
// from children[i+1].
// Leaf: values[i] belongs to keys[i], next points at the right neighbour.
type node[K cmp.Ordered, V any] struct {
	leaf     bool
	keys     []K
	values   []V
	children []*node[K, V]

	// next does not own the leaf it points at.
	next *node[K, V]
}

func newLeaf[K cmp.Ordered, V any]() *node[K, V] {
	return &node[K, V]{leaf: true}
}

func newInternal[K cmp.Ordered, V any](keys []K, children []*node[K, V]) *node[K, V] {
	return &node[K, V]{keys: keys, children: children}
}

// childIndex returns the index of the child to descend into for key: the
// smallest i such that key < keys[i], or len(keys) when there is none.
func (n *node[K, V]) childIndex(key K) int {
	i, found := slices.BinarySearch(n.keys, key)
	if found {
		return i + 1
	}
	return i
}

// firstKey returns the smallest key stored below n.
func (n *node[K, V]) firstKey() K {
	for !n.leaf {
		n = n.children[0]
	}
	return n.keys[0]
}

// splitLeaf moves keys[mid:] into a new right leaf and relinks the chain.
// The promoted separator is a copy of the right leaf's first key.
func (n *node[K, V]) splitLeaf() (K, *node[K, V]) {
	mid := len(n.keys) / 2
	right := &node[K, V]{
		leaf:   true,
		keys:   slices.Clone(n.keys[mid:]),
		values: slices.Clone(n.values[mid:]),
		next:   n.next,
	}

	clear(n.values[mid:])
	n.keys = n.keys[:mid]
	n.values = n.values[:mid]
	n.next = right

	return right.keys[0], right
}

// splitInternal moves the upper half into a new node. The middle key is
// promoted and kept by neither half.
func (n *node[K, V]) splitInternal() (K, *node[K, V]) {
	mid := len(n.keys) / 2
	sep := n.keys[mid]
	right := newInternal(
		slices.Clone(n.keys[mid+1:]),
		slices.Clone(n.children[mid+1:]),
	)

	clear(n.children[mid+1:])
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	return sep, right
}

// insertChild places sep at i and child right of it.
func (n *node[K, V]) insertChild(i int, sep K, child *node[K, V]) {
	n.keys = slices.Insert(n.keys, i, sep)
	n.children = slices.Insert(n.children, i+1, child)
}

// removeChild drops keys[i] and children[i+1].
func (n *node[K, V]) removeChild(i int) {
	n.keys = slices.Delete(n.keys, i, i+1)
	n.children = slices.Delete(n.children, i+1, i+2)
}
