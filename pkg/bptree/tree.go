// Package bptree implements an in-memory B+ tree mapping unique ordered keys
// to values.
//
// Internal nodes hold separator keys only; every value lives in a leaf and
// the leaves form a singly linked chain in ascending key order, so range
// scans descend once and then walk the chain.
//
//	t, _ := bptree.New[int64, string](32)
//	t.Insert(7, "seven")
//	v, ok := t.TrySearch(7)
//	for _, e := range t.RangeQuery(1, 10) {
//		...
//	}
//
// A tree can be exported to a Snapshot holding node shape, keys and values
// only. Import rebuilds the nodes and relinks the leaf chain.
//
// A Tree is not safe for concurrent use.
package bptree

import (
	"cmp"

	"github.com/cockroachdb/errors"
)

// MinOrder is the smallest supported branching factor.
const MinOrder = 3

var (
	ErrInvalidConfiguration = errors.New("bptree: invalid configuration")
	ErrNotFound             = errors.New("bptree: key not found")
	ErrCorruptSnapshot      = errors.New("bptree: corrupt snapshot")
)

// Entry is a key/value pair as returned by range queries and accepted by
// the bulk loader.
type Entry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Tree is a B+ tree of order M: nodes hold fewer than M keys and internal
// nodes at most M children.
type Tree[K cmp.Ordered, V any] struct {
	root   *node[K, V]
	order  int
	size   int
	height int
}

// New returns an empty tree. Orders below MinOrder are rejected.
func New[K cmp.Ordered, V any](order int) (*Tree[K, V], error) {
	if err := checkOrder(order); err != nil {
		return nil, err
	}
	return &Tree[K, V]{
		root:   newLeaf[K, V](),
		order:  order,
		height: 1,
	}, nil
}

func checkOrder(order int) error {
	if order < MinOrder {
		return errors.Wrapf(ErrInvalidConfiguration, "order %d is below minimum %d", order, MinOrder)
	}
	return nil
}

// Order returns the branching factor fixed at construction.
func (t *Tree[K, V]) Order() int { return t.order }

// Len returns the number of keys stored.
func (t *Tree[K, V]) Len() int { return t.size }

// Height returns the number of levels, counting the leaf level. An empty
// tree has height 1.
func (t *Tree[K, V]) Height() int { return t.height }

func (t *Tree[K, V]) minLeafKeys() int { return (t.order+1)/2 - 1 }

func (t *Tree[K, V]) minChildren() int { return (t.order + 1) / 2 }

// frame records one internal node on the way down and the index of the
// child that was taken.
type frame[K cmp.Ordered, V any] struct {
	n *node[K, V]
	i int
}

// findLeaf descends from the root to the leaf that would hold key.
func (t *Tree[K, V]) findLeaf(key K) *node[K, V] {
	n := t.root
	for !n.leaf {
		n = n.children[n.childIndex(key)]
	}
	return n
}

// descend is findLeaf that also returns the path of internal ancestors,
// root first. Mutations walk this path upward instead of parent pointers.
func (t *Tree[K, V]) descend(key K) (*node[K, V], []frame[K, V]) {
	path := make([]frame[K, V], 0, t.height-1)
	n := t.root
	for !n.leaf {
		i := n.childIndex(key)
		path = append(path, frame[K, V]{n: n, i: i})
		n = n.children[i]
	}
	return n, path
}

// leftmostLeaf returns the head of the leaf chain.
func (t *Tree[K, V]) leftmostLeaf() *node[K, V] {
	n := t.root
	for !n.leaf {
		n = n.children[0]
	}
	return n
}

// Clear drops every key, keeping the order.
func (t *Tree[K, V]) Clear() {
	t.root = newLeaf[K, V]()
	t.size = 0
	t.height = 1
}
