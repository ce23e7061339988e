package bptree

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
)

// Search returns the value stored under key, or ErrNotFound.
func (t *Tree[K, V]) Search(key K) (V, error) {
	v, ok := t.TrySearch(key)
	if !ok {
		return v, errors.Wrapf(ErrNotFound, "key %v", key)
	}
	return v, nil
}

// TrySearch is Search without the error.
func (t *Tree[K, V]) TrySearch(key K) (V, bool) {
	leaf := t.findLeaf(key)
	if i, found := slices.BinarySearch(leaf.keys, key); found {
		return leaf.values[i], true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (t *Tree[K, V]) Contains(key K) bool {
	_, ok := t.TrySearch(key)
	return ok
}

// Min returns the smallest entry.
func (t *Tree[K, V]) Min() (Entry[K, V], bool) {
	leaf := t.leftmostLeaf()
	if len(leaf.keys) == 0 {
		return Entry[K, V]{}, false
	}
	return Entry[K, V]{Key: leaf.keys[0], Value: leaf.values[0]}, true
}

// Max returns the largest entry.
func (t *Tree[K, V]) Max() (Entry[K, V], bool) {
	n := t.root
	for !n.leaf {
		n = n.children[len(n.children)-1]
	}
	if len(n.keys) == 0 {
		return Entry[K, V]{}, false
	}
	last := len(n.keys) - 1
	return Entry[K, V]{Key: n.keys[last], Value: n.values[last]}, true
}

// Stats describes the shape of a tree.
type Stats struct {
	Order     int
	Keys      int
	Height    int
	Leaves    int
	Internals int
}

func (s Stats) Nodes() int { return s.Leaves + s.Internals }

func (s Stats) String() string {
	return fmt.Sprintf("order=%d keys=%d height=%d leaves=%d internals=%d",
		s.Order, s.Keys, s.Height, s.Leaves, s.Internals)
}

// Stats walks the whole tree and counts nodes per kind.
func (t *Tree[K, V]) Stats() Stats {
	s := Stats{Order: t.order, Keys: t.size, Height: t.height}
	stack := []*node[K, V]{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.leaf {
			s.Leaves++
			continue
		}
		s.Internals++
		stack = append(stack, n.children...)
	}
	return s
}
