package bptree

import (
	"cmp"

	"github.com/cockroachdb/errors"
)

// Verify walks the whole tree and reports the first broken invariant:
// key order and separator bounds, uniform leaf depth, minimum and maximum
// occupancy, the cached key count, and the leaf chain matching the
// left-to-right leaf order.
func (t *Tree[K, V]) Verify() error {
	v := verifier[K, V]{t: t}
	if err := v.node(t.root, 1, nil, nil); err != nil {
		return err
	}
	if v.keys != t.size {
		return errors.Newf("tree holds %d keys, size says %d", v.keys, t.size)
	}
	if v.depth != t.height {
		return errors.Newf("leaves at depth %d, height says %d", v.depth, t.height)
	}

	i := 0
	for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
		if i >= len(v.leaves) || v.leaves[i] != leaf {
			return errors.Newf("leaf chain diverges from tree order at leaf %d", i)
		}
		i++
	}
	if i != len(v.leaves) {
		return errors.Newf("leaf chain visits %d of %d leaves", i, len(v.leaves))
	}
	return nil
}

type verifier[K cmp.Ordered, V any] struct {
	t      *Tree[K, V]
	keys   int
	depth  int
	leaves []*node[K, V]
}

// node checks n, whose keys must satisfy lo <= k < hi where bounds are set.
func (v *verifier[K, V]) node(n *node[K, V], depth int, lo, hi *K) error {
	root := n == v.t.root

	if len(n.keys) >= v.t.order {
		return errors.Newf("node at depth %d holds %d keys, order is %d", depth, len(n.keys), v.t.order)
	}
	for i, k := range n.keys {
		if i > 0 && !cmp.Less(n.keys[i-1], k) {
			return errors.Newf("keys out of order at depth %d: %v then %v", depth, n.keys[i-1], k)
		}
		if lo != nil && cmp.Less(k, *lo) {
			return errors.Newf("key %v at depth %d below separator %v", k, depth, *lo)
		}
		if hi != nil && !cmp.Less(k, *hi) {
			return errors.Newf("key %v at depth %d not below separator %v", k, depth, *hi)
		}
	}

	if n.leaf {
		if len(n.values) != len(n.keys) {
			return errors.Newf("leaf at depth %d has %d keys and %d values", depth, len(n.keys), len(n.values))
		}
		if !root && len(n.keys) < v.t.minLeafKeys() {
			return errors.Newf("leaf at depth %d holds %d keys, minimum is %d", depth, len(n.keys), v.t.minLeafKeys())
		}
		if v.depth == 0 {
			v.depth = depth
		} else if v.depth != depth {
			return errors.Newf("leaf at depth %d, others at %d", depth, v.depth)
		}
		v.keys += len(n.keys)
		v.leaves = append(v.leaves, n)
		return nil
	}

	if len(n.children) != len(n.keys)+1 {
		return errors.Newf("internal node at depth %d has %d keys and %d children", depth, len(n.keys), len(n.children))
	}
	minKids := v.t.minChildren()
	if root {
		minKids = 2
	}
	if len(n.children) < minKids {
		return errors.Newf("internal node at depth %d has %d children, minimum is %d", depth, len(n.children), minKids)
	}
	for i, c := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = &n.keys[i-1]
		}
		if i < len(n.keys) {
			chi = &n.keys[i]
		}
		if err := v.node(c, depth+1, clo, chi); err != nil {
			return err
		}
	}
	return nil
}
