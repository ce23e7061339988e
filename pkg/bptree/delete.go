package bptree

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
)

// Delete removes key and reports whether it was present.
//
// An underflowing node first borrows from its left sibling, then from its
// right sibling, and otherwise merges with one of them, removing a
// separator from the parent. The parent is then fixed the same way, up to
// the root. A root left with a single child is replaced by that child.
func (t *Tree[K, V]) Delete(key K) bool {
	leaf, path := t.descend(key)

	i, found := slices.BinarySearch(leaf.keys, key)
	if !found {
		return false
	}
	leaf.keys = slices.Delete(leaf.keys, i, i+1)
	leaf.values = slices.Delete(leaf.values, i, i+1)
	t.size--

	if len(path) == 0 {
		if len(leaf.keys) == 0 {
			t.root = newLeaf[K, V]()
		}
		return true
	}
	if len(leaf.keys) < t.minLeafKeys() {
		t.rebalance(leaf, path)
	}
	return true
}

// rebalance restores the minimum occupancy of n, whose ancestors are path.
// Siblings are only ever taken from under the same parent, so separators
// above the parent keep bounding their subtrees.
func (t *Tree[K, V]) rebalance(n *node[K, V], path []frame[K, V]) {
	for level := len(path) - 1; level >= 0; level-- {
		parent, i := path[level].n, path[level].i
		if parent.children[i] != n {
			panic(errors.AssertionFailedf("bptree: path frame at level %d does not point at the node being rebalanced", level))
		}

		var merged bool
		if n.leaf {
			merged = t.fixLeaf(parent, i)
		} else {
			merged = t.fixInternal(parent, i)
		}
		if !merged {
			return
		}

		if level == 0 {
			if len(parent.keys) == 0 {
				t.root = parent.children[0]
				t.height--
			}
			return
		}
		if len(parent.children) >= t.minChildren() {
			return
		}
		n = parent
	}
}

// fixLeaf repairs the underflowing leaf parent.children[i]. It reports
// whether a merge removed a child from parent.
func (t *Tree[K, V]) fixLeaf(parent *node[K, V], i int) bool {
	n := parent.children[i]
	minKeys := t.minLeafKeys()

	if i > 0 {
		left := parent.children[i-1]
		if len(left.keys) > minKeys {
			last := len(left.keys) - 1
			n.keys = slices.Insert(n.keys, 0, left.keys[last])
			n.values = slices.Insert(n.values, 0, left.values[last])
			left.keys = slices.Delete(left.keys, last, last+1)
			left.values = slices.Delete(left.values, last, last+1)
			parent.keys[i-1] = n.keys[0]
			return false
		}
	}
	if i < len(parent.children)-1 {
		right := parent.children[i+1]
		if len(right.keys) > minKeys {
			n.keys = append(n.keys, right.keys[0])
			n.values = append(n.values, right.values[0])
			right.keys = slices.Delete(right.keys, 0, 1)
			right.values = slices.Delete(right.values, 0, 1)
			parent.keys[i] = right.keys[0]
			return false
		}
	}

	if i > 0 {
		mergeLeaves(parent.children[i-1], n)
		parent.removeChild(i - 1)
	} else {
		mergeLeaves(n, parent.children[i+1])
		parent.removeChild(i)
	}
	return true
}

// mergeLeaves moves every entry of right into left and unlinks right.
func mergeLeaves[K cmp.Ordered, V any](left, right *node[K, V]) {
	left.keys = append(left.keys, right.keys...)
	left.values = append(left.values, right.values...)
	left.next = right.next
	right.next = nil
}

// fixInternal repairs the underflowing internal node parent.children[i] by
// rotating through the parent separator, or merging around it.
func (t *Tree[K, V]) fixInternal(parent *node[K, V], i int) bool {
	n := parent.children[i]
	minKids := t.minChildren()

	if i > 0 {
		left := parent.children[i-1]
		if len(left.children) > minKids {
			lk, lc := len(left.keys)-1, len(left.children)-1
			n.keys = slices.Insert(n.keys, 0, parent.keys[i-1])
			n.children = slices.Insert(n.children, 0, left.children[lc])
			parent.keys[i-1] = left.keys[lk]
			left.keys = slices.Delete(left.keys, lk, lk+1)
			left.children = slices.Delete(left.children, lc, lc+1)
			return false
		}
	}
	if i < len(parent.children)-1 {
		right := parent.children[i+1]
		if len(right.children) > minKids {
			n.keys = append(n.keys, parent.keys[i])
			n.children = append(n.children, right.children[0])
			parent.keys[i] = right.keys[0]
			right.keys = slices.Delete(right.keys, 0, 1)
			right.children = slices.Delete(right.children, 0, 1)
			return false
		}
	}

	if i > 0 {
		mergeInternals(parent.children[i-1], parent.keys[i-1], n)
		parent.removeChild(i - 1)
	} else {
		mergeInternals(n, parent.keys[i], parent.children[i+1])
		parent.removeChild(i)
	}
	return true
}

// mergeInternals pulls sep down between left and right.
func mergeInternals[K cmp.Ordered, V any](left *node[K, V], sep K, right *node[K, V]) {
	left.keys = append(left.keys, sep)
	left.keys = append(left.keys, right.keys...)
	left.children = append(left.children, right.children...)
}
