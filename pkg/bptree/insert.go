package bptree

import "slices"

// Insert stores value under key. An existing key has its value replaced
// and the tree shape is left untouched.
//
// A leaf reaching Order keys is split and the right half's first key is
// copied into the parent. Splits propagate upward; an internal node
// reaching Order keys promotes its middle key. A root split adds a level.
func (t *Tree[K, V]) Insert(key K, value V) {
	leaf, path := t.descend(key)

	i, found := slices.BinarySearch(leaf.keys, key)
	if found {
		leaf.values[i] = value
		return
	}
	leaf.keys = slices.Insert(leaf.keys, i, key)
	leaf.values = slices.Insert(leaf.values, i, value)
	t.size++

	if len(leaf.keys) < t.order {
		return
	}

	sep, right := leaf.splitLeaf()
	for level := len(path) - 1; level >= 0; level-- {
		parent := path[level].n
		parent.insertChild(path[level].i, sep, right)
		if len(parent.keys) < t.order {
			return
		}
		sep, right = parent.splitInternal()
	}

	t.root = newInternal([]K{sep}, []*node[K, V]{t.root, right})
	t.height++
}
