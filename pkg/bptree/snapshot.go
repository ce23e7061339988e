package bptree

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
)

// Snapshot is the structural export of a tree. Leaf links are derived data
// and are not part of it.
type Snapshot[K cmp.Ordered, V any] struct {
	Order int               `json:"order" cbor:"order"`
	Root  *NodeRecord[K, V] `json:"root" cbor:"root"`
}

// NodeRecord is one node of a Snapshot. Values is set on leaves only,
// Children on internal nodes only.
type NodeRecord[K cmp.Ordered, V any] struct {
	Leaf     bool                `json:"leaf" cbor:"leaf"`
	Keys     []K                 `json:"keys" cbor:"keys"`
	Values   []V                 `json:"values,omitempty" cbor:"values,omitempty"`
	Children []*NodeRecord[K, V] `json:"children,omitempty" cbor:"children,omitempty"`
}

// Export copies the shape, keys and values of t into a Snapshot that shares
// no memory with the tree.
func (t *Tree[K, V]) Export() *Snapshot[K, V] {
	return &Snapshot[K, V]{Order: t.order, Root: exportNode(t.root)}
}

func exportNode[K cmp.Ordered, V any](n *node[K, V]) *NodeRecord[K, V] {
	rec := &NodeRecord[K, V]{Leaf: n.leaf, Keys: slices.Clone(n.keys)}
	if n.leaf {
		rec.Values = slices.Clone(n.values)
		return rec
	}
	rec.Children = make([]*NodeRecord[K, V], len(n.children))
	for i, c := range n.children {
		rec.Children[i] = exportNode(c)
	}
	return rec
}

// Import rebuilds a tree from snap. The leaf chain is relinked and the
// result is checked against every tree invariant; a snapshot that does not
// describe a valid tree yields an error matching ErrCorruptSnapshot.
func Import[K cmp.Ordered, V any](snap *Snapshot[K, V]) (*Tree[K, V], error) {
	if snap == nil {
		return nil, errors.Wrap(ErrCorruptSnapshot, "nil snapshot")
	}
	if err := checkOrder(snap.Order); err != nil {
		return nil, corrupt(err)
	}

	t, _ := New[K, V](snap.Order)
	if snap.Root == nil {
		return t, nil
	}

	b := importer[K, V]{leafDepth: -1}
	root, err := b.build(snap.Root, 1)
	if err != nil {
		return nil, corrupt(err)
	}
	t.root = root
	t.size = b.keys
	t.height = b.leafDepth

	t.RebuildLeafLinks()
	if err := t.Verify(); err != nil {
		return nil, corrupt(err)
	}
	return t, nil
}

func corrupt(err error) error {
	return errors.Wrapf(ErrCorruptSnapshot, "%v", err)
}

type importer[K cmp.Ordered, V any] struct {
	keys      int
	leafDepth int
}

func (b *importer[K, V]) build(rec *NodeRecord[K, V], depth int) (*node[K, V], error) {
	if rec == nil {
		return nil, errors.Newf("nil node at depth %d", depth)
	}
	n := &node[K, V]{leaf: rec.Leaf, keys: slices.Clone(rec.Keys)}

	if rec.Leaf {
		if len(rec.Children) != 0 {
			return nil, errors.Newf("leaf at depth %d has %d children", depth, len(rec.Children))
		}
		if len(rec.Values) != len(rec.Keys) {
			return nil, errors.Newf("leaf at depth %d has %d keys and %d values", depth, len(rec.Keys), len(rec.Values))
		}
		if b.leafDepth == -1 {
			b.leafDepth = depth
		} else if b.leafDepth != depth {
			return nil, errors.Newf("leaf at depth %d, expected %d", depth, b.leafDepth)
		}
		n.values = slices.Clone(rec.Values)
		b.keys += len(rec.Keys)
		return n, nil
	}

	if len(rec.Values) != 0 {
		return nil, errors.Newf("internal node at depth %d carries values", depth)
	}
	if len(rec.Children) != len(rec.Keys)+1 {
		return nil, errors.Newf("internal node at depth %d has %d keys and %d children", depth, len(rec.Keys), len(rec.Children))
	}
	n.children = make([]*node[K, V], len(rec.Children))
	for i, c := range rec.Children {
		child, err := b.build(c, depth+1)
		if err != nil {
			return nil, err
		}
		n.children[i] = child
	}
	return n, nil
}

// RebuildLeafLinks relinks every leaf to its right neighbour in key order.
// It must run after the node structure is replaced wholesale, as Import
// does.
func (t *Tree[K, V]) RebuildLeafLinks() {
	var prev *node[K, V]
	t.walkLeaves(func(leaf *node[K, V]) {
		if prev != nil {
			prev.next = leaf
		}
		prev = leaf
	})
	if prev != nil {
		prev.next = nil
	}
}

// walkLeaves visits the leaves left to right by structure, ignoring the
// leaf chain.
func (t *Tree[K, V]) walkLeaves(fn func(*node[K, V])) {
	stack := []*node[K, V]{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.leaf {
			fn(n)
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}
