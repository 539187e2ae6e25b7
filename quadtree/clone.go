package quadtree

import "slices"

// Clone returns a deep copy of t in a fresh, compact arena.
func (t *Tree) Clone() *Tree {
	return t.CloneSubtree(t.root)
}

// CloneSubtree returns a deep copy of the subtree rooted at id as a new tree.
func (t *Tree) CloneSubtree(id NodeID) *Tree {
	c := &Tree{}
	c.root = c.copyFrom(t, t.node(id), NilNode)
	return c
}

func (t *Tree) copyFrom(src *Tree, n *node, parent NodeID) NodeID {
	id := t.alloc(n.value, parent)
	if !n.divided {
		return id
	}

	var children [4]NodeID
	for i, c := range n.children {
		children[i] = t.copyFrom(src, &src.nodes[c.index], id)
	}
	t.nodes[id.index].children = children
	t.nodes[id.index].divided = true
	return id
}

// IsIdenticalWith reports whether t and other have the same shape and the
// same value at every leaf.
func (t *Tree) IsIdenticalWith(other *Tree) bool {
	return Identical(t, t.root, other, other.root)
}

// Identical reports whether the subtree of a rooted at aID and the subtree of
// b rooted at bID have the same divided status at every corresponding node
// and equal values at every leaf. Values kept by divided nodes are not
// compared since reads never observe them.
func Identical(a *Tree, aID NodeID, b *Tree, bID NodeID) bool {
	x := a.node(aID)
	y := b.node(bID)
	if x.divided != y.divided {
		return false
	}
	if !x.divided {
		return x.value == y.value
	}

	for i := range x.children {
		if !Identical(a, x.children[i], b, y.children[i]) {
			return false
		}
	}
	return true
}

// FamilyPath returns the quadrants leading from ancestor down to target. It
// returns false when target is not a strict descendant of ancestor.
func (t *Tree) FamilyPath(ancestor, target NodeID) ([]Quadrant, bool) {
	if !t.Valid(ancestor) || !t.Valid(target) || ancestor == target {
		return nil, false
	}

	var path []Quadrant
	for cur := target; cur != ancestor; {
		parent := t.nodes[cur.index].parent
		if parent.IsNil() {
			return nil, false
		}

		q := slices.Index(t.nodes[parent.index].children[:], cur)
		path = append(path, Quadrant(q))
		cur = parent
	}

	slices.Reverse(path)
	return path, true
}

// Position returns the coordinates of target relative to ancestor, at a unit
// equal to their level difference.
func (t *Tree) Position(ancestor, target NodeID) (x, y uint32, ok bool) {
	path, ok := t.FamilyPath(ancestor, target)
	if !ok {
		return 0, 0, false
	}
	x, y = FamilyPathToPosition(path)
	return x, y, true
}
