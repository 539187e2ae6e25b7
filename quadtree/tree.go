package quadtree

import (
	"fmt"
	"iter"
	"strings"
)

// NodeID addresses a node inside the arena of a Tree. Releasing a node, by
// combining or re-dividing one of its ancestors, makes its id stale; stale
// ids are rejected rather than aliased to the slot's next occupant. Get,
// Lookup and SetAt return an ErrTypeInvalidNode error for them; the other
// methods taking a NodeID, and Identical and Render, panic with that error.
// Use Valid to check an id first.
type NodeID struct {
	index int32
	gen   uint32
}

// NilNode is the id of no node, returned as the parent of a root.
var NilNode = NodeID{index: -1}

func (id NodeID) IsNil() bool {
	return id.index < 0
}

func (id NodeID) String() string {
	if id.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d.%d", id.index, id.gen)
}

type node struct {
	value    Value
	parent   NodeID
	children [4]NodeID
	divided  bool

	gen  uint32
	live bool
}

// Tree is a region quadtree. Its nodes live in an arena indexed by NodeID;
// parents are referenced by id so upward walks never own anything.
//
// A Tree is not safe for concurrent use when one of the callers mutates it.
// Read-only operations may run concurrently with each other.
type Tree struct {
	nodes []node
	free  []int32
	root  NodeID
	live  int
}

// New returns a tree made of a single leaf holding v.
func New(v Value) *Tree {
	t := &Tree{}
	t.root = t.alloc(v, NilNode)
	return t
}

// Root returns the id of the root node.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return t.live
}

// Valid reports whether id addresses a live node of t.
func (t *Tree) Valid(id NodeID) bool {
	if id.index < 0 || int(id.index) >= len(t.nodes) {
		return false
	}
	n := &t.nodes[id.index]
	return n.live && n.gen == id.gen
}

func (t *Tree) alloc(v Value, parent NodeID) NodeID {
	var index int32
	if l := len(t.free); l > 0 {
		index = t.free[l-1]
		t.free = t.free[:l-1]
	} else {
		index = int32(len(t.nodes))
		t.nodes = append(t.nodes, node{})
	}

	n := &t.nodes[index]
	n.value = v
	n.parent = parent
	n.divided = false
	n.live = true
	t.live++
	return NodeID{index: index, gen: n.gen}
}

// release frees id and all of its descendants.
func (t *Tree) release(id NodeID) {
	n := &t.nodes[id.index]
	if n.divided {
		children := n.children
		for _, c := range children {
			t.release(c)
		}
	}

	n = &t.nodes[id.index]
	n.divided = false
	n.children = [4]NodeID{}
	n.live = false
	n.gen++
	t.live--
	t.free = append(t.free, id.index)
}

func (t *Tree) node(id NodeID) *node {
	if !t.Valid(id) {
		panic(errInvalidNode(id))
	}
	return &t.nodes[id.index]
}

// Value returns the value stored in id. The value of a divided node is the
// one it held before being divided and is not authoritative for its region.
func (t *Tree) Value(id NodeID) Value {
	return t.node(id).value
}

// SetValue overwrites the value stored in id without touching its children
// or simplifying the tree.
func (t *Tree) SetValue(id NodeID, v Value) {
	t.node(id).value = v
}

// Parent returns the parent of id, or NilNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.node(id).parent
}

// IsDivided reports whether id has four children.
func (t *Tree) IsDivided(id NodeID) bool {
	return t.node(id).divided
}

// Child returns the child of id at q, or NilNode when id is a leaf.
func (t *Tree) Child(id NodeID, q Quadrant) NodeID {
	n := t.node(id)
	if !n.divided {
		return NilNode
	}
	return n.children[q&3]
}

// Children returns the four children of id in quadrant order, or nil when id
// is a leaf.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.node(id)
	if !n.divided {
		return nil
	}
	children := n.children
	return children[:]
}

// Divide gives id four leaf children holding its current value. Dividing an
// already divided node discards its previous descendants.
func (t *Tree) Divide(id NodeID) {
	n := t.node(id)
	if n.divided {
		children := n.children
		for _, c := range children {
			t.release(c)
		}
	}

	var children [4]NodeID
	for i := range children {
		children[i] = t.alloc(t.nodes[id.index].value, id)
	}

	n = &t.nodes[id.index]
	n.children = children
	n.divided = true
}

// Combine discards the children of id. When a value is given it also
// replaces the value of id.
//
// Combine is the inverse of Divide only when the four children were leaves
// holding the same value; SimplifyUpward only combines in that case.
func (t *Tree) Combine(id NodeID, value ...Value) {
	n := t.node(id)
	if n.divided {
		children := n.children
		for _, c := range children {
			t.release(c)
		}
		n = &t.nodes[id.index]
		n.children = [4]NodeID{}
		n.divided = false
	}

	if len(value) != 0 {
		n.value = value[0]
	}
}

// Depth returns the height of the subtree rooted at id: 0 for a leaf.
func (t *Tree) Depth(id NodeID) int {
	n := t.node(id)
	if !n.divided {
		return 0
	}

	depth := 0
	for _, c := range n.children {
		if d := t.Depth(c); d > depth {
			depth = d
		}
	}
	return depth + 1
}

// Level returns the distance between id and the root.
func (t *Tree) Level(id NodeID) int {
	level := 0
	for p := t.Parent(id); !p.IsNil(); p = t.nodes[p.index].parent {
		level++
	}
	return level
}

// Get returns the node addressing the cell (x, y) at unit, relative to id.
// Leaves met on the way are divided so the returned node sits exactly unit
// levels below id.
func (t *Tree) Get(id NodeID, x, y uint32, unit int) (NodeID, error) {
	if !t.Valid(id) {
		return NilNode, errInvalidNode(id)
	}
	if !inRange(x, y, unit) || t.Level(id)+unit > MaxDepth {
		return NilNode, errOutOfRange(x, y, unit)
	}

	cur := id
	for _, q := range pathQuadrants(x, y, unit) {
		if !t.nodes[cur.index].divided {
			t.Divide(cur)
		}
		cur = t.nodes[cur.index].children[q]
	}
	return cur, nil
}

// Lookup returns the deepest existing node covering the cell (x, y) at unit,
// relative to id. Unlike Get it never modifies the tree.
func (t *Tree) Lookup(id NodeID, x, y uint32, unit int) (NodeID, error) {
	if !t.Valid(id) {
		return NilNode, errInvalidNode(id)
	}
	if !inRange(x, y, unit) || t.Level(id)+unit > MaxDepth {
		return NilNode, errOutOfRange(x, y, unit)
	}

	cur := id
	for _, q := range pathQuadrants(x, y, unit) {
		n := &t.nodes[cur.index]
		if !n.divided {
			break
		}
		cur = n.children[q]
	}
	return cur, nil
}

// Set classifies the cell (x, y) at unit of the whole tree as v. See SetAt.
func (t *Tree) Set(x, y uint32, unit int, v Value) (NodeID, error) {
	return t.SetAt(t.root, x, y, unit, v)
}

// SetAt classifies the cell (x, y) at unit, relative to id, as v. Any finer
// structure below the cell is discarded, then the tree is simplified upward
// from the cell's parent. It returns the leaf covering the cell afterwards,
// which may be an ancestor of the cell when it was coalesced.
func (t *Tree) SetAt(id NodeID, x, y uint32, unit int, v Value) (NodeID, error) {
	cell, err := t.Get(id, x, y, unit)
	if err != nil {
		return NilNode, err
	}

	t.Combine(cell, v)
	if parent := t.nodes[cell.index].parent; !parent.IsNil() {
		t.SimplifyUpward(parent)
	}
	return t.Lookup(id, x, y, unit)
}

// PathIntSet is Set with coordinates given as path ints, as produced by
// PositionToPathInt.
func (t *Tree) PathIntSet(xPath, yPath uint32, unit int, v Value) (NodeID, error) {
	return t.Set(PathToPosition(xPath, unit), PathToPosition(yPath, unit), unit, v)
}

// SimplifyUpward restores the canonical form from id up to the root. It
// assumes the tree is canonical everywhere except possibly at id: while the
// four children of the current node are leaves holding the same value, the
// node is combined with that value and its parent is checked next.
func (t *Tree) SimplifyUpward(id NodeID) {
	for cur := id; !cur.IsNil(); cur = t.nodes[cur.index].parent {
		v, ok := t.uniformChildren(cur)
		if !ok {
			return
		}
		t.Combine(cur, v)
		instrumentCoalesce()
	}
}

// Simplify coalesces, bottom up, every node whose four children are leaves
// holding the same value. It brings any tree, such as a decoded one, into
// canonical form.
func (t *Tree) Simplify() {
	t.simplify(t.root)
}

func (t *Tree) simplify(id NodeID) {
	n := t.nodes[id.index]
	if !n.divided {
		return
	}

	for _, c := range n.children {
		t.simplify(c)
	}
	if v, ok := t.uniformChildren(id); ok {
		t.Combine(id, v)
		instrumentCoalesce()
	}
}

// uniformChildren returns the value shared by the four children of id when
// they all are leaves holding the same value.
func (t *Tree) uniformChildren(id NodeID) (Value, bool) {
	n := t.node(id)
	if !n.divided {
		return Unset, false
	}

	first := t.nodes[n.children[0].index]
	if first.divided {
		return Unset, false
	}
	for _, c := range n.children[1:] {
		child := t.nodes[c.index]
		if child.divided || child.value != first.value {
			return Unset, false
		}
	}
	return first.value, true
}

// IsCanonical reports whether no node of t has four leaf children holding
// the same value.
func (t *Tree) IsCanonical() bool {
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.live || !n.divided {
			continue
		}
		if _, ok := t.uniformChildren(NodeID{index: int32(i), gen: n.gen}); ok {
			return false
		}
	}
	return true
}

// Cell addresses a square region: the cell (X, Y) at resolution Unit.
type Cell struct {
	X    uint32
	Y    uint32
	Unit int
}

// Leaves iterates over the leaves below id with the cell each one covers,
// relative to id.
func (t *Tree) Leaves(id NodeID) iter.Seq2[Cell, Value] {
	return func(yield func(Cell, Value) bool) {
		if !t.Valid(id) {
			return
		}
		t.walkLeaves(id, Cell{}, yield)
	}
}

func (t *Tree) walkLeaves(id NodeID, c Cell, yield func(Cell, Value) bool) bool {
	n := t.nodes[id.index]
	if !n.divided {
		return yield(c, n.value)
	}

	for i, child := range n.children {
		q := Quadrant(i)
		sub := Cell{
			X:    c.X | uint32(q.X())<<c.Unit,
			Y:    c.Y | uint32(q.Y())<<c.Unit,
			Unit: c.Unit + 1,
		}
		if !t.walkLeaves(child, sub, yield) {
			return false
		}
	}
	return true
}

// String dumps the tree, one node per line with its value and position.
func (t *Tree) String() string {
	var b strings.Builder
	b.WriteString("=== Tree ===\n")
	t.print(&b, t.root, 0, Cell{})
	return b.String()
}

func (t *Tree) print(b *strings.Builder, id NodeID, level int, c Cell) {
	if level > 0 {
		b.WriteString(strings.Repeat("  ", level-1))
		b.WriteString("- ")
	}
	n := t.nodes[id.index]
	fmt.Fprintf(b, "%s (%d, %d)\n", n.value, c.X, c.Y)

	if !n.divided {
		return
	}
	for i, child := range n.children {
		q := Quadrant(i)
		t.print(b, child, level+1, Cell{
			X:    c.X | uint32(q.X())<<level,
			Y:    c.Y | uint32(q.Y())<<level,
			Unit: level + 1,
		})
	}
}
