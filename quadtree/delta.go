package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Op is the change a delta node describes for the matching region of a tree.
type Op uint8

const (
	// Keep leaves the region unchanged.
	Keep Op = iota

	// SetTo replaces the region with a single leaf holding the op's value.
	// The value may be unset.
	SetTo

	// Recurse describes the four quadrants of the region separately.
	Recurse
)

func (op Op) String() string {
	switch op {
	case Keep:
		return "keep"
	case SetTo:
		return "set"
	case Recurse:
		return "recurse"
	default:
		return "unknown"
	}
}

// unsetLiteral encodes SetTo(Unset) in nested sequences, where null already
// means Keep or Recurse.
const unsetLiteral = "unset"

type deltaNode struct {
	op       Op
	value    Value
	children [4]int32
}

// Delta is a tree of ops that turns a tree into another. Its root is the
// node at index 0.
type Delta struct {
	nodes []deltaNode
}

// NewDelta returns a delta that keeps everything.
func NewDelta() *Delta {
	return &Delta{nodes: []deltaNode{{op: Keep}}}
}

// SetDelta returns a delta replacing a whole tree with a leaf holding v.
func SetDelta(v Value) *Delta {
	return &Delta{nodes: []deltaNode{{op: SetTo, value: v}}}
}

func (d *Delta) add(n deltaNode) int32 {
	d.nodes = append(d.nodes, n)
	return int32(len(d.nodes) - 1)
}

// Op returns the op at the root of d and its value when the op is SetTo.
func (d *Delta) Op() (Op, Value) {
	return d.nodes[0].op, d.nodes[0].value
}

// Set records that the cell (x, y) at unit becomes v. Ops already recorded
// for the rest of the world are preserved: a SetTo covering the cell is
// split into four SetTo quadrants first.
func (d *Delta) Set(x, y uint32, unit int, v Value) error {
	if !inRange(x, y, unit) {
		return errOutOfRange(x, y, unit)
	}

	cur := int32(0)
	for _, q := range pathQuadrants(x, y, unit) {
		n := d.nodes[cur]
		if n.op != Recurse {
			var children [4]int32
			for i := range children {
				children[i] = d.add(deltaNode{op: n.op, value: n.value})
			}
			d.nodes[cur] = deltaNode{op: Recurse, children: children}
		}
		cur = d.nodes[cur].children[q]
	}

	d.nodes[cur] = deltaNode{op: SetTo, value: v}
	return nil
}

// IsNoop reports whether applying d leaves any tree unchanged.
func (d *Delta) IsNoop() bool {
	return d.isNoop(0)
}

func (d *Delta) isNoop(i int32) bool {
	n := d.nodes[i]
	switch n.op {
	case Keep:
		return true
	case Recurse:
		for _, c := range n.children {
			if !d.isNoop(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Apply returns base with d applied. Base is not modified and the result is
// canonical when base is.
func Apply(base *Tree, d *Delta) *Tree {
	result := base.Clone()
	result.Patch(d)
	return result
}

// Patch applies d to t in place.
func (t *Tree) Patch(d *Delta) {
	t.patch(t.root, d, 0)
	instrumentApply()
}

func (t *Tree) patch(id NodeID, d *Delta, i int32) {
	n := d.nodes[i]
	switch n.op {
	case SetTo:
		t.Combine(id, n.value)

	case Recurse:
		if !t.nodes[id.index].divided {
			t.Divide(id)
		}

		children := t.nodes[id.index].children
		for q, c := range children {
			t.patch(c, d, n.children[q])
		}

		// Children are canonical once patched, so checking this node is
		// enough to keep the subtree canonical.
		if v, ok := t.uniformChildren(id); ok {
			t.Combine(id, v)
			instrumentCoalesce()
		}
	}
}

// Trace returns the delta restoring, in the tree obtained by applying d to
// base, every region d touches to its content in base:
//
//	Apply(Apply(base, d), Trace(base, d)) is identical to base
//
// Base is only read.
func Trace(base *Tree, d *Delta) *Delta {
	out := &Delta{}
	out.trace(base, base.root, false, Unset, d, 0)
	instrumentTrace()
	return out
}

// trace appends the traced form of the delta node i and returns its index.
// When virtual is true, id is a leaf of base standing for a region smaller
// than itself, whose content is leafValue.
func (out *Delta) trace(base *Tree, id NodeID, virtual bool, leafValue Value, d *Delta, i int32) int32 {
	n := d.nodes[i]
	switch n.op {
	case SetTo:
		if virtual {
			return out.add(deltaNode{op: SetTo, value: leafValue})
		}
		return out.copySubtree(base, id)

	case Recurse:
		at := out.add(deltaNode{op: Recurse})

		var children [4]int32
		b := base.nodes[id.index]
		for q := range children {
			if virtual || !b.divided {
				if !virtual {
					leafValue = b.value
				}
				children[q] = out.trace(base, id, true, leafValue, d, n.children[q])
				continue
			}
			children[q] = out.trace(base, b.children[q], false, Unset, d, n.children[q])
		}

		out.nodes[at].children = children
		return at

	default:
		return out.add(deltaNode{op: Keep})
	}
}

// copySubtree appends the ops rebuilding the subtree of t rooted at id.
func (out *Delta) copySubtree(t *Tree, id NodeID) int32 {
	n := t.nodes[id.index]
	if !n.divided {
		return out.add(deltaNode{op: SetTo, value: n.value})
	}

	at := out.add(deltaNode{op: Recurse})
	var children [4]int32
	for q, c := range n.children {
		children[q] = out.copySubtree(t, c)
	}
	out.nodes[at].children = children
	return at
}

// Diff returns a delta turning from into to: Apply(from, Diff(from, to)) is
// identical to to. Regions where both trees agree are kept.
func Diff(from, to *Tree) *Delta {
	out := &Delta{}
	out.diff(from, from.root, false, Unset, to, to.root)
	return out
}

func (out *Delta) diff(from *Tree, fid NodeID, virtual bool, leafValue Value, to *Tree, tid NodeID) int32 {
	f := from.nodes[fid.index]
	t := to.nodes[tid.index]
	if !virtual {
		leafValue = f.value
	}
	fromLeaf := virtual || !f.divided

	if !t.divided {
		if fromLeaf && leafValue == t.value {
			return out.add(deltaNode{op: Keep})
		}
		return out.add(deltaNode{op: SetTo, value: t.value})
	}

	if !fromLeaf && Identical(from, fid, to, tid) {
		return out.add(deltaNode{op: Keep})
	}

	at := out.add(deltaNode{op: Recurse})
	var children [4]int32
	for q, c := range t.children {
		if fromLeaf {
			children[q] = out.diff(from, fid, true, leafValue, to, c)
			continue
		}
		children[q] = out.diff(from, f.children[q], false, Unset, to, c)
	}
	out.nodes[at].children = children
	return at
}

// DeltaFromTree converts a delta stored as a plain tree, where an unset value
// means no change, into a Delta. A set value wins over the children of its
// node. Such trees cannot express setting a region back to unset.
func DeltaFromTree(t *Tree) *Delta {
	out := &Delta{}
	out.fromTree(t, t.root)
	return out
}

func (out *Delta) fromTree(t *Tree, id NodeID) int32 {
	n := t.nodes[id.index]
	if n.value.IsSet() {
		return out.add(deltaNode{op: SetTo, value: n.value})
	}
	if !n.divided {
		return out.add(deltaNode{op: Keep})
	}

	at := out.add(deltaNode{op: Recurse})
	var children [4]int32
	for q, c := range n.children {
		children[q] = out.fromTree(t, c)
	}
	out.nodes[at].children = children
	return at
}

// UnmarshalLegacyDelta decodes a delta stored as the JSON nested sequence of
// a plain tree. See DeltaFromTree.
func UnmarshalLegacyDelta(b []byte) (*Delta, error) {
	var t Tree
	if err := t.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return DeltaFromTree(&t), nil
}

// EncodeDelta returns the nested sequence form of d. Keep is [null], Recurse
// is [null, child0, child1, child2, child3] and SetTo is [value], with the
// string "unset" standing for an unset value.
func EncodeDelta(d *Delta) []any {
	return d.encode(0)
}

func (d *Delta) encode(i int32) []any {
	n := d.nodes[i]
	switch n.op {
	case SetTo:
		if !n.value.IsSet() {
			return []any{unsetLiteral}
		}
		return []any{n.value.any()}

	case Recurse:
		seq := make([]any, 0, 5)
		seq = append(seq, nil)
		for _, c := range n.children {
			seq = append(seq, d.encode(c))
		}
		return seq

	default:
		return []any{nil}
	}
}

// DecodeDelta builds a delta from its nested sequence form. A node holding
// both a value and children is a SetTo; its children are checked for
// well-formedness and then ignored.
func DecodeDelta(seq []any) (*Delta, error) {
	d := &Delta{}
	if _, err := d.decode(seq, 0); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Delta) decode(v any, level int) (int32, error) {
	seq, ok := v.([]any)
	if !ok {
		return 0, errMalformed("delta node is not a sequence")
	}
	if len(seq) != 1 && len(seq) != 5 {
		return 0, errors.New("delta node must have 1 or 5 elements").
			WithType(ErrTypeMalformedSerialization).
			WithTag("length", len(seq)).
			WithTag("level", level)
	}

	var n deltaNode
	switch head := seq[0].(type) {
	case nil:
		n.op = Keep
	case string:
		if head != unsetLiteral {
			return 0, errors.New("unknown delta literal").
				WithType(ErrTypeMalformedSerialization).
				WithTag("literal", head)
		}
		n.op = SetTo
	default:
		value, ok := valueFromAny(head)
		if !ok {
			return 0, errors.New("delta value is not an integer category").
				WithType(ErrTypeMalformedSerialization).
				WithTag("level", level)
		}
		n.op = SetTo
		n.value = value
	}

	at := d.add(n)
	if len(seq) == 1 {
		return at, nil
	}
	if level >= MaxDepth {
		return 0, errors.New("delta is too deep").
			WithType(ErrTypeMalformedSerialization).
			WithTag("max_depth", MaxDepth)
	}

	var children [4]int32
	for q, c := range seq[1:] {
		child, err := d.decode(c, level+1)
		if err != nil {
			return 0, err
		}
		children[q] = child
	}

	if n.op == Keep {
		d.nodes[at].op = Recurse
		d.nodes[at].children = children
	}
	return at, nil
}

func (d *Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeDelta(d))
}

func (d *Delta) UnmarshalJSON(b []byte) error {
	seq, err := unmarshalSequence(b)
	if err != nil {
		return err
	}

	decoded, err := DecodeDelta(seq)
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}
