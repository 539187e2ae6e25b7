package quadtree

import (
	"bytes"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/segmentio/encoding/json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode returns the nested sequence form of t: [value] for a leaf and
// [value, child0, child1, child2, child3] for a divided node. Values are nil
// when unset and int64 otherwise.
func Encode(t *Tree) []any {
	return t.encode(t.root)
}

func (t *Tree) encode(id NodeID) []any {
	n := t.nodes[id.index]
	if !n.divided {
		return []any{n.value.any()}
	}

	seq := make([]any, 0, 5)
	seq = append(seq, n.value.any())
	for _, c := range n.children {
		seq = append(seq, t.encode(c))
	}
	return seq
}

// Decode builds a tree from its nested sequence form. The tree is not
// simplified: a non-canonical encoding decodes into a non-canonical tree.
func Decode(seq []any) (*Tree, error) {
	t := &Tree{}
	root, err := t.decode(seq, NilNode, 0)
	if err != nil {
		return nil, err
	}
	t.root = root
	return t, nil
}

func (t *Tree) decode(v any, parent NodeID, level int) (NodeID, error) {
	seq, ok := v.([]any)
	if !ok {
		return NilNode, errMalformed("node is not a sequence")
	}
	if len(seq) != 1 && len(seq) != 5 {
		return NilNode, errors.New("node must have 1 or 5 elements").
			WithType(ErrTypeMalformedSerialization).
			WithTag("length", len(seq)).
			WithTag("level", level)
	}

	value, ok := valueFromAny(seq[0])
	if !ok {
		return NilNode, errors.New("node value is not an integer category").
			WithType(ErrTypeMalformedSerialization).
			WithTag("level", level)
	}

	id := t.alloc(value, parent)
	if len(seq) == 1 {
		return id, nil
	}
	if level >= MaxDepth {
		return NilNode, errors.New("tree is too deep").
			WithType(ErrTypeMalformedSerialization).
			WithTag("max_depth", MaxDepth)
	}

	var children [4]NodeID
	for i, c := range seq[1:] {
		child, err := t.decode(c, id, level+1)
		if err != nil {
			return NilNode, err
		}
		children[i] = child
	}
	t.nodes[id.index].children = children
	t.nodes[id.index].divided = true
	return id, nil
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(t))
}

func (t *Tree) UnmarshalJSON(b []byte) error {
	seq, err := unmarshalSequence(b)
	if err != nil {
		return err
	}

	decoded, err := Decode(seq)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func unmarshalSequence(b []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var seq []any
	if err := dec.Decode(&seq); err != nil {
		return nil, errors.New("decoding nested sequence failed").
			WithType(ErrTypeMalformedSerialization).
			Wrap(err)
	}
	return seq, nil
}

// MarshalProto encodes t as a google.protobuf.ListValue holding its nested
// sequence form. ListValue numbers are doubles, so a tree holding a category
// beyond ±2^53 cannot be encoded.
func MarshalProto(t *Tree) ([]byte, error) {
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.live {
			continue
		}
		if c, ok := n.value.Category(); ok && (c > maxExactFloat || c < -maxExactFloat) {
			return nil, errors.New("category is not representable as a double").
				WithType(ErrTypeUnrepresentableValue).
				WithTag("category", int64(c))
		}
	}

	list, err := structpb.NewList(Encode(t))
	if err != nil {
		return nil, errors.New("building list value failed").Wrap(err)
	}
	return proto.Marshal(list)
}

// UnmarshalProto decodes a tree encoded by MarshalProto.
func UnmarshalProto(b []byte) (*Tree, error) {
	var list structpb.ListValue
	if err := proto.Unmarshal(b, &list); err != nil {
		return nil, errors.New("unmarshaling list value failed").
			WithType(ErrTypeMalformedSerialization).
			Wrap(err)
	}
	return Decode(list.AsSlice())
}

// Fingerprint returns the Keccak-256 hash of the JSON encoding of t as a hex
// string. Trees that are identical and canonical share a fingerprint.
func Fingerprint(t *Tree) string {
	b, err := json.Marshal(canonicalSequence(t, t.root))
	if err != nil {
		// Sequences only hold nil, int64 and slices.
		panic(err)
	}
	return crypto.Keccak256Hash(b).Hex()
}

// canonicalSequence is Encode with divided node values dropped, so the
// values they keep from before being divided do not leak into fingerprints.
func canonicalSequence(t *Tree, id NodeID) []any {
	n := t.nodes[id.index]
	if !n.divided {
		return []any{n.value.any()}
	}

	seq := []any{nil}
	for _, c := range n.children {
		seq = append(seq, canonicalSequence(t, c))
	}
	return seq
}
