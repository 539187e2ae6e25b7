package quadtree

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func newQuarteredTree(values ...Value) *Tree {
	tree := New(Unset)
	tree.Divide(tree.Root())
	for i, c := range tree.Children(tree.Root()) {
		tree.SetValue(c, values[i])
	}
	return tree
}

func TestEncode(t *testing.T) {
	t.Run("leaf", func(t *testing.T) {
		require.Equal(t, []any{int64(4)}, Encode(New(ValueOf(4))))
		require.Equal(t, []any{nil}, Encode(New(Unset)))
	})

	t.Run("one level divided tree", func(t *testing.T) {
		tree := newQuarteredTree(ValueOf(1), ValueOf(2), ValueOf(3), ValueOf(4))
		require.Equal(t, []any{
			nil,
			[]any{int64(1)},
			[]any{int64(2)},
			[]any{int64(3)},
			[]any{int64(4)},
		}, Encode(tree))
	})

	t.Run("divided node encodes its own value", func(t *testing.T) {
		tree := New(ValueOf(8))
		_, err := tree.Set(0, 0, 1, ValueOf(1))
		require.NoError(t, err)
		require.Equal(t, int64(8), Encode(tree)[0])
	})
}

func TestDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		tree := New(Unset)
		_, err := tree.Set(3, 5, 3, ValueOf(2))
		require.NoError(t, err)
		_, err = tree.Set(0, 1, 2, ValueOf(6))
		require.NoError(t, err)

		decoded, err := Decode(Encode(tree))
		require.NoError(t, err)
		require.True(t, decoded.IsIdenticalWith(tree))
		require.True(t, decoded.IsCanonical())
		require.Equal(t, tree.Len(), decoded.Len())

		for _, c := range decoded.Children(decoded.Root()) {
			require.Equal(t, decoded.Root(), decoded.Parent(c))
		}
	})

	t.Run("numbers decoded from json are accepted", func(t *testing.T) {
		tree, err := Decode([]any{nil, []any{float64(1)}, []any{json.Number("2")}, []any{3}, []any{nil}})
		require.NoError(t, err)
		require.Equal(t, ValueOf(2), tree.Value(tree.Child(tree.Root(), TopRight)))
		require.Equal(t, Unset, tree.Value(tree.Child(tree.Root(), BottomRight)))
	})

	t.Run("imprecise doubles are rejected", func(t *testing.T) {
		_, err := Decode([]any{float64(1<<54 + 4)})
		require.Error(t, err)
		require.Equal(t, ErrTypeMalformedSerialization, errors.Type(err))

		_, err = Decode([]any{1.5})
		require.Error(t, err)
		require.Equal(t, ErrTypeMalformedSerialization, errors.Type(err))
	})

	t.Run("non canonical input is not simplified", func(t *testing.T) {
		tree, err := Decode([]any{nil, []any{1}, []any{1}, []any{1}, []any{1}})
		require.NoError(t, err)
		require.True(t, tree.IsDivided(tree.Root()))
		require.False(t, tree.IsCanonical())
	})

	tooDeep := []any{nil}
	for i := 0; i <= MaxDepth; i++ {
		tooDeep = []any{nil, tooDeep, []any{nil}, []any{nil}, []any{nil}}
	}

	malformed := []struct {
		name string
		seq  []any
	}{
		{name: "empty sequence", seq: []any{}},
		{name: "two elements", seq: []any{nil, []any{1}}},
		{name: "missing children", seq: []any{nil, []any{1}, []any{2}, []any{3}}},
		{name: "child is not a sequence", seq: []any{nil, 1, []any{2}, []any{3}, []any{4}}},
		{name: "value is not a number", seq: []any{"a"}},
		{name: "value is not an integer", seq: []any{1.5}},
		{name: "malformed grandchild", seq: []any{nil, []any{1}, []any{2}, []any{3}, []any{nil, []any{}}}},
		{name: "deeper than max depth", seq: tooDeep},
	}

	for _, test := range malformed {
		t.Run(test.name, func(t *testing.T) {
			tree, err := Decode(test.seq)
			require.Error(t, err)
			require.Nil(t, tree)
			require.Equal(t, ErrTypeMalformedSerialization, errors.Type(err))
		})
	}
}

func TestTreeJSON(t *testing.T) {
	tree := newQuarteredTree(ValueOf(1), ValueOf(2), ValueOf(3), ValueOf(4))

	b, err := json.Marshal(tree)
	require.NoError(t, err)
	require.JSONEq(t, `[null,[1],[2],[3],[4]]`, string(b))

	var decoded Tree
	err = json.Unmarshal(b, &decoded)
	require.NoError(t, err)
	require.True(t, decoded.IsIdenticalWith(tree))

	t.Run("large categories keep their precision", func(t *testing.T) {
		var decoded Tree
		err := json.Unmarshal([]byte(`[9007199254740993]`), &decoded)
		require.NoError(t, err)
		require.Equal(t, ValueOf(9007199254740993), decoded.Value(decoded.Root()))
	})

	t.Run("integral numbers in exponent form are accepted", func(t *testing.T) {
		var decoded Tree
		err := json.Unmarshal([]byte(`[null, [1e3], [2.0], [-3E1], [null]]`), &decoded)
		require.NoError(t, err)
		require.Equal(t, ValueOf(1000), decoded.Value(decoded.Child(decoded.Root(), TopLeft)))
		require.Equal(t, ValueOf(2), decoded.Value(decoded.Child(decoded.Root(), TopRight)))
		require.Equal(t, ValueOf(-30), decoded.Value(decoded.Child(decoded.Root(), BottomLeft)))

		err = json.Unmarshal([]byte(`[1.5e0]`), &decoded)
		require.Error(t, err)
	})

	t.Run("invalid json returns a malformed error", func(t *testing.T) {
		var decoded Tree
		err := decoded.UnmarshalJSON([]byte(`[1, 2`))
		require.Error(t, err)
		require.Equal(t, ErrTypeMalformedSerialization, errors.Type(err))
	})
}

func TestTreeProto(t *testing.T) {
	tree := New(ValueOf(5))
	_, err := tree.Set(2, 3, 2, Unset)
	require.NoError(t, err)

	b, err := MarshalProto(tree)
	require.NoError(t, err)

	decoded, err := UnmarshalProto(b)
	require.NoError(t, err)
	require.True(t, decoded.IsIdenticalWith(tree))

	t.Run("categories beyond double precision cannot be encoded", func(t *testing.T) {
		_, err := MarshalProto(New(ValueOf(1<<53 + 1)))
		require.Error(t, err)
		require.Equal(t, ErrTypeUnrepresentableValue, errors.Type(err))

		tree := New(Unset)
		_, err = tree.Set(1, 0, 1, ValueOf(-(1<<53 + 1)))
		require.NoError(t, err)
		_, err = MarshalProto(tree)
		require.Error(t, err)
		require.Equal(t, ErrTypeUnrepresentableValue, errors.Type(err))
	})

	t.Run("categories within double precision round trip", func(t *testing.T) {
		tree := New(Unset)
		_, err := tree.Set(0, 1, 1, ValueOf(1<<53))
		require.NoError(t, err)

		b, err := MarshalProto(tree)
		require.NoError(t, err)

		decoded, err := UnmarshalProto(b)
		require.NoError(t, err)
		require.True(t, decoded.IsIdenticalWith(tree))
	})

	t.Run("garbage returns a malformed error", func(t *testing.T) {
		_, err := UnmarshalProto([]byte{0xff, 0xff, 0xff})
		require.Error(t, err)
		require.Equal(t, ErrTypeMalformedSerialization, errors.Type(err))
	})
}

func TestFingerprint(t *testing.T) {
	tree := New(Unset)
	_, err := tree.Set(1, 1, 1, ValueOf(3))
	require.NoError(t, err)

	fp := Fingerprint(tree)
	require.Len(t, fp, 66)
	require.Equal(t, fp, Fingerprint(tree.Clone()))

	t.Run("divided node values do not change the fingerprint", func(t *testing.T) {
		clone := tree.Clone()
		clone.SetValue(clone.Root(), ValueOf(42))
		require.Equal(t, fp, Fingerprint(clone))
	})

	t.Run("leaf values change the fingerprint", func(t *testing.T) {
		clone := tree.Clone()
		_, err := clone.Set(0, 0, 1, ValueOf(1))
		require.NoError(t, err)
		require.NotEqual(t, fp, Fingerprint(clone))
	})
}
