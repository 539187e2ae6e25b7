package models

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadmap/featureflag"
	"github.com/aukilabs/quadmap/quadtree"
	"github.com/stretchr/testify/require"
)

const testMapDocument = `{
	"id": 4,
	"description": "campus",
	"layers": [
		{
			"id": 0,
			"description": "buildings",
			"metadata": {
				"1": {"id": 1, "description": "library", "color": "#ff8800"}
			},
			"initial_tree": [null],
			"tree": [null, [1], [null], [null], [null]],
			"deltas": [
				{
					"id": "5f0c6f4e-3d0e-4c55-a4a7-0b3c2d4e9a10",
					"time": 1709294400.5,
					"delta": [null, [1], [null], [null], [null]]
				}
			]
		}
	]
}`

func TestMapLayers(t *testing.T) {
	m := NewMap(1, "")
	require.NoError(t, m.AddLayer(NewAreaLayer(2, "", quadtree.New(quadtree.Unset))))
	require.NoError(t, m.AddLayer(NewAreaLayer(0, "", quadtree.New(quadtree.Unset))))

	layers := m.Layers()
	require.Len(t, layers, 2)
	require.Equal(t, uint32(0), layers[0].ID)
	require.Equal(t, uint32(2), layers[1].ID)
	require.Equal(t, uint32(3), m.NewLayerID())

	t.Run("duplicate layer returns an error", func(t *testing.T) {
		err := m.AddLayer(NewAreaLayer(2, "", quadtree.New(quadtree.Unset)))
		require.Error(t, err)
		require.Equal(t, ErrTypeLayerExists, errors.Type(err))
	})

	t.Run("layer is found by id", func(t *testing.T) {
		l, err := m.Layer(2)
		require.NoError(t, err)
		require.Equal(t, uint32(2), l.ID)
	})

	t.Run("unknown layer returns an error", func(t *testing.T) {
		_, err := m.Layer(42)
		require.Error(t, err)
		require.Equal(t, ErrTypeLayerNotFound, errors.Type(err))
	})
}

func TestDecodeMap(t *testing.T) {
	m, err := DecodeMap(strings.NewReader(testMapDocument), featureflag.New(nil))
	require.NoError(t, err)
	require.Equal(t, uint32(4), m.ID)
	require.Equal(t, "campus", m.Description)

	l, err := m.Layer(0)
	require.NoError(t, err)
	require.Equal(t, "buildings", l.Description)

	d, ok := l.Data(1)
	require.True(t, ok)
	require.Equal(t, "library", d.Description)
	require.Equal(t, "#ff8800", d.Color.Hex())

	deltas := l.Deltas()
	require.Len(t, deltas, 1)
	require.Equal(t, "5f0c6f4e-3d0e-4c55-a4a7-0b3c2d4e9a10", deltas[0].ID.String())
	require.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 500000000, time.UTC), deltas[0].Time)

	require.Equal(t, []any{nil, []any{int64(1)}, []any{nil}, []any{nil}, []any{nil}}, quadtree.Encode(l.Tree()))

	t.Run("legacy deltas", func(t *testing.T) {
		doc := strings.Replace(testMapDocument, `"initial_tree": [null]`, `"initial_tree": [2]`, 1)

		m, err := DecodeMap(strings.NewReader(doc), featureflag.New([]string{string(featureflag.FlagLegacyDeltaFormat)}))
		require.NoError(t, err)

		l, err := m.Layer(0)
		require.NoError(t, err)
		require.Equal(t, quadtree.ValueOf(1), cellValue(t, l.Tree(), 0, 0, 1))
		require.Equal(t, quadtree.ValueOf(2), cellValue(t, l.Tree(), 1, 0, 1))
	})

	t.Run("simplify on load", func(t *testing.T) {
		doc := strings.Replace(testMapDocument, `"initial_tree": [null]`, `"initial_tree": [null, [3], [3], [3], [3]]`, 1)

		m, err := DecodeMap(strings.NewReader(doc), featureflag.New([]string{string(featureflag.FlagSimplifyOnLoad)}))
		require.NoError(t, err)

		l, err := m.Layer(0)
		require.NoError(t, err)
		require.True(t, l.InitialTree().IsIdenticalWith(quadtree.New(quadtree.ValueOf(3))))
	})

	t.Run("malformed tree returns an error", func(t *testing.T) {
		doc := strings.Replace(testMapDocument, `"initial_tree": [null]`, `"initial_tree": [null, [1]]`, 1)

		_, err := DecodeMap(strings.NewReader(doc), featureflag.New(nil))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidMap, errors.Type(err))
	})

	t.Run("missing initial tree returns an error", func(t *testing.T) {
		doc := strings.Replace(testMapDocument, `"initial_tree": [null],`, ``, 1)

		_, err := DecodeMap(strings.NewReader(doc), featureflag.New(nil))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidMap, errors.Type(err))
	})

	t.Run("invalid color returns an error", func(t *testing.T) {
		doc := strings.Replace(testMapDocument, `"#ff8800"`, `"orange"`, 1)

		_, err := DecodeMap(strings.NewReader(doc), featureflag.New(nil))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidMap, errors.Type(err))
	})

	t.Run("mismatched area data key returns an error", func(t *testing.T) {
		doc := strings.Replace(testMapDocument, `"1": {`, `"2": {`, 1)

		_, err := DecodeMap(strings.NewReader(doc), featureflag.New(nil))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidMap, errors.Type(err))
	})
}

func TestMapEncode(t *testing.T) {
	m, err := DecodeMap(strings.NewReader(testMapDocument), featureflag.New(nil))
	require.NoError(t, err)

	l, err := m.Layer(0)
	require.NoError(t, err)
	_, err = l.Set(3, 3, 2, quadtree.Unset, testTime)
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, m.Encode(&b))

	decoded, err := DecodeMap(&b, featureflag.New(nil))
	require.NoError(t, err)
	require.Equal(t, m.ID, decoded.ID)
	require.Equal(t, m.Description, decoded.Description)

	dl, err := decoded.Layer(0)
	require.NoError(t, err)
	require.Equal(t, l.AreaData(), dl.AreaData())
	require.True(t, dl.Tree().IsIdenticalWith(l.Tree()))
	require.True(t, dl.InitialTree().IsIdenticalWith(l.InitialTree()))

	deltas := l.Deltas()
	decodedDeltas := dl.Deltas()
	require.Len(t, decodedDeltas, len(deltas))
	for i := range deltas {
		require.Equal(t, deltas[i].ID, decodedDeltas[i].ID)
		require.Equal(t, deltas[i].Time, decodedDeltas[i].Time)
		require.Equal(t, quadtree.EncodeDelta(deltas[i].Delta), quadtree.EncodeDelta(decodedDeltas[i].Delta))
	}

	t.Run("marshal json matches encode", func(t *testing.T) {
		var encoded bytes.Buffer
		require.NoError(t, m.Encode(&encoded))

		b, err := m.MarshalJSON()
		require.NoError(t, err)
		require.JSONEq(t, encoded.String(), string(b))
	})
}
