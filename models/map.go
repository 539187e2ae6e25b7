package models

import (
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadmap/featureflag"
	"github.com/aukilabs/quadmap/quadtree"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

// Map is a described world made of area layers.
type Map struct {
	ID          uint32
	Description string

	layerMutex sync.RWMutex
	layers     map[uint32]*AreaLayer
}

func NewMap(id uint32, description string) *Map {
	return &Map{
		ID:          id,
		Description: description,
		layers:      make(map[uint32]*AreaLayer),
	}
}

func (m *Map) AddLayer(l *AreaLayer) error {
	m.layerMutex.Lock()
	defer m.layerMutex.Unlock()

	if _, ok := m.layers[l.ID]; ok {
		return errors.New("layer already exists").
			WithType(ErrTypeLayerExists).
			WithTag("map_id", m.ID).
			WithTag("layer_id", l.ID)
	}

	m.layers[l.ID] = l
	return nil
}

func (m *Map) Layer(id uint32) (*AreaLayer, error) {
	m.layerMutex.RLock()
	defer m.layerMutex.RUnlock()

	l, ok := m.layers[id]
	if !ok {
		return nil, errors.New("layer not found").
			WithType(ErrTypeLayerNotFound).
			WithTag("map_id", m.ID).
			WithTag("layer_id", id)
	}
	return l, nil
}

// Layers returns the layers of the map sorted by id.
func (m *Map) Layers() []*AreaLayer {
	m.layerMutex.RLock()
	defer m.layerMutex.RUnlock()

	layers := make([]*AreaLayer, 0, len(m.layers))
	for _, l := range m.layers {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool {
		return layers[i].ID < layers[j].ID
	})
	return layers
}

// NewLayerID returns an id greater than the ids of all the layers of the map.
func (m *Map) NewLayerID() uint32 {
	m.layerMutex.RLock()
	defer m.layerMutex.RUnlock()

	var id uint32
	for layerID := range m.layers {
		if layerID >= id {
			id = layerID + 1
		}
	}
	return id
}

type mapDocument struct {
	ID          uint32          `json:"id"`
	Description string          `json:"description"`
	Layers      []layerDocument `json:"layers"`
}

type layerDocument struct {
	ID          uint32              `json:"id"`
	Description string              `json:"description"`
	Metadata    map[string]AreaData `json:"metadata"`
	InitialTree *quadtree.Tree      `json:"initial_tree"`
	Tree        *quadtree.Tree      `json:"tree,omitempty"`
	Deltas      []deltaDocument     `json:"deltas"`
}

type deltaDocument struct {
	ID    string          `json:"id,omitempty"`
	Time  float64         `json:"time"`
	Delta json.RawMessage `json:"delta"`
}

// DecodeMap reads a map document from r. The current tree of each layer is
// recomputed from its initial tree and its deltas.
func DecodeMap(r io.Reader, flags featureflag.FeatureFlag) (*Map, error) {
	var doc mapDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.New("decoding map document failed").
			WithType(ErrTypeInvalidMap).
			Wrap(err)
	}

	m := NewMap(doc.ID, doc.Description)
	for _, ld := range doc.Layers {
		l, err := decodeLayer(ld, flags)
		if err != nil {
			return nil, errors.New("decoding layer failed").
				WithType(ErrTypeInvalidMap).
				WithTag("map_id", doc.ID).
				WithTag("layer_id", ld.ID).
				Wrap(err)
		}

		if err := m.AddLayer(l); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeLayer(doc layerDocument, flags featureflag.FeatureFlag) (*AreaLayer, error) {
	if doc.InitialTree == nil {
		return nil, errors.New("layer has no initial tree").
			WithType(ErrTypeInvalidMap)
	}

	l := NewAreaLayer(doc.ID, doc.Description, doc.InitialTree)

	for key, d := range doc.Metadata {
		if key != strconv.FormatInt(int64(d.ID), 10) {
			return nil, errors.New("area data key does not match its id").
				WithType(ErrTypeInvalidMap).
				WithTag("key", key).
				WithTag("area_data_id", d.ID)
		}
		if err := l.AddData(d); err != nil {
			return nil, err
		}
	}

	deltas := make([]AreaDelta, 0, len(doc.Deltas))
	for _, dd := range doc.Deltas {
		d, err := decodeDelta(dd, flags)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	l.treeMutex.Lock()
	for _, d := range deltas {
		l.insertDelta(d)
	}
	l.treeMutex.Unlock()

	flags.IfSet(featureflag.FlagSimplifyOnLoad, l.Simplify)

	if doc.Tree != nil && !doc.Tree.IsIdenticalWith(l.tree) {
		logs.WithTag("layer_id", l.ID).
			WithTag("stored_fingerprint", quadtree.Fingerprint(doc.Tree)).
			WithTag("fingerprint", l.Fingerprint()).
			Warn("stored layer tree differs from its synchronized tree")
	}
	return l, nil
}

func decodeDelta(doc deltaDocument, flags featureflag.FeatureFlag) (AreaDelta, error) {
	id := uuid.New()
	if doc.ID != "" {
		parsed, err := uuid.Parse(doc.ID)
		if err != nil {
			return AreaDelta{}, errors.New("invalid delta id").
				WithType(ErrTypeInvalidMap).
				WithTag("delta_id", doc.ID).
				Wrap(err)
		}
		id = parsed
	}

	var d *quadtree.Delta
	var err error
	if flags.IsSet(featureflag.FlagLegacyDeltaFormat) {
		d, err = quadtree.UnmarshalLegacyDelta(doc.Delta)
	} else {
		d = &quadtree.Delta{}
		err = d.UnmarshalJSON(doc.Delta)
	}
	if err != nil {
		return AreaDelta{}, err
	}

	return AreaDelta{
		ID:    id,
		Time:  fromUnixSeconds(doc.Time),
		Delta: d,
	}, nil
}

func (m *Map) document() (mapDocument, error) {
	doc := mapDocument{
		ID:          m.ID,
		Description: m.Description,
		Layers:      []layerDocument{},
	}

	for _, l := range m.Layers() {
		ld := layerDocument{
			ID:          l.ID,
			Description: l.Description,
			Metadata:    make(map[string]AreaData),
			InitialTree: l.InitialTree(),
			Tree:        l.Tree(),
			Deltas:      []deltaDocument{},
		}

		for _, d := range l.AreaData() {
			ld.Metadata[strconv.FormatInt(int64(d.ID), 10)] = d
		}

		for _, d := range l.Deltas() {
			b, err := d.Delta.MarshalJSON()
			if err != nil {
				return mapDocument{}, err
			}

			ld.Deltas = append(ld.Deltas, deltaDocument{
				ID:    d.ID.String(),
				Time:  unixSeconds(d.Time),
				Delta: b,
			})
		}

		doc.Layers = append(doc.Layers, ld)
	}
	return doc, nil
}

// Encode writes the map document of m to w.
func (m *Map) Encode(w io.Writer) error {
	doc, err := m.document()
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(doc)
}

func (m *Map) MarshalJSON() ([]byte, error) {
	doc, err := m.document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
