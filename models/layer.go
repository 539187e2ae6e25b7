package models

import (
	"image/color"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadmap/quadtree"
)

// AreaLayer is a layer classifying the world into areas. Its current tree is
// its initial tree with its deltas applied in time order.
type AreaLayer struct {
	ID          uint32
	Description string

	dataMutex sync.RWMutex
	data      map[quadtree.Category]AreaData

	treeMutex   sync.RWMutex
	initialTree *quadtree.Tree
	tree        *quadtree.Tree
	deltas      []AreaDelta
	inverses    []*quadtree.Delta
	undone      []AreaDelta
}

// NewAreaLayer returns a layer whose initial and current trees are initial.
func NewAreaLayer(id uint32, description string, initial *quadtree.Tree) *AreaLayer {
	l := &AreaLayer{
		ID:          id,
		Description: description,
		data:        make(map[quadtree.Category]AreaData),
		initialTree: initial,
	}
	l.Synchronize()
	return l
}

// NewDataID returns an id greater than the ids of all the area data of the
// layer, or 0 when it has none.
func (l *AreaLayer) NewDataID() quadtree.Category {
	l.dataMutex.RLock()
	defer l.dataMutex.RUnlock()

	if len(l.data) == 0 {
		return 0
	}
	return slices.Max(slices.Collect(maps.Keys(l.data))) + 1
}

func (l *AreaLayer) AddData(d AreaData) error {
	l.dataMutex.Lock()
	defer l.dataMutex.Unlock()

	if _, ok := l.data[d.ID]; ok {
		return errors.New("area data already exists").
			WithType(ErrTypeDataExists).
			WithTag("layer_id", l.ID).
			WithTag("area_data_id", d.ID)
	}

	l.data[d.ID] = d
	return nil
}

func (l *AreaLayer) Data(id quadtree.Category) (AreaData, bool) {
	l.dataMutex.RLock()
	defer l.dataMutex.RUnlock()

	d, ok := l.data[id]
	return d, ok
}

// AreaData returns the area data of the layer sorted by id.
func (l *AreaLayer) AreaData() []AreaData {
	l.dataMutex.RLock()
	defer l.dataMutex.RUnlock()

	data := make([]AreaData, 0, len(l.data))
	for _, d := range l.data {
		data = append(data, d)
	}
	sort.Slice(data, func(i, j int) bool {
		return data[i].ID < data[j].ID
	})
	return data
}

// Palette returns the colors of the area data of the layer.
func (l *AreaLayer) Palette() quadtree.MapPalette {
	l.dataMutex.RLock()
	defer l.dataMutex.RUnlock()

	p := make(quadtree.MapPalette, len(l.data))
	for id, d := range l.data {
		r, g, b := d.Color.Clamped().RGB255()
		p[id] = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return p
}

// AddDelta records d and updates the current tree. Deltas are kept sorted by
// time; a delta sharing its time with recorded ones goes after them. Adding a
// delta forgets undone ones.
func (l *AreaLayer) AddDelta(d AreaDelta) {
	l.treeMutex.Lock()
	defer l.treeMutex.Unlock()

	l.undone = nil
	l.insertDelta(d)
}

func (l *AreaLayer) insertDelta(d AreaDelta) {
	i := sort.Search(len(l.deltas), func(i int) bool {
		return l.deltas[i].Time.After(d.Time)
	})

	if i == len(l.deltas) {
		l.deltas = append(l.deltas, d)
		l.inverses = append(l.inverses, quadtree.Trace(l.tree, d.Delta))
		l.tree.Patch(d.Delta)
		l.instrument()
		return
	}

	l.deltas = slices.Insert(l.deltas, i, d)
	l.synchronize()
}

// Set records a delta classifying the cell (x, y) at unit as v.
func (l *AreaLayer) Set(x, y uint32, unit int, v quadtree.Value, at time.Time) (AreaDelta, error) {
	d := quadtree.NewDelta()
	if err := d.Set(x, y, unit, v); err != nil {
		return AreaDelta{}, err
	}

	ad := NewAreaDelta(at, d)
	l.AddDelta(ad)
	return ad, nil
}

// Commit records the delta turning the current tree into edited. It returns
// false without recording anything when both trees are identical.
func (l *AreaLayer) Commit(edited *quadtree.Tree, at time.Time) (AreaDelta, bool) {
	l.treeMutex.Lock()
	defer l.treeMutex.Unlock()

	d := quadtree.Diff(l.tree, edited)
	if d.IsNoop() {
		return AreaDelta{}, false
	}

	ad := NewAreaDelta(at, d)
	l.undone = nil
	l.insertDelta(ad)
	return ad, true
}

// Undo removes the latest delta and restores the tree it was applied to.
func (l *AreaLayer) Undo() (AreaDelta, error) {
	l.treeMutex.Lock()
	defer l.treeMutex.Unlock()

	last := len(l.deltas) - 1
	if last < 0 {
		return AreaDelta{}, errors.New("no delta to undo").
			WithType(ErrTypeNothingToUndo).
			WithTag("layer_id", l.ID)
	}

	d := l.deltas[last]
	l.tree.Patch(l.inverses[last])
	l.deltas = l.deltas[:last]
	l.inverses = l.inverses[:last]
	l.undone = append(l.undone, d)
	l.instrument()
	return d, nil
}

// Redo records again the latest undone delta.
func (l *AreaLayer) Redo() (AreaDelta, error) {
	l.treeMutex.Lock()
	defer l.treeMutex.Unlock()

	last := len(l.undone) - 1
	if last < 0 {
		return AreaDelta{}, errors.New("no delta to redo").
			WithType(ErrTypeNothingToRedo).
			WithTag("layer_id", l.ID)
	}

	d := l.undone[last]
	l.undone = l.undone[:last]
	l.insertDelta(d)
	return d, nil
}

// Deltas returns the recorded deltas in time order.
func (l *AreaLayer) Deltas() []AreaDelta {
	l.treeMutex.RLock()
	defer l.treeMutex.RUnlock()

	return slices.Clone(l.deltas)
}

// Synchronize recomputes the current tree from the initial tree and the
// recorded deltas.
func (l *AreaLayer) Synchronize() {
	l.treeMutex.Lock()
	defer l.treeMutex.Unlock()

	l.synchronize()
}

func (l *AreaLayer) synchronize() {
	tree := l.initialTree.Clone()
	inverses := make([]*quadtree.Delta, len(l.deltas))
	for i, d := range l.deltas {
		inverses[i] = quadtree.Trace(tree, d.Delta)
		tree.Patch(d.Delta)
	}

	l.tree = tree
	l.inverses = inverses
	l.instrument()

	logs.WithTag("layer_id", l.ID).
		WithTag("deltas", len(l.deltas)).
		WithTag("nodes", tree.Len()).
		Debug("area layer synchronized")
}

// Simplify brings the initial tree into canonical form and synchronizes the
// layer.
func (l *AreaLayer) Simplify() {
	l.treeMutex.Lock()
	defer l.treeMutex.Unlock()

	l.initialTree.Simplify()
	l.synchronize()
}

// Tree returns a copy of the current tree.
func (l *AreaLayer) Tree() *quadtree.Tree {
	l.treeMutex.RLock()
	defer l.treeMutex.RUnlock()

	return l.tree.Clone()
}

// InitialTree returns a copy of the initial tree.
func (l *AreaLayer) InitialTree() *quadtree.Tree {
	l.treeMutex.RLock()
	defer l.treeMutex.RUnlock()

	return l.initialTree.Clone()
}

// View calls fn with the current tree, which fn must not modify nor retain.
func (l *AreaLayer) View(fn func(t *quadtree.Tree)) {
	l.treeMutex.RLock()
	defer l.treeMutex.RUnlock()

	fn(l.tree)
}

// Fingerprint returns the fingerprint of the current tree.
func (l *AreaLayer) Fingerprint() string {
	l.treeMutex.RLock()
	defer l.treeMutex.RUnlock()

	return quadtree.Fingerprint(l.tree)
}

func (l *AreaLayer) instrument() {
	instrumentLayer(l.ID, len(l.deltas), l.tree.Len())
}
