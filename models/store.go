package models

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadmap/featureflag"
	"github.com/aukilabs/quadmap/quadtree"
)

// MapStore is a registry of loaded maps and the files they are saved to.
type MapStore struct {
	// The feature flags used to decode map documents.
	Flags featureflag.FeatureFlag

	initOnce sync.Once
	mutex    sync.RWMutex
	maps     map[uint32]*Map
	paths    map[uint32]string
	ids      SequentialIDGenerator
}

func (s *MapStore) init() {
	s.maps = make(map[uint32]*Map)
	s.paths = make(map[uint32]string)

	if s.Flags == nil {
		s.Flags = featureflag.New(nil)
	}
}

// NewID returns an id that no stored map uses.
func (s *MapStore) NewID() uint32 {
	return s.ids.New()
}

// Add registers m. A non-empty path is where Save writes it.
func (s *MapStore) Add(ctx context.Context, m *Map, path string) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.maps[m.ID]; ok {
		return errors.New("map already exists").
			WithType(ErrTypeMapExists).
			WithTag("map_id", m.ID)
	}

	s.maps[m.ID] = m
	s.ids.Reserve(m.ID)
	if path != "" {
		s.paths[m.ID] = path
	}

	instrumentIncreaseMapGauge(m)
	logs.WithTag("map_id", m.ID).
		WithTag("layers", len(m.Layers())).
		WithTag("path", path).
		Info("map added")
	return nil
}

// Create registers a new map holding a single layer whose world is unset.
func (s *MapStore) Create(ctx context.Context, description, path string) (*Map, error) {
	m := NewMap(s.NewID(), description)
	if err := m.AddLayer(NewAreaLayer(0, "", quadtree.New(quadtree.Unset))); err != nil {
		return nil, err
	}

	if err := s.Add(ctx, m, path); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the map document at path and registers its map.
func (s *MapStore) Load(ctx context.Context, path string) (*Map, error) {
	s.initOnce.Do(s.init)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("opening map document failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	m, err := DecodeMap(f, s.Flags)
	if err != nil {
		return nil, errors.New("loading map failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := s.Add(ctx, m, path); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MapStore) Get(id uint32) (*Map, error) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	m, ok := s.maps[id]
	if !ok {
		return nil, errors.New("map not found").
			WithType(ErrTypeMapNotFound).
			WithTag("map_id", id)
	}
	return m, nil
}

// Maps returns the stored maps sorted by id.
func (s *MapStore) Maps() []*Map {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	maps := make([]*Map, 0, len(s.maps))
	for _, m := range s.maps {
		maps = append(maps, m)
	}
	sort.Slice(maps, func(i, j int) bool {
		return maps[i].ID < maps[j].ID
	})
	return maps
}

// Save writes the map with the given id to the path it was added with. The
// document is written to a temporary file first, then renamed over the path.
func (s *MapStore) Save(ctx context.Context, id uint32) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mutex.RLock()
	path, ok := s.paths[id]
	s.mutex.RUnlock()
	if !ok {
		return errors.New("map has no path").
			WithType(ErrTypeMapNotFound).
			WithTag("map_id", id)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.New("creating temporary map document failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer os.Remove(f.Name())

	if err := m.Encode(f); err != nil {
		f.Close()
		return errors.New("encoding map failed").
			WithTag("map_id", id).
			Wrap(err)
	}
	if err := f.Close(); err != nil {
		return errors.New("closing temporary map document failed").
			WithTag("path", f.Name()).
			Wrap(err)
	}

	if err := os.Rename(f.Name(), path); err != nil {
		return errors.New("replacing map document failed").
			WithTag("path", path).
			Wrap(err)
	}

	logs.WithTag("map_id", id).
		WithTag("path", path).
		Info("map saved")
	return nil
}

func (s *MapStore) Remove(ctx context.Context, id uint32) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, ok := s.maps[id]
	if !ok {
		return
	}

	delete(s.maps, id)
	delete(s.paths, id)
	s.ids.Release(id)

	instrumentDecreaseMapGauge(m)
}
