package models

import (
	"slices"
	"sync"
)

// SequentialIDGenerator hands out increasing ids. Released ids are handed out
// again first, smallest first, and reserved ids are never handed out.
type SequentialIDGenerator struct {
	mutex    sync.Mutex
	current  uint32
	released []uint32
	reserved map[uint32]struct{}
}

// New returns an id that is neither in use nor reserved.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if len(g.released) != 0 {
		id := g.released[0]
		g.released = g.released[1:]
		g.reserve(id)
		return id
	}

	for {
		g.current++
		if _, ok := g.reserved[g.current]; !ok {
			g.reserve(g.current)
			return g.current
		}
	}
}

// Reserve marks id as in use, such as the id of a map read from a file.
func (g *SequentialIDGenerator) Reserve(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if i, ok := slices.BinarySearch(g.released, id); ok {
		g.released = slices.Delete(g.released, i, i+1)
	}
	g.reserve(id)
}

func (g *SequentialIDGenerator) reserve(id uint32) {
	if g.reserved == nil {
		g.reserved = make(map[uint32]struct{})
	}
	g.reserved[id] = struct{}{}
}

// Release marks id as no longer in use. Released ids are returned in priority
// by New.
func (g *SequentialIDGenerator) Release(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.reserved[id]; !ok {
		return
	}
	delete(g.reserved, id)

	if id > g.current {
		return
	}
	i, _ := slices.BinarySearch(g.released, id)
	g.released = slices.Insert(g.released, i, id)
}
