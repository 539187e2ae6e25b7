package models

import (
	"math"
	"time"

	"github.com/aukilabs/quadmap/quadtree"
	"github.com/google/uuid"
)

// AreaDelta is a change of an area layer made at a given time.
type AreaDelta struct {
	ID    uuid.UUID
	Time  time.Time
	Delta *quadtree.Delta
}

// NewAreaDelta returns an area delta with a random id.
func NewAreaDelta(at time.Time, d *quadtree.Delta) AreaDelta {
	return AreaDelta{
		ID:    uuid.New(),
		Time:  at,
		Delta: d,
	}
}

// unixSeconds and fromUnixSeconds convert times to the fractional seconds
// stored in map documents.
func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

func fromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second)))).UTC()
}
