package quadtree

import (
	"iter"
	"math/bits"
)

// MaxDepth is the deepest resolution a tree supports. A world is at most
// 2^MaxDepth cells wide.
const MaxDepth = 24

// Quadrant is the index of a child inside its parent: y*2 + x.
type Quadrant uint8

const (
	TopLeft Quadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

// QuadrantAt returns the quadrant of the local x and y bits.
func QuadrantAt(x, y uint8) Quadrant {
	return Quadrant((y&1)*2 + x&1)
}

func (q Quadrant) X() uint8 {
	return uint8(q) & 1
}

func (q Quadrant) Y() uint8 {
	return uint8(q) >> 1
}

// PositionToPath returns the low length bits of coordinate, least
// significant bit first. Missing high bits are zero.
func PositionToPath(coordinate uint32, length int) []uint8 {
	path := make([]uint8, length)
	for i := 0; i < length && i < 32; i++ {
		path[i] = uint8(coordinate>>i) & 1
	}
	return path
}

// PathToPosition converts a path read most significant bit first into a
// position: the binary digits of bitstring are reversed, padded with zeros on
// the right to unit digits, truncated to unit digits and read back as an
// unsigned integer.
func PathToPosition(bitstring uint32, unit int) uint32 {
	if unit <= 0 {
		return 0
	}
	if unit > 32 {
		unit = 32
	}

	// Reversing the digit string puts bit i of bitstring at digit i; the
	// first unit digits read back most significant first are the low unit
	// bits of bitstring in reverse order.
	return bits.Reverse32(bitstring) >> (32 - unit)
}

// PositionToPathInt is the inverse of PathToPosition for positions inside
// 2^unit.
func PositionToPathInt(pos uint32, unit int) uint32 {
	return PathToPosition(pos, unit)
}

// RangePositions yields, in path int order, the positions whose path ints lie
// in [PositionToPathInt(start), PositionToPathInt(end)). An end at or beyond
// 2^unit runs to the last path int, and a start there yields nothing.
func RangePositions(start, end uint32, unit int) iter.Seq[uint32] {
	unit = max(0, min(unit, 32))
	limit := uint64(1) << unit

	return func(yield func(uint32) bool) {
		if uint64(start) >= limit {
			return
		}

		from := uint64(PositionToPathInt(start, unit))
		to := limit
		if uint64(end) < limit {
			to = uint64(PositionToPathInt(end, unit))
		}

		for p := from; p < to; p++ {
			if !yield(PathToPosition(uint32(p), unit)) {
				return
			}
		}
	}
}

// FamilyPathToPosition composes a family path, as returned by
// Tree.FamilyPath, back into the coordinates of the cell it addresses at a
// unit equal to the path length.
func FamilyPathToPosition(path []Quadrant) (x, y uint32) {
	for i, q := range path {
		x |= uint32(q.X()) << i
		y |= uint32(q.Y()) << i
	}
	return x, y
}

// pathQuadrants interleaves the x and y paths of a cell into the quadrants
// visited from the root.
func pathQuadrants(x, y uint32, unit int) []Quadrant {
	xPath := PositionToPath(x, unit)
	yPath := PositionToPath(y, unit)

	path := make([]Quadrant, unit)
	for i := range path {
		path[i] = QuadrantAt(xPath[i], yPath[i])
	}
	return path
}

// inRange reports whether x and y address a cell at unit.
func inRange(x, y uint32, unit int) bool {
	if unit < 0 || unit > MaxDepth {
		return false
	}
	limit := uint64(1) << unit
	return uint64(x) < limit && uint64(y) < limit
}
