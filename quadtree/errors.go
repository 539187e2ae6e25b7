package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Error types reported by the quadtree package. Use errors.Type or
// errors.IsType to classify a returned error.
const (
	// ErrTypeMalformedSerialization indicates that a nested sequence could not
	// be decoded into a tree or a delta.
	ErrTypeMalformedSerialization = "quadtree-malformed-serialization"

	// ErrTypeOutOfRange indicates that a coordinate and unit combination
	// addresses a cell outside the supported world.
	ErrTypeOutOfRange = "quadtree-out-of-range-coordinate"

	// ErrTypeUnrepresentableValue indicates that a value cannot be carried
	// exactly by an encoding.
	ErrTypeUnrepresentableValue = "quadtree-unrepresentable-value"

	// ErrTypeInvalidNode indicates that a node id is stale or does not belong
	// to the tree it was used with.
	ErrTypeInvalidNode = "quadtree-invalid-node"
)

func errMalformed(msg string) error {
	return errors.New(msg).WithType(ErrTypeMalformedSerialization)
}

func errOutOfRange(x, y uint32, unit int) error {
	return errors.New("coordinate out of range").
		WithType(ErrTypeOutOfRange).
		WithTag("x", x).
		WithTag("y", y).
		WithTag("unit", unit).
		WithTag("max_depth", MaxDepth)
}

func errInvalidNode(id NodeID) error {
	return errors.New("invalid node").
		WithType(ErrTypeInvalidNode).
		WithTag("node", id.String())
}
