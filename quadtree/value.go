package quadtree

import (
	"bytes"
	"math"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// Category identifies a region category, such as the id of an area data
// entry.
type Category int64

// Value is the classification stored in a node. The zero Value is unset,
// meaning the region has no classification.
type Value struct {
	category Category
	set      bool
}

// maxExactFloat bounds the integers that float64 represents exactly.
const maxExactFloat = 1 << 53

// Unset is the value of unclassified regions.
var Unset = Value{}

// ValueOf returns a set value holding c.
func ValueOf(c Category) Value {
	return Value{category: c, set: true}
}

// Category returns the category held by v and whether v is set.
func (v Value) Category() (Category, bool) {
	return v.category, v.set
}

func (v Value) IsSet() bool {
	return v.set
}

func (v Value) String() string {
	if !v.set {
		return "None"
	}
	return strconv.FormatInt(int64(v.category), 10)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(v.category), 10), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Unset
		return nil
	}

	var c int64
	if err := json.Unmarshal(b, &c); err != nil {
		return errMalformed("value is not an integer category")
	}
	*v = ValueOf(Category(c))
	return nil
}

// any returns v in the form used by nested sequences: nil or int64.
func (v Value) any() any {
	if !v.set {
		return nil
	}
	return int64(v.category)
}

// valueFromAny converts a scalar decoded from JSON, protobuf or built by hand
// into a Value.
func valueFromAny(v any) (Value, bool) {
	switch n := v.(type) {
	case nil:
		return Unset, true
	case Value:
		return n, true
	case Category:
		return ValueOf(n), true
	case int:
		return ValueOf(Category(n)), true
	case int32:
		return ValueOf(Category(n)), true
	case int64:
		return ValueOf(Category(n)), true
	case uint32:
		return ValueOf(Category(n)), true
	case float64:
		if math.Abs(n) > maxExactFloat || n != math.Trunc(n) {
			return Unset, false
		}
		return ValueOf(Category(n)), true
	case json.Number:
		if c, err := n.Int64(); err == nil {
			return ValueOf(Category(c)), true
		}
		f, err := n.Float64()
		if err != nil {
			return Unset, false
		}
		return valueFromAny(f)
	default:
		return Unset, false
	}
}
