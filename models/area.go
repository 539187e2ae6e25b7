package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadmap/quadtree"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/segmentio/encoding/json"
)

// AreaData describes what a category of an area layer stands for.
type AreaData struct {
	ID          quadtree.Category
	Description string
	Color       colorful.Color
}

type areaDataJSON struct {
	ID          quadtree.Category `json:"id"`
	Description string            `json:"description"`
	Color       string            `json:"color"`
}

func (d AreaData) MarshalJSON() ([]byte, error) {
	return json.Marshal(areaDataJSON{
		ID:          d.ID,
		Description: d.Description,
		Color:       d.Color.Clamped().Hex(),
	})
}

func (d *AreaData) UnmarshalJSON(b []byte) error {
	var v areaDataJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	c, err := ParseColor(v.Color)
	if err != nil {
		return errors.New("invalid area data color").
			WithType(ErrTypeInvalidColor).
			WithTag("area_data_id", v.ID).
			Wrap(err)
	}

	*d = AreaData{
		ID:          v.ID,
		Description: v.Description,
		Color:       c,
	}
	return nil
}

// ParseColor parses a #rrggbb or #rgb color.
func ParseColor(s string) (colorful.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, errors.New("invalid color").
			WithType(ErrTypeInvalidColor).
			WithTag("color", s).
			Wrap(err)
	}
	return c, nil
}
