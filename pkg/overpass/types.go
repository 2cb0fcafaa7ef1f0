package overpass

import (
	"encoding/json"
	"errors"
	"fmt"

	"castlemap/pkg/model"
)

// ErrParse is returned when a response is not valid Overpass JSON.
var ErrParse = errors.New("overpass: invalid response")

// Response is the subset of the Overpass JSON output the pipeline reads.
type Response struct {
	Elements []Element `json:"elements"`
}

// Element is a node, way or relation. Nodes carry Lat/Lon, ways and
// relations a Center. Skeleton members have no tags.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *model.Coords     `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Ref returns the "type/id" reference of the element.
func (e *Element) Ref() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

// Coords returns the center if present, the element position otherwise.
// ok is false when the element has neither; the result is then the zero
// value.
func (e *Element) Coords() (c model.Coords, ok bool) {
	if e.Center != nil {
		return *e.Center, true
	}
	if e.Lat == nil || e.Lon == nil {
		return model.Coords{}, false
	}
	return model.Coords{Lat: *e.Lat, Lon: *e.Lon}, true
}

// Parse decodes a raw Overpass response.
func Parse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &resp, nil
}
