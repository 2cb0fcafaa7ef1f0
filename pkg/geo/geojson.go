package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"castlemap/pkg/config"
	"castlemap/pkg/model"
)

// Point returns the castle position in orb's [lon, lat] order.
func Point(c model.Coords) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FeatureCollection converts castles into point features. Scalar fields
// become properties; the collection carries the bounding box of all points.
// Castles with zero coordinates have no known position and are left out.
func FeatureCollection(castles []model.Castle) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	points := make(orb.MultiPoint, 0, len(castles))

	for i := range castles {
		c := &castles[i]
		if c.Coords.IsZero() {
			continue
		}
		p := Point(c.Coords)
		points = append(points, p)

		f := geojson.NewFeature(p)
		f.ID = c.ID
		f.Properties = properties(c)
		fc.Append(f)
	}

	if len(points) > 0 {
		fc.BBox = geojson.NewBBox(points.Bound())
	}
	return fc
}

func properties(c *model.Castle) geojson.Properties {
	props := geojson.Properties{
		"id":            c.ID,
		"name":          c.Name,
		"country":       c.Country,
		"osm":           fmt.Sprintf("%s/%s", c.OSM.Type, c.OSM.ID),
		"type":          c.Type,
		"condition":     c.Condition,
		"source":        c.Source,
		"last_verified": c.LastVerified,
	}
	optional := map[string]string{
		"wikidata":      c.Wikidata,
		"wikipedia":     c.Wikipedia,
		"era":           c.Era,
		"opening_hours": c.OpeningHours,
		"website":       c.Website,
		"thumb_url":     c.Image.ThumbURL,
		"page_url":      c.Image.PageURL,
		"license":       c.Image.License,
		"credit":        c.Image.Credit,
	}
	for k, v := range optional {
		if v != "" {
			props[k] = v
		}
	}
	return props
}

// Bound converts a configured bounding box.
func Bound(b config.Bounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// InBounds reports whether c lies inside the bound.
func InBounds(b orb.Bound, c model.Coords) bool {
	return b.Contains(Point(c))
}

// Marshal renders the collection as GeoJSON.
func Marshal(castles []model.Castle) ([]byte, error) {
	data, err := FeatureCollection(castles).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}
