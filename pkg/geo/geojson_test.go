package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"castlemap/pkg/config"
	"castlemap/pkg/model"
)

func testCastles() []model.Castle {
	return []model.Castle{
		{
			ID:        "Q1",
			Name:      "Burg Eltz",
			Country:   "DE",
			Coords:    model.Coords{Lat: 50.2, Lon: 7.3},
			OSM:       model.OSMRef{Type: "way", ID: "7"},
			Wikidata:  "http://www.wikidata.org/entity/Q1",
			Type:      "castle",
			Condition: "standing",
			Source:    model.SourceMerged,
		},
		{
			ID:        "osm-node/42",
			Name:      "Foo",
			Country:   "XX",
			Coords:    model.Coords{Lat: 37.9, Lon: -4.8},
			OSM:       model.OSMRef{Type: "node", ID: "42"},
			Type:      "ruins",
			Condition: "ruins",
			Source:    model.SourceOSMOnly,
		},
	}
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection(testCastles())

	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	p, ok := f.Geometry.(orb.Point)
	if !ok {
		t.Fatalf("expected point geometry, got %T", f.Geometry)
	}
	if p.Lon() != 7.3 || p.Lat() != 50.2 {
		t.Errorf("point must be [lon, lat], got %v", p)
	}
	if f.ID != "Q1" {
		t.Errorf("expected feature id Q1, got %v", f.ID)
	}
	if got := f.Properties.MustString("osm"); got != "way/7" {
		t.Errorf("expected osm way/7, got %s", got)
	}
	if _, ok := fc.Features[1].Properties["wikidata"]; ok {
		t.Error("empty optional fields must not become properties")
	}

	want := geojson.BBox{-4.8, 37.9, 7.3, 50.2}
	if len(fc.BBox) != 4 {
		t.Fatalf("expected bbox, got %v", fc.BBox)
	}
	for i := range want {
		if fc.BBox[i] != want[i] {
			t.Errorf("bbox[%d]: expected %v, got %v", i, want[i], fc.BBox[i])
		}
	}
}

func TestFeatureCollection_SkipsMissingPosition(t *testing.T) {
	castles := append(testCastles(), model.Castle{
		ID:     "osm-relation/3",
		Name:   "Nowhere",
		OSM:    model.OSMRef{Type: "relation", ID: "3"},
		Source: model.SourceOSMOnly,
	})

	fc := FeatureCollection(castles)

	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	for _, f := range fc.Features {
		if f.ID == "osm-relation/3" {
			t.Errorf("castle without a position must not become a feature")
		}
	}
	if fc.BBox == nil {
		t.Fatal("expected a bbox")
	}
	if b := fc.BBox.Bound(); b.Contains(orb.Point{0, 0}) {
		t.Errorf("bbox must not stretch to 0,0, got %v", b)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Marshal(testCastles())
	if err != nil {
		t.Fatal(err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("output is not valid geojson: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}
	if got := fc.Features[1].Properties.MustString("name"); got != "Foo" {
		t.Errorf("expected name Foo, got %s", got)
	}
}

func TestMarshal_Empty(t *testing.T) {
	data, err := Marshal(nil)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 0 || fc.BBox != nil {
		t.Errorf("expected empty collection without bbox, got %+v", fc)
	}
}

func TestInBounds(t *testing.T) {
	europe := Bound(config.DefaultConfig().Wikidata.Bounds)

	tests := []struct {
		name string
		c    model.Coords
		want bool
	}{
		{"Eltz", model.Coords{Lat: 50.2, Lon: 7.3}, true},
		{"Tenerife", model.Coords{Lat: 28.3, Lon: -16.5}, false},
		{"Kyrenia", model.Coords{Lat: 35.3, Lon: 33.3}, true},
		{"Svalbard", model.Coords{Lat: 78.2, Lon: 15.6}, false},
	}
	for _, tt := range tests {
		if got := InBounds(europe, tt.c); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
