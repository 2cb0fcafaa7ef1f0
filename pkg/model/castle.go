package model

// Coords is a WGS84 coordinate pair.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether c is the zero value. Castles whose source element
// has no position carry it.
func (c Coords) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// WikidataCastle is one row of the Wikidata dump.
type WikidataCastle struct {
	ID       string `json:"id"`       // Entity URI fragment, e.g. "Q123"
	Name     string `json:"name"`     // itemLabel
	Country  string `json:"country"`  // ISO 3166-1 alpha-2, may be empty
	Coords   Coords `json:"coords"`   // From the P625 WKT literal
	Wikidata string `json:"wikidata"` // Full entity URI
	Image    string `json:"image,omitempty"`
	Style    string `json:"style,omitempty"`
}

// OSMRef identifies the OpenStreetMap element a castle was built from.
type OSMRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Image holds the picture references of a castle.
// ThumbURL comes from Wikidata, PageURL from the OSM image tag.
type Image struct {
	ThumbURL string `json:"thumb_url,omitempty"`
	PageURL  string `json:"page_url,omitempty"`
	License  string `json:"license,omitempty"`
	Credit   string `json:"credit,omitempty"`
}

// Castle is a merged, application-ready record.
type Castle struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AltNames     []string `json:"alt_names"`
	Country      string   `json:"country"`
	Coords       Coords   `json:"coords"`
	OSM          OSMRef   `json:"osm"`
	Wikidata     string   `json:"wikidata,omitempty"`
	Wikipedia    string   `json:"wikipedia,omitempty"`
	Type         string   `json:"type"`
	Era          string   `json:"era,omitempty"`
	Condition    string   `json:"condition"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	Website      string   `json:"website,omitempty"`
	Image        Image    `json:"image"`
	Tags         []string `json:"tags"`
	Source       string   `json:"source"`
	LastVerified string   `json:"last_verified"`
}

// Source values.
const (
	SourceMerged  = "wikidata+osm"
	SourceOSMOnly = "osm"
)

// Thumbnail is the Commons metadata for a castle image.
type Thumbnail struct {
	ThumbURL   string `json:"thumb_url,omitempty"`
	PageURL    string `json:"page_url,omitempty"`
	License    string `json:"license,omitempty"`
	Credit     string `json:"credit,omitempty"`
	CreditText string `json:"credit_text,omitempty"` // Credit without HTML markup
}
