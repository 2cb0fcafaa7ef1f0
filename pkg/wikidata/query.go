package wikidata

import (
	"fmt"

	"castlemap/pkg/config"
)

// castleQuery selects every instance of castle (Q23413) or one of its
// subclasses that has a coordinate inside the bounding box. Image, style
// and country code are optional.
const castleQuery = `SELECT ?item ?itemLabel ?coord ?image ?countryCode ?style ?styleLabel WHERE {
  ?item wdt:P31/wdt:P279* wd:Q23413;
        wdt:P625 ?coord.
  OPTIONAL { ?item wdt:P18 ?image. }
  OPTIONAL { ?item wdt:P149 ?style. }
  OPTIONAL { ?item wdt:P17 ?country. ?country wdt:P297 ?countryCode. }
  FILTER(BOUND(?coord)).
  BIND(xsd:float(STRBEFORE(STRAFTER(STR(?coord), "Point("), " ")) AS ?lon)
  BIND(xsd:float(STRBEFORE(STRAFTER(STRAFTER(STR(?coord), "Point("), " "), ")")) AS ?lat)
  FILTER(?lat > %g && ?lat < %g && ?lon > %g && ?lon < %g)
  SERVICE wikibase:label { bd:serviceParam wikibase:language "%s". }
}`

func buildCastleQuery(b config.Bounds, languages string, limit, offset int) string {
	q := fmt.Sprintf(castleQuery, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, languages)
	return fmt.Sprintf("%s\nLIMIT %d OFFSET %d", q, limit, offset)
}
