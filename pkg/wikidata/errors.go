package wikidata

import "errors"

var (
	// ErrParse indicates a SPARQL response that is not valid results JSON.
	ErrParse = errors.New("wikidata parse error")
	// ErrCoordinate indicates a P625 value that is not a WKT point.
	ErrCoordinate = errors.New("wikidata coordinate error")
)
