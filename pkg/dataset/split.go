package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"castlemap/pkg/model"
)

// SplitByCountry groups castles by upper-cased country code, keeping input
// order inside each group.
func SplitByCountry(castles []model.Castle) map[string][]model.Castle {
	groups := make(map[string][]model.Castle)
	for _, c := range castles {
		code := strings.ToUpper(strings.TrimSpace(c.Country))
		if code == "" {
			code = unknownCountry
		}
		groups[code] = append(groups[code], c)
	}
	return groups
}

// WriteCountryChunks writes one <CODE>.json array per country into dir and
// returns the sorted list of codes written.
func WriteCountryChunks(dir string, castles []model.Castle) ([]string, error) {
	groups := SplitByCountry(castles)

	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		path := filepath.Join(dir, code+".json")
		if err := WriteJSON(path, groups[code], false); err != nil {
			return nil, fmt.Errorf("country %s: %w", code, err)
		}
	}
	return codes, nil
}
