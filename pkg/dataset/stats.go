package dataset

import (
	"sort"

	"castlemap/pkg/model"
)

// CountryStats counts castles of one country by provenance and condition.
type CountryStats struct {
	Country string
	Total   int
	Merged  int
	OSMOnly int
	Ruins   int
}

// Summarize returns per-country counts sorted by total, descending, then by
// country code.
func Summarize(castles []model.Castle) []CountryStats {
	byCode := make(map[string]*CountryStats)
	for code, group := range SplitByCountry(castles) {
		s := &CountryStats{Country: code}
		for _, c := range group {
			s.Total++
			switch c.Source {
			case model.SourceMerged:
				s.Merged++
			default:
				s.OSMOnly++
			}
			if c.Condition == "ruins" {
				s.Ruins++
			}
		}
		byCode[code] = s
	}

	out := make([]CountryStats, 0, len(byCode))
	for _, s := range byCode {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Country < out[j].Country
	})
	return out
}
