package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"castlemap/pkg/dataset"
)

func renderStats(w io.Writer, stats []dataset.CountryStats) error {
	table := tablewriter.NewTable(w)
	table.Header("Country", "Total", "Wikidata+OSM", "OSM only", "Ruins")

	var sum dataset.CountryStats
	for _, s := range stats {
		if err := table.Append(s.Country, strconv.Itoa(s.Total), strconv.Itoa(s.Merged),
			strconv.Itoa(s.OSMOnly), strconv.Itoa(s.Ruins)); err != nil {
			return err
		}
		sum.Total += s.Total
		sum.Merged += s.Merged
		sum.OSMOnly += s.OSMOnly
		sum.Ruins += s.Ruins
	}

	table.Footer("All", strconv.Itoa(sum.Total), strconv.Itoa(sum.Merged),
		strconv.Itoa(sum.OSMOnly), strconv.Itoa(sum.Ruins))
	return table.Render()
}
