package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlemap/pkg/model"
)

func sampleCastles() []model.Castle {
	return []model.Castle{
		{ID: "Q1", Country: "DE", Source: model.SourceMerged, Condition: "standing"},
		{ID: "osm-node/1", Country: "de", Source: model.SourceOSMOnly, Condition: "ruins"},
		{ID: "Q2", Country: "FR", Source: model.SourceMerged, Condition: "ruins"},
		{ID: "osm-way/2", Country: "", Source: model.SourceOSMOnly, Condition: "standing"},
	}
}

func TestSplitByCountry(t *testing.T) {
	groups := SplitByCountry(sampleCastles())

	require.Len(t, groups, 3)
	assert.Len(t, groups["DE"], 2)
	assert.Equal(t, "Q1", groups["DE"][0].ID, "input order is kept")
	assert.Len(t, groups["FR"], 1)
	assert.Len(t, groups["XX"], 1)
}

func TestWriteCountryChunks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "eu")
	castles := sampleCastles()

	codes, err := WriteCountryChunks(dir, castles)
	require.NoError(t, err)
	assert.Equal(t, []string{"DE", "FR", "XX"}, codes)

	total := 0
	for _, code := range codes {
		chunk, err := LoadCastles(filepath.Join(dir, code+".json"))
		require.NoError(t, err)
		total += len(chunk)
	}
	assert.Equal(t, len(castles), total, "chunks together hold every castle")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sampleCastles())
	require.Len(t, stats, 3)

	assert.Equal(t, CountryStats{Country: "DE", Total: 2, Merged: 1, OSMOnly: 1, Ruins: 1}, stats[0])
	assert.Equal(t, "FR", stats[1].Country)
	assert.Equal(t, "XX", stats[2].Country)
}
