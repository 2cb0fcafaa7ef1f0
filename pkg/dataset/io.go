package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"castlemap/pkg/model"
	"castlemap/pkg/overpass"
)

// ReadJSON decodes the whole file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v and writes it to path in one go, creating parent
// directories. Non-ASCII text is kept as is.
func WriteJSON(path string, v any, indent bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteRaw(path, buf.Bytes())
}

// WriteRaw writes data to path, creating parent directories.
func WriteRaw(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadWikidata reads a Wikidata dump into a map keyed by entity ID.
// Later rows for the same ID replace earlier ones.
func LoadWikidata(path string) (map[string]model.WikidataCastle, error) {
	var rows []model.WikidataCastle
	if err := ReadJSON(path, &rows); err != nil {
		return nil, err
	}
	return IndexWikidata(rows), nil
}

// IndexWikidata keys rows by ID.
func IndexWikidata(rows []model.WikidataCastle) map[string]model.WikidataCastle {
	m := make(map[string]model.WikidataCastle, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		m[r.ID] = r
	}
	return m
}

// LoadElements reads a raw Overpass dump.
func LoadElements(path string) ([]overpass.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	resp, err := overpass.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp.Elements, nil
}

// LoadCastles reads a merged castle array.
func LoadCastles(path string) ([]model.Castle, error) {
	var castles []model.Castle
	if err := ReadJSON(path, &castles); err != nil {
		return nil, err
	}
	return castles, nil
}

// LoadThumbnails reads a thumbnail mapping keyed by Wikidata ID.
func LoadThumbnails(path string) (map[string]model.Thumbnail, error) {
	thumbs := make(map[string]model.Thumbnail)
	if err := ReadJSON(path, &thumbs); err != nil {
		return nil, err
	}
	return thumbs, nil
}
