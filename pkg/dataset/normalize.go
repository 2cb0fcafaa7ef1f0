package dataset

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"castlemap/pkg/model"
	"castlemap/pkg/overpass"
)

const (
	unknownName    = "Unknown castle"
	unknownCountry = "XX"
	dateLayout     = "2006-01-02"
)

// descriptionTags are matched as substrings of the lower-cased description tag.
var descriptionTags = []string{"public", "museum", "unesco"}

// Normalize merges OSM elements with the Wikidata records they reference.
// Elements without a historic tag are dropped; everything else yields one
// castle, in input order. today stamps last_verified.
func Normalize(wd map[string]model.WikidataCastle, elements []overpass.Element, today time.Time) []model.Castle {
	stamp := today.Format(dateLayout)
	out := make([]model.Castle, 0, len(elements))

	for i := range elements {
		el := &elements[i]
		if _, ok := el.Tags["historic"]; !ok {
			continue
		}
		out = append(out, normalizeElement(wd, el, stamp))
	}
	return out
}

func normalizeElement(wd map[string]model.WikidataCastle, el *overpass.Element, stamp string) model.Castle {
	tags := el.Tags
	wdTag := tags["wikidata"]

	var candidate *model.WikidataCastle
	if wdTag != "" {
		if c, ok := wd[wdTag]; ok {
			candidate = &c
		}
	}

	coords, _ := el.Coords()

	c := model.Castle{
		ID:           wdTag,
		Name:         firstNonEmpty(tags["name"], unknownName),
		AltNames:     splitAltNames(tags["alt_name"]),
		Country:      firstNonEmpty(tags["addr:country"], unknownCountry),
		Coords:       coords,
		OSM:          model.OSMRef{Type: el.Type, ID: fmt.Sprintf("%d", el.ID)},
		Wikidata:     wdTag,
		Wikipedia:    tags["wikipedia"],
		Type:         firstNonEmpty(tags["castle_type"], tags["historic"]),
		Condition:    condition(tags),
		OpeningHours: tags["opening_hours"],
		Website:      tags["website"],
		Image:        model.Image{PageURL: tags["image"]},
		Tags:         descriptionMatches(tags["description"]),
		Source:       model.SourceOSMOnly,
		LastVerified: stamp,
	}
	if c.ID == "" {
		c.ID = "osm-" + el.Ref()
	}

	if candidate != nil {
		// Identity comes from Wikidata even when a field there is empty.
		c.Name = candidate.Name
		c.Country = candidate.Country
		c.Wikidata = firstNonEmpty(candidate.Wikidata, wdTag)
		c.Era = candidate.Style
		c.Image.ThumbURL = candidate.Image
		c.Source = model.SourceMerged
	}

	c.Name = norm.NFC.String(c.Name)
	return c
}

// condition returns the condition tag verbatim, "ruins" when a ruins tag
// is present, "standing" otherwise.
func condition(tags map[string]string) string {
	if v := tags["condition"]; v != "" {
		return v
	}
	if tags["ruins"] != "" {
		return "ruins"
	}
	return "standing"
}

func splitAltNames(raw string) []string {
	names := []string{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		names = append(names, norm.NFC.String(part))
	}
	return names
}

func descriptionMatches(description string) []string {
	matched := []string{}
	if description == "" {
		return matched
	}
	text := cases.Lower(language.Und).String(description)
	for _, tag := range descriptionTags {
		if strings.Contains(text, tag) {
			matched = append(matched, tag)
		}
	}
	return matched
}

// ApplyThumbnails copies license and credit from the thumbnail mapping onto
// merged castles. thumb_url keeps its Wikidata value.
func ApplyThumbnails(castles []model.Castle, thumbs map[string]model.Thumbnail) int {
	applied := 0
	for i := range castles {
		t, ok := thumbs[castles[i].ID]
		if !ok {
			continue
		}
		castles[i].Image.License = t.License
		castles[i].Image.Credit = firstNonEmpty(t.CreditText, t.Credit)
		applied++
	}
	return applied
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
