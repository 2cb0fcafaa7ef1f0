package commons

import (
	"net/url"
	"strings"
)

const filePathMarker = "Special:FilePath/"

// FileTitle turns an image reference from Wikidata into a Commons page
// title. Wikidata returns Special:FilePath URLs with an escaped file name;
// bare file names get the File: namespace.
func FileTitle(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	if i := strings.Index(ref, filePathMarker); i >= 0 {
		name := ref[i+len(filePathMarker):]
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		ref = name
	}

	ref = strings.ReplaceAll(ref, "_", " ")
	if strings.HasPrefix(ref, "File:") {
		return ref
	}
	return "File:" + ref
}
