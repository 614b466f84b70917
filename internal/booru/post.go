package booru

import (
	"path"
	"strings"
)

// Post is one entry of an image board search result, reduced to the
// fields the crawler uses.
type Post struct {
	ID      int64
	FileURL string
	FileExt string
	Rating  string

	// Tags groups the post's tags by board category.
	Tags map[string][]string
}

// skippedExts lists file types that are not still images.
var skippedExts = map[string]bool{
	"mp4":  true,
	"webm": true,
	"zip":  true,
	"swf":  true,
	"avi":  true,
	"mkv":  true,
}

// Downloadable reports whether the post links to a still image.
func (p Post) Downloadable() bool {
	if p.FileURL == "" {
		return false
	}
	return !skippedExts[p.ext()]
}

// ext returns the lower-case extension, falling back to the URL path.
func (p Post) ext() string {
	if p.FileExt != "" {
		return strings.ToLower(strings.TrimPrefix(p.FileExt, "."))
	}
	u := p.FileURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(u), "."))
}

// splitTags splits a space-separated tag string.
func splitTags(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
