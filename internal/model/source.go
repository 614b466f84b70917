package model

import (
	"fmt"
	"strings"
)

// Source identifies the image board a crawl queries.
type Source int

const (
	// SourceDanbooru queries danbooru.donmai.us.
	// Anonymous Danbooru searches accept at most two tags.
	SourceDanbooru Source = iota

	// SourceGelbooru queries gelbooru.com.
	SourceGelbooru
)

// Search term length ceilings applied by the form's text input.
const (
	// DanbooruSearchCharLimit is the input ceiling while Danbooru is selected.
	DanbooruSearchCharLimit = 1000

	// DefaultSearchCharLimit is the input ceiling for unconstrained sources.
	DefaultSearchCharLimit = 32767

	// DanbooruMaxWords is the maximum number of whitespace-separated words
	// Danbooru accepts in one search.
	DanbooruMaxWords = 2
)

// Sources lists the selectable sources in display order.
var Sources = []Source{SourceDanbooru, SourceGelbooru}

// String returns the display name, which is also the persisted value.
func (s Source) String() string {
	switch s {
	case SourceDanbooru:
		return "Danbooru"
	case SourceGelbooru:
		return "Gelbooru"
	default:
		return "Unknown"
	}
}

// Key returns the lower-case identifier used in configuration files.
func (s Source) Key() string {
	return strings.ToLower(s.String())
}

// SearchCharLimit returns the search term length ceiling for the source.
func (s Source) SearchCharLimit() int {
	if s == SourceDanbooru {
		return DanbooruSearchCharLimit
	}
	return DefaultSearchCharLimit
}

// WordLimited reports whether the source restricts the number of words
// in a search term.
func (s Source) WordLimited() bool {
	return s == SourceDanbooru
}

// Next returns the source following s in display order, wrapping around.
func (s Source) Next() Source {
	for i, src := range Sources {
		if src == s {
			return Sources[(i+1)%len(Sources)]
		}
	}
	return Sources[0]
}

// Prev returns the source preceding s in display order, wrapping around.
func (s Source) Prev() Source {
	for i, src := range Sources {
		if src == s {
			return Sources[(i+len(Sources)-1)%len(Sources)]
		}
	}
	return Sources[0]
}

// ParseSource parses a display name or configuration key (case-insensitive).
func ParseSource(name string) (Source, error) {
	for _, src := range Sources {
		if strings.EqualFold(name, src.String()) {
			return src, nil
		}
	}
	return SourceDanbooru, fmt.Errorf("unknown source %q", name)
}
