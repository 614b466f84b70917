package tagging

import (
	"context"
	"slices"
	"strings"

	"github.com/nao1215/boorucrawl/internal/model"
)

// Board tag categories.
const (
	CategoryGeneral   = "general"
	CategoryCharacter = "character"
	CategoryCopyright = "copyright"
	CategoryArtist    = "artist"
	CategoryMeta      = "meta"
)

// DefaultCategories are the categories that describe image content.
// Artist and meta tags (e.g. "highres") say nothing about what is shown.
var DefaultCategories = []string{CategoryCharacter, CategoryCopyright, CategoryGeneral}

// MetadataTagger builds tags from the board's own tag categories.
// Tags earlier in the category list score higher, so captions start with
// the characters and series.
type MetadataTagger struct {
	categories []string
	exclude    map[string]bool
}

// MetadataOption configures a MetadataTagger.
type MetadataOption func(*MetadataTagger)

// WithCategories sets the categories to use, most important first.
func WithCategories(categories ...string) MetadataOption {
	return func(m *MetadataTagger) {
		m.categories = categories
	}
}

// WithExcludedTags drops the named tags from every result.
func WithExcludedTags(tags ...string) MetadataOption {
	return func(m *MetadataTagger) {
		for _, tag := range tags {
			m.exclude[normalize(tag)] = true
		}
	}
}

// NewMetadataTagger creates a tagger using DefaultCategories.
func NewMetadataTagger(opts ...MetadataOption) *MetadataTagger {
	m := &MetadataTagger{
		categories: slices.Clone(DefaultCategories),
		exclude:    make(map[string]bool),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Tag returns the board tags of the configured categories. When the item
// has no categorised tags, its existing tags are normalised instead.
func (m *MetadataTagger) Tag(_ context.Context, item *model.Item) ([]model.Tag, error) {
	seen := make(map[string]bool)
	tags := make([]model.Tag, 0)

	add := func(name string, score float64) {
		name = normalize(name)
		if name == "" || seen[name] || m.exclude[name] {
			return
		}
		seen[name] = true
		tags = append(tags, model.Tag{Name: name, Score: score})
	}

	if len(item.BoardTags) == 0 {
		for _, tag := range item.Tags {
			add(tag.Name, tag.Score)
		}
		return tags, nil
	}

	for rank, category := range m.categories {
		score := categoryScore(rank)
		for _, name := range item.BoardTags[category] {
			add(name, score)
		}
	}
	return tags, nil
}

// categoryScore maps a category's position to a score in (0, 1].
func categoryScore(rank int) float64 {
	return 1 / float64(rank+1)
}

// normalize lower-cases a tag and replaces inner spaces with underscores,
// the way boards spell tags.
func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
