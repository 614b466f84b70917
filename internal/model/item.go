package model

import (
	"image"
	"sort"
)

// Tag is a descriptive label attached to an image with a confidence score.
// Tags copied from an image board carry a score of 1.
type Tag struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Item is one image travelling through the pipeline together with the
// metadata the steps accumulate.
type Item struct {
	// ID is the post identifier on the source board, e.g. "danbooru_1234".
	ID string

	// Source is the board the item was fetched from.
	Source Source

	// URL is the location the image file was downloaded from.
	URL string

	// Rating is the board's content rating (g, s, q, e).
	Rating string

	// Image holds the decoded pixels. Steps replace it when they transform.
	Image image.Image

	// Format is the decoded file format reported by image.Decode.
	Format string

	// Raw is the downloaded file. It is kept until the mode conversion
	// step has read its metadata and then released.
	Raw []byte

	// Digest is the hex sha3-256 of Raw, used for exact-duplicate checks.
	Digest string

	// Tags is nil until the item has been tagged.
	Tags []Tag

	// BoardTags are the raw tags published with the post, grouped by
	// board category (general, character, copyright, artist, meta).
	BoardTags map[string][]string

	// Filename is assigned by the random filename step and used by the exporter.
	Filename string
}

// Tagged reports whether the item already carries tags.
func (it *Item) Tagged() bool {
	return it.Tags != nil
}

// SortedTags returns the tags ordered by score descending, then by name.
func (it *Item) SortedTags() []Tag {
	tags := make([]Tag, len(it.Tags))
	copy(tags, it.Tags)
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Score != tags[j].Score {
			return tags[i].Score > tags[j].Score
		}
		return tags[i].Name < tags[j].Name
	})
	return tags
}

// Bounds returns the image bounds, or the empty rectangle when no image is set.
func (it *Item) Bounds() image.Rectangle {
	if it.Image == nil {
		return image.Rectangle{}
	}
	return it.Image.Bounds()
}

// MinSide returns the shorter of the image's width and height.
func (it *Item) MinSide() int {
	b := it.Bounds()
	return min(b.Dx(), b.Dy())
}
