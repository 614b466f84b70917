package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/nao1215/boorucrawl/internal/model"
)

// noiseImage returns a deterministic random grayscale image. Images with
// different seeds have unrelated perceptual hashes.
func noiseImage(seed uint64, w, h int) *image.NRGBA {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	// Blocks of 8x8 pixels keep the noise in the low frequencies the
	// perceptual hash looks at.
	for by := 0; by < h; by += 8 {
		for bx := 0; bx < w; bx += 8 {
			v := uint8(r.IntN(256))
			for y := by; y < min(by+8, h); y++ {
				for x := bx; x < min(bx+8, w); x++ {
					img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
				}
			}
		}
	}
	return img
}

// newItem wraps img in an item with the given id.
func newItem(id string, img image.Image) *model.Item {
	return &model.Item{ID: id, Source: model.SourceDanbooru, Image: img}
}

// sliceSource serves a fixed list of items.
type sliceSource struct {
	items []*model.Item
	pos   int
	pulls int
	err   error
}

func (s *sliceSource) Next(_ context.Context) (*model.Item, error) {
	s.pulls++
	if s.err != nil && s.pos == len(s.items) {
		return nil, s.err
	}
	if s.pos >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

func (s *sliceSource) Name() string {
	return "slice"
}

// memoryExporter records exported items.
type memoryExporter struct {
	mu        sync.Mutex
	items     []*model.Item
	closed    bool
	exportErr error
	closeErr  error
}

func (e *memoryExporter) Export(_ context.Context, item *model.Item) error {
	if e.exportErr != nil {
		return e.exportErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, item)
	return nil
}

func (e *memoryExporter) Close() error {
	e.closed = true
	return e.closeErr
}

// stubTagger tags every item with a single tag derived from its id.
type stubTagger struct {
	calls int
	err   error
}

func (s *stubTagger) Tag(_ context.Context, item *model.Item) ([]model.Tag, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []model.Tag{{Name: fmt.Sprintf("tag_%s", item.ID), Score: 0.9}}, nil
}
