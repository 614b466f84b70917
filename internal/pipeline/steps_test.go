package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/nao1215/boorucrawl/internal/model"
)

// TestModeConvertStep tests color normalization.
func TestModeConvertStep(t *testing.T) {
	t.Parallel()

	t.Run("flattens transparency over white", func(t *testing.T) {
		t.Parallel()

		src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
		src.SetNRGBA(0, 0, color.NRGBA{})
		src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

		item := newItem("x", src)
		item.Raw = []byte("not an image file")

		got, err := NewModeConvertStep().Do(context.Background(), item)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rgba, ok := got.Image.(*image.RGBA)
		if !ok {
			t.Fatalf("expected *image.RGBA, got %T", got.Image)
		}
		if c := rgba.RGBAAt(0, 0); c != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("transparent pixel should become white, got %v", c)
		}
		if c := rgba.RGBAAt(1, 0); c != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
			t.Errorf("opaque pixel should be unchanged, got %v", c)
		}
		if got.Raw != nil {
			t.Error("raw bytes should be released")
		}
	})

	t.Run("uses configured background", func(t *testing.T) {
		t.Parallel()

		src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		step := NewModeConvertStep(WithBackground(color.Black))

		got, err := step.Do(context.Background(), newItem("x", src))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r, g, b, a := got.Image.At(0, 0).RGBA()
		if r != 0 || g != 0 || b != 0 || a != 0xffff {
			t.Errorf("expected opaque black, got %d %d %d %d", r, g, b, a)
		}
	})

	t.Run("fails without image", func(t *testing.T) {
		t.Parallel()

		if _, err := NewModeConvertStep().Do(context.Background(), &model.Item{ID: "empty"}); err == nil {
			t.Error("expected error for item without image")
		}
	})
}

// TestFilterSimilarStep tests perceptual duplicate removal.
func TestFilterSimilarStep(t *testing.T) {
	t.Parallel()

	t.Run("drops repeated image", func(t *testing.T) {
		t.Parallel()

		img := noiseImage(1, 64, 64)
		step := NewFilterSimilarStep()

		first, err := step.Do(context.Background(), newItem("a", img))
		if err != nil || first == nil {
			t.Fatalf("first image should pass: %v", err)
		}
		second, err := step.Do(context.Background(), newItem("b", img))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second != nil {
			t.Error("identical image should be dropped")
		}
	})

	t.Run("compares against every kept image", func(t *testing.T) {
		t.Parallel()

		step := NewFilterSimilarStep()
		a, b := noiseImage(1, 64, 64), noiseImage(2, 64, 64)

		for _, item := range []*model.Item{newItem("a", a), newItem("b", b)} {
			got, err := step.Do(context.Background(), item)
			if err != nil || got == nil {
				t.Fatalf("distinct image %s should pass: %v", item.ID, err)
			}
		}

		// a is not adjacent to the repeat any more.
		got, err := step.Do(context.Background(), newItem("a-again", a))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("image similar to an earlier one should be dropped")
		}
	})

	t.Run("fresh step has no state", func(t *testing.T) {
		t.Parallel()

		img := noiseImage(3, 64, 64)
		if _, err := NewFilterSimilarStep().Do(context.Background(), newItem("a", img)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := NewFilterSimilarStep().Do(context.Background(), newItem("a", img))
		if err != nil || got == nil {
			t.Error("a new step should keep an image seen by another step")
		}
	})

	t.Run("negative threshold is ignored", func(t *testing.T) {
		t.Parallel()

		step := NewFilterSimilarStep(WithSimilarityThreshold(-1))
		if step.threshold != 10 {
			t.Errorf("expected default threshold, got %d", step.threshold)
		}
	})
}

// TestAlignMinSizeStep tests resizing to the target shorter side.
func TestAlignMinSizeStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		w, h, target int
		wantW, wantH int
	}{
		{"downscale portrait", 200, 300, 100, 100, 150},
		{"downscale landscape", 300, 200, 100, 150, 100},
		{"upscale square", 50, 50, 120, 120, 120},
		{"already aligned", 100, 180, 100, 100, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item := newItem("x", image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)))
			got, err := NewAlignMinSizeStep(tt.target).Do(context.Background(), item)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			b := got.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
			if got.MinSide() != tt.target {
				t.Errorf("expected min side %d, got %d", tt.target, got.MinSide())
			}
		})
	}
}

// TestTaggingStep tests the force flag semantics.
func TestTaggingStep(t *testing.T) {
	t.Parallel()

	boardTags := []model.Tag{{Name: "from_board", Score: 1}}

	t.Run("keeps existing tags when not forced", func(t *testing.T) {
		t.Parallel()

		tagger := &stubTagger{}
		item := newItem("a", nil)
		item.Tags = boardTags

		got, err := NewTaggingStep(tagger, WithForce(false)).Do(context.Background(), item)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tagger.calls != 0 {
			t.Error("tagger should not run for tagged item")
		}
		if got.Tags[0].Name != "from_board" {
			t.Errorf("expected board tags kept, got %v", got.Tags)
		}
	})

	t.Run("replaces existing tags when forced", func(t *testing.T) {
		t.Parallel()

		tagger := &stubTagger{}
		item := newItem("a", nil)
		item.Tags = boardTags

		got, err := NewTaggingStep(tagger, WithForce(true)).Do(context.Background(), item)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tagger.calls != 1 || got.Tags[0].Name != "tag_a" {
			t.Errorf("expected inferred tags, got %v", got.Tags)
		}
	})

	t.Run("tags untagged items even when not forced", func(t *testing.T) {
		t.Parallel()

		tagger := &stubTagger{}
		got, err := NewTaggingStep(tagger).Do(context.Background(), newItem("b", nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Tagged() || tagger.calls != 1 {
			t.Error("untagged item should be tagged")
		}
	})

	t.Run("empty result still marks item tagged", func(t *testing.T) {
		t.Parallel()

		step := NewTaggingStep(taggerFunc(func(context.Context, *model.Item) ([]model.Tag, error) {
			return nil, nil
		}))
		got, err := step.Do(context.Background(), newItem("c", nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Tagged() {
			t.Error("item should count as tagged")
		}
	})

	t.Run("tagger error fails the step", func(t *testing.T) {
		t.Parallel()

		tagErr := errors.New("tagger unavailable")
		_, err := NewTaggingStep(&stubTagger{err: tagErr}).Do(context.Background(), newItem("d", nil))
		if !errors.Is(err, tagErr) {
			t.Errorf("expected tagger error, got %v", err)
		}
	})
}

type taggerFunc func(context.Context, *model.Item) ([]model.Tag, error)

func (f taggerFunc) Tag(ctx context.Context, item *model.Item) ([]model.Tag, error) {
	return f(ctx, item)
}

// TestFirstNStep tests truncation.
func TestFirstNStep(t *testing.T) {
	t.Parallel()

	step := NewFirstNStep(2)
	var kept []string
	for _, id := range []string{"a", "b", "c", "d"} {
		got, err := step.Do(context.Background(), newItem(id, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			kept = append(kept, got.ID)
		}
	}

	if len(kept) != 2 || kept[0] != "a" || kept[1] != "b" {
		t.Errorf("expected first two items, got %v", kept)
	}
	if !step.Done() {
		t.Error("step should report done")
	}
	if NewFirstNStep(1).Done() {
		t.Error("new step should not be done")
	}
}

// TestRandomFilenameStep tests filename assignment.
func TestRandomFilenameStep(t *testing.T) {
	t.Parallel()

	step := NewRandomFilenameStep("")
	seen := make(map[string]bool)
	for i := range 20 {
		got, err := step.Do(context.Background(), newItem(fmt.Sprint(i), nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(got.Filename, ".png") {
			t.Errorf("expected .png extension, got %q", got.Filename)
		}
		if seen[got.Filename] {
			t.Errorf("duplicate filename %q", got.Filename)
		}
		seen[got.Filename] = true
	}

	if got, _ := NewRandomFilenameStep(".webp").Do(context.Background(), newItem("w", nil)); !strings.HasSuffix(got.Filename, ".webp") {
		t.Errorf("expected custom extension, got %q", got.Filename)
	}
}

// TestDefaultPipeline tests the assembled crawl chain.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	params := model.CrawlParameters{
		Source:        model.SourceDanbooru,
		SearchTerm:    "blue_hair",
		ResizeSize:    40,
		EnableTagging: true,
		MaxCount:      3,
		OutputPath:    "/unused",
	}

	pool := func() []*model.Item {
		var items []*model.Item
		for i := range 6 {
			img := noiseImage(uint64(100+i), 64+8*i, 96)
			items = append(items, newItem(fmt.Sprintf("p%d", i), img))
			if i == 0 {
				// An immediate repeat that must not count towards the cap.
				items = append(items, newItem("p0-dup", img))
			}
		}
		return items
	}

	t.Run("has fixed step order", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(&sliceSource{}, &stubTagger{}, params, nil)
		want := []string{
			StepModeConvert, StepFilterSimilar, StepAlignMinSize, StepTagging,
			StepFilterSimilar, StepFirstN, StepRandomFilename,
		}
		got := p.StepNames()
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("exports max count items at target size", func(t *testing.T) {
		t.Parallel()

		exporter := &memoryExporter{}
		record := model.NewRunRecord("r", params)
		p := DefaultPipeline(&sliceSource{items: pool()}, &stubTagger{}, params, nil)
		if err := p.Execute(context.Background(), exporter, record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(exporter.items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(exporter.items))
		}
		for _, item := range exporter.items {
			if item.MinSide() != params.ResizeSize {
				t.Errorf("%s: expected min side %d, got %d", item.ID, params.ResizeSize, item.MinSide())
			}
			if !item.Tagged() {
				t.Errorf("%s: expected tags", item.ID)
			}
			if !strings.HasSuffix(item.Filename, ".png") {
				t.Errorf("%s: unexpected filename %q", item.ID, item.Filename)
			}
			if item.ID == "p0-dup" {
				t.Error("duplicate should not be exported")
			}
		}
		if record.Dropped[StepFilterSimilar] != 1 {
			t.Errorf("expected one similarity drop, got %v", record.Dropped)
		}
	})

	t.Run("small pool exports everything distinct", func(t *testing.T) {
		t.Parallel()

		big := params
		big.MaxCount = 50

		exporter := &memoryExporter{}
		p := DefaultPipeline(&sliceSource{items: pool()}, &stubTagger{}, big, nil)
		if err := p.Execute(context.Background(), exporter, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(exporter.items) != 6 {
			t.Errorf("expected 6 distinct items, got %d", len(exporter.items))
		}
	})

	t.Run("tagging off keeps board tags", func(t *testing.T) {
		t.Parallel()

		off := params
		off.EnableTagging = false

		item := newItem("tagged", noiseImage(7, 64, 64))
		item.Tags = []model.Tag{{Name: "board_tag", Score: 1}}

		tagger := &stubTagger{}
		exporter := &memoryExporter{}
		p := DefaultPipeline(&sliceSource{items: []*model.Item{item}}, tagger, off, nil)
		if err := p.Execute(context.Background(), exporter, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tagger.calls != 0 {
			t.Error("tagger should not run")
		}
		if exporter.items[0].Tags[0].Name != "board_tag" {
			t.Errorf("expected board tag, got %v", exporter.items[0].Tags)
		}
	})
}
