package export

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/boorucrawl/internal/model"
)

func TestCaption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tags []model.Tag
		want string
	}{
		{"empty", nil, ""},
		{"single", []model.Tag{{Name: "1girl"}}, "1girl"},
		{"keeps underscores", []model.Tag{{Name: "blue_hair"}, {Name: "long_hair"}}, "blue_hair, long_hair"},
		{"escapes parentheses", []model.Tag{{Name: "hatsune_miku_(cosplay)"}}, `hatsune_miku_\(cosplay\)`},
		{"escapes backslash", []model.Tag{{Name: `\m/`}}, `\\m/`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Caption(tt.tags); got != tt.want {
				t.Errorf("Caption() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextualInversionExporter(t *testing.T) {
	t.Parallel()

	t.Run("writes image and caption sharing basename", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "out")
		e, err := NewTextualInversionExporter(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		item := &model.Item{
			ID:       "danbooru_1",
			Image:    image.NewRGBA(image.Rect(0, 0, 30, 20)),
			Filename: "abc.png",
			Tags: []model.Tag{
				{Name: "solo", Score: 0.5},
				{Name: "1girl", Score: 0.99},
				{Name: "smile_(happy)", Score: 0.7},
			},
		}
		if err := e.Export(context.Background(), item); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		f, err := os.Open(filepath.Join(dir, "abc.png"))
		if err != nil {
			t.Fatalf("image missing: %v", err)
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			t.Fatalf("image is not a png: %v", err)
		}
		if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
			t.Errorf("unexpected size %v", img.Bounds())
		}

		caption, err := os.ReadFile(filepath.Join(dir, "abc.txt"))
		if err != nil {
			t.Fatalf("caption missing: %v", err)
		}
		if want := `1girl, smile_\(happy\), solo`; string(caption) != want {
			t.Errorf("caption = %q, want %q", caption, want)
		}
		if e.Exported() != 1 {
			t.Errorf("expected 1 exported, got %d", e.Exported())
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("failed to read dir: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected exactly 2 files, got %d", len(entries))
		}
	})

	t.Run("untagged item gets empty caption", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		e, err := NewTextualInversionExporter(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		item := &model.Item{ID: "x", Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Filename: "x.png"}
		if err := e.Export(context.Background(), item); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "x.txt"))
		if err != nil {
			t.Fatalf("caption missing: %v", err)
		}
		if len(data) != 0 {
			t.Errorf("expected empty caption, got %q", data)
		}
	})

	t.Run("rejects unnamed item", func(t *testing.T) {
		t.Parallel()

		e, err := NewTextualInversionExporter(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = e.Export(context.Background(), &model.Item{ID: "x", Image: image.NewRGBA(image.Rect(0, 0, 1, 1))})
		if !errors.Is(err, ErrNoFilename) {
			t.Errorf("expected ErrNoFilename, got %v", err)
		}
	})

	t.Run("rejects unknown extension", func(t *testing.T) {
		t.Parallel()

		e, err := NewTextualInversionExporter(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		item := &model.Item{ID: "x", Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Filename: "x.bmp"}
		if err := e.Export(context.Background(), item); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("fails when directory cannot be created", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o600); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		if _, err := NewTextualInversionExporter(filepath.Join(file, "sub")); err == nil {
			t.Error("expected error")
		}
	})
}
