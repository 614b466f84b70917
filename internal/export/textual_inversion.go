package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/boorucrawl/internal/model"
)

var (
	// ErrNoFilename is returned for items that were never named.
	ErrNoFilename = errors.New("item has no filename")

	// ErrUnsupportedFormat is returned for image extensions without an encoder.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// CaptionExt is the extension of the caption file written beside each image.
const CaptionExt = ".txt"

// encoders maps lower-case file extensions to image encoders.
var encoders = map[string]func(io.Writer, image.Image) error{
	".png": png.Encode,
}

// TextualInversionExporter writes each item as an image plus a caption file
// with the same basename:
//
//	<dir>/<name>.png
//	<dir>/<name>.txt   "tag_a, tag_b, \(paren\)"
type TextualInversionExporter struct {
	dir      string
	exported int
	logger   *slog.Logger
}

// Option configures a TextualInversionExporter.
type Option func(*TextualInversionExporter)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *TextualInversionExporter) {
		e.logger = logger
	}
}

// NewTextualInversionExporter creates an exporter writing into dir,
// creating it if needed.
func NewTextualInversionExporter(dir string, opts ...Option) (*TextualInversionExporter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	e := &TextualInversionExporter{
		dir:    dir,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Export writes the item's image and caption.
func (e *TextualInversionExporter) Export(ctx context.Context, item *model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item.Filename == "" {
		return fmt.Errorf("%w: %s", ErrNoFilename, item.ID)
	}
	if item.Image == nil {
		return fmt.Errorf("item %s has no image", item.ID)
	}

	name := filepath.Base(item.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	encode, ok := encoders[ext]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	imagePath := filepath.Join(e.dir, name)
	if err := writeFile(imagePath, func(w io.Writer) error {
		return encode(w, item.Image)
	}); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	captionPath := filepath.Join(e.dir, strings.TrimSuffix(name, filepath.Ext(name))+CaptionExt)
	caption := Caption(item.SortedTags())
	if err := writeFile(captionPath, func(w io.Writer) error {
		_, err := io.WriteString(w, caption)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write caption: %w", err)
	}

	e.exported++
	e.logger.Debug("exported item",
		"item", item.ID,
		"image", imagePath,
		"tags", len(item.Tags),
	)
	return nil
}

// Close reports the number of exported items.
func (e *TextualInversionExporter) Close() error {
	e.logger.Info("export finished", "dir", e.dir, "items", e.exported)
	return nil
}

// Exported returns the number of items written so far.
func (e *TextualInversionExporter) Exported() int {
	return e.exported
}

// Caption joins tag names with ", " in the given order. Backslashes and
// parentheses are escaped so prompt parsers read them literally.
// Underscores are kept.
func Caption(tags []model.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, escapeTag(tag.Name))
	}
	return strings.Join(names, ", ")
}

var tagEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escapeTag(name string) string {
	return tagEscaper.Replace(name)
}

// writeFile writes through a temporary file in the same directory and
// renames it into place.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".boorucrawl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
