package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"

	"github.com/nao1215/boorucrawl/internal/model"
)

// Step names as they appear in logs and run records.
const (
	StepModeConvert    = "mode_convert"
	StepFilterSimilar  = "filter_similar"
	StepAlignMinSize   = "align_min_size"
	StepTagging        = "tagging"
	StepFirstN         = "first_n"
	StepRandomFilename = "random_filename"
)

// DefaultFilenameExt is the extension given to exported images.
const DefaultFilenameExt = ".png"

// Tagger infers descriptive tags for an image.
type Tagger interface {
	Tag(ctx context.Context, item *model.Item) ([]model.Tag, error)
}

// ModeConvertStep normalizes every image to upright, opaque RGB.
// EXIF orientation is applied first, then any transparency is
// composited over the background color.
type ModeConvertStep struct {
	// background fills transparent pixels.
	background color.Color

	// logger for structured logging.
	logger *slog.Logger
}

// ModeConvertStepOption configures a ModeConvertStep.
type ModeConvertStepOption func(*ModeConvertStep)

// WithBackground sets the fill color for transparent pixels.
func WithBackground(c color.Color) ModeConvertStepOption {
	return func(s *ModeConvertStep) {
		s.background = c
	}
}

// WithModeConvertLogger sets a custom logger for the step.
func WithModeConvertLogger(logger *slog.Logger) ModeConvertStepOption {
	return func(s *ModeConvertStep) {
		s.logger = logger
	}
}

// NewModeConvertStep creates a mode conversion step filling with white.
func NewModeConvertStep(opts ...ModeConvertStepOption) *ModeConvertStep {
	s := &ModeConvertStep{
		background: color.White,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ModeConvertStep) Name() string {
	return StepModeConvert
}

// Do converts the item's image in place.
func (s *ModeConvertStep) Do(_ context.Context, item *model.Item) (*model.Item, error) {
	if item.Image == nil {
		return nil, fmt.Errorf("item %s has no image", item.ID)
	}

	if o := exifOrientation(item.Raw); o != 1 {
		s.logger.Debug("applying exif orientation", "item", item.ID, "orientation", o)
		item.Image = orient(item.Image, o)
	}
	item.Image = flatten(item.Image, s.background)

	// The encoded file is not needed once its metadata has been read.
	item.Raw = nil

	return item, nil
}

// FilterSimilarStep drops images whose perceptual hash is within the
// threshold of any image it has already let through.
type FilterSimilarStep struct {
	// threshold is the largest hamming distance treated as similar.
	threshold int

	// seen holds the hashes of every kept image.
	seen []*goimagehash.ImageHash

	// logger for structured logging.
	logger *slog.Logger
}

// FilterSimilarStepOption configures a FilterSimilarStep.
type FilterSimilarStepOption func(*FilterSimilarStep)

// WithSimilarityThreshold sets the hamming distance threshold.
// Negative values are ignored.
func WithSimilarityThreshold(threshold int) FilterSimilarStepOption {
	return func(s *FilterSimilarStep) {
		if threshold >= 0 {
			s.threshold = threshold
		}
	}
}

// WithFilterSimilarLogger sets a custom logger for the step.
func WithFilterSimilarLogger(logger *slog.Logger) FilterSimilarStepOption {
	return func(s *FilterSimilarStep) {
		s.logger = logger
	}
}

// NewFilterSimilarStep creates a similarity filter with empty state.
func NewFilterSimilarStep(opts ...FilterSimilarStepOption) *FilterSimilarStep {
	s := &FilterSimilarStep{
		threshold: 10,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *FilterSimilarStep) Name() string {
	return StepFilterSimilar
}

// Do keeps the item unless it resembles one seen before.
func (s *FilterSimilarStep) Do(_ context.Context, item *model.Item) (*model.Item, error) {
	hash, err := goimagehash.PerceptionHash(item.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", item.ID, err)
	}

	for _, kept := range s.seen {
		distance, err := hash.Distance(kept)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s: %w", item.ID, err)
		}
		if distance <= s.threshold {
			s.logger.Debug("similar image dropped", "item", item.ID, "distance", distance)
			return nil, nil
		}
	}

	s.seen = append(s.seen, hash)
	return item, nil
}

// AlignMinSizeStep scales each image so its shorter side equals the target.
type AlignMinSizeStep struct {
	target int
}

// NewAlignMinSizeStep creates a resize step for the given target size.
func NewAlignMinSizeStep(target int) *AlignMinSizeStep {
	return &AlignMinSizeStep{target: target}
}

// Name returns the step name.
func (s *AlignMinSizeStep) Name() string {
	return StepAlignMinSize
}

// Do resizes the item's image.
func (s *AlignMinSizeStep) Do(_ context.Context, item *model.Item) (*model.Item, error) {
	if s.target <= 0 {
		return item, nil
	}
	item.Image = resizeMinSide(item.Image, s.target)
	return item, nil
}

// TaggingStep attaches inferred tags to items.
// Items that already carry tags keep them unless force is set.
type TaggingStep struct {
	tagger Tagger
	force  bool
	logger *slog.Logger
}

// TaggingStepOption configures a TaggingStep.
type TaggingStepOption func(*TaggingStep)

// WithForce makes the step replace tags that are already present.
func WithForce(force bool) TaggingStepOption {
	return func(s *TaggingStep) {
		s.force = force
	}
}

// WithTaggingLogger sets a custom logger for the step.
func WithTaggingLogger(logger *slog.Logger) TaggingStepOption {
	return func(s *TaggingStep) {
		s.logger = logger
	}
}

// NewTaggingStep creates a tagging step backed by tagger.
func NewTaggingStep(tagger Tagger, opts ...TaggingStepOption) *TaggingStep {
	s := &TaggingStep{
		tagger: tagger,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *TaggingStep) Name() string {
	return StepTagging
}

// Do tags the item when it is untagged or when forced.
func (s *TaggingStep) Do(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item.Tagged() && !s.force {
		return item, nil
	}

	tags, err := s.tagger.Tag(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to tag %s: %w", item.ID, err)
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	item.Tags = tags

	s.logger.Debug("item tagged", "item", item.ID, "tags", len(tags))
	return item, nil
}

// FirstNStep lets the first n items through and drops the rest.
// It implements Finisher so the pipeline stops fetching once n items
// have passed.
type FirstNStep struct {
	n     int
	count int
}

// NewFirstNStep creates a step keeping at most n items.
func NewFirstNStep(n int) *FirstNStep {
	return &FirstNStep{n: n}
}

// Name returns the step name.
func (s *FirstNStep) Name() string {
	return StepFirstN
}

// Do passes the item while fewer than n items have passed.
func (s *FirstNStep) Do(_ context.Context, item *model.Item) (*model.Item, error) {
	if s.Done() {
		return nil, nil
	}
	s.count++
	return item, nil
}

// Done reports whether n items have passed.
func (s *FirstNStep) Done() bool {
	return s.count >= s.n
}

// RandomFilenameStep names each item with a random UUID.
type RandomFilenameStep struct {
	ext string
}

// NewRandomFilenameStep creates a naming step using ext as the extension,
// which must include the leading dot.
func NewRandomFilenameStep(ext string) *RandomFilenameStep {
	if ext == "" {
		ext = DefaultFilenameExt
	}
	return &RandomFilenameStep{ext: ext}
}

// Name returns the step name.
func (s *RandomFilenameStep) Name() string {
	return StepRandomFilename
}

// Do assigns the filename.
func (s *RandomFilenameStep) Do(_ context.Context, item *model.Item) (*model.Item, error) {
	item.Filename = uuid.NewString() + s.ext
	return item, nil
}

// DefaultPipelineConfig holds tunables of the crawl pipeline that are not
// part of the crawl parameters.
type DefaultPipelineConfig struct {
	// SimilarityThreshold is the perceptual hash distance treated as similar.
	SimilarityThreshold int

	// Background fills transparent pixels during mode conversion.
	Background color.Color

	// FilenameExt is the extension of exported images.
	FilenameExt string

	// Logger is passed to the steps that log.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineSimilarityThreshold sets the similarity threshold of both
// similarity filters.
func WithPipelineSimilarityThreshold(threshold int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SimilarityThreshold = threshold
	}
}

// WithPipelineBackground sets the fill color for transparent pixels.
func WithPipelineBackground(bg color.Color) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Background = bg
	}
}

// WithPipelineStepLogger sets the logger used by the steps.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the crawl pipeline for params reading from source.
//
// Step order is fixed:
//
//	mode_convert, filter_similar, align_min_size, tagging,
//	filter_similar, first_n, random_filename
//
// The second similarity filter starts with empty state so it compares
// the resized images only with each other. The exporter is supplied to
// Execute.
func DefaultPipeline(source Source, tagger Tagger, params model.CrawlParameters, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(source, pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		SimilarityThreshold: 10,
		Background:          color.White,
		FilenameExt:         DefaultFilenameExt,
		Logger:              p.logger,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewModeConvertStep(
			WithBackground(cfg.Background),
			WithModeConvertLogger(cfg.Logger),
		),
		NewFilterSimilarStep(
			WithSimilarityThreshold(cfg.SimilarityThreshold),
			WithFilterSimilarLogger(cfg.Logger),
		),
		NewAlignMinSizeStep(params.ResizeSize),
		NewTaggingStep(tagger,
			WithForce(params.EnableTagging),
			WithTaggingLogger(cfg.Logger),
		),
		NewFilterSimilarStep(
			WithSimilarityThreshold(cfg.SimilarityThreshold),
			WithFilterSimilarLogger(cfg.Logger),
		),
		NewFirstNStep(params.MaxCount),
		NewRandomFilenameStep(cfg.FilenameExt),
	)

	return p
}
