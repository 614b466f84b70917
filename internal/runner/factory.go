package runner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/boorucrawl/internal/booru"
	"github.com/nao1215/boorucrawl/internal/config"
	"github.com/nao1215/boorucrawl/internal/export"
	"github.com/nao1215/boorucrawl/internal/model"
	"github.com/nao1215/boorucrawl/internal/pipeline"
	"github.com/nao1215/boorucrawl/internal/tagging"
)

// Factory builds the pipeline and exporter for one run.
type Factory interface {
	Build(ctx context.Context, params model.CrawlParameters) (*pipeline.Pipeline, pipeline.Exporter, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, params model.CrawlParameters) (*pipeline.Pipeline, pipeline.Exporter, error)

// Build calls f.
func (f FactoryFunc) Build(ctx context.Context, params model.CrawlParameters) (*pipeline.Pipeline, pipeline.Exporter, error) {
	return f(ctx, params)
}

// BooruFactory builds the standard crawl: an image board source, the
// fixed step chain and a textual inversion export.
type BooruFactory struct {
	cfg          *config.Config
	client       *http.Client
	taggerClient *http.Client
	logger       *slog.Logger
}

// FactoryOption configures a BooruFactory.
type FactoryOption func(*BooruFactory)

// WithTaggerClient sends tagger requests through client instead of the
// board client. A tagger on a private address cannot be reached through
// Tor.
func WithTaggerClient(client *http.Client) FactoryOption {
	return func(f *BooruFactory) {
		f.taggerClient = client
	}
}

// NewBooruFactory creates a factory sending board requests through client.
func NewBooruFactory(cfg *config.Config, client *http.Client, logger *slog.Logger, opts ...FactoryOption) *BooruFactory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &BooruFactory{cfg: cfg, client: client, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	if f.taggerClient == nil {
		f.taggerClient = client
	}
	return f
}

// Build implements Factory.
func (f *BooruFactory) Build(_ context.Context, params model.CrawlParameters) (*pipeline.Pipeline, pipeline.Exporter, error) {
	site := f.cfg.Site(params.Source.Key())
	source, err := booru.NewSource(params.Source, params.SearchTerm, f.client,
		booru.WithBaseURL(site.BaseURL),
		booru.WithCredentials(site.Login, site.APIKey),
		booru.WithConcurrency(f.cfg.DownloadConcurrency),
		booru.WithMaxImageSize(f.cfg.MaxImageSize),
		booru.WithLogger(f.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	tagger, err := f.tagger()
	if err != nil {
		return nil, nil, err
	}

	exporter, err := export.NewTextualInversionExporter(params.OutputPath, export.WithLogger(f.logger))
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.DefaultPipeline(source, tagger, params,
		[]pipeline.Option{pipeline.WithLogger(f.logger)},
		pipeline.WithPipelineSimilarityThreshold(f.cfg.SimilarityThreshold),
		pipeline.WithPipelineStepLogger(f.logger),
	)
	return p, exporter, nil
}

// tagger returns the HTTP tagger when an endpoint is configured and the
// board metadata tagger otherwise.
func (f *BooruFactory) tagger() (pipeline.Tagger, error) {
	if f.cfg.TaggerEndpoint == "" {
		return tagging.NewMetadataTagger(), nil
	}

	t, err := tagging.NewHTTPTagger(f.cfg.TaggerEndpoint,
		tagging.WithHTTPClient(f.taggerClient),
		tagging.WithThreshold(f.cfg.TagThreshold),
		tagging.WithUserAgent(f.cfg.UserAgent),
		tagging.WithLogger(f.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tagger: %w", err)
	}
	return t, nil
}
