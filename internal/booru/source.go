package booru

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nao1215/boorucrawl/internal/model"
	"github.com/nao1215/boorucrawl/internal/pipeline"
)

// Defaults for Source options.
const (
	DefaultPageSize     = 100
	DefaultConcurrency  = 4
	DefaultMaxImageSize = 64 << 20
)

// boardAPI is implemented by each supported image board.
type boardAPI interface {
	name() string
	firstPage() int
	fetchPage(ctx context.Context, client *http.Client, query string, page, limit int) ([]Post, error)
}

// Source lazily pages through an image board search and yields one
// decoded image per call to Next.
//
// A page is requested only when every image of the previous page has been
// consumed. The images of a page are downloaded concurrently and returned
// in the board's order. A failed page request is returned as an error; a
// failed image download is logged and skipped.
type Source struct {
	kind   model.Source
	api    boardAPI
	client *http.Client
	query  string

	pageSize     int
	concurrency  int
	maxImageSize int64
	logger       *slog.Logger

	// page is the next page to request.
	page      int
	exhausted bool
	buffer    []*model.Item

	// seen holds digests of every yielded file.
	seen map[string]bool
}

// Option configures a Source.
type Option func(*sourceOptions)

type sourceOptions struct {
	baseURL      string
	login        string
	apiKey       string
	pageSize     int
	concurrency  int
	maxImageSize int64
	logger       *slog.Logger
}

// WithBaseURL overrides the board's API root.
func WithBaseURL(baseURL string) Option {
	return func(o *sourceOptions) {
		o.baseURL = baseURL
	}
}

// WithCredentials sets the account used for API requests. For Gelbooru
// login is the numeric user id.
func WithCredentials(login, apiKey string) Option {
	return func(o *sourceOptions) {
		o.login = login
		o.apiKey = apiKey
	}
}

// WithPageSize sets how many posts are requested per page.
func WithPageSize(n int) Option {
	return func(o *sourceOptions) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithConcurrency sets how many images of a page download at once.
func WithConcurrency(n int) Option {
	return func(o *sourceOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxImageSize sets the largest file that will be downloaded.
func WithMaxImageSize(n int64) Option {
	return func(o *sourceOptions) {
		if n > 0 {
			o.maxImageSize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *sourceOptions) {
		o.logger = logger
	}
}

// NewSource creates a source searching kind's board for query.
// The query is passed to the board unchanged, so several words are
// several tags.
func NewSource(kind model.Source, query string, client *http.Client, opts ...Option) (*Source, error) {
	o := &sourceOptions{
		pageSize:     DefaultPageSize,
		concurrency:  DefaultConcurrency,
		maxImageSize: DefaultMaxImageSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}

	var api boardAPI
	switch kind {
	case model.SourceDanbooru:
		if o.baseURL == "" {
			o.baseURL = DanbooruBaseURL
		}
		api = &danbooruAPI{baseURL: o.baseURL, login: o.login, apiKey: o.apiKey}
	case model.SourceGelbooru:
		if o.baseURL == "" {
			o.baseURL = GelbooruBaseURL
		}
		api = &gelbooruAPI{baseURL: o.baseURL, userID: o.login, apiKey: o.apiKey}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, kind)
	}

	return &Source{
		kind:         kind,
		api:          api,
		client:       client,
		query:        query,
		pageSize:     o.pageSize,
		concurrency:  o.concurrency,
		maxImageSize: o.maxImageSize,
		logger:       o.logger,
		page:         api.firstPage(),
		seen:         make(map[string]bool),
	}, nil
}

// Name returns the board name.
func (s *Source) Name() string {
	return s.api.name()
}

// Next returns the next image, fetching pages as needed. It returns io.EOF
// once the board has no more results.
func (s *Source) Next(ctx context.Context) (*model.Item, error) {
	for len(s.buffer) == 0 {
		if s.exhausted {
			return nil, io.EOF
		}
		if err := s.fill(ctx); err != nil {
			return nil, err
		}
	}

	item := s.buffer[0]
	s.buffer[0] = nil
	s.buffer = s.buffer[1:]
	return item, nil
}

// fill requests one page and downloads its images into the buffer.
func (s *Source) fill(ctx context.Context) error {
	page := s.page
	s.logger.Info("fetching page",
		"source", s.Name(),
		"query", s.query,
		"page", page,
	)

	posts, err := s.api.fetchPage(ctx, s.client, s.query, page, s.pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch %s page %d: %w", s.Name(), page, err)
	}
	s.page++

	if len(posts) == 0 {
		s.exhausted = true
		return nil
	}

	candidates := make([]Post, 0, len(posts))
	for _, p := range posts {
		if !p.Downloadable() {
			s.logger.Debug("skipping post", "source", s.Name(), "post", p.ID, "ext", p.ext())
			continue
		}
		candidates = append(candidates, p)
	}

	bp := pipeline.NewBatchProcessor(s.download,
		pipeline.WithConcurrency(s.concurrency),
		pipeline.WithBatchLogger(s.logger),
	)
	results, err := bp.ProcessBatch(ctx, candidates)
	if err != nil {
		return err
	}

	for i, r := range results {
		if r.Err != nil {
			s.logger.Warn("download failed",
				"source", s.Name(),
				"post", candidates[i].ID,
				"url", candidates[i].FileURL,
				"error", r.Err,
			)
			continue
		}
		if s.seen[r.Value.Digest] {
			s.logger.Debug("duplicate file skipped", "item", r.Value.ID)
			continue
		}
		s.seen[r.Value.Digest] = true
		s.buffer = append(s.buffer, r.Value)
	}

	// A short page is the last one.
	if len(posts) < min(s.pageSize, s.pageLimit()) {
		s.exhausted = true
	}
	return nil
}

// pageLimit returns the page size the board actually honours.
func (s *Source) pageLimit() int {
	if s.kind == model.SourceGelbooru {
		return gelbooruMaxLimit
	}
	return danbooruMaxLimit
}

// download fetches and decodes the post's image.
func (s *Source) download(ctx context.Context, post Post) (*model.Item, error) {
	raw, err := fetchFile(ctx, s.client, post.FileURL, s.maxImageSize)
	if err != nil {
		return nil, err
	}

	img, format, err := decodeImage(raw)
	if err != nil {
		return nil, err
	}

	tags := boardTagList(post.Tags)
	return &model.Item{
		ID:        s.Name() + "_" + strconv.FormatInt(post.ID, 10),
		Source:    s.kind,
		URL:       post.FileURL,
		Rating:    post.Rating,
		Image:     img,
		Format:    format,
		Raw:       raw,
		Digest:    digest(raw),
		Tags:      tags,
		BoardTags: post.Tags,
	}, nil
}

// boardTagList flattens categorised board tags into scored tags.
// Board tags are certain, so every score is 1. Nil means untagged.
func boardTagList(categories map[string][]string) []model.Tag {
	var tags []model.Tag
	for _, category := range []string{"character", "copyright", "general", "artist", "meta"} {
		for _, name := range categories[category] {
			tags = append(tags, model.Tag{Name: name, Score: 1})
		}
	}
	return tags
}
