package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/boorucrawl/internal/model"
)

// DefaultThreshold is the minimum score a returned tag needs.
const DefaultThreshold = 0.35

// maxResponseSize limits how much of a tagger response is read.
const maxResponseSize = 4 << 20

// HTTPTagger posts each image as PNG to an inference service.
//
// The service answers with
//
//	{"tags": [{"name": "1girl", "score": 0.98}, ...]}
type HTTPTagger struct {
	endpoint  string
	client    *http.Client
	threshold float64
	userAgent string
	logger    *slog.Logger
}

// HTTPOption configures an HTTPTagger.
type HTTPOption func(*HTTPTagger)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTagger) {
		t.client = client
	}
}

// WithThreshold sets the minimum tag score.
func WithThreshold(threshold float64) HTTPOption {
	return func(t *HTTPTagger) {
		t.threshold = threshold
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) HTTPOption {
	return func(t *HTTPTagger) {
		t.userAgent = userAgent
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(t *HTTPTagger) {
		t.logger = logger
	}
}

// NewHTTPTagger creates a tagger for endpoint.
func NewHTTPTagger(endpoint string, opts ...HTTPOption) (*HTTPTagger, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	t := &HTTPTagger{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: 60 * time.Second},
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

type tagResponse struct {
	Tags []model.Tag `json:"tags"`
}

// Tag sends the item's image and returns the tags at or above the threshold
// in the order the service returned them.
func (t *HTTPTagger) Tag(ctx context.Context, item *model.Item) ([]model.Tag, error) {
	if item.Image == nil {
		return nil, ErrNoImage
	}

	var body bytes.Buffer
	if err := png.Encode(&body, item.Image); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tagger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	var decoded tagResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode tagger response: %w", err)
	}

	tags := make([]model.Tag, 0, len(decoded.Tags))
	for _, tag := range decoded.Tags {
		if tag.Score < t.threshold || tag.Name == "" {
			continue
		}
		tags = append(tags, model.Tag{Name: normalize(tag.Name), Score: tag.Score})
	}

	t.logger.Debug("tagger answered",
		"item", item.ID,
		"returned", len(decoded.Tags),
		"kept", len(tags),
	)

	return tags, nil
}
