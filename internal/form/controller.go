package form

import (
	"context"
	"log/slog"
	"os"

	"github.com/nao1215/boorucrawl/internal/model"
	"github.com/nao1215/boorucrawl/internal/runner"
)

// SettingsStore persists the form's field values between launches.
type SettingsStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
}

// Starter launches crawl runs. *runner.Runner implements it.
type Starter interface {
	Start(ctx context.Context, params model.CrawlParameters) (<-chan runner.Result, error)
}

// Controller owns the form state independent of any rendering.
// It is used from the UI goroutine only.
type Controller struct {
	store   SettingsStore
	starter Starter
	logger  *slog.Logger
	homeDir func() (string, error)

	params  model.CrawlParameters
	running bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithHomeDir overrides how the browse fallback directory is found.
func WithHomeDir(fn func() (string, error)) ControllerOption {
	return func(c *Controller) {
		c.homeDir = fn
	}
}

// NewController creates a controller and restores the last saved field
// values. A store that is missing, empty or unreadable leaves the
// defaults in place.
func NewController(ctx context.Context, store SettingsStore, starter Starter, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:   store,
		starter: starter,
		logger:  slog.Default(),
		homeDir: os.UserHomeDir,
		params:  model.DefaultCrawlParameters(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if store != nil {
		values, err := store.Load(ctx)
		if err != nil {
			c.logger.Debug("failed to load settings, using defaults", "error", err)
		} else {
			c.params = model.ParametersFromSettings(values)
		}
	}
	c.params.SearchTerm = truncate(c.params.SearchTerm, c.params.Source.SearchCharLimit())
	return c
}

// Params returns the current field values.
func (c *Controller) Params() model.CrawlParameters {
	return c.params
}

// Running reports whether a run started by this controller is active.
func (c *Controller) Running() bool {
	return c.running
}

// SearchCharLimit returns the search term ceiling for the selected source.
func (c *Controller) SearchCharLimit() int {
	return c.params.Source.SearchCharLimit()
}

// SetSource selects src and applies its search term ceiling, truncating
// the current term if needed.
func (c *Controller) SetSource(src model.Source) {
	c.params.Source = src
	c.params.SearchTerm = truncate(c.params.SearchTerm, src.SearchCharLimit())
}

// SetSearchTerm sets the search term, truncated to the current ceiling.
func (c *Controller) SetSearchTerm(term string) {
	c.params.SearchTerm = truncate(term, c.SearchCharLimit())
}

// SetResizeSize sets the target shorter side, clamped to its bounds.
func (c *Controller) SetResizeSize(n int) {
	c.params.ResizeSize = model.ClampResizeSize(n)
}

// SetEnableTagging sets the tagging toggle.
func (c *Controller) SetEnableTagging(enabled bool) {
	c.params.EnableTagging = enabled
}

// SetMaxCount sets the item cap, clamped to its bounds.
func (c *Controller) SetMaxCount(n int) {
	c.params.MaxCount = model.ClampMaxCount(n)
}

// SetOutputPath sets the output directory.
func (c *Controller) SetOutputPath(path string) {
	c.params.OutputPath = path
}

// BrowseStartDir returns the directory the picker opens in: the output
// path when it is an existing directory, else the home directory.
func (c *Controller) BrowseStartDir() string {
	if c.params.OutputPath != "" {
		if info, err := os.Stat(c.params.OutputPath); err == nil && info.IsDir() {
			return c.params.OutputPath
		}
	}
	home, err := c.homeDir()
	if err != nil {
		return "."
	}
	return home
}

// Start saves the current values, validates them and launches a run.
// Values are saved even when validation fails. A validation error is
// returned without starting anything.
func (c *Controller) Start(ctx context.Context) (<-chan runner.Result, error) {
	if c.running {
		return nil, runner.ErrRunInProgress
	}

	c.persist(ctx)

	if err := Validate(c.params); err != nil {
		return nil, err
	}

	done, err := c.starter.Start(ctx, c.params)
	if err != nil {
		return nil, err
	}
	c.running = true
	return done, nil
}

// Finish marks the run as over and returns the dialog text for it.
func (c *Controller) Finish(res runner.Result) string {
	c.running = false
	return FinishedMessage(res.Err)
}

func (c *Controller) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, c.params.ToSettings()); err != nil {
		c.logger.Warn("failed to save settings", "error", err)
	}
}

// Validate checks the parameters a run needs.
func Validate(params model.CrawlParameters) error {
	if params.OutputPath == "" {
		return ErrEmptyOutputPath
	}
	if params.Source.WordLimited() && len(params.SearchWords()) > model.DanbooruMaxWords {
		return ErrTooManyWords
	}
	return nil
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
