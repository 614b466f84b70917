package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "boorucrawl"

	// DefaultTimeout applies to each HTTP request, not to a whole run.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies boorucrawl in HTTP requests.
	// Danbooru rejects requests without a descriptive User-Agent.
	DefaultUserAgent = "boorucrawl/1.0 (+https://github.com/nao1215/boorucrawl)"

	// DefaultDownloadConcurrency is the number of images of one result
	// page downloaded at the same time.
	DefaultDownloadConcurrency = 4

	// DefaultMaxImageSize limits the size of a single downloaded file.
	DefaultMaxImageSize = 64 * 1024 * 1024 // 64MB

	// DefaultSimilarityThreshold is the largest perceptual hash distance
	// (out of 64 bits) at which two images count as near-duplicates.
	DefaultSimilarityThreshold = 10

	// DefaultTagThreshold is the minimum score for a tag returned by an
	// HTTP tagger to be kept.
	DefaultTagThreshold = 0.35

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultWordListFile is the autocomplete word list file name.
	DefaultWordListFile = "danbooru.csv"

	// DefaultLogFile is the log file name inside the XDG state directory.
	DefaultLogFile = "boorucrawl.log"

	// MaxSimilarityThreshold is the width of the perceptual hash in bits.
	MaxSimilarityThreshold = 64
)

// Config holds all configuration options for boorucrawl.
// It is populated from defaults, the optional configuration file and
// command line flags, in that order.
type Config struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent is sent with every HTTP request.
	UserAgent string

	// DownloadConcurrency bounds parallel image downloads per result page.
	DownloadConcurrency int

	// MaxImageSize is the largest accepted image file in bytes.
	MaxImageSize int64

	// ProxyAddress routes all traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes traffic through it.
	// Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// SimilarityThreshold is the perceptual hash distance at or below
	// which images are treated as near-duplicates.
	SimilarityThreshold int

	// TaggerEndpoint is an optional HTTP tagging service. When empty,
	// tags are derived from the image board's own tags.
	TaggerEndpoint string

	// TagThreshold drops tagger results scoring below it.
	TagThreshold float64

	// AutocompleteFile is the CSV word list for search term completion.
	AutocompleteFile string

	// DataDir holds the SQLite database with settings and run history.
	DataDir string

	// LogFile receives log output while the form owns the terminal.
	LogFile string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string

	// Sites holds per-source credentials and endpoints keyed by
	// model.Source.Key().
	Sites map[string]SiteConfig
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:             DefaultTimeout,
		UserAgent:           DefaultUserAgent,
		DownloadConcurrency: DefaultDownloadConcurrency,
		MaxImageSize:        DefaultMaxImageSize,
		TorStartupTimeout:   DefaultTorStartupTimeout,
		SimilarityThreshold: DefaultSimilarityThreshold,
		TagThreshold:        DefaultTagThreshold,
		AutocompleteFile:    filepath.Join(XDGDataDir(), DefaultWordListFile),
		DataDir:             XDGConfigDir(),
		LogFile:             filepath.Join(XDGStateDir(), DefaultLogFile),
		Sites:               make(map[string]SiteConfig),
	}
}

// ApplyFile overlays the values set in a configuration file.
// Zero values in the file leave the current value unchanged.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	if f.HTTP.Timeout > 0 {
		c.Timeout = f.HTTP.Timeout
	}
	if f.HTTP.UserAgent != "" {
		c.UserAgent = f.HTTP.UserAgent
	}
	if f.HTTP.Concurrency != 0 {
		c.DownloadConcurrency = f.HTTP.Concurrency
	}
	if f.HTTP.MaxImageSize != 0 {
		c.MaxImageSize = f.HTTP.MaxImageSize
	}
	if f.HTTP.Proxy != "" {
		c.ProxyAddress = f.HTTP.Proxy
	}
	if f.HTTP.Tor {
		c.UseTor = true
	}
	if f.HTTP.TorStartupTimeout > 0 {
		c.TorStartupTimeout = f.HTTP.TorStartupTimeout
	}
	if f.Similarity.Threshold != nil {
		c.SimilarityThreshold = *f.Similarity.Threshold
	}
	if f.Tagger.Endpoint != "" {
		c.TaggerEndpoint = f.Tagger.Endpoint
	}
	if f.Tagger.Threshold != nil {
		c.TagThreshold = *f.Tagger.Threshold
	}
	if f.AutocompleteFile != "" {
		c.AutocompleteFile = expandHome(f.AutocompleteFile)
	}
	if f.DataDir != "" {
		c.DataDir = expandHome(f.DataDir)
	}
	for name, site := range f.Sites {
		c.Sites[name] = site
	}
}

// Site returns the configuration for a source key with the default
// endpoint filled in.
func (c *Config) Site(key string) SiteConfig {
	site := c.Sites[key]
	if site.BaseURL == "" {
		site.BaseURL = DefaultBaseURLs[key]
	}
	return site
}

// XDGDataDir returns the XDG data directory for boorucrawl.
// On Linux: ~/.local/share/boorucrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for boorucrawl.
// On Linux: ~/.config/boorucrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for boorucrawl.
// On Linux: ~/.local/state/boorucrawl
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.DownloadConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxImageSize <= 0 {
		return ErrInvalidMaxImageSize
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > MaxSimilarityThreshold {
		return ErrInvalidSimilarityThreshold
	}

	if c.TagThreshold < 0 || c.TagThreshold > 1 {
		return ErrInvalidTagThreshold
	}

	// A SOCKS proxy and the embedded Tor daemon both replace the dialer.
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}

	return nil
}
