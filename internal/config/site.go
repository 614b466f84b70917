package config

import "time"

// DefaultBaseURLs maps source keys to their public API endpoints.
var DefaultBaseURLs = map[string]string{
	"danbooru": "https://danbooru.donmai.us",
	"gelbooru": "https://gelbooru.com",
}

// SiteConfig holds credentials and endpoint overrides for one image board.
type SiteConfig struct {
	// BaseURL overrides the board's API endpoint, e.g. for a mirror.
	BaseURL string `yaml:"base_url,omitempty"`

	// Login is the Danbooru login name or the Gelbooru user id.
	Login string `yaml:"login,omitempty"`

	// APIKey is sent with every API request when set.
	APIKey string `yaml:"api_key,omitempty"`
}

// HTTPSection is the "http" block of the configuration file.
type HTTPSection struct {
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	UserAgent         string        `yaml:"user_agent,omitempty"`
	Concurrency       int           `yaml:"concurrency,omitempty"`
	MaxImageSize      int64         `yaml:"max_image_size,omitempty"`
	Proxy             string        `yaml:"proxy,omitempty"`
	Tor               bool          `yaml:"tor,omitempty"`
	TorStartupTimeout time.Duration `yaml:"tor_startup_timeout,omitempty"`
}

// SimilaritySection is the "similarity" block of the configuration file.
type SimilaritySection struct {
	// Threshold is a pointer so that an explicit 0 (exact matches only)
	// can be told apart from an absent value.
	Threshold *int `yaml:"threshold,omitempty"`
}

// TaggerSection is the "tagger" block of the configuration file.
type TaggerSection struct {
	Endpoint  string   `yaml:"endpoint,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// File represents the structure of the .boorucrawl configuration file.
type File struct {
	HTTP             HTTPSection           `yaml:"http,omitempty"`
	Similarity       SimilaritySection     `yaml:"similarity,omitempty"`
	Tagger           TaggerSection         `yaml:"tagger,omitempty"`
	AutocompleteFile string                `yaml:"autocomplete_file,omitempty"`
	DataDir          string                `yaml:"data_dir,omitempty"`
	Sites            map[string]SiteConfig `yaml:"sites,omitempty"`
}
