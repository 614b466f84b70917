package model

import (
	"strconv"
	"strings"
)

// Bounds and defaults for the numeric form fields.
const (
	MinResizeSize     = 100
	MaxResizeSize     = 10000
	DefaultResizeSize = 1500

	MinMaxCount     = 1
	MaxMaxCount     = 1000
	DefaultMaxCount = 200
)

// Persisted settings keys.
const (
	KeySource        = "source"
	KeySearchTerm    = "search_term"
	KeyResizeSize    = "resize_size"
	KeyEnableTagging = "enable_tagging"
	KeyMaxCount      = "max_count"
	KeyOutputPath    = "output_path"
)

// CrawlParameters is the snapshot of the form handed to one crawl run.
// It is never modified after the run starts.
type CrawlParameters struct {
	Source        Source `json:"source"`
	SearchTerm    string `json:"search_term"`
	ResizeSize    int    `json:"resize_size"`
	EnableTagging bool   `json:"enable_tagging"`
	MaxCount      int    `json:"max_count"`
	OutputPath    string `json:"output_path"`
}

// DefaultCrawlParameters returns the values shown on first launch.
func DefaultCrawlParameters() CrawlParameters {
	return CrawlParameters{
		Source:        SourceDanbooru,
		SearchTerm:    "",
		ResizeSize:    DefaultResizeSize,
		EnableTagging: true,
		MaxCount:      DefaultMaxCount,
		OutputPath:    "",
	}
}

// SearchWords splits the search term on whitespace.
func (p CrawlParameters) SearchWords() []string {
	return strings.Fields(p.SearchTerm)
}

// Settings is the key-value form of CrawlParameters stored between launches.
type Settings map[string]string

// ToSettings encodes the parameters with the persisted key names.
func (p CrawlParameters) ToSettings() Settings {
	return Settings{
		KeySource:        p.Source.String(),
		KeySearchTerm:    p.SearchTerm,
		KeyResizeSize:    strconv.Itoa(p.ResizeSize),
		KeyEnableTagging: strconv.FormatBool(p.EnableTagging),
		KeyMaxCount:      strconv.Itoa(p.MaxCount),
		KeyOutputPath:    p.OutputPath,
	}
}

// ParametersFromSettings decodes stored settings. Missing or unparseable
// values fall back to the defaults key by key; integers outside their
// bounds are clamped.
func ParametersFromSettings(s Settings) CrawlParameters {
	p := DefaultCrawlParameters()
	if s == nil {
		return p
	}

	if v, ok := s[KeySource]; ok {
		if src, err := ParseSource(v); err == nil {
			p.Source = src
		}
	}
	if v, ok := s[KeySearchTerm]; ok {
		p.SearchTerm = v
	}
	if v, ok := s[KeyResizeSize]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			p.ResizeSize = ClampResizeSize(n)
		}
	}
	if v, ok := s[KeyEnableTagging]; ok {
		// Anything but "true" disables tagging.
		p.EnableTagging = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := s[KeyMaxCount]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			p.MaxCount = ClampMaxCount(n)
		}
	}
	if v, ok := s[KeyOutputPath]; ok {
		p.OutputPath = v
	}
	return p
}

// ClampResizeSize bounds n to [MinResizeSize, MaxResizeSize].
func ClampResizeSize(n int) int {
	return clamp(n, MinResizeSize, MaxResizeSize)
}

// ClampMaxCount bounds n to [MinMaxCount, MaxMaxCount].
func ClampMaxCount(n int) int {
	return clamp(n, MinMaxCount, MaxMaxCount)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
