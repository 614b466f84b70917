package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the download concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid download concurrency: must be positive")

	// ErrInvalidMaxImageSize is returned when the image size limit is not positive.
	ErrInvalidMaxImageSize = errors.New("invalid max image size: must be positive")

	// ErrInvalidSimilarityThreshold is returned when the hash distance is outside 0..64.
	ErrInvalidSimilarityThreshold = errors.New("invalid similarity threshold: must be between 0 and 64")

	// ErrInvalidTagThreshold is returned when the tag score threshold is outside 0..1.
	ErrInvalidTagThreshold = errors.New("invalid tag threshold: must be between 0 and 1")

	// ErrConflictingProxy is returned when both a SOCKS5 proxy and the
	// embedded Tor daemon are requested.
	ErrConflictingProxy = errors.New("conflicting network settings: proxy and tor cannot be used together")
)
