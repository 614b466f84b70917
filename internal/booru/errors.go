package booru

import "errors"

var (
	// ErrUnexpectedStatus is returned when a board API or image host
	// answers with a non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrImageTooLarge is returned when an image exceeds the download limit.
	ErrImageTooLarge = errors.New("image exceeds size limit")

	// ErrUnsupportedSource is returned by NewSource for unknown sources.
	ErrUnsupportedSource = errors.New("unsupported source")
)
