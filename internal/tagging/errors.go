package tagging

import "errors"

var (
	// ErrNoImage is returned when an item reaches a tagger without pixels.
	ErrNoImage = errors.New("item has no image")

	// ErrNoEndpoint is returned when an HTTP tagger is created without a URL.
	ErrNoEndpoint = errors.New("tagger endpoint is not configured")

	// ErrUnexpectedStatus is returned when the tagger service answers with
	// a non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected status from tagger")
)
