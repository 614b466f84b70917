package runner

import "errors"

var (
	// ErrRunInProgress is returned by Start while another run is active.
	ErrRunInProgress = errors.New("a crawl is already running")

	// ErrPanic wraps a panic recovered from a run.
	ErrPanic = errors.New("crawl panicked")
)
