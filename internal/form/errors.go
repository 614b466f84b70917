package form

import (
	"errors"
	"fmt"
)

// Validation errors returned by Validate and Controller.Start.
var (
	// ErrEmptyOutputPath is returned when no output directory is set.
	ErrEmptyOutputPath = errors.New("output path is empty")

	// ErrTooManyWords is returned when a word-limited source is searched
	// with more words than it accepts.
	ErrTooManyWords = errors.New("too many words in search term")
)

// Dialog texts shown to the user.
const (
	MsgSelectOutputPath = "Please select an output path."
	MsgTooManyWords     = "For Danbooru, please use a maximum of 2 words for the search term."
	MsgCompleted        = "Crawling completed!"
	MsgFailedPrefix     = "Crawling failed: "
)

// WarningMessage returns the dialog text for a validation error.
func WarningMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyOutputPath):
		return MsgSelectOutputPath
	case errors.Is(err, ErrTooManyWords):
		return MsgTooManyWords
	default:
		return err.Error()
	}
}

// FinishedMessage returns the dialog text for a finished run.
func FinishedMessage(err error) string {
	if err == nil {
		return MsgCompleted
	}
	return fmt.Sprintf("%s%v", MsgFailedPrefix, err)
}
