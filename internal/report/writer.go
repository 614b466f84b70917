package report

import (
	"io"
	"sort"

	"github.com/nao1215/boorucrawl/internal/model"
)

// Writer outputs a run history.
type Writer interface {
	// Write renders runs and returns the number of bytes written.
	Write(runs []*model.RunRecord) (int, error)
}

// Summary aggregates a list of runs.
type Summary struct {
	Runs      int
	Completed int
	Failed    int
	Fetched   int
	Exported  int

	// Dropped totals removed items per step name.
	Dropped map[string]int
}

// Summarize computes the totals of runs.
func Summarize(runs []*model.RunRecord) Summary {
	s := Summary{Dropped: make(map[string]int)}
	for _, r := range runs {
		s.Runs++
		switch r.Status {
		case model.RunStatusCompleted:
			s.Completed++
		case model.RunStatusFailed:
			s.Failed++
		}
		s.Fetched += r.Fetched
		s.Exported += r.Exported
		for step, n := range r.Dropped {
			s.Dropped[step] += n
		}
	}
	return s
}

// DroppedSteps returns the step names with drops in a stable order.
func (s Summary) DroppedSteps() []string {
	steps := make([]string, 0, len(s.Dropped))
	for step, n := range s.Dropped {
		if n > 0 {
			steps = append(steps, step)
		}
	}
	sort.Strings(steps)
	return steps
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText returns a short label for a run's outcome.
func statusText(r *model.RunRecord) string {
	switch r.Status {
	case model.RunStatusCompleted:
		return "completed"
	case model.RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

const timeLayout = "2006-01-02 15:04:05"
