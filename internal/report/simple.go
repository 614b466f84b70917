package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/boorucrawl/internal/model"
)

// SimpleWriter outputs the history as aligned plain text.
type SimpleWriter struct {
	baseWriter

	// verbose adds parameters and errors below each run.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the history in human-readable format.
func (w *SimpleWriter) Write(runs []*model.RunRecord) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          CRAWL HISTORY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if len(runs) == 0 {
		sb.WriteString("No crawl runs recorded yet.\n")
		return w.output.Write([]byte(sb.String()))
	}

	s := Summarize(runs)
	sb.WriteString(fmt.Sprintf("Runs:      %d (%d completed, %d failed)\n", s.Runs, s.Completed, s.Failed))
	sb.WriteString(fmt.Sprintf("Fetched:   %d\n", s.Fetched))
	sb.WriteString(fmt.Sprintf("Exported:  %d\n", s.Exported))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%-19s  %-8s  %-24s  %8s  %-9s  %s\n",
		"STARTED", "SOURCE", "QUERY", "EXPORTED", "STATUS", "DURATION"))
	sb.WriteString(strings.Repeat("-", 90))
	sb.WriteString("\n")

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%-19s  %-8s  %-24s  %8d  %-9s  %s\n",
			r.StartedAt.Local().Format(timeLayout),
			r.Parameters.Source.String(),
			truncateString(r.Parameters.SearchTerm, 24),
			r.Exported,
			statusText(r),
			r.Duration().Round(time.Second),
		))

		if w.verbose {
			p := r.Parameters
			sb.WriteString(fmt.Sprintf("    id=%s resize=%d tagging=%t max=%d output=%s\n",
				r.ID, p.ResizeSize, p.EnableTagging, p.MaxCount, p.OutputPath))
			if r.Error != "" {
				sb.WriteString(fmt.Sprintf("    error: %s\n", r.Error))
			}
		}
	}

	return w.output.Write([]byte(sb.String()))
}
