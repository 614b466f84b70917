package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/boorucrawl/internal/model"
)

// JSONWriter outputs the history as a JSON array of run records.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs runs as JSON. An empty history is written as [].
func (w *JSONWriter) Write(runs []*model.RunRecord) (int, error) {
	if runs == nil {
		runs = []*model.RunRecord{}
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(runs, "", "  ")
	} else {
		data, err = json.Marshal(runs)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
