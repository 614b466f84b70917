package autocomplete

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Load reads the first column of every non-empty row of the CSV file at
// path. A missing file yields an empty list and a warning. Rows that cannot
// be parsed are skipped with a warning.
func Load(path string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path) //nolint:gosec // Word list path comes from the user's configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("autocomplete word list not found", "path", path)
		} else {
			logger.Warn("failed to open autocomplete word list", "path", path, "error", err)
		}
		return []string{}
	}
	defer f.Close()

	words := Read(f, logger)
	logger.Debug("autocomplete word list loaded", "path", path, "words", len(words))
	return words
}

// Read parses CSV rows from r and returns the first column of each row.
func Read(r io.Reader, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	words := []string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return words
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Warn("skipping malformed word list row", "line", parseErr.Line, "error", parseErr.Err)
				continue
			}
			logger.Warn("failed to read word list", "error", err)
			return words
		}

		if len(record) == 0 {
			continue
		}
		word := strings.TrimSpace(record[0])
		if word == "" {
			continue
		}
		words = append(words, word)
	}
}
