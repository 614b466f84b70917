package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/boorucrawl/internal/model"
)

// sortableTime has fixed-width fractional seconds so that stored
// timestamps order correctly as text.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// SaveRun inserts or replaces the record of a crawl run.
func (s *Store) SaveRun(ctx context.Context, record *model.RunRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	var finishedAt any
	if !record.FinishedAt.IsZero() {
		finishedAt = record.FinishedAt.UTC().Format(sortableTime)
	}

	query := `
	INSERT INTO runs (id, source, search_term, started_at, finished_at, fetched, exported, status, error, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		fetched = excluded.fetched,
		exported = excluded.exported,
		status = excluded.status,
		error = excluded.error,
		record_json = excluded.record_json
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Parameters.Source.String(),
		record.Parameters.SearchTerm,
		record.StartedAt.UTC().Format(sortableTime),
		finishedAt,
		record.Fetched,
		record.Exported,
		string(record.Status),
		record.Error,
		string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero
// or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	query := `SELECT record_json FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []*model.RunRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var record model.RunRecord
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			continue // Skip malformed records
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// GetRun returns the run with the given id, or nil if there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	var recordJSON, startedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json, started_at FROM runs WHERE id = ?`, id,
	).Scan(&recordJSON, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var record model.RunRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to parse run record: %w", err)
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = parseTimestamp(startedAt)
	}

	return &record, nil
}
