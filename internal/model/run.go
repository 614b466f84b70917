package model

import "time"

// RunStatus describes how a crawl run ended.
type RunStatus string

const (
	// RunStatusCompleted means the pipeline ran to the end, including
	// runs that exported nothing.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusFailed means the pipeline returned an error or panicked.
	RunStatusFailed RunStatus = "failed"
)

// RunRecord summarises one crawl run.
type RunRecord struct {
	ID         string          `json:"id"`
	Parameters CrawlParameters `json:"parameters"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`

	// Fetched counts items pulled from the source.
	Fetched int `json:"fetched"`

	// Exported counts items written to the output directory.
	Exported int `json:"exported"`

	// Dropped counts items removed per step name.
	Dropped map[string]int `json:"dropped,omitempty"`

	Status RunStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// NewRunRecord creates a record for a run starting now.
func NewRunRecord(id string, params CrawlParameters) *RunRecord {
	return &RunRecord{
		ID:         id,
		Parameters: params,
		StartedAt:  time.Now(),
		Dropped:    make(map[string]int),
	}
}

// Duration returns the elapsed time of a finished run.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finish marks the record as ended with the given error, if any.
func (r *RunRecord) Finish(err error) {
	r.FinishedAt = time.Now()
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusCompleted
}
