package state

import "time"

// RunRecord is the persisted summary of one agent run, written to
// .partforge/runs/<id>.json when the run reaches a terminal status.
// The per-event timeline lives next to it in <id>.events.ndjson.
type RunRecord struct {
	ID              string    `json:"id"`
	Instruction     string    `json:"instruction"`
	SourcePath      string    `json:"source_path"`
	OutputPath      string    `json:"output_path,omitempty"`
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	ErrorSummary    string    `json:"error_summary,omitempty"`
	TotalTokens     int       `json:"total_tokens"`
	TotalDurationMS int64     `json:"total_duration_ms"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
