package model

import "time"

// ExportResult describes one file written by an export run.
type ExportResult struct {
	Type        string    `json:"type"` // "results", "errors", "stats"
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
