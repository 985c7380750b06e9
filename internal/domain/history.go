package domain

import "time"

// HistoryRecord is the durable trace of one completed analysis. Records are
// append-only; deletion is a logical tombstone, never a physical overwrite.
type HistoryRecord struct {
	AnalysisID string       `json:"analysis_id"`
	FilePaths  []string     `json:"file_paths"`
	Kind       AnalysisKind `json:"kind"`
	Timestamp  time.Time    `json:"timestamp"`
	Summary    string       `json:"summary"`
	Payload    string       `json:"payload"`
}

// HistoryFilter narrows a history listing. Zero values match everything.
type HistoryFilter struct {
	FilePath string
	Since    time.Time
	Limit    int
}
