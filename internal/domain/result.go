package domain

import (
	"strings"
	"time"
)

// ResultStatus marks whether an analysis completed or failed terminally.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"
)

// Section is one titled block of an analysis payload.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AnalysisResult is the canonical outcome of one analysis request. The
// orchestrator owns it until it is handed to the history store, which then
// owns the persisted copy.
type AnalysisResult struct {
	RequestID string
	Provider  string
	Status    ResultStatus
	Sections  []Section
	Err       string
	CreatedAt time.Time
	Duration  time.Duration
	// FromCache is set by the orchestrator on the returned copy; it is not
	// part of the cached or persisted value.
	FromCache bool
}

// Succeeded reports whether the analysis produced a usable payload.
func (r AnalysisResult) Succeeded() bool { return r.Status == StatusSuccess }

// Summary returns a one-line digest suitable for history listings.
func (r AnalysisResult) Summary() string {
	if r.Status == StatusFailed {
		return "failed: " + r.Err
	}
	for _, s := range r.Sections {
		line := strings.TrimSpace(s.Body)
		if line == "" {
			continue
		}
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if len(line) > 140 {
			line = line[:140]
		}
		return line
	}
	return ""
}

// FailedResult builds the failed-status result returned to callers after
// retry exhaustion or a permanent error.
func FailedResult(req AnalysisRequest, provider string, err error) AnalysisResult {
	return AnalysisResult{
		RequestID: req.ID,
		Provider:  provider,
		Status:    StatusFailed,
		Err:       err.Error(),
		CreatedAt: time.Now(),
	}
}
