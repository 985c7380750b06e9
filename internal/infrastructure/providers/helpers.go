package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/archway-dev/archway/internal/domain"
)

func resolveAuth(primary string, fallback string) string {
	if primary != "" {
		if value := os.Getenv(primary); value != "" {
			return value
		}
	}
	if fallback == "" {
		return ""
	}
	return os.Getenv(fallback)
}

func valueOrDefault(value string, def string) string {
	if value == "" {
		return def
	}
	return value
}

func valueOrDefaultInt(value int, def int) int {
	if value == 0 {
		return def
	}
	return value
}

// classifyHTTP turns a transport error or a bad status into a classified
// provider error. Network faults, timeouts, 429 and 5xx are transient;
// other 4xx responses will not improve on retry.
func classifyHTTP(provider string, resp *http.Response, err error) error {
	if err != nil {
		if ctxErr := contextCause(err); ctxErr != nil {
			return ctxErr
		}
		return domain.NewTransientError(provider, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return domain.NewTransientError(provider, fmt.Errorf("upstream returned %s", resp.Status))
	}
	if resp.StatusCode >= 400 {
		return domain.NewPermanentError(provider, fmt.Errorf("upstream returned %s", resp.Status))
	}
	return nil
}

// contextCause surfaces deadline/cancellation instead of misclassifying an
// abandoned call as a transient upstream fault.
func contextCause(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return nil
}

// newResult assembles a successful AnalysisResult for req.
func newResult(req domain.AnalysisRequest, provider string, sections []domain.Section, start time.Time) domain.AnalysisResult {
	return domain.AnalysisResult{
		RequestID: req.ID,
		Provider:  provider,
		Status:    domain.StatusSuccess,
		Sections:  sections,
		CreatedAt: time.Now(),
		Duration:  time.Since(start),
	}
}

// targetsLine renders the request targets for prompt construction.
func targetsLine(req domain.AnalysisRequest) string {
	if len(req.Targets) == 0 {
		return req.Query
	}
	return strings.Join(req.Targets, ", ")
}
