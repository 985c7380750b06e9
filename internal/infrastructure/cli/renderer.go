package cli

import (
	"fmt"
	"io"

	"github.com/archway-dev/archway/internal/domain"
)

// RenderResult prints the analysis outcome in a plain, ASCII-only format.
func RenderResult(out io.Writer, result domain.AnalysisResult) {
	if result.Status == domain.StatusFailed {
		fmt.Fprintf(out, "Analysis failed (%s): %s\n", providerLabel(result.Provider), result.Err)
		return
	}

	fmt.Fprintf(out, "Analysis complete via %s", providerLabel(result.Provider))
	if result.FromCache {
		fmt.Fprint(out, " (cached)")
	}
	fmt.Fprintln(out)

	for _, s := range result.Sections {
		fmt.Fprintf(out, "\n%s\n", s.Title)
		fmt.Fprintln(out, s.Body)
	}
}

func providerLabel(name string) string {
	if name == "" {
		return "unknown provider"
	}
	return name
}
