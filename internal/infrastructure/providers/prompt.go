package providers

import (
	"fmt"
	"strings"

	"github.com/archway-dev/archway/internal/domain"
)

const systemPrompt = "You are an expert software developer assistant. " +
	"Analyze code and provide detailed, accurate responses. " +
	"Focus on architectural patterns, best practices, and potential improvements."

// buildPrompt renders the user-facing prompt for model-backed providers.
func buildPrompt(req domain.AnalysisRequest) string {
	var b strings.Builder
	switch req.Kind {
	case domain.KindRefactorSuggestion:
		fmt.Fprintf(&b, "Suggest refactorings for: %s.\n", targetsLine(req))
		b.WriteString("List concrete changes with their rationale.")
	case domain.KindArchitectureAnalysis:
		fmt.Fprintf(&b, "Analyze the architecture of: %s.\n", targetsLine(req))
		b.WriteString("Describe the components, their dependencies, and structural risks.")
	default:
		fmt.Fprintf(&b, "Analyze the following code: %s.\n", targetsLine(req))
		b.WriteString("Report findings, potential bugs, and improvements.")
	}
	if req.Query != "" && len(req.Targets) > 0 {
		fmt.Fprintf(&b, "\nAdditional instructions: %s", req.Query)
	}
	return b.String()
}

// sectionTitle names the payload section per analysis kind.
func sectionTitle(kind domain.AnalysisKind) string {
	switch kind {
	case domain.KindRefactorSuggestion:
		return "Refactoring Suggestions"
	case domain.KindArchitectureAnalysis:
		return "Architecture Analysis"
	case domain.KindCodeSearch:
		return "Search Results"
	case domain.KindSymbolLookup:
		return "Symbol Locations"
	default:
		return "Analysis"
	}
}
