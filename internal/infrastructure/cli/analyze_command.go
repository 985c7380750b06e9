package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/archway-dev/archway/internal/app"
	"github.com/archway-dev/archway/internal/domain"
)

// newAnalyzeCommand creates the 'analyze' command.
func newAnalyzeCommand(container *app.Container) *cobra.Command {
	var (
		kind       string
		query      string
		provider   string
		model      string
		maxTokens  int
		creativity float64
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Run an analysis against the configured backends",
		Long: "Analyze submits the given files and/or query to the best capable provider.\n" +
			"Kinds: code-analysis, refactor-suggestion, architecture-analysis, code-search, symbol-lookup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := container.Config.Defaults
			if provider == "" {
				provider = defaults.Provider
			}
			if model == "" {
				model = defaults.Model
			}

			req, err := domain.NewAnalysisRequest(domain.AnalysisKind(kind), args, query, domain.AnalysisOptions{
				Provider:        provider,
				Model:           model,
				MaxOutputTokens: maxTokens,
				Creativity:      creativity,
				Timeout:         timeout,
			})
			if err != nil {
				return err
			}

			result, err := container.AnalyzeService.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}
			RenderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(domain.KindCodeAnalysis), "Analysis kind")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free-form query or search term")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Force a provider by name (default from config)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Override model name (default from config)")
	cmd.Flags().IntVar(&maxTokens, "max-output-tokens", 0, "Bound the generated output size")
	cmd.Flags().Float64Var(&creativity, "creativity", 0, "Sampling creativity in [0,1]")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Override request timeout (default from config)")

	return cmd
}
