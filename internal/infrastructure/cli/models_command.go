package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archway-dev/archway/internal/app"
)

// newModelsCommand creates the 'models' command.
func newModelsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured providers and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, def := range container.Config.Providers {
				provider, err := container.Registry.Get(def.Name)
				if err != nil {
					continue
				}
				caps := make([]string, 0, len(provider.Capabilities()))
				for _, c := range provider.Capabilities() {
					caps = append(caps, string(c))
				}
				tags := ""
				if def.DeepReasoning {
					tags = " [deep-reasoning]"
				}
				fmt.Fprintf(out, "%s (%s)%s\n", def.Name, provider.State(), tags)
				if def.ModelID != "" {
					fmt.Fprintf(out, "  model:        %s\n", def.ModelID)
				}
				fmt.Fprintf(out, "  endpoint:     %s\n", def.Endpoint)
				fmt.Fprintf(out, "  capabilities: %s\n", strings.Join(caps, ", "))
			}
			return nil
		},
	}
}
