package cli

import (
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-sequencer/pkg/embedded"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Print the built-in demo arrangement as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(embedded.DemoArrangementYAML)
			return err
		},
	}
}
