package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

// NewUnitsCmd lists the registered units.
func NewUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List available units",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range unit.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
