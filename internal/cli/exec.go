package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

// NewExecCmd creates the exec command: one unit invocation over one buffer.
func NewExecCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "exec <unit>",
		Short: "Invoke a unit once on the whole input",
		Long: `Reads the whole input (stdin or --input), invokes the unit exactly once and
writes its output to stdout. A reported error goes to stderr and exits 1;
a rejected delivery exits 2.`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return unit.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := unit.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown unit %q (available: %v)", args[0], unit.Names())
			}

			var in io.Reader = cmd.InOrStdin()
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				in = f
			}

			if code := transfer.RunStdio(u.Transform, in, cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
				cmd.SilenceErrors = true
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "read input from file instead of stdin")
	return cmd
}
