package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/pipeline"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := cfg.Validate(knownUnit); err != nil {
				return err
			}

			p, err := pipeline.New(cfg, logger.NewConsoleLogger(io.Discard))
			if err != nil {
				return fmt.Errorf("pipeline configuration error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Ingestors: %d enabled\n", p.IngestorCount())
			for _, name := range []string{"file", "syslog", "journal", "stdin"} {
				if stages := p.Stages(name); stages != nil {
					fmt.Fprintf(out, "    %s: %s\n", name, strings.Join(stages, " -> "))
				}
			}
			fmt.Fprintf(out, "  Emitters:  %d enabled\n", p.EmitterCount())
			return nil
		},
	}
}
