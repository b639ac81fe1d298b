package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "plugin-pipeline",
		Short: "Run byte transformation units standalone or as a record pipeline",
		Long: `plugin-pipeline hosts small transformation units (emojify, json2msgpack,
nginx-parser, agent-emoji, status-emoji, reverse). Each unit takes one input
buffer and either delivers one output buffer or reports an error.

"exec" invokes a single unit on one buffer. "run" starts a pipeline where every
ingestor (file, syslog, journal, stdin) feeds its records through its own
chain of units, and the results are fanned out to every emitter (stdout, file,
elasticsearch, loki, victorialogs).

Hot-reload: When a config file is specified, changes to the stage chains and to
the enabled components are applied without a restart.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides the config file")

	rootCmd.AddCommand(
		NewRunCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile),
		NewExecCmd(),
		NewUnitsCmd(),
		NewVersionCmd(),
	)

	return rootCmd
}

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
