//go:build !wasip1

// Command reverse runs the reverse unit as a filter: the whole of stdin is one
// invocation, the result goes to stdout.
package main

import (
	"os"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

func main() {
	os.Exit(transfer.RunStdio(unit.Reverse, os.Stdin, os.Stdout, os.Stderr))
}
