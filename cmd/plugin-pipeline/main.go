package main

import (
	"os"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}
