// Command tickr runs and inspects tick-driven scheduler scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tickr/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
