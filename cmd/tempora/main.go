// Command tempora stores and queries bitemporal entities in SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tempora/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
