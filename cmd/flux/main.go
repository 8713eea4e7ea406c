// Command flux checks, steps, renders, exports and serves Flux documents.
package main

import (
	"fmt"
	"os"

	"github.com/cbassuarez/flux/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
