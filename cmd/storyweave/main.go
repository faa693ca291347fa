// Command storyweave plays and checks branching stories.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/storyweave/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
