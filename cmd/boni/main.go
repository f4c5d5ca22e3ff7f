// Command boni runs the church assistant bot and its maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/boni/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
