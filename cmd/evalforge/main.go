// Command evalforge runs and scores evaluations of LLM instruction
// following. See 'evalforge --help' for the command tree.
package main

import (
	"os"

	"github.com/evalforge/evalforge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
