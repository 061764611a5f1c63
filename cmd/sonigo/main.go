// Package main provides the sonigo CLI tool.
//
// Usage:
//
//	sonigo <command> [flags]
//
// Commands:
//
//	similar - batch near-duplicate detection over a clip library
//	show    - print a similarity artifact
//	plan    - print the channel layout of a vocoder configuration
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/sonigo/cmd/sonigo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
