// Package main is the entry point for the formagent CLI.
//
// Usage:
//
//	formagent [flags] <command>
//
// Commands:
//
//	run         - Conduct the configured survey on stdin/stdout
//	questions   - Print the resolved question list
//	transcript  - Print a stored run transcript
package main

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/form-agent/cmd/formagent/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
