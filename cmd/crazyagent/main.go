// Package main provides the entry point for the crazyagent CLI.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/rahul/crazyagent/internal/observability"
)

func main() {
	// Route all log output through the terminal mutex so it never
	// interleaves with the banner or REPL output.
	log.SetOutput(observability.NewTermWriter())

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
