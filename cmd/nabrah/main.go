// Package main is the entry point for the nabrah CLI.
//
// Usage:
//
//	nabrah [flags] <command> [subcommand] [args]
//
// Commands:
//
//	serve       - Run the HTTP API
//	analyze     - Acoustic analysis of a WAV recording
//	transcribe  - Transcribe a WAV recording with confidence
//	queue       - Review queue management (list, show, add, update, delete, stats, export)
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/Yahya-Abdulselam/Nabrah/cmd/nabrah/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
