// ABOUTME: Entry point for the rotograma CLI
// ABOUTME: Executes the root command and maps failures to a non-zero exit

package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}
