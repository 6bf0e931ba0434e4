package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Headless tools for the annotation engine",
	Long: `annotate drives the annotation engine without a browser. It replays
scripted pointer gestures against an in-memory canvas and mints development
tokens for the collaboration server.`,
	Version:      version,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
