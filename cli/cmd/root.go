/*-------------------------------------------------------------------------
 *
 * root.go
 *    Root command and global flags for supervisor-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/cli/cmd/root.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	userID       string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "supervisor-cli",
	Short: "NeuronSupervisor CLI - Drive agent runs and inspect the server",
	Long: `NeuronSupervisor CLI connects to a running supervisor server over
WebSocket and drives agent runs from the terminal.

Examples:
  # Start an agent run and stream its lifecycle events
  supervisor-cli run "summarize yesterday's error spikes"

  # Continue the conversation on the same thread
  supervisor-cli chat "and compare with the week before"

  # Check server health and counters
  supervisor-cli health
  supervisor-cli stats
`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", getEnvOrDefault("NEURONSUPERVISOR_URL", "http://localhost:8686"), "NeuronSupervisor server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", getEnvOrDefault("NEURONSUPERVISOR_USER", ""), "User ID (required for run/chat)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
