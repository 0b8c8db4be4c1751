/*-------------------------------------------------------------------------
 *
 * health.go
 *    Server health and stats commands
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/cli/cmd/health.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(serverURL + "/health")
		if err != nil {
			return fmt.Errorf("health check failed: url='%s', error=%w", serverURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			fmt.Println("healthy")
			return nil
		}
		return fmt.Errorf("health check failed: status=%d", resp.StatusCode)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server counters and breaker states",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(serverURL + "/stats")
		if err != nil {
			return fmt.Errorf("stats fetch failed: url='%s', error=%w", serverURL, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("stats fetch failed: read_error=%w", err)
		}

		if outputFormat == "json" {
			fmt.Println(string(body))
			return nil
		}

		var pretty map[string]interface{}
		if err := json.Unmarshal(body, &pretty); err != nil {
			fmt.Println(string(body))
			return nil
		}
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
