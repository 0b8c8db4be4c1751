/*-------------------------------------------------------------------------
 *
 * chat.go
 *    Commands that drive agent runs over WebSocket
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/cli/cmd/chat.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Start a fresh agent run and stream its lifecycle events",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return driveRun("start_agent", strings.Join(args, " "))
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a conversational message on the pinned thread",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return driveRun("user_message", strings.Join(args, " "))
	},
}

/* driveRun connects, sends one message, and streams events until the
 * terminal agent_completed event or a timeout */
func driveRun(messageType, text string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required: pass --user or set NEURONSUPERVISOR_USER")
	}

	wsURL, err := websocketURL(serverURL, userID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: url='%s', error=%w", wsURL, err)
	}
	defer conn.Close()

	payload := map[string]interface{}{}
	if messageType == "start_agent" {
		payload["user_request"] = text
	} else {
		payload["message"] = text
	}

	msg := map[string]interface{}{
		"type":    messageType,
		"payload": payload,
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send failed: error=%w", err)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: error=%w", err)
		}

		var event struct {
			Type    string                 `json:"type"`
			Payload map[string]interface{} `json:"payload"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping unparseable event: %v\n", err)
			continue
		}

		printEvent(event.Type, event.Payload)

		if event.Type == "agent_completed" || event.Type == "error" {
			return nil
		}
	}
}

/* printEvent renders one lifecycle event in the selected format */
func printEvent(eventType string, payload map[string]interface{}) {
	if outputFormat == "json" {
		out, _ := json.Marshal(map[string]interface{}{"type": eventType, "payload": payload})
		fmt.Println(string(out))
		return
	}

	switch eventType {
	case "agent_started":
		fmt.Printf("[started]   agent=%v\n", payload["agent"])
	case "agent_thinking":
		fmt.Printf("[thinking]  %v\n", payload["thought"])
	case "tool_executing":
		fmt.Printf("[tool]      %v ...\n", payload["tool"])
	case "tool_completed":
		status := "ok"
		if success, _ := payload["success"].(bool); !success {
			status = fmt.Sprintf("failed: %v", payload["error"])
		}
		fmt.Printf("[tool]      %v %s\n", payload["tool"], status)
	case "agent_completed":
		if success, _ := payload["success"].(bool); success {
			out, _ := json.MarshalIndent(payload["result"], "", "  ")
			fmt.Printf("[completed] %v (%vms)\n%s\n", payload["agent"], payload["execution_time_ms"], out)
		} else {
			fmt.Printf("[completed] %v failed: %v\n", payload["agent"], payload["error"])
		}
	case "error":
		fmt.Printf("[error]     %v: %v\n", payload["code"], payload["message"])
	default:
		out, _ := json.Marshal(payload)
		fmt.Printf("[%s] %s\n", eventType, out)
	}
}

/* websocketURL converts the server base URL into the /ws endpoint */
func websocketURL(base, user string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: url='%s', error=%w", base, err)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL scheme: scheme='%s'", parsed.Scheme)
	}

	parsed.Path = "/ws"
	query := parsed.Query()
	query.Set("user_id", user)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
