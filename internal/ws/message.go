/*-------------------------------------------------------------------------
 *
 * message.go
 *    Inbound WebSocket message envelope
 *
 * Defines the wire message types, size bounds, and typed parse errors.
 * Oversized or malformed frames are rejected before any agent work
 * begins.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/ws/message.go
 *
 *-------------------------------------------------------------------------
 */

package ws

import (
	"encoding/json"
	"fmt"
)

/* MessageType enumerates inbound message kinds */
type MessageType string

const (
	MessageTypeStartAgent  MessageType = "start_agent"
	MessageTypeUserMessage MessageType = "user_message"
	MessageTypeChat        MessageType = "chat"
	MessageTypeConnect     MessageType = "connect"
	MessageTypeDisconnect  MessageType = "disconnect"
)

/* Message is the decoded inbound envelope */
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	UserID    string                 `json:"user_id"`
	Timestamp float64                `json:"timestamp"`
}

/* ErrOversizedMessage reports a frame above the configured size bound */
type ErrOversizedMessage struct {
	Size     int
	MaxBytes int64
}

func (e *ErrOversizedMessage) Error() string {
	return fmt.Sprintf("message rejected: oversized=true, size=%d, max_bytes=%d", e.Size, e.MaxBytes)
}

/* ErrMalformedMessage reports an undecodable frame */
type ErrMalformedMessage struct {
	Reason string
}

func (e *ErrMalformedMessage) Error() string {
	return fmt.Sprintf("message rejected: malformed=true, reason='%s'", e.Reason)
}

/* ParseMessage decodes a raw frame, enforcing the size bound before
 * attempting to decode */
func ParseMessage(raw []byte, maxBytes int64) (*Message, error) {
	if int64(len(raw)) > maxBytes {
		return nil, &ErrOversizedMessage{Size: len(raw), MaxBytes: maxBytes}
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &ErrMalformedMessage{Reason: err.Error()}
	}

	if msg.Type == "" {
		return nil, &ErrMalformedMessage{Reason: "type field is required"}
	}

	if msg.Payload == nil {
		msg.Payload = make(map[string]interface{})
	}

	return &msg, nil
}

/* payloadString returns a string payload field, if present */
func (m *Message) payloadString(key string) string {
	if value, ok := m.Payload[key].(string); ok {
		return value
	}
	return ""
}

/* ThreadID returns the optional thread id from the payload */
func (m *Message) ThreadID() string {
	return m.payloadString("thread_id")
}

/* RunID returns the optional run id from the payload */
func (m *Message) RunID() string {
	return m.payloadString("run_id")
}

/* RequestText extracts the required request text for the message type.
 * start_agent requires user_request; user_message and chat accept
 * message, content, or text. */
func (m *Message) RequestText() string {
	switch m.Type {
	case MessageTypeStartAgent:
		return m.payloadString("user_request")
	case MessageTypeUserMessage, MessageTypeChat:
		for _, key := range []string{"message", "content", "text"} {
			if value := m.payloadString(key); value != "" {
				return value
			}
		}
	}
	return ""
}
