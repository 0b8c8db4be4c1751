/*-------------------------------------------------------------------------
 *
 * server.go
 *    WebSocket endpoint handler
 *
 * Upgrades HTTP requests, registers the connection for its user, runs
 * the read loop with keepalive, and dispatches decoded messages to the
 * router. Authentication is an external collaborator: an injected
 * resolver maps the request to a user id before the upgrade.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/ws/server.go
 *
 *-------------------------------------------------------------------------
 */

package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/neurondb/NeuronSupervisor/internal/config"
	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true /* Origin checks are handled by the fronting proxy */
	},
	HandshakeTimeout: 10 * time.Second,
}

/* UserResolver maps an HTTP request to an authenticated user id.
 * Token validation is outside this service. */
type UserResolver func(r *http.Request) (string, error)

/* QueryUserResolver resolves the user id from the user_id query
 * parameter; deployments front this with an authenticating proxy */
func QueryUserResolver(r *http.Request) (string, error) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return "", &ErrMalformedMessage{Reason: "user_id query parameter is required"}
	}
	return userID, nil
}

/* Handler returns the WebSocket endpoint handler */
func Handler(router *Router, manager *ConnManager, registry *execution.Registry, resolver UserResolver, cfg config.WebSocketConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logCtx := r.Context()

		userID, err := resolver(r)
		if err != nil {
			metrics.WarnWithContext(logCtx, "WebSocket authentication failed", map[string]interface{}{
				"error": err.Error(),
			})
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
			return
		}
		logCtx = metrics.WithUserIDLogContext(logCtx, userID)

		rawConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			metrics.WarnWithContext(logCtx, "WebSocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		pongWait := cfg.PongWait
		if pongWait <= 0 {
			pongWait = defaultPongWait
		}

		/* The read limit is deliberately wider than the message bound
		 * so oversized frames are rejected with a typed error event
		 * instead of a closed connection. Frames beyond the read limit
		 * still close the connection at the transport level. */
		rawConn.SetReadLimit(cfg.MaxMessageBytes * 4)
		rawConn.SetReadDeadline(time.Now().Add(pongWait))
		rawConn.SetPongHandler(func(string) error {
			rawConn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		conn := NewConn(rawConn, userID, cfg.WriteWait)
		manager.Register(conn)
		logCtx = metrics.WithConnectionIDLogContext(logCtx, conn.ID())

		metrics.InfoWithContext(logCtx, "WebSocket connection established", map[string]interface{}{})

		ctx, cancel := context.WithCancel(r.Context())
		go pingLoop(ctx, rawConn, pongWait, cfg.WriteWait)

		readLoop(ctx, logCtx, router, conn, rawConn, userID, cfg)

		/* Cleanup on every exit path */
		cancel()
		manager.Unregister(conn)
		registry.ReleaseConnection(userID, conn.ID())
		_ = conn.Close()

		metrics.InfoWithContext(logCtx, "WebSocket connection closed", map[string]interface{}{})
	}
}

/* pingLoop sends periodic ping messages to keep the connection alive */
func pingLoop(ctx context.Context, conn *websocket.Conn, pongWait, writeWait time.Duration) {
	pingPeriod := (pongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

/* readLoop reads and dispatches frames until the connection drops */
func readLoop(ctx context.Context, logCtx context.Context, router *Router, conn Conn, rawConn *websocket.Conn, userID string, cfg config.WebSocketConfig) {
	for {
		if ctx.Err() != nil {
			return
		}

		_, raw, err := rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WarnWithContext(logCtx, "WebSocket read error", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		msg, err := ParseMessage(raw, cfg.MaxMessageBytes)
		if err != nil {
			/* Typed rejection: no agent work begins */
			metrics.WarnWithContext(logCtx, "Inbound message rejected", map[string]interface{}{
				"error": err.Error(),
			})
			sendRejection(ctx, conn, userID, err)
			continue
		}

		switch msg.Type {
		case MessageTypeConnect, MessageTypeDisconnect:
			/* Connection lifecycle messages carry no agent work */
			metrics.DebugWithContext(logCtx, "Connection lifecycle message", map[string]interface{}{
				"message_type": string(msg.Type),
			})
		default:
			router.HandleMessage(ctx, userID, conn, msg)
		}
	}
}

/* sendRejection sends a typed error event for a rejected frame */
func sendRejection(ctx context.Context, conn Conn, userID string, cause error) {
	code := "malformed_message"
	if _, ok := cause.(*ErrOversizedMessage); ok {
		code = "oversized_message"
	}

	event := Event{
		Type: EventError,
		Payload: map[string]interface{}{
			"code":      code,
			"message":   cause.Error(),
			"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
		},
		UserID: userID,
	}

	if err := conn.SendJSON(ctx, event); err != nil {
		metrics.WarnWithContext(ctx, "Failed to deliver rejection event", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
	}
}
