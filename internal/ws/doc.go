// Package ws provides the websocket confirmation channel.
//
// Connected clients receive every pending confirmation request and answer it. The
// first valid answer resolves the request; an unanswered request expires when the
// guard's timeout elapses and is treated as declined.
//
// Browser connections are accepted only from explicitly configured origins.
//
// Message Types (Client → Server):
//   - confirmation_response: {id, action, content}
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection greeting
//   - confirmation_request: {request, message, schema}
//   - resolved: {id, ok}; ok is false for unknown or expired ids
//   - pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(hub, metrics, log, cfg.Server.AllowedOrigins)
//	router.GET("/ws/confirm", handler.HandleConnection)
package ws
