// Package http provides the gin handlers of the HTTP transport.
//
// Routes:
//   - GET  /             liveness
//   - GET  /health       registry stats, policy summary, metrics snapshot
//   - GET  /tools        tool catalog (?category= filters, ?q= ranks by intent)
//   - GET  /tools/:name  one tool definition
//   - POST /tools/:name  run a tool; the body is the argument object
//
// Tool responses are always the {text, isError} envelope.
package http
