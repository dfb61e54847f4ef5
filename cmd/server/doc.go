// Command fsguard serves policy-guarded filesystem and media-metadata tools.
//
// Transports:
//   - stdio (default): MCP over stdin/stdout; logs go to stderr
//   - http: REST tool API, websocket confirmations and /metrics
//
// Configuration:
//   - Environment variables (FSGUARD_*)
//   - --config file (.yaml, .yml or .toml) overrides the environment
//   - Flags and positional directories override both
//
// Usage:
//
//	# MCP server confined to two directories
//	fsguard ~/projects /srv/media
//
//	# HTTP server with debug logs
//	fsguard --transport http --addr 127.0.0.1:8000 --dev ~/projects
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
