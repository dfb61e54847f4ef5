// Package server assembles fsguard from its configuration.
//
// It builds the security policy, the path authorizer, the sensitive operation guard,
// the filesystem and media providers, and the tool registry, then serves the registry
// over the configured transport:
//   - stdio: an MCP server on stdin/stdout
//   - http: the gin API with websocket confirmations and /metrics
//
// Confirmation modes:
//   - none: every sensitive operation is declined
//   - tty: ask on the controlling terminal
//   - websocket: ask clients connected to /ws/confirm
//   - elicitation: ask the MCP client (stdio only)
//   - auto: elicitation for stdio, websocket for http
//
// Example Usage:
//
//	srv, err := server.New(cfg, log.Logger, version)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx, os.Stdin, os.Stdout)
package server
