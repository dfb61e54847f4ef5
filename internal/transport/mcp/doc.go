// Package mcp serves the tool registry as a Model Context Protocol server over stdio.
//
// Every registry tool becomes an MCP tool with the same name and a JSON schema built
// from its parameter definitions. Results map onto MCP tool results: the envelope
// text is the content and failures set isError.
//
// Elicitor is a confirm.Provider that asks the calling client to confirm sensitive
// operations through MCP elicitation. Clients that do not support elicitation leave
// the guard fail-closed.
//
// Example Usage:
//
//	srv := mcp.NewServer(registry, version, log)
//	sw.Set(mcp.NewElicitor(srv))
//	err := srv.Serve(ctx, os.Stdin, os.Stdout)
package mcp
