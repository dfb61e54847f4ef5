package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/service"
	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Transport is the name recorded in the call context of MCP tool calls.
const Transport = "stdio"

// Server exposes the registry's tools over MCP.
type Server struct {
	mcp      *server.MCPServer
	registry *service.Registry
	logger   *zap.Logger
}

// NewServer builds an MCP server advertising every tool in registry. Register
// providers before calling it; later registrations are not advertised.
func NewServer(registry *service.Registry, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp: server.NewMCPServer("fsguard", version,
			server.WithToolCapabilities(false),
			server.WithElicitation(),
			server.WithRecovery(),
		),
		registry: registry,
		logger:   logger,
	}

	for _, tool := range registry.Tools() {
		s.mcp.AddTool(buildTool(tool), s.handler(tool.ID))
	}
	logger.Info("MCP tools registered", zap.Int("count", len(registry.Tools())))
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over the given streams until ctx is cancelled or in reaches EOF.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("mcp")))
	s.logger.Info("Serving MCP over stdio")
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := s.registry.Execute(ctx, name, request.GetArguments(), &types.Context{Transport: Transport})
		if res.IsError {
			return mcp.NewToolResultError(res.Text), nil
		}
		return mcp.NewToolResultText(res.Text), nil
	}
}

func buildTool(t types.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.Description),
		mcp.WithDestructiveHintAnnotation(t.Destructive),
	}
	if t.Name != "" {
		opts = append(opts, mcp.WithTitleAnnotation(t.Name))
	}
	for _, p := range t.Parameters {
		opts = append(opts, parameterOption(p))
	}
	return mcp.NewTool(t.ID, opts...)
}

func parameterOption(p types.Parameter) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(p.Description)}
	if p.Required {
		props = append(props, mcp.Required())
	}

	switch p.Type {
	case types.TypeBoolean:
		if v, ok := p.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(v))
		}
		return mcp.WithBoolean(p.Name, props...)
	case types.TypeNumber:
		if v, ok := toFloat(p.Default); ok {
			props = append(props, mcp.DefaultNumber(v))
		}
		return mcp.WithNumber(p.Name, props...)
	case types.TypeArray:
		if p.Items != "" {
			props = append(props, mcp.Items(map[string]interface{}{"type": p.Items}))
		}
		return mcp.WithArray(p.Name, props...)
	case types.TypeObject:
		return mcp.WithObject(p.Name, props...)
	default:
		if v, ok := p.Default.(string); ok {
			props = append(props, mcp.DefaultString(v))
		}
		return mcp.WithString(p.Name, props...)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
