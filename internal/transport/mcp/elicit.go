package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/GriffinCanCode/fsguard/internal/confirm"
)

// Elicitor asks the connected MCP client to confirm through elicitation. The request
// context must carry the client session of the tool call being confirmed.
type Elicitor struct {
	server *Server
}

// NewElicitor returns a confirmation provider backed by s.
func NewElicitor(s *Server) *Elicitor {
	return &Elicitor{server: s}
}

// Elicit implements confirm.Provider. Clients without elicitation support make the
// provider unavailable.
func (e *Elicitor) Elicit(ctx context.Context, req confirm.Request) (*confirm.Response, error) {
	result, err := e.server.mcp.RequestElicitation(ctx, mcp.ElicitationRequest{
		Params: mcp.ElicitationParams{
			Message:         req.Message(),
			RequestedSchema: req.Schema(),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", confirm.ErrUnavailable, err)
	}

	content, _ := result.Content.(map[string]interface{})
	return &confirm.Response{
		Action:  confirm.Action(result.Action),
		Content: content,
	}, nil
}
