package media

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Provider exposes media metadata tools.
type Provider struct {
	ops *MediaOps
}

// NewProvider creates the media tool provider.
func NewProvider(ops *MediaOps) *Provider {
	return &Provider{ops: ops}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "media",
		Name:         "Media Metadata Service",
		Description:  "Read, edit and extract embedded image and video metadata",
		Category:     types.CategoryMedia,
		Capabilities: []string{"metadata", "thumbnail", "preview"},
		Tools:        p.tools(),
	}
}

// Execute runs a media tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case ToolReadMetadata:
		return p.read(ctx, params)
	case ToolWriteMetadata:
		return p.write(ctx, params)
	case ToolDeleteMetadata:
		return p.delete(ctx, params)
	case ToolExtractThumbnail:
		return p.extract(ctx, params, p.ops.ExtractThumbnail)
	case ToolExtractPreview:
		return p.extract(ctx, params, p.ops.ExtractPreview)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}
