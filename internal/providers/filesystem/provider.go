package filesystem

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Provider exposes the filesystem operations as tools.
type Provider struct {
	ops        *FilesystemOps
	operations *OperationsOps
	directory  *DirectoryOps
	batch      *BatchOps
}

// NewProvider creates the filesystem tool provider.
func NewProvider(ops *FilesystemOps) *Provider {
	return &Provider{
		ops:        ops,
		operations: &OperationsOps{FilesystemOps: ops},
		directory:  &DirectoryOps{FilesystemOps: ops},
		batch:      &BatchOps{FilesystemOps: ops},
	}
}

// Ops returns the operation core.
func (p *Provider) Ops() *FilesystemOps {
	return p.ops
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	tools := p.operations.GetTools()
	tools = append(tools, p.directory.GetTools()...)
	tools = append(tools, p.batch.GetTools()...)

	return types.Service{
		ID:          "filesystem",
		Name:        "Filesystem Service",
		Description: "File and directory operations confined to the allowed directories",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"move", "copy", "delete", "rename", "link", "chmod", "stat", "list", "batch",
		},
		Tools: tools,
	}
}

// Execute runs a filesystem tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case ToolMoveFile:
		return p.operations.MoveFile(ctx, params, appCtx)
	case ToolCopyFile:
		return p.operations.CopyFile(ctx, params, appCtx)
	case ToolDeleteFile:
		return p.operations.DeleteFile(ctx, params, appCtx)
	case ToolRename:
		return p.operations.RenameFile(ctx, params, appCtx)
	case ToolCreateHardLink:
		return p.operations.HardLink(ctx, params, appCtx)
	case ToolCreateSymlink:
		return p.operations.Symlink(ctx, params, appCtx)
	case ToolReadSymlink:
		return p.operations.Readlink(ctx, params, appCtx)
	case ToolChangePermissions:
		return p.operations.Chmod(ctx, params, appCtx)

	case ToolListDirectory:
		return p.directory.List(ctx, params, appCtx)
	case ToolCreateDirectory:
		return p.directory.Mkdir(ctx, params, appCtx)
	case ToolDeleteDirectory:
		return p.directory.Rmdir(ctx, params, appCtx)
	case ToolDirectorySize:
		return p.directory.Size(ctx, params, appCtx)
	case ToolListAllowedDirectories:
		return p.directory.Allowed(ctx, params, appCtx)
	case ToolFileInfo:
		return p.directory.Info(ctx, params, appCtx)

	case ToolBatchMove:
		return p.batch.Move(ctx, params, appCtx)
	case ToolBatchCopy:
		return p.batch.Copy(ctx, params, appCtx)
	case ToolBatchDelete:
		return p.batch.Delete(ctx, params, appCtx)

	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}
