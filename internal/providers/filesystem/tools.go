package filesystem

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Tool names
const (
	ToolListDirectory          = "list-directory"
	ToolCreateDirectory        = "create-directory"
	ToolDeleteDirectory        = "delete-directory"
	ToolDirectorySize          = "directory-size"
	ToolListAllowedDirectories = "list-allowed-directories"
	ToolFileInfo               = "file-info"
	ToolBatchMove              = "batch-move"
	ToolBatchCopy              = "batch-copy"
	ToolBatchDelete            = "batch-delete"
)

// DirectoryOps handles directory and metadata tools
type DirectoryOps struct {
	*FilesystemOps
}

// GetTools returns directory and metadata tool definitions
func (d *DirectoryOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          ToolListDirectory,
			Name:        "List Directory",
			Description: "List directory contents, directories first",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "Directory path", Required: true},
				{Name: "showHidden", Type: types.TypeBoolean, Description: "Include entries starting with a dot", Default: false},
				{Name: "details", Type: types.TypeBoolean, Description: "Include size, mode and modification time", Default: false},
			},
			Returns: "string",
		},
		{
			ID:          ToolCreateDirectory,
			Name:        "Create Directory",
			Description: "Create a directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "Directory path", Required: true},
				{Name: "recursive", Type: types.TypeBoolean, Description: "Create missing parents", Default: true},
			},
			Returns: "string",
		},
		{
			ID:          ToolDeleteDirectory,
			Name:        "Delete Directory",
			Description: "Delete an empty directory, or a whole tree with recursive and force",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "Directory path", Required: true},
				{Name: "recursive", Type: types.TypeBoolean, Description: "Delete contents too (requires force)", Default: false},
				forceParam,
			},
			Returns:     "string",
			Destructive: true,
		},
		{
			ID:          ToolDirectorySize,
			Name:        "Directory Size",
			Description: "Total size, file count and directory count of a tree",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "Directory path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          ToolListAllowedDirectories,
			Name:        "List Allowed Directories",
			Description: "List the directories this server may access",
			Parameters:  []types.Parameter{},
			Returns:     "array",
		},
		{
			ID:          ToolFileInfo,
			Name:        "File Info",
			Description: "Get size, type, permissions, MIME type and timestamps of a path",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "File or directory path", Required: true},
			},
			Returns: "object",
		},
	}
}

// List handles list-directory
func (d *DirectoryOps) List(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	details := boolParam(params, "details", false)
	entries, err := d.ListDirectory(ctx, path, boolParam(params, "showHidden", false), details)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return types.Text("📂 " + path + " is empty"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📂 %s (%d entries)", path, len(entries))
	for _, e := range entries {
		icon, suffix := "📄", ""
		switch e.Type {
		case EntryDirectory:
			icon, suffix = "📁", "/"
		case EntrySymlink:
			icon = "🔗"
		}
		fmt.Fprintf(&sb, "\n%s %s%s", icon, e.Name, suffix)
		if details && e.Size != nil {
			fmt.Fprintf(&sb, "  %s  %s  %s", formatBytes(*e.Size), e.Mode, e.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return types.Text(sb.String()), nil
}

// Mkdir handles create-directory
func (d *DirectoryOps) Mkdir(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	res, err := d.CreateDirectory(ctx, path, boolParam(params, "recursive", true))
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

// Rmdir handles delete-directory
func (d *DirectoryOps) Rmdir(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	res, err := d.DeleteDirectory(ctx, path, boolParam(params, "recursive", false), boolParam(params, "force", false))
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

// Size handles directory-size
func (d *DirectoryOps) Size(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	size, err := d.DirectorySize(ctx, path)
	if err != nil {
		return nil, err
	}
	return types.Structured(size), nil
}

// Allowed handles list-allowed-directories
func (d *DirectoryOps) Allowed(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	dirs := d.ListAllowedDirectories()
	if len(dirs) == 0 {
		return types.Text("No allowed directories are configured"), nil
	}
	return types.Text("Allowed directories:\n" + strings.Join(dirs, "\n")), nil
}

// Info handles file-info
func (d *DirectoryOps) Info(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	info, err := d.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	return types.Structured(info), nil
}

// BatchOps handles batch tools
type BatchOps struct {
	*FilesystemOps
}

// GetTools returns batch tool definitions
func (b *BatchOps) GetTools() []types.Tool {
	sources := types.Parameter{Name: "sources", Type: types.TypeArray, Items: types.TypeString, Description: "Source paths", Required: true}
	destination := types.Parameter{Name: "destination", Type: types.TypeString, Description: "Destination directory", Required: true}
	return []types.Tool{
		{
			ID:          ToolBatchMove,
			Name:        "Batch Move",
			Description: "Move several files into a directory; failures are reported per item",
			Parameters:  []types.Parameter{sources, destination, overwriteParam, createDirsParam},
			Returns:     "string",
		},
		{
			ID:          ToolBatchCopy,
			Name:        "Batch Copy",
			Description: "Copy several files into a directory; failures are reported per item",
			Parameters:  []types.Parameter{sources, destination, overwriteParam, createDirsParam},
			Returns:     "string",
		},
		{
			ID:          ToolBatchDelete,
			Name:        "Batch Delete",
			Description: "Delete several files or empty directories; sensitive files reject the whole batch unless force is set",
			Parameters: []types.Parameter{
				{Name: "paths", Type: types.TypeArray, Items: types.TypeString, Description: "Paths to delete", Required: true},
				forceParam,
			},
			Returns:     "string",
			Destructive: true,
		},
	}
}

// Move handles batch-move
func (b *BatchOps) Move(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return b.transfer(ctx, params, b.BatchMove)
}

// Copy handles batch-copy
func (b *BatchOps) Copy(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return b.transfer(ctx, params, b.BatchCopy)
}

type batchTransferFunc func(ctx context.Context, sources []string, destination string, opts Options) (*BatchOperationResult, error)

func (b *BatchOps) transfer(ctx context.Context, params map[string]interface{}, op batchTransferFunc) (*types.Result, error) {
	sources, err := stringsParam(params, "sources")
	if err != nil {
		return nil, err
	}
	destination, err := stringParam(params, "destination")
	if err != nil {
		return nil, err
	}
	res, err := op(ctx, sources, destination, optionsParam(params))
	if err != nil {
		return nil, err
	}
	return batchResult(res), nil
}

// Delete handles batch-delete
func (b *BatchOps) Delete(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	paths, err := stringsParam(params, "paths")
	if err != nil {
		return nil, err
	}
	res, err := b.BatchDelete(ctx, paths, boolParam(params, "force", false))
	if err != nil {
		return nil, err
	}
	return batchResult(res), nil
}

func batchResult(res *BatchOperationResult) *types.Result {
	return &types.Result{Text: res.Report(), IsError: res.ErrorCount > 0, Data: res}
}
