package filesystem

import (
	"context"

	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Tool names
const (
	ToolMoveFile          = "move-file"
	ToolCopyFile          = "copy-file"
	ToolDeleteFile        = "delete-file"
	ToolRename            = "rename"
	ToolCreateHardLink    = "create-hard-link"
	ToolCreateSymlink     = "create-symlink"
	ToolReadSymlink       = "read-symlink"
	ToolChangePermissions = "change-permissions"
)

var (
	overwriteParam = types.Parameter{
		Name: "overwrite", Type: types.TypeBoolean, Default: false,
		Description: "Replace the destination if it already exists",
	}
	createDirsParam = types.Parameter{
		Name: "createDirs", Type: types.TypeBoolean, Default: true,
		Description: "Create missing parent directories of the destination",
	}
	forceParam = types.Parameter{
		Name: "force", Type: types.TypeBoolean, Default: false,
		Description: "Delete sensitive or read-only files (requires policy approval and confirmation)",
	}
)

// OperationsOps handles file operations (copy, move, delete, rename, links, chmod)
type OperationsOps struct {
	*FilesystemOps
}

// GetTools returns file operation tool definitions
func (o *OperationsOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          ToolMoveFile,
			Name:        "Move File",
			Description: "Move a file or directory to a new location",
			Parameters: []types.Parameter{
				{Name: "source", Type: types.TypeString, Description: "Source path", Required: true},
				{Name: "destination", Type: types.TypeString, Description: "Destination path", Required: true},
				overwriteParam,
				createDirsParam,
			},
			Returns: "string",
		},
		{
			ID:          ToolCopyFile,
			Name:        "Copy File",
			Description: "Copy a file or directory; the source is left untouched",
			Parameters: []types.Parameter{
				{Name: "source", Type: types.TypeString, Description: "Source path", Required: true},
				{Name: "destination", Type: types.TypeString, Description: "Destination path", Required: true},
				overwriteParam,
				createDirsParam,
			},
			Returns: "string",
		},
		{
			ID:          ToolDeleteFile,
			Name:        "Delete File",
			Description: "Delete a single file or symlink (directories are rejected)",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "File path", Required: true},
				forceParam,
			},
			Returns:     "string",
			Destructive: true,
		},
		{
			ID:          ToolRename,
			Name:        "Rename",
			Description: "Rename a file or directory",
			Parameters: []types.Parameter{
				{Name: "oldPath", Type: types.TypeString, Description: "Current path", Required: true},
				{Name: "newPath", Type: types.TypeString, Description: "New path", Required: true},
				overwriteParam,
				createDirsParam,
			},
			Returns: "string",
		},
		{
			ID:          ToolCreateHardLink,
			Name:        "Create Hard Link",
			Description: "Create a hard link to a file (same filesystem only, never to a directory)",
			Parameters: []types.Parameter{
				{Name: "source", Type: types.TypeString, Description: "Existing file", Required: true},
				{Name: "destination", Type: types.TypeString, Description: "Hard link path", Required: true},
				overwriteParam,
				createDirsParam,
			},
			Returns: "string",
		},
		{
			ID:          ToolCreateSymlink,
			Name:        "Create Symlink",
			Description: "Create a symbolic link; the target does not need to exist",
			Parameters: []types.Parameter{
				{Name: "target", Type: types.TypeString, Description: "Path the link points to", Required: true},
				{Name: "linkPath", Type: types.TypeString, Description: "Symlink path", Required: true},
				overwriteParam,
				createDirsParam,
			},
			Returns: "string",
		},
		{
			ID:          ToolReadSymlink,
			Name:        "Read Symlink",
			Description: "Read the target stored in a symbolic link",
			Parameters: []types.Parameter{
				{Name: "linkPath", Type: types.TypeString, Description: "Symlink path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          ToolChangePermissions,
			Name:        "Change Permissions",
			Description: "Change permission bits using a three-digit octal mode such as 644",
			Parameters: []types.Parameter{
				{Name: "path", Type: types.TypeString, Description: "File or directory path", Required: true},
				{Name: "mode", Type: types.TypeString, Description: "Octal mode, e.g. 755", Required: true},
			},
			Returns: "string",
		},
	}
}

// MoveFile handles move-file
func (o *OperationsOps) MoveFile(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return o.transfer(ctx, params, o.Move)
}

// CopyFile handles copy-file
func (o *OperationsOps) CopyFile(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return o.transfer(ctx, params, o.Copy)
}

func (o *OperationsOps) transfer(ctx context.Context, params map[string]interface{}, op transferFunc) (*types.Result, error) {
	source, err := stringParam(params, "source")
	if err != nil {
		return nil, err
	}
	destination, err := stringParam(params, "destination")
	if err != nil {
		return nil, err
	}
	res, err := op(ctx, source, destination, optionsParam(params))
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

// DeleteFile handles delete-file
func (o *OperationsOps) DeleteFile(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	res, err := o.Delete(ctx, path, boolParam(params, "force", false))
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

// RenameFile handles rename
func (o *OperationsOps) RenameFile(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	oldPath, err := stringParam(params, "oldPath")
	if err != nil {
		return nil, err
	}
	newPath, err := stringParam(params, "newPath")
	if err != nil {
		return nil, err
	}
	res, err := o.Rename(ctx, oldPath, newPath, optionsParam(params))
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

// HardLink handles create-hard-link
func (o *OperationsOps) HardLink(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return o.transfer(ctx, params, o.CreateHardLink)
}

// Symlink handles create-symlink
func (o *OperationsOps) Symlink(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	target, err := stringParam(params, "target")
	if err != nil {
		return nil, err
	}
	linkPath, err := stringParam(params, "linkPath")
	if err != nil {
		return nil, err
	}
	res, err := o.CreateSymlink(ctx, target, linkPath, optionsParam(params))
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

// Readlink handles read-symlink
func (o *OperationsOps) Readlink(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	linkPath, err := stringParam(params, "linkPath")
	if err != nil {
		return nil, err
	}
	target, err := o.ReadSymlink(ctx, linkPath)
	if err != nil {
		return nil, err
	}
	return types.Text(target), nil
}

// Chmod handles change-permissions
func (o *OperationsOps) Chmod(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	mode, err := stringParam(params, "mode")
	if err != nil {
		return nil, err
	}
	res, err := o.ChangePermissions(ctx, path, mode)
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}
