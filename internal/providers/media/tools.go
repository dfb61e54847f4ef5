package media

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/GriffinCanCode/fsguard/internal/providers/filesystem"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Tool names
const (
	ToolReadMetadata     = "read-metadata"
	ToolWriteMetadata    = "write-metadata"
	ToolDeleteMetadata   = "delete-metadata"
	ToolExtractThumbnail = "extract-thumbnail"
	ToolExtractPreview   = "extract-preview"
)

var (
	pathParam = types.Parameter{Name: "path", Type: types.TypeString, Description: "Media file path", Required: true}
	outParam  = types.Parameter{Name: "outputPath", Type: types.TypeString, Description: "File to write the image to", Required: true}
	overParam = types.Parameter{Name: "overwrite", Type: types.TypeBoolean, Default: false, Description: "Replace existing values or files"}
	dirsParam = types.Parameter{Name: "createDirs", Type: types.TypeBoolean, Default: true, Description: "Create missing parent directories of the output"}
)

func (p *Provider) tools() []types.Tool {
	return []types.Tool{
		{
			ID:          ToolReadMetadata,
			Name:        "Read Metadata",
			Description: "Read embedded EXIF, IPTC and XMP metadata",
			Parameters:  []types.Parameter{pathParam},
			Returns:     "object",
		},
		{
			ID:          ToolWriteMetadata,
			Name:        "Write Metadata",
			Description: "Set metadata tags; replacing existing values needs overwrite and confirmation",
			Parameters: []types.Parameter{
				pathParam,
				{Name: "tags", Type: types.TypeObject, Description: "Tag names mapped to new values", Required: true},
				overParam,
			},
			Returns:     "string",
			Destructive: true,
		},
		{
			ID:          ToolDeleteMetadata,
			Name:        "Delete Metadata",
			Description: "Remove metadata tags after confirmation",
			Parameters: []types.Parameter{
				pathParam,
				{Name: "tags", Type: types.TypeArray, Items: types.TypeString, Description: "Tag names to remove", Required: true},
			},
			Returns:     "string",
			Destructive: true,
		},
		{
			ID:          ToolExtractThumbnail,
			Name:        "Extract Thumbnail",
			Description: "Save the embedded thumbnail image to a file",
			Parameters:  []types.Parameter{pathParam, outParam, overParam, dirsParam},
			Returns:     "string",
		},
		{
			ID:          ToolExtractPreview,
			Name:        "Extract Preview",
			Description: "Save the embedded preview image to a file",
			Parameters:  []types.Parameter{pathParam, outParam, overParam, dirsParam},
			Returns:     "string",
		},
	}
}

func (p *Provider) read(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	tags, err := p.ops.ReadMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	return &types.Result{Text: formatTags(path, tags), Data: tags}, nil
}

func (p *Provider) write(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	raw, ok := params["tags"].(map[string]interface{})
	if !ok {
		return nil, fserrors.New(fserrors.KindValidation, "tags parameter required (object of tag values)")
	}
	tags := make(map[string]string, len(raw))
	for k, v := range raw {
		tags[k] = fmt.Sprint(v)
	}
	overwrite, _ := params["overwrite"].(bool)

	res, err := p.ops.WriteMetadata(ctx, path, tags, overwrite)
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

func (p *Provider) delete(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	tags, err := stringsParam(params, "tags")
	if err != nil {
		return nil, err
	}
	res, err := p.ops.DeleteMetadata(ctx, path, tags)
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

type extractFunc func(ctx context.Context, path, output string, opts filesystem.Options) (*filesystem.OperationResult, error)

func (p *Provider) extract(ctx context.Context, params map[string]interface{}, fn extractFunc) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	output, err := stringParam(params, "outputPath")
	if err != nil {
		return nil, err
	}
	opts := filesystem.DefaultOptions()
	if v, ok := params["overwrite"].(bool); ok {
		opts.Overwrite = v
	}
	if v, ok := params["createDirs"].(bool); ok {
		opts.CreateDirs = v
	}

	res, err := fn(ctx, path, output, opts)
	if err != nil {
		return nil, err
	}
	return types.Text("✅ " + res.Message), nil
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fserrors.New(fserrors.KindValidation, name+" parameter required")
	}
	return v, nil
}

func stringsParam(params map[string]interface{}, name string) ([]string, error) {
	switch v := params[name].(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fserrors.New(fserrors.KindValidation, name+" must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fserrors.New(fserrors.KindValidation, name+" parameter required (array of strings)")
	}
}

// formatTags renders tags one per line, sorted by name.
func formatTags(path string, tags Tags) string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📷 %s (%d tags)", path, len(names))
	for _, k := range names {
		fmt.Fprintf(&sb, "\n  %s: %v", k, tags[k])
	}
	return sb.String()
}
