package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/providers/filesystem"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// tagName accepts "Artist" or a group-qualified "EXIF:Artist".
var tagName = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*:)?[A-Za-z][A-Za-z0-9_-]*$`)

// MediaOps applies the filesystem authorization and confirmation rules to a
// metadata engine.
type MediaOps struct {
	fs     *filesystem.FilesystemOps
	engine Engine
	logger *zap.Logger
}

// NewOps creates the media operation core.
func NewOps(fsops *filesystem.FilesystemOps, engine Engine, logger *zap.Logger) *MediaOps {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaOps{fs: fsops, engine: engine, logger: logger}
}

// ReadMetadata returns all tags of path.
func (m *MediaOps) ReadMetadata(ctx context.Context, path string) (Tags, error) {
	src, err := m.source(path)
	if err != nil {
		return nil, err
	}
	return m.engine.Read(ctx, src)
}

// WriteMetadata sets tags on path. Replacing a tag that already has a value needs
// overwrite and a confirmed guard.
func (m *MediaOps) WriteMetadata(ctx context.Context, path string, tags map[string]string, overwrite bool) (*filesystem.OperationResult, error) {
	src, err := m.source(path)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fserrors.New(fserrors.KindValidation, "tags must contain at least one tag")
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := validateTags(names); err != nil {
		return nil, err
	}

	current, err := m.engine.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	if conflicts := existingTags(current, names); len(conflicts) > 0 {
		if !overwrite {
			return nil, fserrors.Newf(fserrors.KindInvalidOperation,
				"tags already set on %s: %s (set overwrite=true to replace them)", src, strings.Join(conflicts, ", ")).
				WithPath(src).WithDetail("tags", conflicts)
		}
		desc := fmt.Sprintf("overwrite metadata tags %s on %s", strings.Join(conflicts, ", "), src)
		if err := m.fs.Guard.Confirm(ctx, desc, []string{src}); err != nil {
			return nil, err
		}
	}

	if err := m.engine.Write(ctx, src, tags); err != nil {
		return nil, err
	}
	m.logger.Info("Metadata written", zap.String("path", src), zap.Strings("tags", names))
	return &filesystem.OperationResult{
		Success: true,
		Message: fmt.Sprintf("Wrote %d tag(s) to %s", len(names), src),
		Details: map[string]interface{}{"path": src, "tags": names},
	}, nil
}

// DeleteMetadata removes tags from path after confirmation.
func (m *MediaOps) DeleteMetadata(ctx context.Context, path string, tags []string) (*filesystem.OperationResult, error) {
	src, err := m.source(path)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fserrors.New(fserrors.KindValidation, "tags must contain at least one tag")
	}
	if err := validateTags(tags); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("delete metadata tags %s from %s", strings.Join(tags, ", "), src)
	if err := m.fs.Guard.Confirm(ctx, desc, []string{src}); err != nil {
		return nil, err
	}
	if err := m.engine.Delete(ctx, src, tags); err != nil {
		return nil, err
	}
	m.logger.Info("Metadata deleted", zap.String("path", src), zap.Strings("tags", tags))
	return &filesystem.OperationResult{
		Success: true,
		Message: fmt.Sprintf("Deleted %d tag(s) from %s", len(tags), src),
		Details: map[string]interface{}{"path": src, "tags": tags},
	}, nil
}

// ExtractThumbnail writes the embedded thumbnail of path to output.
func (m *MediaOps) ExtractThumbnail(ctx context.Context, path, output string, opts filesystem.Options) (*filesystem.OperationResult, error) {
	return m.extract(ctx, TagThumbnail, path, output, opts)
}

// ExtractPreview writes the embedded preview image of path to output.
func (m *MediaOps) ExtractPreview(ctx context.Context, path, output string, opts filesystem.Options) (*filesystem.OperationResult, error) {
	return m.extract(ctx, TagPreview, path, output, opts)
}

func (m *MediaOps) extract(ctx context.Context, tag, path, output string, opts filesystem.Options) (*filesystem.OperationResult, error) {
	src, err := m.source(path)
	if err != nil {
		return nil, err
	}
	dst, err := m.fs.CheckOutput(output, opts)
	if err != nil {
		return nil, err
	}
	if dst == src {
		return nil, fserrors.New(fserrors.KindInvalidOperation, "output path must differ from the source: "+src).WithPath(src)
	}

	data, err := m.engine.Binary(ctx, src, tag)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fserrors.Newf(fserrors.KindInvalidOperation, "%s has no embedded %s", src, tag).WithPath(src)
	}
	// Directories are created only once there is something to write.
	if dst, err = m.fs.PrepareOutput(dst, opts); err != nil {
		return nil, err
	}
	if err := filesystem.AtomicWrite(ctx, dst, bytes.NewReader(data), 0o644); err != nil {
		return nil, err
	}
	return &filesystem.OperationResult{
		Success: true,
		Message: fmt.Sprintf("Extracted %s from %s to %s (%d bytes)", tag, src, dst, len(data)),
		Details: map[string]interface{}{"source": src, "output": dst, "bytes": len(data)},
	}, nil
}

// source authorizes path and requires an existing regular file.
func (m *MediaOps) source(path string) (string, error) {
	src, err := m.fs.Auth.Authorize(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fserrors.New(fserrors.KindFileNotFound, "file not found: "+src).WithPath(src)
		}
		return "", fserrors.FromOS("stat", src, err)
	}
	if !info.Mode().IsRegular() {
		return "", fserrors.New(fserrors.KindInvalidOperation, "not a regular file: "+src).WithPath(src)
	}
	return src, nil
}

func validateTags(names []string) error {
	for _, name := range names {
		if !tagName.MatchString(name) {
			return fserrors.Newf(fserrors.KindValidation, "invalid tag name %q", name)
		}
	}
	return nil
}

// existingTags returns the requested names that already have a value. Group prefixes
// are ignored and names compare case-insensitively.
func existingTags(current Tags, names []string) []string {
	have := make(map[string]bool, len(current))
	for k, v := range current {
		if v == nil || v == "" {
			continue
		}
		have[strings.ToLower(baseTag(k))] = true
	}
	var out []string
	for _, name := range names {
		if have[strings.ToLower(baseTag(name))] {
			out = append(out, name)
		}
	}
	return out
}

func baseTag(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
