package filesystem

import (
	"context"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// ListDirectory returns the entries of path, directories first then by name. Hidden
// entries are skipped unless showHidden is set.
func (ops *FilesystemOps) ListDirectory(ctx context.Context, path string, showHidden, details bool) ([]DirEntry, error) {
	dir, err := ops.requireDirectory(path, true)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fserrors.FromOS("list directory", dir, err)
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		if !showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		entry := DirEntry{Name: e.Name(), Type: entryType(e.Type())}
		if details {
			if info, err := e.Info(); err == nil {
				size := info.Size()
				mtime := info.ModTime()
				entry.Size = &size
				entry.Mode = formatPerm(info.Mode())
				entry.ModifiedAt = &mtime
			}
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Type == EntryDirectory, out[j].Type == EntryDirectory
		if di != dj {
			return di
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func entryType(mode fs.FileMode) string {
	switch {
	case mode.IsDir():
		return EntryDirectory
	case mode&fs.ModeSymlink != 0:
		return EntrySymlink
	case mode.IsRegular():
		return EntryFile
	default:
		return EntryOther
	}
}

// CreateDirectory creates path. With recursive missing parents are created and an
// existing directory is not an error.
func (ops *FilesystemOps) CreateDirectory(ctx context.Context, path string, recursive bool) (*OperationResult, error) {
	dir, err := ops.Auth.Authorize(path)
	if err != nil {
		return nil, err
	}
	info, err := lstat(dir)
	if err != nil {
		return nil, err
	}
	if info != nil {
		if !info.IsDir() {
			return nil, fserrors.New(fserrors.KindFileAlreadyExists, "a file already exists at "+dir).WithPath(dir)
		}
		if !recursive {
			return nil, fserrors.New(fserrors.KindFileAlreadyExists, "directory already exists: "+dir).WithPath(dir)
		}
		return success("Directory already exists: "+dir, map[string]interface{}{"path": dir, "created": false}), nil
	}

	if recursive {
		err = os.MkdirAll(dir, 0o755)
	} else {
		err = os.Mkdir(dir, 0o755)
	}
	if err != nil {
		if !recursive && os.IsNotExist(err) {
			return nil, fserrors.New(fserrors.KindFileNotFound,
				"parent directory does not exist (set recursive=true to create it): "+dir).WithPath(dir)
		}
		return nil, fserrors.FromOS("create directory", dir, err)
	}
	return success("Created directory "+dir, map[string]interface{}{"path": dir, "created": true}), nil
}

// DeleteDirectory removes a directory. Without recursive it must be empty. Recursive
// removal is a force-class action: it needs force, policy approval and confirmation.
// Allowed roots are never removed.
func (ops *FilesystemOps) DeleteDirectory(ctx context.Context, path string, recursive, force bool) (*OperationResult, error) {
	dir, err := ops.requireDirectory(path, false)
	if err != nil {
		return nil, err
	}
	if ops.Policy().IsAllowedRoot(dir) {
		return nil, fserrors.New(fserrors.KindPermissionDenied, "cannot delete an allowed root directory: "+dir).WithPath(dir)
	}

	if s := ops.Classifier.Classify(dir); s.Risky() && !force {
		return nil, fserrors.Newf(fserrors.KindPermissionDenied,
			"refusing to delete %s (%s): set force=true to delete it anyway", dir, s.Reason).WithPath(dir)
	}

	if !recursive {
		empty, err := isEmptyDir(dir)
		if err != nil {
			return nil, err
		}
		if !empty {
			return nil, fserrors.New(fserrors.KindDirectoryNotEmpty,
				"directory is not empty (use recursive=true with force=true): "+dir).WithPath(dir)
		}
		if force {
			if err := ops.Guard.AuthorizeForce(ctx, "force delete of directory "+dir, []string{dir}); err != nil {
				return nil, err
			}
		}
		if err := os.Remove(dir); err != nil {
			return nil, fserrors.FromOS("delete directory", dir, err)
		}
		return success("Deleted directory "+dir, map[string]interface{}{"path": dir}), nil
	}

	if !force {
		return nil, fserrors.New(fserrors.KindPermissionDenied,
			"recursive delete requires force=true: "+dir).WithPath(dir)
	}
	if err := ops.Guard.AuthorizeForce(ctx, "recursive delete of directory "+dir+" and everything in it", []string{dir}); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fserrors.FromOS("delete directory", dir, err)
	}
	ops.Logger.Info("Directory deleted recursively", zap.String("path", dir))
	return success("Deleted directory "+dir+" recursively", map[string]interface{}{"path": dir, "recursive": true}), nil
}

// ListAllowedDirectories returns the configured allow-list.
func (ops *FilesystemOps) ListAllowedDirectories() []string {
	return ops.Policy().AllowedDirectories()
}

// requireDirectory authorizes path and checks it is an existing directory. Links are
// followed only when follow is set.
func (ops *FilesystemOps) requireDirectory(path string, follow bool) (string, error) {
	authorize := ops.Auth.AuthorizeNoFollow
	if follow {
		authorize = ops.Auth.Authorize
	}
	dir, err := authorize(path)
	if err != nil {
		return "", err
	}

	stat := os.Lstat
	if follow {
		stat = os.Stat
	}
	info, err := stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fserrors.New(fserrors.KindFileNotFound, "directory not found: "+dir).WithPath(dir)
		}
		return "", fserrors.FromOS("stat", dir, err)
	}
	if !info.IsDir() {
		return "", fserrors.New(fserrors.KindInvalidOperation, "not a directory: "+dir).WithPath(dir)
	}
	return dir, nil
}

func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, fserrors.FromOS("open", dir, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, fserrors.FromOS("read directory", dir, err)
	}
	return false, nil
}
