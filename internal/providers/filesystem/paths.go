package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// lstat returns the entry at path without following links, or nil when it does not
// exist. Any other failure is returned as a tagged error.
func lstat(path string) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if err == nil {
		return info, nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return nil, nil
	}
	return nil, fserrors.FromOS("stat", path, err)
}

// exists reports whether anything, including a dangling link, is at path.
func exists(path string) bool {
	info, err := lstat(path)
	return err == nil && info != nil
}

func isSymlink(info fs.FileInfo) bool {
	return info != nil && info.Mode()&fs.ModeSymlink != 0
}

// authorizePair authorizes a source and a destination, source first. An existing
// destination is replaced rather than written through, so a link there is checked
// without following it.
func (ops *FilesystemOps) authorizePair(source, destination string) (string, string, error) {
	src, err := ops.Auth.Authorize(source)
	if err != nil {
		return "", "", err
	}
	dst, err := ops.Auth.AuthorizeNoFollow(destination)
	if err != nil {
		return "", "", err
	}
	return src, dst, nil
}

// requireSource stats an authorized source path.
func requireSource(path string) (fs.FileInfo, error) {
	info, err := lstat(path)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fserrors.New(fserrors.KindFileNotFound, "source file not found: "+path).WithPath(path)
	}
	return info, nil
}

// prepareDestination applies the overwrite and createDirs options. It returns the
// existing destination entry, if any, so callers can decide how to replace it.
func prepareDestination(path string, opts Options) (fs.FileInfo, error) {
	info, err := lstat(path)
	if err != nil {
		return nil, err
	}
	if info != nil && !opts.Overwrite {
		return nil, fserrors.New(fserrors.KindFileAlreadyExists,
			"destination already exists: "+path+" (set overwrite=true to replace it)").WithPath(path)
	}
	if err := ensureParent(path, opts.CreateDirs); err != nil {
		return nil, err
	}
	return info, nil
}

// ensureParent makes sure path's parent directory exists, creating it when allowed.
func ensureParent(path string, create bool) error {
	parent := filepath.Dir(path)
	info, err := os.Stat(parent)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fserrors.New(fserrors.KindInvalidOperation, "parent is not a directory: "+parent).WithPath(path)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return fserrors.New(fserrors.KindFileNotFound,
				"destination directory does not exist: "+parent+" (set createDirs=true to create it)").WithPath(path)
		}
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fserrors.FromOS("create directory", parent, err)
		}
		return nil
	default:
		return fserrors.FromOS("stat", parent, err)
	}
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

// CheckOutput authorizes a path that a tool will create and reports conflicts with
// opts without touching the filesystem. PrepareOutput must still run before writing.
func (ops *FilesystemOps) CheckOutput(path string, opts Options) (string, error) {
	target, err := ops.Auth.AuthorizeNoFollow(path)
	if err != nil {
		return "", err
	}
	info, err := lstat(target)
	if err != nil {
		return "", err
	}
	if err := checkOutput(target, info, opts); err != nil {
		return "", err
	}
	if !opts.CreateDirs {
		parent := filepath.Dir(target)
		if pinfo, err := os.Stat(parent); err != nil || !pinfo.IsDir() {
			return "", fserrors.New(fserrors.KindFileNotFound,
				"destination directory does not exist: "+parent+" (set createDirs=true to create it)").WithPath(target)
		}
	}
	return target, nil
}

// PrepareOutput authorizes a path that a tool is about to create, applies opts and
// returns the authorized path. An existing directory is never replaced.
func (ops *FilesystemOps) PrepareOutput(path string, opts Options) (string, error) {
	target, err := ops.Auth.AuthorizeNoFollow(path)
	if err != nil {
		return "", err
	}
	existing, err := prepareDestination(target, opts)
	if err != nil {
		return "", err
	}
	if err := checkOutput(target, existing, opts); err != nil {
		return "", err
	}
	if isSymlink(existing) {
		if err := os.Remove(target); err != nil {
			return "", fserrors.FromOS("remove link", target, err)
		}
	}
	return target, nil
}

func checkOutput(target string, existing fs.FileInfo, opts Options) error {
	if existing == nil {
		return nil
	}
	if !opts.Overwrite {
		return fserrors.New(fserrors.KindFileAlreadyExists,
			"destination already exists: "+target+" (set overwrite=true to replace it)").WithPath(target)
	}
	if existing.IsDir() {
		return fserrors.New(fserrors.KindInvalidOperation, "output path is a directory: "+target).WithPath(target)
	}
	return nil
}
