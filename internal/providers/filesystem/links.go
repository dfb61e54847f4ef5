package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

const windowsSymlinkHint = "creating symbolic links on Windows requires Developer Mode or an elevated (administrator) process"

// CreateHardLink links destination to the regular file source. Directories are always
// rejected.
func (ops *FilesystemOps) CreateHardLink(ctx context.Context, source, destination string, opts Options) (*OperationResult, error) {
	src, dst, err := ops.authorizePair(source, destination)
	if err != nil {
		return nil, err
	}
	if _, err := requireSource(src); err != nil {
		return nil, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, fserrors.FromOS("stat", src, err)
	}
	if info.IsDir() {
		return nil, fserrors.New(fserrors.KindInvalidOperation,
			"hard links to directories are not allowed: "+src).WithPath(src)
	}

	if err := ops.replaceLinkDestination(dst, opts); err != nil {
		return nil, err
	}
	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return nil, fserrors.Wrap(fserrors.KindOperationFailed, err,
				"hard links cannot span filesystems: "+src+" -> "+dst).WithPath(dst)
		}
		return nil, fserrors.FromOS("create hard link", dst, err)
	}

	return success(fmt.Sprintf("Created hard link %s -> %s", dst, src), map[string]interface{}{
		"source":      src,
		"destination": dst,
	}), nil
}

// CreateSymlink creates linkPath pointing at target. The target need not exist but
// must resolve inside the allowed directories. A relative target is interpreted
// relative to the link's directory and stored as given.
func (ops *FilesystemOps) CreateSymlink(ctx context.Context, target, linkPath string, opts Options) (*OperationResult, error) {
	link, err := ops.Auth.AuthorizeNoFollow(linkPath)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fserrors.New(fserrors.KindValidation, "symlink target cannot be empty")
	}
	absTarget := target
	if !filepath.IsAbs(target) {
		absTarget = filepath.Join(filepath.Dir(link), target)
	}
	resolved, err := ops.Auth.Authorize(absTarget)
	if err != nil {
		return nil, err
	}

	if err := ops.replaceLinkDestination(link, opts); err != nil {
		return nil, err
	}

	stored := target
	if filepath.IsAbs(target) {
		stored = resolved
	}
	if ops.goos == "windows" {
		stored, err = symlinkWindows(resolved, link)
	} else {
		err = os.Symlink(stored, link)
	}
	if err != nil {
		return nil, err
	}

	return success(fmt.Sprintf("Created symlink %s -> %s", link, stored), map[string]interface{}{
		"target":   stored,
		"linkPath": link,
	}), nil
}

// symlinkWindows tries a relative link first, then an absolute one.
func symlinkWindows(target, link string) (string, error) {
	if rel, err := filepath.Rel(filepath.Dir(link), target); err == nil {
		if err := os.Symlink(rel, link); err == nil {
			return rel, nil
		}
	}
	if err := os.Symlink(target, link); err != nil {
		return "", fserrors.Wrap(fserrors.KindPermissionDenied, err,
			"cannot create symlink "+link+": "+windowsSymlinkHint).WithPath(link)
	}
	return target, nil
}

// ReadSymlink returns the target stored in the link, unresolved.
func (ops *FilesystemOps) ReadSymlink(ctx context.Context, linkPath string) (string, error) {
	link, err := ops.Auth.AuthorizeNoFollow(linkPath)
	if err != nil {
		return "", err
	}
	info, err := lstat(link)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", fserrors.New(fserrors.KindFileNotFound, "symlink not found: "+link).WithPath(link)
	}
	if !isSymlink(info) {
		return "", fserrors.New(fserrors.KindInvalidOperation, "not a symbolic link: "+link).WithPath(link)
	}
	target, err := os.Readlink(link)
	if err != nil {
		return "", fserrors.FromOS("read symlink", link, err)
	}
	return target, nil
}

// replaceLinkDestination enforces the overwrite rule for a new link. An existing file
// or link is removed when overwrite is set; an existing directory never is.
func (ops *FilesystemOps) replaceLinkDestination(path string, opts Options) error {
	existing, err := prepareDestination(path, opts)
	if err != nil || existing == nil {
		return err
	}
	if existing.IsDir() {
		return fserrors.New(fserrors.KindInvalidOperation,
			"destination is a directory and cannot be replaced by a link: "+path).WithPath(path)
	}
	if err := os.Remove(path); err != nil {
		return fserrors.FromOS("remove existing destination", path, err)
	}
	return nil
}
