package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// Move renames source to destination, falling back to copy and remove when the two
// sit on different filesystems.
func (ops *FilesystemOps) Move(ctx context.Context, source, destination string, opts Options) (*OperationResult, error) {
	src, dst, err := ops.authorizePair(source, destination)
	if err != nil {
		return nil, err
	}
	info, err := requireSource(src)
	if err != nil {
		return nil, err
	}
	if src == dst {
		return nil, fserrors.New(fserrors.KindInvalidOperation, "source and destination are the same: "+src).WithPath(src)
	}
	if info.IsDir() && within(src, dst) {
		return nil, fserrors.New(fserrors.KindInvalidOperation,
			"cannot move a directory into itself: "+src+" -> "+dst).WithPath(dst)
	}

	existing, err := prepareDestination(dst, opts)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsDir() {
		return nil, fserrors.New(fserrors.KindInvalidOperation,
			"destination is a directory and cannot be overwritten by move: "+dst).WithPath(dst)
	}

	if err := os.Rename(src, dst); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return nil, fserrors.FromOS("move", src, err)
		}
		ops.Logger.Debug("Cross-device move, copying instead", zap.String("source", src), zap.String("destination", dst))
		if err := copyPath(ctx, src, dst, info); err != nil {
			return nil, err
		}
		if err := os.RemoveAll(src); err != nil {
			return nil, fserrors.FromOS("remove source after copy", src, err)
		}
	}

	return success(fmt.Sprintf("Moved %s -> %s", src, dst), map[string]interface{}{
		"source":      src,
		"destination": dst,
	}), nil
}

// Copy copies source to destination byte for byte. Files are written atomically;
// directories are copied recursively.
func (ops *FilesystemOps) Copy(ctx context.Context, source, destination string, opts Options) (*OperationResult, error) {
	src, dst, err := ops.authorizePair(source, destination)
	if err != nil {
		return nil, err
	}
	if _, err := requireSource(src); err != nil {
		return nil, err
	}
	if src == dst {
		return nil, fserrors.New(fserrors.KindInvalidOperation, "source and destination are the same: "+src).WithPath(src)
	}

	existing, err := prepareDestination(dst, opts)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsDir() {
		return nil, fserrors.New(fserrors.KindInvalidOperation,
			"destination is a directory and cannot be overwritten by copy: "+dst).WithPath(dst)
	}
	if isSymlink(existing) {
		// Replace the link itself rather than writing through it.
		if err := os.Remove(dst); err != nil {
			return nil, fserrors.FromOS("remove", dst, err)
		}
	}

	// Follow a source link to what it points at.
	info, err := os.Stat(src)
	if err != nil {
		return nil, fserrors.FromOS("stat", src, err)
	}
	if err := copyPath(ctx, src, dst, info); err != nil {
		return nil, err
	}

	return success(fmt.Sprintf("Copied %s -> %s", src, dst), map[string]interface{}{
		"source":      src,
		"destination": dst,
		"size":        info.Size(),
	}), nil
}

// Delete removes a single file or symlink. Directories are rejected. Sensitive and
// read-only files need force, and force needs policy approval and confirmation.
func (ops *FilesystemOps) Delete(ctx context.Context, path string, force bool) (*OperationResult, error) {
	target, err := ops.Auth.AuthorizeNoFollow(path)
	if err != nil {
		return nil, err
	}
	info, err := lstat(target)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fserrors.New(fserrors.KindFileNotFound, "file not found: "+target).WithPath(target)
	}
	if info.IsDir() {
		return nil, fserrors.New(fserrors.KindInvalidOperation,
			"path is a directory, use delete-directory or batch-delete instead: "+target).WithPath(target)
	}

	if s := ops.Classifier.Classify(target); s.Risky() && !force {
		return nil, fserrors.Newf(fserrors.KindPermissionDenied,
			"refusing to delete %s (%s): set force=true to delete it anyway", target, s.Reason).
			WithPath(target).WithDetail("reason", s.Reason)
	}
	if force {
		if err := ops.Guard.AuthorizeForce(ctx, "force delete of "+target, []string{target}); err != nil {
			return nil, err
		}
	}

	if err := os.Remove(target); err != nil {
		return nil, fserrors.FromOS("delete", target, err)
	}
	ops.Logger.Info("File deleted", zap.String("path", target), zap.Bool("force", force))

	return success("Deleted "+target, map[string]interface{}{"path": target, "force": force}), nil
}

// Rename renames oldPath to newPath. With overwrite an existing destination, file or
// directory, is removed first.
func (ops *FilesystemOps) Rename(ctx context.Context, oldPath, newPath string, opts Options) (*OperationResult, error) {
	src, dst, err := ops.authorizePair(oldPath, newPath)
	if err != nil {
		return nil, err
	}
	info, err := requireSource(src)
	if err != nil {
		return nil, err
	}
	if src == dst {
		return nil, fserrors.New(fserrors.KindInvalidOperation, "old and new path are the same: "+src).WithPath(src)
	}
	if info.IsDir() && within(src, dst) {
		return nil, fserrors.New(fserrors.KindInvalidOperation,
			"cannot rename a directory into itself: "+src+" -> "+dst).WithPath(dst)
	}

	existing, err := prepareDestination(dst, opts)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := ops.removeForOverwrite(dst, src, existing); err != nil {
			return nil, err
		}
	}

	if err := os.Rename(src, dst); err != nil {
		return nil, fserrors.FromOS("rename", src, err)
	}

	return success(fmt.Sprintf("Renamed %s -> %s", src, dst), map[string]interface{}{
		"oldPath": src,
		"newPath": dst,
	}), nil
}

// removeForOverwrite clears an existing destination. Allowed roots and ancestors of
// the source are never removed.
func (ops *FilesystemOps) removeForOverwrite(dst, src string, existing fs.FileInfo) error {
	if !existing.IsDir() {
		if err := os.Remove(dst); err != nil {
			return fserrors.FromOS("remove existing destination", dst, err)
		}
		return nil
	}
	if ops.Policy().IsAllowedRoot(dst) {
		return fserrors.New(fserrors.KindPermissionDenied, "cannot overwrite an allowed root directory: "+dst).WithPath(dst)
	}
	if within(dst, src) {
		return fserrors.New(fserrors.KindInvalidOperation,
			"destination contains the source and cannot be overwritten: "+dst).WithPath(dst)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fserrors.FromOS("remove existing destination", dst, err)
	}
	return nil
}
