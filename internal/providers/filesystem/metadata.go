package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

var octalMode = regexp.MustCompile(`^[0-7]{3}$`)

// Stat returns a fresh FileInfo for path. Links are followed for size, type and times;
// IsSymlink and LinkTarget describe the link itself.
func (ops *FilesystemOps) Stat(ctx context.Context, path string) (*FileInfo, error) {
	target, err := ops.Auth.Authorize(path)
	if err != nil {
		return nil, err
	}
	linfo, err := lstat(target)
	if err != nil {
		return nil, err
	}
	if linfo == nil {
		return nil, fserrors.New(fserrors.KindFileNotFound, "file not found: "+target).WithPath(target)
	}

	info := linfo
	fi := &FileInfo{Path: target}
	if isSymlink(linfo) {
		fi.IsSymlink = true
		if dest, err := os.Readlink(target); err == nil {
			fi.LinkTarget = dest
		}
		if followed, err := os.Stat(target); err == nil {
			info = followed
		}
	}

	fi.Name = filepath.Base(target)
	if !info.IsDir() {
		fi.Extension = strings.TrimPrefix(filepath.Ext(target), ".")
	}
	fi.Size = info.Size()
	fi.SizeHuman = formatBytes(info.Size())
	fi.IsDirectory = info.IsDir()
	fi.IsFile = info.Mode().IsRegular()
	fi.Permissions = formatPerm(info.Mode())
	fi.ModifiedAt = info.ModTime()
	fi.CreatedAt, fi.AccessedAt = fileTimes(target, info)

	if fi.IsFile {
		if mtype, err := mimetype.DetectFile(target); err == nil {
			fi.MimeType = mtype.String()
		}
	}
	return fi, nil
}

// ChangePermissions applies a three-digit octal mode such as "644".
func (ops *FilesystemOps) ChangePermissions(ctx context.Context, path, mode string) (*OperationResult, error) {
	target, err := ops.Auth.Authorize(path)
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
	if !octalMode.MatchString(mode) {
		return nil, fserrors.Newf(fserrors.KindValidation,
			"invalid permission mode %q: expected three octal digits such as 644", mode).WithPath(target)
	}
	perm, _ := strconv.ParseUint(mode, 8, 32)

	if err := os.Chmod(target, fs.FileMode(perm)); err != nil {
		return nil, fserrors.FromOS("chmod", target, err)
	}
	return success(fmt.Sprintf("Changed permissions of %s to %s", target, mode), map[string]interface{}{
		"path": target,
		"mode": mode,
	}), nil
}

// DirectorySize walks path without following links and totals regular file sizes.
func (ops *FilesystemOps) DirectorySize(ctx context.Context, path string) (*DirectorySize, error) {
	root, err := ops.Auth.Authorize(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fserrors.FromOS("stat", root, err)
	}
	if !info.IsDir() {
		return nil, fserrors.New(fserrors.KindInvalidOperation, "not a directory: "+root).WithPath(root)
	}

	var bytes, files, dirs atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root {
				dirs.Add(1)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		bytes.Add(fi.Size())
		files.Add(1)
		return nil
	})
	if err != nil {
		return nil, fserrors.Wrap(fserrors.KindOperationFailed, err, "size calculation failed: "+root).WithPath(root)
	}

	return &DirectorySize{
		Path:        root,
		Bytes:       bytes.Load(),
		Files:       files.Load(),
		Directories: dirs.Load(),
		Human:       formatBytes(bytes.Load()),
	}, nil
}

func formatPerm(mode fs.FileMode) string {
	return fmt.Sprintf("%03o", mode.Perm())
}

// formatBytes formats bytes to human-readable size
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}
