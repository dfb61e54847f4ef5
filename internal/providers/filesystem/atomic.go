package filesystem

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// tempName returns a hidden sibling of path with a random suffix.
func tempName(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()[:8]+".tmp")
}

// AtomicWrite streams r into a temporary file next to path and renames it over path.
// Readers see either the previous content or the new content, never a partial file.
// The temporary file is removed on any failure.
func AtomicWrite(ctx context.Context, path string, r io.Reader, perm fs.FileMode) (err error) {
	tmp := tempName(path)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fserrors.Wrap(fserrors.KindOperationFailed, err, "atomic write failed: "+path).WithPath(path)
	}

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
			err = fserrors.Wrap(fserrors.KindOperationFailed, err, "atomic write failed: "+path).
				WithPath(path).WithDetail("temp", tmp)
		}
	}()

	if _, err = io.Copy(f, &ctxReader{ctx: ctx, r: r}); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// OpenFile applies the umask.
	if err = os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// AtomicWrite authorizes path and writes r to it atomically.
func (ops *FilesystemOps) AtomicWrite(ctx context.Context, path string, r io.Reader, perm fs.FileMode) error {
	target, err := ops.Auth.Authorize(path)
	if err != nil {
		return err
	}
	return AtomicWrite(ctx, target, r, perm)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// copyFile copies a regular file atomically, preserving its permission bits.
func copyFile(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fserrors.FromOS("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fserrors.FromOS("stat", src, err)
	}
	if !info.Mode().IsRegular() {
		return fserrors.New(fserrors.KindInvalidOperation, "not a regular file: "+src).WithPath(src)
	}
	return AtomicWrite(ctx, dst, in, info.Mode().Perm())
}

// copyTree copies the directory src to dst. Symlinks are recreated as links, not
// followed. Entries are copied concurrently.
func copyTree(ctx context.Context, src, dst string) error {
	if within(src, dst) {
		return fserrors.New(fserrors.KindInvalidOperation,
			"cannot copy a directory into itself: "+src+" -> "+dst).WithPath(dst)
	}

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return copyFile(ctx, path, target)
		default:
			// Sockets, devices and pipes are skipped.
			return nil
		}
	})
	if err != nil {
		return fserrors.Wrap(fserrors.KindOperationFailed, err, "directory copy failed: "+src+" -> "+dst).WithPath(dst)
	}
	return nil
}

// copyPath copies a file or a directory tree.
func copyPath(ctx context.Context, src, dst string, info fs.FileInfo) error {
	if info.IsDir() {
		return copyTree(ctx, src, dst)
	}
	return copyFile(ctx, src, dst)
}
