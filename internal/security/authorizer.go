package security

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// windowsReservedChars may not appear outside the volume name on Windows.
const windowsReservedChars = `<>:"|?*`

// DenialObserver is notified of every rejected authorization.
type DenialObserver func(kind fserrors.Kind)

// Authorizer resolves user-supplied paths and checks them against a Policy before any
// I/O happens.
type Authorizer struct {
	policy   *Policy
	goos     string
	home     func() (string, error)
	logger   *zap.Logger
	observer DenialObserver
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger logs denials at warn level.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authorizer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDenialObserver registers a callback for rejected paths.
func WithDenialObserver(fn DenialObserver) Option {
	return func(a *Authorizer) { a.observer = fn }
}

// WithPlatform overrides the platform family used for character validation.
func WithPlatform(goos string) Option {
	return func(a *Authorizer) { a.goos = goos }
}

// WithHomeDir overrides home directory lookup for "~" expansion.
func WithHomeDir(fn func() (string, error)) Option {
	return func(a *Authorizer) { a.home = fn }
}

// NewAuthorizer creates an authorizer bound to policy.
func NewAuthorizer(policy *Policy, opts ...Option) *Authorizer {
	a := &Authorizer{
		policy: policy,
		goos:   runtime.GOOS,
		home:   os.UserHomeDir,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the policy the authorizer enforces.
func (a *Authorizer) Policy() *Policy {
	return a.policy
}

// Authorize returns the normalized absolute form of requested once it passes every
// policy check. Existing symlinks are followed and their targets checked too; for paths
// that do not exist yet the nearest existing ancestor is checked instead.
func (a *Authorizer) Authorize(requested string) (string, error) {
	return a.authorize(requested, true)
}

// AuthorizeNoFollow authorizes a path that names a symlink itself. The link's location
// is checked but its target is not, so a link pointing outside the allow-list can still
// be read or removed.
func (a *Authorizer) AuthorizeNoFollow(requested string) (string, error) {
	return a.authorize(requested, false)
}

// AuthorizeAll authorizes every path, stopping at the first failure.
func (a *Authorizer) AuthorizeAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := a.Authorize(p)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

func (a *Authorizer) authorize(requested string, follow bool) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return "", a.deny(fserrors.New(fserrors.KindValidation, "path cannot be empty"))
	}
	if strings.ContainsRune(requested, 0) {
		return "", a.deny(fserrors.New(fserrors.KindValidation, "path contains a null byte").WithPath(requested))
	}

	expanded, err := expandHome(requested, a.home)
	if err != nil {
		return "", a.deny(fserrors.Wrap(fserrors.KindOperationFailed, err, "cannot resolve home directory").WithPath(requested))
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", a.deny(fserrors.Wrap(fserrors.KindOperationFailed, err, "cannot resolve absolute path").WithPath(requested))
	}
	normalized := filepath.Clean(abs)

	if a.goos == "windows" {
		rest := normalized[len(filepath.VolumeName(normalized)):]
		if strings.ContainsAny(rest, windowsReservedChars) {
			return "", a.deny(fserrors.Newf(fserrors.KindValidation,
				"path contains characters not allowed on Windows (%s): %s", windowsReservedChars, requested).WithPath(requested))
		}
	}

	protect := a.policy.PathTraversalProtection()
	if protect && !a.policy.Contains(normalized) {
		return "", a.deny(a.notAllowed(normalized))
	}

	info, statErr := os.Lstat(normalized)
	switch {
	case statErr == nil:
		if protect {
			if err := a.checkExisting(normalized, info, follow); err != nil {
				return "", a.deny(err)
			}
		}
	case isMissing(statErr):
		if protect {
			if err := a.checkNearestAncestor(normalized); err != nil {
				return "", a.deny(err)
			}
		}
	default:
		return "", a.deny(fserrors.FromOS("stat", normalized, statErr))
	}

	if err := a.checkExtension(normalized); err != nil {
		return "", a.deny(err)
	}
	if statErr == nil && follow && info.Mode()&fs.ModeSymlink != 0 {
		if target, err := os.Stat(normalized); err == nil {
			info = target
		}
	}
	if statErr == nil && info.Mode().IsRegular() {
		if max := a.policy.MaxFileSize(); max > 0 && info.Size() > max {
			return "", a.deny(fserrors.Newf(fserrors.KindValidation,
				"file size %d exceeds the maximum of %d bytes: %s", info.Size(), max, normalized).WithPath(normalized))
		}
	}

	return normalized, nil
}

func (a *Authorizer) checkExisting(path string, info fs.FileInfo, follow bool) *fserrors.Error {
	isLink := info.Mode()&fs.ModeSymlink != 0
	if isLink && !follow {
		return a.checkResolvedParent(path)
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		if isLink {
			return fserrors.Wrap(fserrors.KindSymlinkTargetInvalid, err,
				"symlink target cannot be resolved: "+path).WithPath(path)
		}
		return fserrors.FromOS("resolve", path, err)
	}
	if !a.policy.Contains(real) {
		return fserrors.Newf(fserrors.KindSymlinkTargetInvalid,
			"symlink target is outside the allowed directories: %s -> %s", path, real).
			WithPath(path).WithDetail("target", real)
	}
	return nil
}

// checkResolvedParent validates the real location of path's parent directory.
func (a *Authorizer) checkResolvedParent(path string) *fserrors.Error {
	parent := filepath.Dir(path)
	real, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return fserrors.Wrap(fserrors.KindSymlinkTargetInvalid, err,
			"parent directory cannot be resolved: "+parent).WithPath(path)
	}
	if !a.policy.Contains(real) {
		return a.notAllowed(path).WithDetail("parent", real)
	}
	return nil
}

// checkNearestAncestor walks up from a missing path to the first existing ancestor and
// validates its resolved form. When no ancestor exists the normalized path has already
// been checked.
func (a *Authorizer) checkNearestAncestor(path string) *fserrors.Error {
	current := path
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}
		current = parent

		if _, err := os.Lstat(current); err != nil {
			if isMissing(err) {
				continue
			}
			return fserrors.FromOS("stat", current, err)
		}

		real, err := filepath.EvalSymlinks(current)
		if err != nil {
			return fserrors.Wrap(fserrors.KindSymlinkTargetInvalid, err,
				"parent directory cannot be resolved: "+current).WithPath(path)
		}
		if !a.policy.Contains(real) {
			return fserrors.Newf(fserrors.KindPathNotAllowed,
				"parent directory is outside the allowed directories: %s", real).
				WithPath(path).WithDetail("parent", real)
		}
		return nil
	}
}

func (a *Authorizer) checkExtension(path string) *fserrors.Error {
	if len(a.policy.blockedPatterns) == 0 {
		return nil
	}
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range a.policy.blockedPatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return fserrors.Newf(fserrors.KindValidation,
				"file type is blocked by policy (%s): %s", pattern, path).WithPath(path)
		}
	}
	return nil
}

func (a *Authorizer) notAllowed(path string) *fserrors.Error {
	return fserrors.Newf(fserrors.KindPathNotAllowed,
		"access denied - path outside allowed directories: %s (allowed: %s)",
		path, strings.Join(a.policy.AllowedDirectories(), ", ")).WithPath(path)
}

func (a *Authorizer) deny(err *fserrors.Error) error {
	a.logger.Warn("Path authorization denied",
		zap.String("kind", err.Kind.String()),
		zap.String("path", err.Path),
		zap.String("reason", err.Message),
	)
	if a.observer != nil {
		a.observer(err.Kind)
	}
	return err
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
