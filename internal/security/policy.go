package security

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PolicyOptions describes a security policy before normalization.
type PolicyOptions struct {
	AllowedDirectories              []string
	PathTraversalProtection         bool
	AllowForceDelete                bool
	ForceDeleteRequiresConfirmation bool
	MaxFileSize                     int64    // bytes, 0 = unlimited
	BlockedExtensions               []string // ".exe", "exe" or a glob such as "*.tar.*"
}

// DefaultPolicyOptions returns the options used when nothing is configured.
func DefaultPolicyOptions() PolicyOptions {
	return PolicyOptions{
		PathTraversalProtection:         true,
		AllowForceDelete:                true,
		ForceDeleteRequiresConfirmation: true,
	}
}

type allowedDir struct {
	normalized string
	resolved   string
}

// Policy is the immutable process-wide security configuration. It is safe for
// concurrent reads.
type Policy struct {
	allowed                         []allowedDir
	pathTraversalProtection         bool
	allowForceDelete                bool
	forceDeleteRequiresConfirmation bool
	maxFileSize                     int64
	blockedPatterns                 []string
	caseInsensitive                 bool
}

// NewPolicy normalizes the options into a Policy. Allowed directories must be absolute
// after home expansion; they are cleaned and also recorded in symlink-resolved form so
// that targets reached through a linked root still match.
func NewPolicy(opts PolicyOptions) (*Policy, error) {
	p := &Policy{
		pathTraversalProtection:         opts.PathTraversalProtection,
		allowForceDelete:                opts.AllowForceDelete,
		forceDeleteRequiresConfirmation: opts.ForceDeleteRequiresConfirmation,
		maxFileSize:                     opts.MaxFileSize,
		caseInsensitive:                 runtime.GOOS == "windows",
	}
	if opts.MaxFileSize < 0 {
		return nil, fmt.Errorf("max file size cannot be negative: %d", opts.MaxFileSize)
	}

	seen := make(map[string]bool)
	for _, dir := range opts.AllowedDirectories {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		expanded, err := expandHome(dir, os.UserHomeDir)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", dir, err)
		}
		if !filepath.IsAbs(expanded) {
			return nil, fmt.Errorf("allowed directory must be absolute: %s", dir)
		}
		normalized := filepath.Clean(expanded)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		resolved := normalized
		if real, err := filepath.EvalSymlinks(normalized); err == nil {
			resolved = real
		}
		p.allowed = append(p.allowed, allowedDir{normalized: normalized, resolved: resolved})
	}

	for _, ext := range opts.BlockedExtensions {
		if pattern := extensionPattern(ext); pattern != "" {
			p.blockedPatterns = append(p.blockedPatterns, pattern)
		}
	}

	return p, nil
}

// MustPolicy is NewPolicy for static configuration in tests and examples.
func MustPolicy(opts PolicyOptions) *Policy {
	p, err := NewPolicy(opts)
	if err != nil {
		panic(err)
	}
	return p
}

// AllowedDirectories returns the normalized allow-list in configuration order.
func (p *Policy) AllowedDirectories() []string {
	dirs := make([]string, 0, len(p.allowed))
	for _, d := range p.allowed {
		dirs = append(dirs, d.normalized)
	}
	return dirs
}

// PathTraversalProtection reports whether the allow-list is enforced.
func (p *Policy) PathTraversalProtection() bool { return p.pathTraversalProtection }

// AllowForceDelete is the master switch for force-mode deletes.
func (p *Policy) AllowForceDelete() bool { return p.allowForceDelete }

// ForceDeleteRequiresConfirmation reports whether force-mode actions must be confirmed.
func (p *Policy) ForceDeleteRequiresConfirmation() bool {
	return p.forceDeleteRequiresConfirmation
}

// MaxFileSize returns the size limit in bytes, 0 meaning unlimited.
func (p *Policy) MaxFileSize() int64 { return p.maxFileSize }

// Contains reports whether path equals or descends from an allowed directory. The path
// must already be absolute and clean. An empty allow-list contains nothing.
func (p *Policy) Contains(path string) bool {
	for _, d := range p.allowed {
		if p.within(d.normalized, path) || p.within(d.resolved, path) {
			return true
		}
	}
	return false
}

// IsAllowedRoot reports whether path is itself one of the allowed directories.
func (p *Policy) IsAllowedRoot(path string) bool {
	for _, d := range p.allowed {
		if p.equal(d.normalized, path) || p.equal(d.resolved, path) {
			return true
		}
	}
	return false
}

func (p *Policy) within(root, path string) bool {
	if p.caseInsensitive {
		root, path = strings.ToLower(root), strings.ToLower(path)
	}
	if path == root {
		return true
	}
	// "/" and "C:\" already end in a separator.
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func (p *Policy) equal(a, b string) bool {
	if p.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func extensionPattern(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	switch {
	case ext == "":
		return ""
	case strings.ContainsAny(ext, "*?[{"):
		return ext
	case strings.HasPrefix(ext, "."):
		return "*" + ext
	default:
		return "*." + ext
	}
}

func expandHome(path string, home func() (string, error)) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	dir, err := home()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return dir, nil
	}
	return filepath.Join(dir, path[2:]), nil
}
