package security

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSystemPatterns match operating-system locations, relative to the filesystem
// root and in slash form.
var DefaultSystemPatterns = []string{
	"**/etc/**",
	"**/bin/**",
	"**/sbin/**",
	"boot/**",
	"usr/lib/**",
	"usr/lib64/**",
	"usr/libexec/**",
	"System/**",
	"Library/**",
	"private/etc/**",
	"private/var/db/**",
	"**/windows/**",
	"**/program files/**",
	"**/program files (x86)/**",
	"**/programdata/**",
}

// DefaultSensitiveExtensions covers config, executable, database and credential files.
var DefaultSensitiveExtensions = []string{
	".ini", ".cfg", ".conf", ".json", ".xml", ".yaml", ".yml",
	".exe", ".dll", ".sys", ".bat", ".cmd", ".ps1", ".sh", ".bash",
	".db", ".sqlite",
	".key", ".pem", ".crt", ".cert", ".p12", ".pfx",
}

// Sensitivity describes why a path is risky to delete or overwrite. The checks are
// heuristics against accidents, not a security boundary.
type Sensitivity struct {
	Sensitive bool
	ReadOnly  bool
	Reason    string
}

// Risky reports whether the path needs force to be deleted.
func (s Sensitivity) Risky() bool {
	return s.Sensitive || s.ReadOnly
}

// Classifier flags sensitive paths by location and extension.
type Classifier struct {
	patterns   []string
	extensions map[string]bool
}

// NewClassifier builds a classifier from glob patterns and extensions.
func NewClassifier(patterns, extensions []string) *Classifier {
	c := &Classifier{extensions: make(map[string]bool, len(extensions))}
	for _, p := range patterns {
		c.patterns = append(c.patterns, strings.ToLower(p))
	}
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = true
	}
	return c
}

// DefaultClassifier uses DefaultSystemPatterns and DefaultSensitiveExtensions.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultSystemPatterns, DefaultSensitiveExtensions)
}

// IsSensitive reports whether path matches a system location or sensitive extension.
func (c *Classifier) IsSensitive(path string) bool {
	_, ok := c.reason(path)
	return ok
}

func (c *Classifier) reason(path string) (string, bool) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" && c.extensions[ext] {
		return "sensitive file type " + ext, true
	}

	rel := filepath.ToSlash(path[len(filepath.VolumeName(path)):])
	rel = strings.ToLower(strings.TrimLeft(rel, "/"))
	for _, pattern := range c.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return "system location", true
		}
	}
	return "", false
}

// Classify inspects path on disk. A missing path is reported as not risky.
func (c *Classifier) Classify(path string) Sensitivity {
	var s Sensitivity
	if reason, ok := c.reason(path); ok {
		s.Sensitive = true
		s.Reason = reason
	}
	if info, err := os.Lstat(path); err == nil && IsReadOnly(info) {
		s.ReadOnly = true
		if s.Reason == "" {
			s.Reason = "read-only file"
		}
	}
	return s
}

// IsReadOnly reports whether the owner-write bit is unset. Symlinks are never read-only
// because their mode bits carry no meaning on most platforms.
func IsReadOnly(info fs.FileInfo) bool {
	if info.Mode()&fs.ModeSymlink != 0 {
		return false
	}
	return info.Mode().Perm()&0o200 == 0
}
