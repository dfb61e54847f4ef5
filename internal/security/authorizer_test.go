package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// workspace returns an allowed root plus a sibling directory outside it.
func workspace(t *testing.T) (allowed, outside string) {
	t.Helper()
	base := t.TempDir()
	allowed = filepath.Join(base, "work")
	outside = filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(allowed, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	return allowed, outside
}

func newTestAuthorizer(t *testing.T, dirs ...string) *Authorizer {
	t.Helper()
	opts := DefaultPolicyOptions()
	opts.AllowedDirectories = dirs
	return NewAuthorizer(MustPolicy(opts))
}

func requireKind(t *testing.T, err error, kind fserrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, fserrors.KindOf(err), "unexpected error: %v", err)
}

func TestAuthorizeContainment(t *testing.T) {
	allowed, outside := workspace(t)
	a := newTestAuthorizer(t, allowed)

	tests := []struct {
		name    string
		path    string
		wantErr fserrors.Kind
	}{
		{"root itself", allowed, fserrors.KindUnknown},
		{"child", filepath.Join(allowed, "a.txt"), fserrors.KindUnknown},
		{"nested missing child", filepath.Join(allowed, "x", "y", "z.txt"), fserrors.KindUnknown},
		{"dot segments inside", filepath.Join(allowed, "x", "..", "b.txt"), fserrors.KindUnknown},
		{"traversal out", allowed + string(filepath.Separator) + ".." + string(filepath.Separator) + "outside", fserrors.KindPathNotAllowed},
		{"sibling directory", outside, fserrors.KindPathNotAllowed},
		{"prefix lookalike", allowed + "-evil", fserrors.KindPathNotAllowed},
		{"empty", "", fserrors.KindValidation},
		{"blank", "   ", fserrors.KindValidation},
		{"null byte", filepath.Join(allowed, "a\x00b"), fserrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Authorize(tt.path)
			if tt.wantErr == fserrors.KindUnknown {
				require.NoError(t, err)
				assert.True(t, filepath.IsAbs(got))
				assert.Equal(t, filepath.Clean(got), got)
				return
			}
			requireKind(t, err, tt.wantErr)
		})
	}
}

func TestAuthorizeRelativePathUsesWorkingDirectory(t *testing.T) {
	allowed, _ := workspace(t)
	a := newTestAuthorizer(t, allowed)
	t.Chdir(allowed)

	got, err := a.Authorize("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(allowed, "notes.txt"), got)
}

func TestAuthorizeEmptyAllowListRejectsEverything(t *testing.T) {
	allowed, _ := workspace(t)
	a := newTestAuthorizer(t)

	_, err := a.Authorize(allowed)
	requireKind(t, err, fserrors.KindPathNotAllowed)
}

func TestAuthorizeProtectionDisabled(t *testing.T) {
	_, outside := workspace(t)
	opts := DefaultPolicyOptions()
	opts.PathTraversalProtection = false
	a := NewAuthorizer(MustPolicy(opts))

	got, err := a.Authorize(outside)
	require.NoError(t, err)
	assert.Equal(t, outside, got)
}

func TestAuthorizeSymlinkEscapeRejected(t *testing.T) {
	allowed, outside := workspace(t)
	secret := filepath.Join(outside, "passwd")
	require.NoError(t, os.WriteFile(secret, []byte("root"), 0o644))
	link := filepath.Join(allowed, "link")
	require.NoError(t, os.Symlink(secret, link))

	a := newTestAuthorizer(t, allowed)

	_, err := a.Authorize(link)
	requireKind(t, err, fserrors.KindSymlinkTargetInvalid)

	// The link itself may still be addressed without following it.
	got, err := a.AuthorizeNoFollow(link)
	require.NoError(t, err)
	assert.Equal(t, link, got)
}

func TestAuthorizeSymlinkInsideAllowed(t *testing.T) {
	allowed, _ := workspace(t)
	target := filepath.Join(allowed, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(allowed, "link")
	require.NoError(t, os.Symlink(target, link))

	a := newTestAuthorizer(t, allowed)
	got, err := a.Authorize(link)
	require.NoError(t, err)
	assert.Equal(t, link, got, "the link path is returned, not its target")
}

func TestAuthorizeDanglingSymlink(t *testing.T) {
	allowed, _ := workspace(t)
	link := filepath.Join(allowed, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(allowed, "missing"), link))

	a := newTestAuthorizer(t, allowed)
	_, err := a.Authorize(link)
	requireKind(t, err, fserrors.KindSymlinkTargetInvalid)
}

func TestAuthorizeParentSymlinkEscape(t *testing.T) {
	allowed, outside := workspace(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(allowed, "escape")))
	a := newTestAuthorizer(t, allowed)

	// Missing file below a linked directory: the nearest existing ancestor is checked.
	_, err := a.Authorize(filepath.Join(allowed, "escape", "new.txt"))
	requireKind(t, err, fserrors.KindPathNotAllowed)

	// Existing file below a linked directory resolves outside.
	require.NoError(t, os.WriteFile(filepath.Join(outside, "f.txt"), []byte("x"), 0o644))
	_, err = a.Authorize(filepath.Join(allowed, "escape", "f.txt"))
	requireKind(t, err, fserrors.KindSymlinkTargetInvalid)
}

func TestAuthorizeAllowedRootBehindSymlink(t *testing.T) {
	allowed, _ := workspace(t)
	alias := filepath.Join(t.TempDir(), "alias")
	require.NoError(t, os.Symlink(allowed, alias))
	require.NoError(t, os.WriteFile(filepath.Join(allowed, "a.txt"), []byte("x"), 0o644))

	a := newTestAuthorizer(t, alias)
	_, err := a.Authorize(filepath.Join(alias, "a.txt"))
	assert.NoError(t, err)
}

func TestAuthorizeHomeExpansion(t *testing.T) {
	allowed, outside := workspace(t)
	a := NewAuthorizer(
		MustPolicy(PolicyOptions{AllowedDirectories: []string{allowed}, PathTraversalProtection: true}),
		WithHomeDir(func() (string, error) { return allowed, nil }),
	)

	got, err := a.Authorize("~/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(allowed, "docs", "a.txt"), got)

	outsideHome := NewAuthorizer(
		MustPolicy(PolicyOptions{AllowedDirectories: []string{allowed}, PathTraversalProtection: true}),
		WithHomeDir(func() (string, error) { return outside, nil }),
	)
	_, err = outsideHome.Authorize("~")
	requireKind(t, err, fserrors.KindPathNotAllowed)
}

func TestAuthorizeWindowsReservedCharacters(t *testing.T) {
	allowed, _ := workspace(t)
	a := NewAuthorizer(
		MustPolicy(PolicyOptions{AllowedDirectories: []string{allowed}, PathTraversalProtection: true}),
		WithPlatform("windows"),
	)

	for _, ch := range strings.Split(windowsReservedChars, "") {
		_, err := a.Authorize(filepath.Join(allowed, "bad"+ch+"name"))
		requireKind(t, err, fserrors.KindValidation)
	}

	posix := newTestAuthorizer(t, allowed)
	_, err := posix.Authorize(filepath.Join(allowed, "fine:name"))
	assert.NoError(t, err)
}

func TestAuthorizeBlockedExtensions(t *testing.T) {
	allowed, _ := workspace(t)
	opts := DefaultPolicyOptions()
	opts.AllowedDirectories = []string{allowed}
	opts.BlockedExtensions = []string{".exe", "dll", "*.tar.*"}
	a := NewAuthorizer(MustPolicy(opts))

	for _, name := range []string{"a.exe", "B.EXE", "lib.dll", "backup.tar.gz"} {
		_, err := a.Authorize(filepath.Join(allowed, name))
		requireKind(t, err, fserrors.KindValidation)
	}
	_, err := a.Authorize(filepath.Join(allowed, "notes.txt"))
	assert.NoError(t, err)
}

func TestAuthorizeMaxFileSize(t *testing.T) {
	allowed, _ := workspace(t)
	opts := DefaultPolicyOptions()
	opts.AllowedDirectories = []string{allowed}
	opts.MaxFileSize = 4
	a := NewAuthorizer(MustPolicy(opts))

	small := filepath.Join(allowed, "small")
	big := filepath.Join(allowed, "big")
	require.NoError(t, os.WriteFile(small, []byte("1234"), 0o644))
	require.NoError(t, os.WriteFile(big, []byte("12345"), 0o644))

	_, err := a.Authorize(small)
	assert.NoError(t, err)
	_, err = a.Authorize(big)
	requireKind(t, err, fserrors.KindValidation)
}

func TestAuthorizeAllShortCircuits(t *testing.T) {
	allowed, outside := workspace(t)
	a := newTestAuthorizer(t, allowed)

	got, err := a.AuthorizeAll([]string{filepath.Join(allowed, "a"), filepath.Join(allowed, "b")})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = a.AuthorizeAll([]string{filepath.Join(allowed, "a"), outside, ""})
	requireKind(t, err, fserrors.KindPathNotAllowed)
	assert.Nil(t, got)
}

func TestDenialObserver(t *testing.T) {
	allowed, outside := workspace(t)
	var kinds []fserrors.Kind
	a := NewAuthorizer(
		MustPolicy(PolicyOptions{AllowedDirectories: []string{allowed}, PathTraversalProtection: true}),
		WithDenialObserver(func(k fserrors.Kind) { kinds = append(kinds, k) }),
	)

	_, _ = a.Authorize(outside)
	_, _ = a.Authorize("")
	assert.Equal(t, []fserrors.Kind{fserrors.KindPathNotAllowed, fserrors.KindValidation}, kinds)
}

func TestNewPolicyRejectsRelativeDirectories(t *testing.T) {
	_, err := NewPolicy(PolicyOptions{AllowedDirectories: []string{"relative/dir"}})
	assert.Error(t, err)

	_, err = NewPolicy(PolicyOptions{MaxFileSize: -1})
	assert.Error(t, err)
}

func TestPolicyAllowedRoots(t *testing.T) {
	allowed, _ := workspace(t)
	p := MustPolicy(PolicyOptions{AllowedDirectories: []string{allowed, allowed + "/", "  "}})

	assert.Equal(t, []string{allowed}, p.AllowedDirectories())
	assert.True(t, p.IsAllowedRoot(allowed))
	assert.False(t, p.IsAllowedRoot(filepath.Join(allowed, "sub")))
	assert.True(t, p.Contains(filepath.Join(allowed, "sub")))
}
