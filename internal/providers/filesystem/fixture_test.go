package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsguard/internal/confirm"
	"github.com/GriffinCanCode/fsguard/internal/security"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

type fixture struct {
	root    string
	outside string
	policy  *security.Policy
	ops     *FilesystemOps
}

// newFixture builds ops confined to a fresh allowed directory. The guard fails closed
// unless replaced with withConfirmation.
func newFixture(t *testing.T, tweak ...func(*security.PolicyOptions)) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		root:    filepath.Join(base, "work"),
		outside: filepath.Join(base, "outside"),
	}
	require.NoError(t, os.MkdirAll(f.root, 0o755))
	require.NoError(t, os.MkdirAll(f.outside, 0o755))

	opts := security.DefaultPolicyOptions()
	opts.AllowedDirectories = []string{f.root}
	for _, fn := range tweak {
		fn(&opts)
	}
	f.policy = security.MustPolicy(opts)
	f.ops = NewOps(security.NewAuthorizer(f.policy), nil, nil)
	return f
}

// withConfirmation installs a guard that answers every request with accept.
func (f *fixture) withConfirmation(accept bool) *fixture {
	provider := confirm.ProviderFunc(func(context.Context, confirm.Request) (*confirm.Response, error) {
		if !accept {
			return &confirm.Response{Action: confirm.ActionDecline}, nil
		}
		return &confirm.Response{Action: confirm.ActionAccept, Content: map[string]interface{}{
			confirm.FieldConfirmRisk:   true,
			confirm.FieldConfirmBackup: true,
		}}, nil
	})
	f.ops.Guard = confirm.NewGuard(f.policy, provider)
	return f
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.root}, parts...)...)
}

func (f *fixture) write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func assertKind(t *testing.T, err error, kind fserrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind.String(), fserrors.KindOf(err).String(), "error: %v", err)
}
