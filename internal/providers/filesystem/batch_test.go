package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

func assertCounts(t *testing.T, r *BatchOperationResult) {
	t.Helper()
	assert.Equal(t, r.TotalCount, r.SuccessCount+r.ErrorCount)
	assert.Len(t, r.Results, r.SuccessCount)
	assert.Len(t, r.Errors, r.ErrorCount)
}

// TestBatchMovePartialFailure moves one existing and one missing file
func TestBatchMovePartialFailure(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, f.path("a.txt"), "a")
	dest := f.path("dest")

	res, err := f.ops.BatchMove(context.Background(), []string{src, f.path("missing.txt")}, dest, DefaultOptions())
	require.NoError(t, err)
	assertCounts(t, res)

	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Contains(t, res.Errors[0], "not found")
	assert.Equal(t, src+" -> "+filepath.Join(dest, "a.txt"), res.Results[0])
	assert.Equal(t, "a", read(t, filepath.Join(dest, "a.txt")))
}

func TestBatchCountInvariant(t *testing.T) {
	tests := []struct {
		name    string
		sources func(t *testing.T, f *fixture) []string
		success int
	}{
		{"empty list", func(*testing.T, *fixture) []string { return nil }, 0},
		{"all valid", func(t *testing.T, f *fixture) []string {
			return []string{f.write(t, f.path("a"), "a"), f.write(t, f.path("b"), "b")}
		}, 2},
		{"mixed", func(t *testing.T, f *fixture) []string {
			return []string{f.write(t, f.path("a"), "a"), "", filepath.Join(f.outside, "x"), f.path("nope")}
		}, 1},
		{"all invalid", func(t *testing.T, f *fixture) []string {
			return []string{"", f.path("nope")}
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sources := tt.sources(t, f)

			res, err := f.ops.BatchCopy(context.Background(), sources, f.path("out"), DefaultOptions())
			require.NoError(t, err)
			assertCounts(t, res)
			assert.Equal(t, len(sources), res.TotalCount)
			assert.Equal(t, tt.success, res.SuccessCount)
		})
	}
}

func TestBatchDestinationValidation(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, f.path("a.txt"), "a")
	notDir := f.write(t, f.path("file"), "x")

	_, err := f.ops.BatchMove(context.Background(), []string{src}, notDir, DefaultOptions())
	assertKind(t, err, fserrors.KindInvalidOperation)

	_, err = f.ops.BatchMove(context.Background(), []string{src}, f.path("missing"), Options{CreateDirs: false})
	assertKind(t, err, fserrors.KindFileNotFound)

	_, err = f.ops.BatchMove(context.Background(), []string{src}, f.outside, DefaultOptions())
	assertKind(t, err, fserrors.KindPathNotAllowed)
	assert.FileExists(t, src)
}

func TestBatchCopyConflict(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, f.path("a.txt"), "new")
	f.write(t, f.path("out", "a.txt"), "old")

	res, err := f.ops.BatchCopy(context.Background(), []string{src}, f.path("out"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, "old", read(t, f.path("out", "a.txt")))

	res, err = f.ops.BatchCopy(context.Background(), []string{src}, f.path("out"), Options{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, "new", read(t, f.path("out", "a.txt")))
}

// TestBatchDeleteRejectsSensitiveBatch checks nothing is deleted when one entry is sensitive
func TestBatchDeleteRejectsSensitiveBatch(t *testing.T) {
	f := newFixture(t)
	plain := f.write(t, f.path("a.txt"), "a")
	sensitive := f.write(t, f.path("id.pem"), "key")

	_, err := f.ops.BatchDelete(context.Background(), []string{plain, sensitive}, false)
	assertKind(t, err, fserrors.KindPermissionDenied)
	assert.FileExists(t, plain)
	assert.FileExists(t, sensitive)
}

func TestBatchDeleteForce(t *testing.T) {
	t.Run("fails closed", func(t *testing.T) {
		f := newFixture(t)
		p := f.write(t, f.path("a.txt"), "a")
		_, err := f.ops.BatchDelete(context.Background(), []string{p}, true)
		assertKind(t, err, fserrors.KindPermissionDenied)
		assert.FileExists(t, p)
	})

	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t).withConfirmation(true)
		a := f.write(t, f.path("a.txt"), "a")
		key := f.write(t, f.path("id.pem"), "key")
		res, err := f.ops.BatchDelete(context.Background(), []string{a, key}, true)
		require.NoError(t, err)
		assert.Equal(t, 2, res.SuccessCount)
		assert.NoFileExists(t, a)
		assert.NoFileExists(t, key)
	})
}

func TestBatchDeleteMixedEntries(t *testing.T) {
	f := newFixture(t)
	file := f.write(t, f.path("a.txt"), "a")
	require.NoError(t, os.Mkdir(f.path("empty"), 0o755))
	f.write(t, f.path("full", "x.txt"), "x")

	res, err := f.ops.BatchDelete(context.Background(),
		[]string{file, f.path("empty"), f.path("full"), f.path("missing"), f.root}, false)
	require.NoError(t, err)
	assertCounts(t, res)

	assert.Equal(t, 5, res.TotalCount)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, []string{"deleted: " + file, "deleted: " + f.path("empty")}, res.Results)
	assert.DirExists(t, f.path("full"))
	assert.DirExists(t, f.root)
	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], f.path("full"))
	assert.Contains(t, res.Errors[0], "directory not empty")
	assert.NotContains(t, res.Errors[0], "already exists")

	report := res.Report()
	assert.Contains(t, report, "2/5 succeeded, 3 failed")
	assert.Contains(t, report, "Failed (3):")
}

func TestBatchCancelled(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, f.path("a.txt"), "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.ops.BatchMove(ctx, []string{a}, f.path("out"), DefaultOptions())
	require.NoError(t, err)
	assertCounts(t, res)
	assert.Equal(t, 1, res.ErrorCount)
	assert.FileExists(t, a)
}
