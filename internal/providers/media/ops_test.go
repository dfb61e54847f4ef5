package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsguard/internal/confirm"
	"github.com/GriffinCanCode/fsguard/internal/providers/filesystem"
	"github.com/GriffinCanCode/fsguard/internal/security"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// MockEngine is a mock implementation of Engine for testing.
type MockEngine struct {
	mock.Mock
}

// Read mocks the Read method.
func (m *MockEngine) Read(ctx context.Context, path string) (Tags, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Tags), args.Error(1)
}

// Write mocks the Write method.
func (m *MockEngine) Write(ctx context.Context, path string, tags map[string]string) error {
	return m.Called(ctx, path, tags).Error(0)
}

// Delete mocks the Delete method.
func (m *MockEngine) Delete(ctx context.Context, path string, tags []string) error {
	return m.Called(ctx, path, tags).Error(0)
}

// Binary mocks the Binary method.
func (m *MockEngine) Binary(ctx context.Context, path, tag string) ([]byte, error) {
	args := m.Called(ctx, path, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mediaFixture struct {
	root    string
	photo   string
	engine  *MockEngine
	fs      *filesystem.FilesystemOps
	ops     *MediaOps
	prompts int
}

func newMediaFixture(t *testing.T, accept bool) *mediaFixture {
	t.Helper()
	root := t.TempDir()
	photo := filepath.Join(root, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg"), 0o644))

	opts := security.DefaultPolicyOptions()
	opts.AllowedDirectories = []string{root}
	policy := security.MustPolicy(opts)

	f := &mediaFixture{root: root, photo: photo, engine: new(MockEngine)}
	provider := confirm.ProviderFunc(func(context.Context, confirm.Request) (*confirm.Response, error) {
		f.prompts++
		if !accept {
			return &confirm.Response{Action: confirm.ActionDecline}, nil
		}
		return &confirm.Response{Action: confirm.ActionAccept, Content: map[string]interface{}{
			confirm.FieldConfirmRisk:   true,
			confirm.FieldConfirmBackup: true,
		}}, nil
	})
	f.fs = filesystem.NewOps(security.NewAuthorizer(policy), confirm.NewGuard(policy, provider), nil)
	f.ops = NewOps(f.fs, f.engine, nil)
	return f
}

func assertKind(t *testing.T, err error, kind fserrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind.String(), fserrors.KindOf(err).String(), "error: %v", err)
}

func TestReadMetadata(t *testing.T) {
	f := newMediaFixture(t, true)
	f.engine.On("Read", mock.Anything, f.photo).Return(Tags{"Artist": "Ada", "ISO": float64(200)}, nil)

	tags, err := f.ops.ReadMetadata(context.Background(), f.photo)
	require.NoError(t, err)
	assert.Equal(t, "Ada", tags["Artist"])

	_, err = f.ops.ReadMetadata(context.Background(), filepath.Join(f.root, "missing.jpg"))
	assertKind(t, err, fserrors.KindFileNotFound)

	_, err = f.ops.ReadMetadata(context.Background(), f.root)
	assertKind(t, err, fserrors.KindInvalidOperation)

	_, err = f.ops.ReadMetadata(context.Background(), "/etc/passwd")
	assertKind(t, err, fserrors.KindPathNotAllowed)

	f.engine.AssertNumberOfCalls(t, "Read", 1)
}

func TestWriteMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("new tags skip confirmation", func(t *testing.T) {
		f := newMediaFixture(t, false)
		tags := map[string]string{"Artist": "Ada"}
		f.engine.On("Read", mock.Anything, f.photo).Return(Tags{"Model": "X100"}, nil)
		f.engine.On("Write", mock.Anything, f.photo, tags).Return(nil)

		_, err := f.ops.WriteMetadata(ctx, f.photo, tags, false)
		require.NoError(t, err)
		assert.Zero(t, f.prompts)
		f.engine.AssertExpectations(t)
	})

	t.Run("existing tag needs overwrite", func(t *testing.T) {
		f := newMediaFixture(t, true)
		f.engine.On("Read", mock.Anything, f.photo).Return(Tags{"Artist": "Grace"}, nil)

		_, err := f.ops.WriteMetadata(ctx, f.photo, map[string]string{"EXIF:artist": "Ada"}, false)
		assertKind(t, err, fserrors.KindInvalidOperation)
		assert.Contains(t, err.Error(), "EXIF:artist")
		f.engine.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("overwrite declined", func(t *testing.T) {
		f := newMediaFixture(t, false)
		f.engine.On("Read", mock.Anything, f.photo).Return(Tags{"Artist": "Grace"}, nil)

		_, err := f.ops.WriteMetadata(ctx, f.photo, map[string]string{"Artist": "Ada"}, true)
		assertKind(t, err, fserrors.KindPermissionDenied)
		assert.Equal(t, 1, f.prompts)
		f.engine.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("overwrite confirmed", func(t *testing.T) {
		f := newMediaFixture(t, true)
		tags := map[string]string{"Artist": "Ada"}
		f.engine.On("Read", mock.Anything, f.photo).Return(Tags{"Artist": "Grace"}, nil)
		f.engine.On("Write", mock.Anything, f.photo, tags).Return(nil)

		res, err := f.ops.WriteMetadata(ctx, f.photo, tags, true)
		require.NoError(t, err)
		assert.Equal(t, 1, f.prompts)
		assert.Contains(t, res.Message, "Wrote 1 tag(s)")
	})

	t.Run("validation", func(t *testing.T) {
		f := newMediaFixture(t, true)
		_, err := f.ops.WriteMetadata(ctx, f.photo, nil, false)
		assertKind(t, err, fserrors.KindValidation)

		_, err = f.ops.WriteMetadata(ctx, f.photo, map[string]string{"-o": "/tmp/x"}, false)
		assertKind(t, err, fserrors.KindValidation)
		f.engine.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
	})
}

func TestDeleteMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		f := newMediaFixture(t, true)
		f.engine.On("Delete", mock.Anything, f.photo, []string{"GPSLatitude", "GPSLongitude"}).Return(nil)

		_, err := f.ops.DeleteMetadata(ctx, f.photo, []string{"GPSLatitude", "GPSLongitude"})
		require.NoError(t, err)
		assert.Equal(t, 1, f.prompts)
		f.engine.AssertExpectations(t)
	})

	t.Run("declined", func(t *testing.T) {
		f := newMediaFixture(t, false)
		_, err := f.ops.DeleteMetadata(ctx, f.photo, []string{"Artist"})
		assertKind(t, err, fserrors.KindPermissionDenied)
		f.engine.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no tags", func(t *testing.T) {
		f := newMediaFixture(t, true)
		_, err := f.ops.DeleteMetadata(ctx, f.photo, nil)
		assertKind(t, err, fserrors.KindValidation)
		assert.Zero(t, f.prompts)
	})

	t.Run("confirmation disabled by policy", func(t *testing.T) {
		f := newMediaFixture(t, false)
		opts := security.DefaultPolicyOptions()
		opts.AllowedDirectories = []string{f.root}
		opts.ForceDeleteRequiresConfirmation = false
		policy := security.MustPolicy(opts)
		f.fs.Guard = confirm.NewGuard(policy, confirm.FailClosed{})
		f.engine.On("Delete", mock.Anything, f.photo, []string{"Artist"}).Return(nil)

		_, err := f.ops.DeleteMetadata(ctx, f.photo, []string{"Artist"})
		require.NoError(t, err)
	})
}

func TestExtractThumbnail(t *testing.T) {
	ctx := context.Background()

	t.Run("writes image", func(t *testing.T) {
		f := newMediaFixture(t, true)
		out := filepath.Join(f.root, "thumbs", "photo.jpg")
		f.engine.On("Binary", mock.Anything, f.photo, TagThumbnail).Return([]byte{0xff, 0xd8, 0xff}, nil)

		res, err := f.ops.ExtractThumbnail(ctx, f.photo, out, filesystem.DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 3, res.Details["bytes"])

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	})

	t.Run("existing output", func(t *testing.T) {
		f := newMediaFixture(t, true)
		out := filepath.Join(f.root, "thumb.jpg")
		require.NoError(t, os.WriteFile(out, []byte("old"), 0o644))

		_, err := f.ops.ExtractThumbnail(ctx, f.photo, out, filesystem.DefaultOptions())
		assertKind(t, err, fserrors.KindFileAlreadyExists)
		f.engine.AssertNotCalled(t, "Binary", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no embedded image", func(t *testing.T) {
		f := newMediaFixture(t, true)
		f.engine.On("Binary", mock.Anything, f.photo, TagPreview).Return(nil, nil)

		_, err := f.ops.ExtractPreview(ctx, f.photo, filepath.Join(f.root, "p.jpg"), filesystem.DefaultOptions())
		assertKind(t, err, fserrors.KindInvalidOperation)
		assert.NoFileExists(t, filepath.Join(f.root, "p.jpg"))
	})

	t.Run("engine failure", func(t *testing.T) {
		f := newMediaFixture(t, true)
		boom := fserrors.Wrap(fserrors.KindOperationFailed, errors.New("exit status 2"), "exiftool failed")
		f.engine.On("Binary", mock.Anything, f.photo, TagThumbnail).Return(nil, boom)

		_, err := f.ops.ExtractThumbnail(ctx, f.photo, filepath.Join(f.root, "t.jpg"), filesystem.DefaultOptions())
		assertKind(t, err, fserrors.KindOperationFailed)
	})

	t.Run("failed extraction leaves no directories", func(t *testing.T) {
		f := newMediaFixture(t, true)
		f.engine.On("Binary", mock.Anything, f.photo, TagPreview).Return(nil, nil)
		f.engine.On("Binary", mock.Anything, f.photo, TagThumbnail).
			Return(nil, fserrors.New(fserrors.KindOperationFailed, "exiftool failed"))

		_, err := f.ops.ExtractPreview(ctx, f.photo, filepath.Join(f.root, "previews", "p.jpg"), filesystem.DefaultOptions())
		assertKind(t, err, fserrors.KindInvalidOperation)
		assert.NoDirExists(t, filepath.Join(f.root, "previews"))

		_, err = f.ops.ExtractThumbnail(ctx, f.photo, filepath.Join(f.root, "thumbs", "deep", "t.jpg"), filesystem.DefaultOptions())
		assertKind(t, err, fserrors.KindOperationFailed)
		assert.NoDirExists(t, filepath.Join(f.root, "thumbs"))
	})

	t.Run("missing parent without createDirs", func(t *testing.T) {
		f := newMediaFixture(t, true)
		opts := filesystem.DefaultOptions()
		opts.CreateDirs = false

		_, err := f.ops.ExtractThumbnail(ctx, f.photo, filepath.Join(f.root, "nope", "t.jpg"), opts)
		assertKind(t, err, fserrors.KindFileNotFound)
		f.engine.AssertNotCalled(t, "Binary", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("output outside allowed directories", func(t *testing.T) {
		f := newMediaFixture(t, true)
		_, err := f.ops.ExtractThumbnail(ctx, f.photo, filepath.Join(t.TempDir(), "t.jpg"), filesystem.DefaultOptions())
		assertKind(t, err, fserrors.KindPathNotAllowed)
	})
}

func TestProvider(t *testing.T) {
	f := newMediaFixture(t, true)
	p := NewProvider(f.ops)

	def := p.Definition()
	assert.Equal(t, "media", def.ID)
	assert.Len(t, def.Tools, 5)

	f.engine.On("Read", mock.Anything, f.photo).Return(Tags{"Model": "X100", "Artist": "Ada"}, nil)
	res, err := p.Execute(context.Background(), ToolReadMetadata, map[string]interface{}{"path": f.photo}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "2 tags")
	assert.Contains(t, res.Text, "\n  Artist: Ada\n  Model: X100")

	_, err = p.Execute(context.Background(), ToolWriteMetadata, map[string]interface{}{"path": f.photo}, nil)
	assertKind(t, err, fserrors.KindValidation)

	_, err = p.Execute(context.Background(), "strip-everything", nil, nil)
	assert.Error(t, err)
}
