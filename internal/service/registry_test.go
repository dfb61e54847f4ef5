package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsguard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
	"github.com/GriffinCanCode/fsguard/internal/types"
)

// MockProvider is a mock service provider
type MockProvider struct {
	mock.Mock
	def types.Service
}

func (m *MockProvider) Definition() types.Service {
	return m.def
}

func (m *MockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	args := m.Called(ctx, toolID, params, appCtx)
	res, _ := args.Get(0).(*types.Result)
	return res, args.Error(1)
}

func newMockProvider(id string, category types.Category, tools ...types.Tool) *MockProvider {
	return &MockProvider{def: types.Service{
		ID:           id,
		Name:         id + " service",
		Description:  "Mock service for testing",
		Category:     category,
		Capabilities: []string{"move", "copy"},
		Tools:        tools,
	}}
}

var moveTool = types.Tool{
	ID: "move-file",
	Parameters: []types.Parameter{
		{Name: "source", Type: types.TypeString, Required: true},
		{Name: "destination", Type: types.TypeString, Required: true},
		{Name: "overwrite", Type: types.TypeBoolean, Default: false},
		{Name: "createDirs", Type: types.TypeBoolean, Default: true},
	},
}

var batchTool = types.Tool{
	ID: "batch-delete",
	Parameters: []types.Parameter{
		{Name: "paths", Type: types.TypeArray, Items: types.TypeString, Required: true},
		{Name: "force", Type: types.TypeBoolean, Default: false},
	},
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("filesystem", types.CategoryFilesystem, moveTool)))

	assert.Len(t, r.List(nil), 1)
	tool, ok := r.Tool("move-file")
	require.True(t, ok)
	assert.Equal(t, "move-file", tool.ID)

	t.Run("empty id", func(t *testing.T) {
		assert.Error(t, r.Register(newMockProvider("", types.CategoryMedia)))
	})
	t.Run("duplicate service", func(t *testing.T) {
		assert.Error(t, r.Register(newMockProvider("filesystem", types.CategoryFilesystem)))
	})
	t.Run("duplicate tool", func(t *testing.T) {
		err := r.Register(newMockProvider("other", types.CategoryMedia, moveTool))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate tool move-file")
		assert.Len(t, r.List(nil), 1, "a rejected provider registers nothing")
	})
}

func TestListAndTools(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("media", types.CategoryMedia, types.Tool{ID: "read-metadata"})))
	require.NoError(t, r.Register(newMockProvider("filesystem", types.CategoryFilesystem, moveTool, batchTool)))

	services := r.List(nil)
	require.Len(t, services, 2)
	assert.Equal(t, "filesystem", services[0].ID)

	cat := types.CategoryMedia
	assert.Len(t, r.List(&cat), 1)

	var names []string
	for _, tool := range r.Tools() {
		names = append(names, tool.ID)
	}
	assert.Equal(t, []string{"batch-delete", "move-file", "read-metadata"}, names)
}

func TestDiscover(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("filesystem", types.CategoryFilesystem, moveTool)))
	require.NoError(t, r.Register(newMockProvider("media", types.CategoryMedia)))

	results := r.Discover("move file into filesystem folder", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "filesystem", results[0].ID)

	assert.Len(t, r.Discover("move", 1), 1)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults without mutating input", func(t *testing.T) {
		p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool)
		r := NewRegistry()
		require.NoError(t, r.Register(p))

		in := map[string]interface{}{"source": "/a", "destination": "/b"}
		expected := map[string]interface{}{"source": "/a", "destination": "/b", "overwrite": false, "createDirs": true}
		p.On("Execute", ctx, "move-file", expected, mock.AnythingOfType("*types.Context")).
			Return(types.Text("✅ moved"), nil).Once()

		res := r.Execute(ctx, "move-file", in, nil)
		assert.False(t, res.IsError)
		assert.Equal(t, "✅ moved", res.Text)
		assert.Len(t, in, 2)
		p.AssertExpectations(t)
	})

	t.Run("assigns call id", func(t *testing.T) {
		p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool)
		r := NewRegistry()
		require.NoError(t, r.Register(p))

		appCtx := &types.Context{Transport: "http"}
		p.On("Execute", ctx, "move-file", mock.Anything, appCtx).Return(types.Text("ok"), nil).Once()

		r.Execute(ctx, "move-file", map[string]interface{}{"source": "/a", "destination": "/b"}, appCtx)
		assert.Regexp(t, `^call_[0-9A-Z]{26}$`, appCtx.CallID)
	})

	t.Run("validation failures never reach the provider", func(t *testing.T) {
		p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool, batchTool)
		r := NewRegistry()
		require.NoError(t, r.Register(p))

		tests := []struct {
			name   string
			tool   string
			params map[string]interface{}
			want   string
		}{
			{"missing", "move-file", map[string]interface{}{"source": "/a"}, "❌ missing required parameter: destination"},
			{"null", "move-file", map[string]interface{}{"source": "/a", "destination": nil}, "❌ missing required parameter: destination"},
			{"wrong type", "move-file", map[string]interface{}{"source": 3.0, "destination": "/b"}, "❌ parameter source must be of type string"},
			{"bool as string", "move-file", map[string]interface{}{"source": "/a", "destination": "/b", "overwrite": "yes"}, "❌ parameter overwrite must be of type boolean"},
			{"array item", "batch-delete", map[string]interface{}{"paths": []interface{}{"/a", 1.0}}, "❌ parameter paths[1] must be of type string"},
			{"array type", "batch-delete", map[string]interface{}{"paths": "/a"}, "❌ parameter paths must be of type array"},
			{"unknown tool", "format-disk", nil, "❌ unknown tool: format-disk"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res := r.Execute(ctx, tt.tool, tt.params, nil)
				assert.True(t, res.IsError)
				assert.Equal(t, tt.want, res.Text)
			})
		}
		p.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider error becomes failure envelope", func(t *testing.T) {
		p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool)
		r := NewRegistry()
		require.NoError(t, r.Register(p))

		p.On("Execute", ctx, "move-file", mock.Anything, mock.Anything).
			Return(nil, fserrors.New(fserrors.KindFileNotFound, "source not found: /a")).Once()

		res := r.Execute(ctx, "move-file", map[string]interface{}{"source": "/a", "destination": "/b"}, nil)
		assert.Equal(t, &types.Result{Text: "❌ source not found: /a", IsError: true}, res)
	})

	t.Run("structured data is rendered as json", func(t *testing.T) {
		p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool)
		r := NewRegistry()
		require.NoError(t, r.Register(p))

		p.On("Execute", ctx, "move-file", mock.Anything, mock.Anything).
			Return(types.Structured(map[string]interface{}{"size": 11}), nil).Once()

		res := r.Execute(ctx, "move-file", map[string]interface{}{"source": "/a", "destination": "/b"}, nil)
		assert.False(t, res.IsError)
		assert.JSONEq(t, `{"size": 11}`, res.Text)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool)
		r := NewRegistry()
		require.NoError(t, r.Register(p))

		p.On("Execute", ctx, "move-file", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { panic("boom") }).Return(nil, nil).Once()

		var res *types.Result
		require.NotPanics(t, func() {
			res = r.Execute(ctx, "move-file", map[string]interface{}{"source": "/a", "destination": "/b"}, nil)
		})
		assert.True(t, res.IsError)
		assert.Equal(t, "❌ internal error in move-file", res.Text)
	})
}

func TestExecuteRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := monitoring.NewMetrics()
	p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool)
	r := NewRegistry(WithMetrics(metrics))
	require.NoError(t, r.Register(p))

	params := map[string]interface{}{"source": "/a", "destination": "/b"}
	p.On("Execute", ctx, "move-file", mock.Anything, mock.Anything).Return(types.Text("ok"), nil).Once()
	p.On("Execute", ctx, "move-file", mock.Anything, mock.Anything).
		Return(nil, fserrors.New(fserrors.KindPathNotAllowed, "denied")).Once()
	p.On("Execute", ctx, "move-file", mock.Anything, mock.Anything).
		Return(nil, errors.New("plain")).Once()

	r.Execute(ctx, "move-file", params, nil)
	r.Execute(ctx, "move-file", params, nil)
	r.Execute(ctx, "move-file", params, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("move-file", monitoring.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("move-file", "PATH_NOT_ALLOWED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("move-file", monitoring.OutcomeError)))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	p := newMockProvider("filesystem", types.CategoryFilesystem, moveTool, batchTool)
	require.NoError(t, r.Register(p))
	require.NoError(t, r.Register(newMockProvider("media", types.CategoryMedia)))

	r.Execute(ctx, "nope", nil, nil)

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_services"])
	assert.Equal(t, 2, stats["total_tools"])
	assert.Equal(t, int64(1), stats["calls"])
	assert.Equal(t, int64(1), stats["failures"])
	assert.Equal(t, map[string]int{"filesystem": 1, "media": 1}, stats["categories"])
}
