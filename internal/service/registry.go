package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
	"github.com/GriffinCanCode/fsguard/internal/shared/id"
	"github.com/GriffinCanCode/fsguard/internal/types"
)

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

type toolEntry struct {
	tool     types.Tool
	provider Provider
}

// Registry maps tool names onto providers and wraps every call in the response
// envelope.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Provider
	tools    map[string]toolEntry

	logger  *zap.Logger
	metrics *monitoring.Metrics

	calls    atomic.Int64
	failures atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the call logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records every call in metrics.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// NewRegistry creates a new service registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		services: make(map[string]Provider),
		tools:    make(map[string]toolEntry),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a service provider. Tool names are global across services.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[def.ID]; exists {
		return fmt.Errorf("service already registered: %s", def.ID)
	}
	for _, tool := range def.Tools {
		if tool.ID == "" {
			return fmt.Errorf("service %s: tool ID cannot be empty", def.ID)
		}
		if _, exists := r.tools[tool.ID]; exists {
			return fmt.Errorf("service %s: duplicate tool %s", def.ID, tool.ID)
		}
	}

	r.services[def.ID] = provider
	for _, tool := range def.Tools {
		r.tools[tool.ID] = toolEntry{tool: tool, provider: provider}
	}
	return nil
}

// List returns registered services sorted by ID
func (r *Registry) List(category *types.Category) []types.Service {
	r.mu.RLock()
	services := make([]types.Service, 0, len(r.services))
	for _, provider := range r.services {
		def := provider.Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
	}
	r.mu.RUnlock()

	sort.Slice(services, func(i, j int) bool {
		return services[i].ID < services[j].ID
	})
	return services
}

// Tools returns every registered tool sorted by name
func (r *Registry) Tools() []types.Tool {
	r.mu.RLock()
	tools := make([]types.Tool, 0, len(r.tools))
	for _, entry := range r.tools {
		tools = append(tools, entry.tool)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].ID < tools[j].ID
	})
	return tools
}

// Tool looks up a tool definition by name
func (r *Registry) Tool(name string) (types.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	return entry.tool, ok
}

// Discover finds relevant services for a given intent
func (r *Registry) Discover(intent string, limit int) []types.Service {
	type scoredService struct {
		service types.Service
		score   float64
	}

	intentLower := strings.ToLower(intent)
	var results []scoredService

	for _, def := range r.List(nil) {
		if score := calculateRelevance(intentLower, def); score > 0 {
			results = append(results, scoredService{service: def, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	output := make([]types.Service, 0, limit)
	for i := 0; i < len(results) && i < limit; i++ {
		output = append(output, results[i].service)
	}
	return output
}

// Execute validates the arguments of one tool call, runs it, and wraps the outcome.
// It never returns nil and never returns a raw error.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}, appCtx *types.Context) (result *types.Result) {
	if appCtx == nil {
		appCtx = &types.Context{}
	}
	if appCtx.CallID == "" {
		appCtx.CallID = id.NewCallID().String()
	}
	log := r.logger.With(zap.String("tool", name), zap.String("call_id", appCtx.CallID))

	r.calls.Add(1)
	timer := monitoring.NewTimer(r.metrics, name)
	outcome := monitoring.OutcomeSuccess

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Tool panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			result = types.Failure(fmt.Sprintf("internal error in %s", name))
			outcome = monitoring.OutcomeError
		}
		if result.IsError {
			r.failures.Add(1)
		}
		d := timer.Stop(outcome)
		log.Info("Tool call completed",
			zap.Duration("duration", d),
			zap.String("outcome", outcome),
		)
	}()

	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		outcome = fserrors.KindValidation.String()
		return types.Failure(fmt.Sprintf("unknown tool: %s", name))
	}

	args, err := prepareArguments(entry.tool, params)
	if err != nil {
		outcome = fserrors.KindOf(err).String()
		return types.Failure(err.Error())
	}

	res, err := entry.provider.Execute(ctx, name, args, appCtx)
	if err != nil {
		outcome = outcomeOf(err)
		log.Debug("Tool failed", zap.Error(err))
		return types.Failure(err.Error())
	}
	if res == nil {
		return types.Text("")
	}
	if res.IsError {
		outcome = monitoring.OutcomeError
	}
	return render(res)
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	r.mu.RLock()
	categories := make(map[string]int)
	for _, provider := range r.services {
		categories[string(provider.Definition().Category)]++
	}
	total, totalTools := len(r.services), len(r.tools)
	r.mu.RUnlock()

	return map[string]interface{}{
		"total_services": total,
		"total_tools":    totalTools,
		"categories":     categories,
		"calls":          r.calls.Load(),
		"failures":       r.failures.Load(),
	}
}

// render turns a structured payload into indented JSON text.
func render(res *types.Result) *types.Result {
	if res.Text != "" || res.Data == nil {
		return res
	}
	b, err := sonic.ConfigStd.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		return types.Failure(fmt.Sprintf("failed to encode result: %v", err))
	}
	return &types.Result{Text: string(b), IsError: res.IsError, Data: res.Data}
}

func outcomeOf(err error) string {
	if kind := fserrors.KindOf(err); kind != fserrors.KindUnknown {
		return kind.String()
	}
	return monitoring.OutcomeError
}

func calculateRelevance(intent string, service types.Service) float64 {
	score := 0.0

	// Check service name and ID
	if strings.Contains(intent, service.ID) || strings.Contains(intent, strings.ToLower(service.Name)) {
		score += 10.0
	}

	// Check description words
	for _, word := range strings.Fields(strings.ToLower(service.Description)) {
		if len(word) > 3 && strings.Contains(intent, word) {
			score += 5.0
		}
	}

	// Check capabilities
	for _, cap := range service.Capabilities {
		capClean := strings.ReplaceAll(strings.ToLower(cap), "_", " ")
		if strings.Contains(intent, capClean) {
			score += 3.0
		}
	}

	// Check tool names
	for _, tool := range service.Tools {
		if strings.Contains(intent, strings.ReplaceAll(tool.ID, "-", " ")) {
			score += 4.0
		}
	}

	// Check category
	if strings.Contains(intent, string(service.Category)) {
		score += 2.0
	}

	return score
}
