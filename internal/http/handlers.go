package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/fsguard/internal/confirm"
	"github.com/GriffinCanCode/fsguard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsguard/internal/security"
	"github.com/GriffinCanCode/fsguard/internal/service"
	"github.com/GriffinCanCode/fsguard/internal/types"
)

// MaxBodyBytes caps the argument object of a tool call.
const MaxBodyBytes = 1 << 20

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *service.Registry
	policy   *security.Policy
	metrics  *monitoring.Metrics
	hub      *confirm.Hub
	version  string
}

// NewHandlers creates a new handler set. metrics and hub may be nil.
func NewHandlers(registry *service.Registry, policy *security.Policy, metrics *monitoring.Metrics, hub *confirm.Hub, version string) *Handlers {
	return &Handlers{
		registry: registry,
		policy:   policy,
		metrics:  metrics,
		hub:      hub,
		version:  version,
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "fsguard",
		"version": h.version,
	})
}

// Health handles the detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":   "healthy",
		"registry": h.registry.Stats(),
		"policy": gin.H{
			"allowedDirectories":              h.policy.AllowedDirectories(),
			"pathTraversalProtection":         h.policy.PathTraversalProtection(),
			"allowForceDelete":                h.policy.AllowForceDelete(),
			"forceDeleteRequiresConfirmation": h.policy.ForceDeleteRequiresConfirmation(),
		},
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	if h.hub != nil {
		resp["confirmations"] = gin.H{
			"subscribers": h.hub.Subscribers(),
			"pending":     len(h.hub.Pending()),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListTools lists tools, optionally filtered by category or ranked by an intent query
func (h *Handlers) ListTools(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		limit := 5
		if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
			limit = l
		}
		c.JSON(http.StatusOK, gin.H{
			"query":    q,
			"services": h.registry.Discover(q, limit),
		})
		return
	}

	if cat := c.Query("category"); cat != "" {
		category := types.Category(cat)
		if category != types.CategoryFilesystem && category != types.CategoryMedia {
			c.JSON(http.StatusBadRequest, types.Failure("unknown category: "+cat))
			return
		}
		c.JSON(http.StatusOK, gin.H{"services": h.registry.List(&category)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tools": h.registry.Tools(),
		"stats": h.registry.Stats(),
	})
}

// GetTool returns one tool definition
func (h *Handlers) GetTool(c *gin.Context) {
	tool, ok := h.registry.Tool(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, types.Failure("unknown tool: "+c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, tool)
}

// ExecuteTool runs a tool. The request body is the argument object; the response is
// always the result envelope. Tool failures are reported in the envelope with 200.
func (h *Handlers) ExecuteTool(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.registry.Tool(name); !ok {
		c.JSON(http.StatusNotFound, types.Failure("unknown tool: "+name))
		return
	}

	params, err := readParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Failure(err.Error()))
		return
	}

	appCtx := &types.Context{
		Transport: "http",
		ClientIP:  c.ClientIP(),
	}
	res := h.registry.Execute(c.Request.Context(), name, params, appCtx)
	c.Header("X-Call-ID", appCtx.CallID)
	c.JSON(http.StatusOK, res)
}

func readParams(c *gin.Context) (map[string]interface{}, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("request body too large")
		}
		return nil, err
	}

	params := make(map[string]interface{})
	if len(body) == 0 {
		return params, nil
	}
	if err := sonic.Unmarshal(body, &params); err != nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return params, nil
}
