// internal/api/handlers.go
package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/catalog"
	"github.com/tbellini/arcanum/internal/config"
	"github.com/tbellini/arcanum/internal/llm"
	"github.com/tbellini/arcanum/internal/services"
	"github.com/tbellini/arcanum/internal/utils"
)

// Request bounds for the public endpoints. Values outside the limit/count
// ranges are clamped, not rejected; prompt and query length violations are
// client errors.
const (
	maxPromptLength = 500
	maxQueryLength  = 200

	defaultSearchLimit = 5
	maxSearchLimit     = 20

	defaultRandomCount = 3
	maxRandomCount     = 10
)

// Handler exposes the item generation and search services over HTTP.
type Handler struct {
	generator *services.GeneratorService
	search    *services.SearchService
	catalog   *catalog.Service
	llm       *services.LLMService
	logger    *zap.SugaredLogger
	response  *ResponseHelper
}

// NewHandler builds the HTTP handler set over the given services.
func NewHandler(
	generator *services.GeneratorService,
	search *services.SearchService,
	catalogService *catalog.Service,
	llmService *services.LLMService,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		generator: generator,
		search:    search,
		catalog:   catalogService,
		llm:       llmService,
		logger:    logger,
		response:  NewResponseHelper(),
	}
}

// Health reports service liveness and whether the model backend is usable.
func (h *Handler) Health(c *gin.Context) {
	h.response.Success(c, gin.H{
		"status":    "ok",
		"llm_ready": h.llm.IsReady(),
		"llm_state": h.llm.GetReadyState(),
	})
}

// GenerateItemRequest is the body of POST /api/items/generate.
type GenerateItemRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateItem creates a new magic item from a free-text prompt.
func (h *Handler) GenerateItem(c *gin.Context) {
	var req GenerateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		h.response.BadRequest(c, "prompt must not be empty")
		return
	}
	if len(prompt) > maxPromptLength {
		h.response.BadRequest(c, "prompt must be at most 500 characters")
		return
	}

	item, err := h.generator.GenerateItem(c.Request.Context(), prompt)
	if err != nil {
		h.logger.Warnw("item generation failed", "error", err, "request_id", c.GetString("request_id"))
		h.response.ServiceError(c, err)
		return
	}

	h.response.Success(c, item)
}

// SearchItems looks up catalog items relevant to a free-text query.
func (h *Handler) SearchItems(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		h.response.BadRequest(c, "query must not be empty")
		return
	}
	if len(query) > maxQueryLength {
		h.response.BadRequest(c, "query must be at most 200 characters")
		return
	}

	limit := clampedIntQuery(c, "limit", defaultSearchLimit, 1, maxSearchLimit)

	items, err := h.search.SearchItems(c.Request.Context(), query, limit)
	if err != nil {
		h.logger.Warnw("item search failed", "error", err, "request_id", c.GetString("request_id"))
		h.response.ServiceError(c, err)
		return
	}

	h.response.Success(c, gin.H{
		"items": items,
		"count": len(items),
	})
}

// RandomItems returns a random selection of distinct catalog items.
func (h *Handler) RandomItems(c *gin.Context) {
	count := clampedIntQuery(c, "count", defaultRandomCount, 1, maxRandomCount)

	items, err := h.search.RandomItems(count)
	if err != nil {
		h.response.ServiceError(c, err)
		return
	}

	h.response.Success(c, gin.H{
		"items": items,
		"count": len(items),
	})
}

// CatalogStats reports the catalog summary view.
func (h *Handler) CatalogStats(c *gin.Context) {
	stats, err := h.catalog.Stats()
	if err != nil {
		h.response.ServiceError(c, err)
		return
	}

	h.response.Success(c, stats)
}

// InvalidateCatalog drops the catalog cache so the next read hits the file.
func (h *Handler) InvalidateCatalog(c *gin.Context) {
	h.catalog.Invalidate()
	h.response.Success(c, nil, "catalog cache invalidated")
}

// GetLLMStatus reports the active provider and its readiness.
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.response.Success(c, gin.H{
		"ready":     h.llm.IsReady(),
		"state":     h.llm.GetReadyState(),
		"provider":  h.llm.GetProviderName(),
		"providers": llm.ListProviders(),
	})
}

// GetLLMModels lists the models supported by a provider. Without a provider
// parameter it answers for the active one.
func (h *Handler) GetLLMModels(c *gin.Context) {
	providerName := c.Query("provider")
	if providerName == "" {
		h.response.Success(c, gin.H{
			"provider": h.llm.GetProviderName(),
			"models":   h.llm.SupportedModels(),
		})
		return
	}

	models, err := llm.GetSupportedModelsForProvider(providerName)
	if err != nil {
		h.response.BadRequest(c, "unknown provider", providerName)
		return
	}

	h.response.Success(c, gin.H{
		"provider": providerName,
		"models":   models,
	})
}

// UpdateLLMConfigRequest is the body of PUT /api/llm/config.
type UpdateLLMConfigRequest struct {
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

// UpdateLLMConfig swaps the provider settings at runtime and persists them.
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req UpdateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	if req.Provider == "" {
		h.response.BadRequest(c, "provider must not be empty")
		return
	}
	if req.Config == nil {
		req.Config = map[string]string{}
	}

	if err := h.llm.UpdateProvider(req.Provider, req.Config); err != nil {
		h.response.BadRequest(c, "failed to initialize provider", err.Error())
		return
	}

	if err := h.persistLLMConfig(req.Provider, req.Config); err != nil {
		h.logger.Warnw("failed to persist LLM configuration", "error", err)
	}

	h.response.Success(c, gin.H{
		"provider": req.Provider,
		"models":   h.llm.SupportedModels(),
	}, "LLM configuration updated")
}

// GetMetrics reports the in-process counters and timers.
func (h *Handler) GetMetrics(c *gin.Context) {
	h.response.Success(c, utils.GetMetrics().Snapshot())
}

// persistLLMConfig is split out so handler tests can run without touching
// the config singleton's backing file.
var persistLLMConfigFn = config.UpdateLLMConfig

func (h *Handler) persistLLMConfig(provider string, cfg map[string]string) error {
	return persistLLMConfigFn(provider, cfg)
}

// clampedIntQuery parses an integer query parameter, falling back to def on
// absence or garbage and clamping the result into [min, max].
func clampedIntQuery(c *gin.Context, name string, def, min, max int) int {
	value := def
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			value = parsed
		}
	}

	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return value
}
