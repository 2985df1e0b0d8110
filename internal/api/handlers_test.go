// internal/api/handlers_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/catalog"
	"github.com/tbellini/arcanum/internal/llm"
	"github.com/tbellini/arcanum/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubProvider returns a fixed response text for every completion call.
type stubProvider struct {
	response string
}

func (p *stubProvider) Initialize(config map[string]string) error { return nil }
func (p *stubProvider) GetName() string                           { return "stub" }
func (p *stubProvider) GetSupportedModels() []string              { return []string{"stub-model"} }

func (p *stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Text: p.response, ProviderName: "stub"}, nil
}

const handlerTestCatalog = `[
	{"name": "Ring of Fire Resistance", "description": "Protects from flames.", "type": "Ring"},
	{"name": "Boots of Striding", "description": "Faster movement.", "type": "Wondrous Item"},
	{"name": "Flametongue", "description": "A burning sword.", "type": "Weapon"}
]`

type testEnv struct {
	router  *gin.Engine
	catalog *catalog.Service
}

func newTestEnv(t *testing.T, providerResponse, catalogJSON string) *testEnv {
	t.Helper()

	logger := zap.NewNop().Sugar()

	llmService := services.NewEmptyLLMService(logger)
	if providerResponse != "" {
		llmService.SetProviderForTest("stub", &stubProvider{response: providerResponse})
	}

	catalogPath := filepath.Join(t.TempDir(), "items.json")
	if catalogJSON != "" {
		require.NoError(t, os.WriteFile(catalogPath, []byte(catalogJSON), 0644))
	}
	catalogService := catalog.NewService(catalogPath, logger)

	handler := NewHandler(
		services.NewGeneratorService(llmService, logger),
		services.NewSearchService(llmService, catalogService, logger),
		catalogService,
		llmService,
		logger,
	)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/health", handler.Health)
	r.POST("/api/items/generate", handler.GenerateItem)
	r.GET("/api/items/search", handler.SearchItems)
	r.GET("/api/items/random", handler.RandomItems)
	r.GET("/api/items/stats", handler.CatalogStats)
	r.POST("/api/items/cache/invalidate", AdminAuthMiddleware("secret"), handler.InvalidateCatalog)
	r.GET("/api/llm/status", handler.GetLLMStatus)
	r.GET("/api/llm/models", handler.GetLLMModels)

	return &testEnv{router: r, catalog: catalogService}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "", handlerTestCatalog)

	w, resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
}

func TestGenerateItemSuccess(t *testing.T) {
	env := newTestEnv(t, `{
		"name": "Ring of Embers",
		"price": 4000,
		"crafting_cost": 999,
		"details": ["one"]
	}`, handlerTestCatalog)

	w, resp := env.do(t, http.MethodPost, "/api/items/generate",
		`{"prompt": "a fire ring"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var item struct {
		Name         string `json:"name"`
		CraftingCost int    `json:"crafting_cost"`
	}
	require.NoError(t, json.Unmarshal(data, &item))
	assert.Equal(t, "Ring of Embers", item.Name)
	assert.Equal(t, 2000, item.CraftingCost, "crafting cost must be corrected to price/2")
}

func TestGenerateItemValidation(t *testing.T) {
	env := newTestEnv(t, `{}`, handlerTestCatalog)

	w, resp := env.do(t, http.MethodPost, "/api/items/generate", `{"prompt": "  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)

	longPrompt := strings.Repeat("x", 501)
	w, resp = env.do(t, http.MethodPost, "/api/items/generate",
		`{"prompt": "`+longPrompt+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestGenerateItemModelGarbageIsBadGateway(t *testing.T) {
	env := newTestEnv(t, "I would rather not.", handlerTestCatalog)

	w, resp := env.do(t, http.MethodPost, "/api/items/generate", `{"prompt": "a ring"}`, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "LLM_RESPONSE_ERROR", resp.Error.Code)
}

func TestSearchItemsValidation(t *testing.T) {
	env := newTestEnv(t, `{"keywords": ["fire"]}`, handlerTestCatalog)

	w, _ := env.do(t, http.MethodGet, "/api/items/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	longQuery := strings.Repeat("y", 201)
	w, _ = env.do(t, http.MethodGet, "/api/items/search?query="+longQuery, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchItemsSuccess(t *testing.T) {
	env := newTestEnv(t, `{"keywords": ["fire"], "item_types": [], "effects": []}`, handlerTestCatalog)

	w, resp := env.do(t, http.MethodGet, "/api/items/search?query=fire+items", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, 1, payload.Count)
}

func TestSearchItemsMissingCatalogIsServiceUnavailable(t *testing.T) {
	env := newTestEnv(t, `{"keywords": ["fire"]}`, "")

	w, resp := env.do(t, http.MethodGet, "/api/items/search?query=fire", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DATA_SOURCE_ERROR", resp.Error.Code)
}

func TestRandomItemsDefaultsAndClamps(t *testing.T) {
	env := newTestEnv(t, "", handlerTestCatalog)

	payloadCount := func(resp APIResponse) int {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var payload struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload.Count
	}

	// Default count is 3.
	w, resp := env.do(t, http.MethodGet, "/api/items/random", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, payloadCount(resp))

	// Count above the catalog size is capped at the catalog size.
	w, resp = env.do(t, http.MethodGet, "/api/items/random?count=9", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, payloadCount(resp))

	// Garbage falls back to the default.
	w, resp = env.do(t, http.MethodGet, "/api/items/random?count=banana", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, payloadCount(resp))
}

func TestCatalogStats(t *testing.T) {
	env := newTestEnv(t, "", handlerTestCatalog)

	w, resp := env.do(t, http.MethodGet, "/api/items/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var stats struct {
		TotalCount int      `json:"total_count"`
		Types      []string `json:"types"`
	}
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, []string{"Ring", "Wondrous Item", "Weapon"}, stats.Types)
}

func TestInvalidateCatalogRequiresAdminToken(t *testing.T) {
	env := newTestEnv(t, "", handlerTestCatalog)

	w, resp := env.do(t, http.MethodPost, "/api/items/cache/invalidate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	w, resp = env.do(t, http.MethodPost, "/api/items/cache/invalidate", "",
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = env.do(t, http.MethodPost, "/api/items/cache/invalidate", "",
		map[string]string{"X-Admin-Token": "secret"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestGetLLMStatus(t *testing.T) {
	env := newTestEnv(t, `{}`, handlerTestCatalog)

	w, resp := env.do(t, http.MethodGet, "/api/llm/status", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var status struct {
		Ready    bool   `json:"ready"`
		Provider string `json:"provider"`
	}
	require.NoError(t, json.Unmarshal(data, &status))
	assert.True(t, status.Ready)
	assert.Equal(t, "stub", status.Provider)
}

func TestGetLLMModelsUnknownProvider(t *testing.T) {
	env := newTestEnv(t, `{}`, handlerTestCatalog)

	w, resp := env.do(t, http.MethodGet, "/api/llm/models?provider=nonexistent", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestClampedIntQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 5},
		{"7", 7},
		{"0", 1},
		{"-3", 1},
		{"999", 20},
		{"abc", 5},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?limit="+tt.raw, nil)
		assert.Equal(t, tt.want, clampedIntQuery(c, "limit", 5, 1, 20), "raw=%q", tt.raw)
	}
}
