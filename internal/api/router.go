// internal/api/router.go
package api

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tbellini/arcanum/internal/catalog"
	"github.com/tbellini/arcanum/internal/config"
	"github.com/tbellini/arcanum/internal/di"
	"github.com/tbellini/arcanum/internal/services"
)

// SetupRouter builds the gin engine from the services registered in the
// container.
func SetupRouter(container *di.Container) *gin.Engine {
	cfg := config.GetCurrentConfig()

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := container.Get("logger").(*zap.SugaredLogger)
	llmService := container.Get("llm").(*services.LLMService)
	catalogService := container.Get("catalog").(*catalog.Service)
	searchService := container.Get("search").(*services.SearchService)
	generatorService := container.Get("generator").(*services.GeneratorService)

	handler := NewHandler(generatorService, searchService, catalogService, llmService, logger)
	wsHandler := NewWSHandler(generatorService, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORSMiddleware())
	r.Use(RequestLogMiddleware(logger))

	// One bucket shared by every model-backed route. Two requests per second
	// with a small burst is generous for a browser UI and keeps a single
	// client from monopolizing the provider quota.
	modelLimiter := RateLimitMiddleware(rate.NewLimiter(rate.Limit(2), 5))
	adminAuth := AdminAuthMiddleware(cfg.AdminTokenSecret)

	r.GET("/health", handler.Health)
	r.GET("/api/health", handler.Health)

	items := r.Group("/api/items")
	{
		items.POST("/generate", modelLimiter, handler.GenerateItem)
		items.GET("/search", modelLimiter, handler.SearchItems)
		items.GET("/random", handler.RandomItems)
		items.GET("/stats", handler.CatalogStats)
		items.POST("/cache/invalidate", adminAuth, handler.InvalidateCatalog)
	}

	llmGroup := r.Group("/api/llm")
	{
		llmGroup.GET("/status", handler.GetLLMStatus)
		llmGroup.GET("/models", handler.GetLLMModels)
		llmGroup.PUT("/config", adminAuth, handler.UpdateLLMConfig)
	}

	r.GET("/api/metrics", adminAuth, handler.GetMetrics)

	r.GET("/ws/generate", modelLimiter, wsHandler.GenerateItem)

	r.Static("/static", cfg.StaticDir)
	r.StaticFile("/", filepath.Join(cfg.StaticDir, "index.html"))

	return r
}
