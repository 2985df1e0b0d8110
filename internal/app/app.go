// internal/app/app.go
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/catalog"
	"github.com/tbellini/arcanum/internal/config"
	"github.com/tbellini/arcanum/internal/di"
	"github.com/tbellini/arcanum/internal/services"

	// Registers the model providers with the llm registry.
	_ "github.com/tbellini/arcanum/internal/llm/providers/anthropic"
	_ "github.com/tbellini/arcanum/internal/llm/providers/openai"
	_ "github.com/tbellini/arcanum/internal/llm/providers/openrouter"
)

// InitServices builds and registers all application services in dependency
// order. Called once at startup, after config.InitConfig.
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	logger, err := buildLogger(cfg.DebugMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	container.Register("logger", logger)

	llmService := services.NewLLMService(logger)
	container.Register("llm", llmService)

	catalogService := catalog.NewService(cfg.CatalogFile, logger)
	container.Register("catalog", catalogService)

	searchService := services.NewSearchService(llmService, catalogService, logger)
	container.Register("search", searchService)

	generatorService := services.NewGeneratorService(llmService, logger)
	container.Register("generator", generatorService)

	// Warm the catalog cache. A missing or broken catalog file must not keep
	// the server from starting: generation still works without it, and the
	// search endpoints report the data source error per request.
	if _, err := catalogService.Load(); err != nil {
		logger.Warnw("catalog preload failed; search endpoints will return errors until fixed",
			"path", cfg.CatalogFile, "error", err)
	}

	logger.Infow("services initialized", "services", container.GetNames())
	return nil
}

// buildLogger creates the process logger. Debug mode gets the human-readable
// development encoder, production gets JSON.
func buildLogger(debugMode bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if debugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}
