// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbellini/arcanum/internal/api"
	"github.com/tbellini/arcanum/internal/app"
	"github.com/tbellini/arcanum/internal/config"
	"github.com/tbellini/arcanum/internal/di"
)

func main() {
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	createDirectories(baseConfig)

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	if err := app.InitServices(); err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}

	router := api.SetupRouter(di.GetContainer())

	log.Printf("listening on port %s", baseConfig.Port)
	runWithGracefulShutdown(router, baseConfig.Port)
}

// runWithGracefulShutdown serves until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds.
func runWithGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("shutdown complete")
}

func createDirectories(cfg *config.Config) {
	for _, dir := range []string{cfg.DataDir, cfg.StaticDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}
}
