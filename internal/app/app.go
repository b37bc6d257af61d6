package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/idxpulse/config"
	"github.com/guttosm/idxpulse/internal/api"
	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/service"
)

// InitializeApp sets up all application dependencies and returns a fully
// configured Gin router, a cleanup function for graceful shutdown, and any
// error encountered during initialization.
//
// Responsibilities:
//   - Connects to the blob store using InitBlobStore().
//   - Creates the shared content cache and the read service over it.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
func InitializeApp(ctx context.Context) (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	store, err := InitBlobStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	contentCache := cache.New(
		int64(cfg.Cache.MaxMB)*1024*1024,
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
	)

	// Read service (business logic over produced aggregates)
	svc := service.NewReadService(store, contentCache)

	// HTTP handler layer
	handler := api.NewHandler(svc)

	// Gin router with routes
	router := api.NewRouter(handler)

	// Health and readiness probes
	healthHandler := api.NewHealthHandler(store.Ping)
	healthHandler.Register(router)

	// Nothing to close today; the S3 client holds no pooled resources that
	// outlive the process.
	cleanup := func() {}

	return router, cleanup, nil
}
