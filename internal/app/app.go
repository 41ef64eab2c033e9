package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-payroll/internal/bootstrap"
	"go-payroll/internal/middleware"
)

// RunAPI serves the HTTP API until a shutdown signal arrives.
func RunAPI() error {
	logger := zap.L().Named("app.api")

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	in, err := connectInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := bootstrap.Migrate(ctx, in.gormDB); err != nil {
		return err
	}

	modules, err := registerModules(cfg, in.db, in.gormDB, in.rdb, in.store, zap.L())
	if err != nil {
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ContextLogger(zap.L()))
	registerRoutes(router, modules, in.rdb)

	return bootstrap.StartHTTPServer(
		router,
		bootstrap.ServerConfig{
			Port:         cfg.Port,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: cfg.Batch.Timeout + 30*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		bootstrap.NewStdoutAuditLogger(),
	)
}
