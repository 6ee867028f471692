package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/founderstab/founders-tab/internal/config"
	"github.com/founderstab/founders-tab/internal/container"
	httpapi "github.com/founderstab/founders-tab/internal/interfaces/http"
	"github.com/founderstab/founders-tab/pkg/utils"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Founders Tab",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize all components
	c, err := container.NewContainer(container.FromAppConfig(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown failed", zap.Error(err))
		}
	}()

	services := c.Services()
	opts := []httpapi.Option{httpapi.WithObserver(c.Metrics())}
	if cfg.RateLimit.Enabled {
		limiter := httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		limiter.StartCleanup(cfg.RateLimit.CleanupInterval, ctx.Done())
		opts = append(opts, httpapi.WithRateLimiter(limiter))
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpapi.Services{
		Expenses:      services.Expense,
		Workflow:      services.Workflow,
		Notifications: services.Notification,
		Nudges:        services.Nudge,
		Settings:      services.Settings,
		Reports:       services.Report,
	}, c.KVLogger(), opts...)

	// Blocks until SIGINT/SIGTERM, then drains in-flight requests
	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
	}

	logger.Info("Server exited")
}
