package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tmorand/auto-loan-calc/internal/catalog"
	"github.com/tmorand/auto-loan-calc/internal/config"
	"github.com/tmorand/auto-loan-calc/internal/server"
	"github.com/tmorand/auto-loan-calc/internal/store"
	"github.com/tmorand/auto-loan-calc/pkg/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	catalogCacheTTL = 1 * time.Hour
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// buildCatalogSource prefers the configured API endpoint, cached in redis when
// an address is available and in memory otherwise. With no API configured the
// static entries serve alone.
func buildCatalogSource(cfg *server.Config, redisAddr string, logger *zap.Logger) catalog.Source {
	vehicles := make([]catalog.Vehicle, 0, len(cfg.Catalog.Vehicles))
	for _, v := range cfg.Catalog.Vehicles {
		vehicles = append(vehicles, catalog.Vehicle{Make: v.Make, Model: v.Model, Year: v.Year})
	}

	if cfg.Catalog.API.BaseURL == "" {
		return catalog.NewStaticSource(vehicles)
	}

	timeout := time.Duration(cfg.Catalog.API.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	remote := catalog.NewAPISource(cfg.Catalog.API.BaseURL, &http.Client{Timeout: timeout})

	var cache catalog.Cache
	if redisAddr != "" {
		cache = catalog.NewRedisCache(redisAddr, catalogCacheTTL)
	} else {
		cache = catalog.NewMemoryCache()
	}
	return catalog.NewCachedSource(remote, cache, logger)
}

func main() {
	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	// A local .env provides overrides in development; absence is normal.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	logger, err := initializeLogger(cfg.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	dbPath := cfg.DatabasePath
	if envPath := os.Getenv("LOANCALC_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	storage, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Fatal("failed to open quote database",
			zap.String("op", "main"),
			zap.String("path", dbPath),
			zap.Error(err),
		)
	}
	defer func() {
		_ = storage.Close()
	}()

	redisAddr := cfg.RedisAddress
	if envAddr := os.Getenv("REDIS_ADDR"); envAddr != "" {
		redisAddr = envAddr
	}
	source := buildCatalogSource(cfg, redisAddr, logger)

	limiter := server.NewRateLimiter(
		cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.IntervalSeconds)*time.Second,
	)
	defer limiter.Stop()

	srv := server.New(server.Options{
		Logger:         logger,
		Storage:        storage,
		Source:         source,
		Version:        Version,
		MaxRequestSize: cfg.RequestSizeBytes(),
		RateLimiter:    limiter,
	})

	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting quote API server",
			zap.String("op", "main"),
			zap.String("address", cfg.Address),
			zap.String("version", Version),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server",
		zap.String("op", "main"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
