package main

import (
	"context"
	"time"

	"modelctl/internal/backend"
	"modelctl/internal/config"
	"modelctl/internal/core"
	logpkg "modelctl/internal/log"
	"modelctl/internal/models"
	"modelctl/internal/server"
	"modelctl/internal/storage"
	"modelctl/internal/tools"
	"modelctl/internal/tools/calculator"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// autoStartConcurrency caps parallel model pulls at startup.
const autoStartConcurrency = 2

func main() {
	dotenvErr := godotenv.Load()

	logger := logpkg.CreateLogger()
	defer func() {
		if appLog, ok := logger.(*logpkg.AppLogger); ok {
			_ = appLog.Close()
		}
	}()

	if dotenvErr != nil {
		logger.Warn("No .env file found, using system environment variables")
	}
	logger.Info("Logger initialized")

	if appLog, ok := logger.(*logpkg.AppLogger); ok {
		accessLog := appLog.Writer(logrus.InfoLevel)
		defer func() { _ = accessLog.Close() }()
		gin.DefaultWriter = accessLog
	}

	cfg, err := config.LoadServerConfigFromEnv(logger)
	if err != nil {
		logger.Fatal("Failed to load server configuration: %v", err)
	}
	cfg.Logger = logger

	storageInstance, err := storage.InitStorage(cfg.RedisURL, cfg.StatsFile, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() { _ = storageInstance.Close() }()
	cfg.Storage = storageInstance

	ollama, err := backend.NewOllamaClient(backend.Options{
		BaseURL:         cfg.OllamaBaseURL,
		HTTPClient:      backend.NewHTTPClient(cfg.HTTPClientSettings),
		GenerateTimeout: cfg.GenerateTimeout,
		PullTimeout:     cfg.PullTimeout,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Failed to create backend client: %v", err)
	}

	registry, err := models.NewRegistry(models.RegistryConfig{Backend: ollama, Logger: logger})
	if err != nil {
		logger.Fatal("Failed to create model registry: %v", err)
	}
	for _, name := range cfg.DefaultModels {
		registry.AddModel(name)
	}
	logger.Info("Registered %d models", registry.Len())

	toolRegistry := tools.NewRegistry(logger)
	calc := calculator.New()
	defer calc.Close()
	if err := calculator.Register(toolRegistry, calc); err != nil {
		logger.Fatal("Failed to register calculator tool: %v", err)
	}

	if cfg.AutoStartModels {
		autoStart(registry, cfg.DefaultModels, cfg.PullTimeout, logger)
	}

	srv, err := server.NewServer(cfg, server.Dependencies{
		Models:  registry,
		Tools:   toolRegistry,
		Backend: ollama,
	})
	if err != nil {
		logger.Fatal("Failed to create server: %v", err)
	}
	defer func() { _ = srv.Close() }()

	logger.Info("Starting server on %s (backend %s)", cfg.Addr(), ollama.BaseURL())
	if err := srv.Run(); err != nil {
		logger.Fatal("Server error: %v", err)
	}
}

// autoStart starts every configured model before the server accepts
// traffic. Failures are logged and leave the model in the error state.
func autoStart(registry *models.Registry, names []string, timeout time.Duration, logger core.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(autoStartConcurrency)
	for _, name := range names {
		g.Go(func() error {
			msg, err := registry.StartModel(ctx, name)
			if err != nil {
				logger.Warn("Auto-start of %s failed: %v", name, err)
				return nil
			}
			logger.Info("%s", msg)
			return nil
		})
	}
	_ = g.Wait()
}
