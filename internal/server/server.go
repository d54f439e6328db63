package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modelctl/internal/cache"
	"modelctl/internal/config"
	"modelctl/internal/core"
	"modelctl/internal/mcpbridge"
	"modelctl/internal/metrics"
	"modelctl/internal/models"
	"modelctl/internal/tools"

	"github.com/gin-gonic/gin"
)

// Dependencies are the registries and backend the server routes to.
// The server never constructs them itself.
type Dependencies struct {
	Models  *models.Registry
	Tools   *tools.Registry
	Backend core.InferenceBackend
}

// Server application server
type Server struct {
	addr    string
	ginMode string

	models  *models.Registry
	tools   *tools.Registry
	backend core.InferenceBackend
	mcp     *mcpbridge.Bridge
	router  *gin.Engine

	cache           *cache.CacheService
	catalogCacheKey string
	metricsService  *metrics.MetricsService

	validClientKeys map[string]bool

	config config.ServerConfig

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, deps Dependencies) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if deps.Models == nil || deps.Tools == nil || deps.Backend == nil {
		return nil, fmt.Errorf("model registry, tool registry and backend are required")
	}

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})

	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	validClientKeys := make(map[string]bool)
	for _, key := range cfg.ClientAPIKeys {
		validClientKeys[key] = true
	}

	var limiter *rateLimiter
	if cfg.RateLimit > 0 {
		limiter = newRateLimiter(cfg.RateLimit)
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		addr:            cfg.Addr(),
		ginMode:         cfg.GinMode,
		models:          deps.Models,
		tools:           deps.Tools,
		backend:         deps.Backend,
		cache:           cache.NewCacheService(cfg.CatalogCacheTTL),
		catalogCacheKey: cache.GenerateCatalogCacheKey(cfg.OllamaBaseURL),
		metricsService:  metricsService,
		validClientKeys: validClientKeys,
		config:          cfg,
		rateLimiter:     limiter,
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	if cfg.MCPEnabled {
		bridge, err := mcpbridge.New(mcpbridge.Config{
			Tools:   deps.Tools,
			Metrics: metricsService,
			Logger:  cfg.Logger,
		})
		if err != nil {
			_ = server.Close()
			return nil, fmt.Errorf("failed to create MCP bridge: %w", err)
		}
		server.mcp = bridge
	}

	for _, rec := range deps.Models.ListModels() {
		metricsService.RecordModelState(rec.Name, rec.State)
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run runs the server until a shutdown signal arrives or Close is called.
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.config.Logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.config.Logger.Info("Server starting on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
			s.shutdownCancel()
		case <-s.shutdownCtx.Done():
		}
		signal.Stop(quit)
	}()
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": core.ServiceName,
		"version": core.ServiceVersion,
		"models":  s.models.Len(),
		"tools":   s.tools.Len(),
	})
}

func (s *Server) getStatsData(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	periodStats := metrics.GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)
	currentQPS := s.metricsService.GetQPS()

	states := make(map[core.ModelState]int, len(core.ModelStates))
	for _, state := range core.ModelStates {
		states[state] = 0
	}
	var modelsInfo []gin.H
	for _, rec := range s.models.ListModels() {
		states[rec.State]++
		lastUsed := ""
		if t := rec.LastUsedTime(); !t.IsZero() {
			lastUsed = t.Format(core.TimeFormatDateTime)
		}
		modelsInfo = append(modelsInfo, gin.H{
			"name":            rec.Name,
			"state":           rec.State,
			"lastUsed":        lastUsed,
			"loadCount":       rec.LoadCount,
			"avgResponseTime": fmt.Sprintf("%.3f", rec.AvgResponseTime),
			"errorCount":      rec.ErrorCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"currentTime":        time.Now().Format(core.TimeFormatDateTime),
		"currentQPS":         fmt.Sprintf("%.3f", currentQPS),
		"totalRequests":      stats.TotalRequests,
		"successfulRequests": stats.SuccessfulRequests,
		"failedRequests":     stats.FailedRequests,
		"totalRecords":       len(stats.RequestHistory),
		"stats24h":           periodStats[24],
		"stats7d":            periodStats[24*7],
		"stats30d":           periodStats[24*30],
		"modelStates":        states,
		"modelsInfo":         modelsInfo,
		"targets":            metrics.SummarizeTargets(stats.RequestHistory),
		"toolCount":          s.tools.Len(),
	})
}

// Close closes the server
func (s *Server) Close() error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}

	var closeErr error

	if s.rateLimiter != nil {
		s.rateLimiter.stop()
	}

	if s.metricsService != nil {
		if err := s.metricsService.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close metrics service: %w", err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close cache service: %w", err))
		}
	}

	return closeErr
}
