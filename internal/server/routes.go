package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(requestIDMiddleware())
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.metricsMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())
	if s.rateLimiter != nil {
		s.router.Use(s.rateLimitMiddleware())
	}

	// Public routes (no auth)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/stats", s.getStatsData)
	s.router.GET("/metrics", gin.WrapH(s.metricsService.Collectors().Handler()))

	// API routes (auth required when CLIENT_API_KEYS is set)
	api := s.router.Group("/")
	api.Use(s.authenticateClient)
	{
		api.GET("/models", s.listModels)
		api.GET("/models/:name", s.getModel)
		api.POST("/models/:name", s.addModel)
		api.POST("/models/:name/start", s.startModel)
		api.POST("/models/:name/stop", s.stopModel)
		api.POST("/models/:name/generate", s.generate)
		api.GET("/backend/models", s.backendModels)

		api.GET("/tools", s.listTools)
		api.POST("/tools/execute", s.executeTool)
	}

	if s.mcp != nil {
		s.mcp.Register(api)
	}
}
