package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"modelctl/internal/cache"
	"modelctl/internal/core"

	"github.com/gin-gonic/gin"
)

// generateBody uses pointers so absent fields take the defaults while an
// explicit empty prompt stays valid.
type generateBody struct {
	Prompt      *string  `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

func (b generateBody) request() (core.GenerateRequest, error) {
	if b.Prompt == nil {
		return core.GenerateRequest{}, fmt.Errorf("prompt is required")
	}
	req := core.NewGenerateRequest(*b.Prompt)
	if b.MaxTokens != nil {
		if *b.MaxTokens <= 0 {
			return core.GenerateRequest{}, fmt.Errorf("max_tokens must be positive")
		}
		req.MaxTokens = *b.MaxTokens
	}
	if b.Temperature != nil {
		if *b.Temperature < 0 {
			return core.GenerateRequest{}, fmt.Errorf("temperature must not be negative")
		}
		req.Temperature = *b.Temperature
	}
	return req, nil
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.models.ListModels())
}

func (s *Server) getModel(c *gin.Context) {
	rec, err := s.models.GetModel(c.Param("name"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) addModel(c *gin.Context) {
	name := c.Param("name")
	created, status := s.models.AddModel(name)
	if created {
		s.logger(c).Info("Model %s added", name)
		s.recordModelState(name)
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "created": created})
}

// startModel and stopModel report business failures as {error} with 200.
func (s *Server) startModel(c *gin.Context) {
	name := c.Param("name")
	status, err := s.models.StartModel(c.Request.Context(), name)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.recordModelState(name)
		}
		s.logger(c).Warn("Start of model %s failed: %v", name, err)
		c.JSON(http.StatusOK, gin.H{"error": core.ErrorDetail(err)})
		return
	}
	s.cache.InvalidateCatalog()
	s.recordModelState(name)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) stopModel(c *gin.Context) {
	name := c.Param("name")
	status, err := s.models.StopModel(name)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": core.ErrorDetail(err)})
		return
	}
	s.recordModelState(name)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) generate(c *gin.Context) {
	name := c.Param("name")

	var body generateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondWithDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req, err := body.request()
	if err != nil {
		respondWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	resp, err := s.models.Generate(c.Request.Context(), name, req)
	if err != nil {
		if errors.Is(err, core.ErrBackendUnavailable) {
			s.metricsService.RecordGeneration(name, time.Since(start), false)
			s.logger(c).Error("Generation with model %s failed: %v", name, err)
		}
		respondWithError(c, err)
		return
	}
	s.metricsService.RecordGeneration(name, time.Since(start), true)
	c.JSON(http.StatusOK, resp)
}

// backendModels lists the backend's local catalog, cached for CATALOG_CACHE_TTL.
func (s *Server) backendModels(c *gin.Context) {
	if catalog, ok := s.cache.GetCatalog(s.catalogCacheKey); ok {
		s.metricsService.RecordCacheHit()
		s.logger(c).Debug("Catalog cache hit: %s", cache.TruncateCacheKey(s.catalogCacheKey, 24))
		c.JSON(http.StatusOK, gin.H{"models": catalog, "cached": true})
		return
	}
	s.metricsService.RecordCacheMiss()

	catalog, err := s.backend.ListModels(c.Request.Context())
	if err != nil {
		s.logger(c).Warn("Backend catalog unavailable: %v", err)
		respondWithDetail(c, http.StatusServiceUnavailable, "backend catalog unavailable: "+err.Error())
		return
	}
	if catalog == nil {
		catalog = []core.BackendModel{}
	}
	if s.cache.Enabled() {
		s.cache.SetCatalog(s.catalogCacheKey, catalog)
		s.logger(c).Debug("Cached %d catalog entries for %s", len(catalog), s.config.CatalogCacheTTL)
	}
	c.JSON(http.StatusOK, gin.H{"models": catalog, "cached": false})
}

func (s *Server) recordModelState(name string) {
	if rec, err := s.models.GetModel(name); err == nil {
		s.metricsService.RecordModelState(rec.Name, rec.State)
	}
}
