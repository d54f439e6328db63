package server

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"modelctl/internal/core"
	"modelctl/internal/util"

	"github.com/gin-gonic/gin"
)

const requestIDKey = "request_id"

func (s *Server) maxBodySizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, core.MaxRequestBodySize)
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(core.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = util.NewRequestID()
		}
		c.Set(requestIDKey, id)
		c.Header(core.HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.metricsService.RecordHTTPRequest(time.Since(start))
		if c.Writer.Status() >= http.StatusBadRequest {
			s.metricsService.RecordHTTPError()
		}
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := s.rateLimiter.take(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			respondWithDetail(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowOrigin := s.config.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, X-Request-ID, Mcp-Session-Id")
		c.Header("Access-Control-Max-Age", core.CORSMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientKey extracts the presented API key. x-api-key wins over a Bearer
// token when both are sent.
func clientKey(c *gin.Context) (key, source string) {
	if key := c.GetHeader(core.HeaderXAPIKey); key != "" {
		return key, "x-api-key"
	}
	if auth := c.GetHeader(core.HeaderAuthorization); auth != "" {
		return strings.TrimPrefix(auth, core.AuthBearerPrefix), "Bearer token"
	}
	return "", ""
}

func (s *Server) isValidClientKey(provided string) bool {
	for valid := range s.validClientKeys {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}

// authenticateClient enforces CLIENT_API_KEYS. With no keys configured the
// API stays open.
func (s *Server) authenticateClient(c *gin.Context) {
	if len(s.validClientKeys) == 0 {
		return
	}

	key, source := clientKey(c)
	switch {
	case source == "":
		respondWithDetail(c, http.StatusUnauthorized, "API key required in Authorization header (Bearer) or x-api-key header")
	case s.isValidClientKey(key):
		return
	default:
		respondWithDetail(c, http.StatusForbidden, "Invalid client API key ("+source+")")
	}
	c.Abort()
}
