package server

import (
	"errors"
	"net/http"

	"modelctl/internal/core"

	"github.com/gin-gonic/gin"
)

// respondWithDetail writes the {detail} error body used by every JSON error.
func respondWithDetail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"detail": message})
}

// respondWithError maps err to its HTTP status and writes it as {detail}.
func respondWithError(c *gin.Context, err error) {
	respondWithDetail(c, statusForError(err), core.ErrorDetail(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotRunning), errors.Is(err, core.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger prefixes log lines with the request ID.
type requestLogger struct {
	core.Logger
	id string
}

func (s *Server) logger(c *gin.Context) core.Logger {
	id := c.GetString(requestIDKey)
	if id == "" {
		return s.config.Logger
	}
	return &requestLogger{Logger: s.config.Logger, id: id}
}

func (l *requestLogger) Debug(format string, args ...any) {
	l.Logger.Debug("[%s] "+format, append([]any{l.id}, args...)...)
}

func (l *requestLogger) Info(format string, args ...any) {
	l.Logger.Info("[%s] "+format, append([]any{l.id}, args...)...)
}

func (l *requestLogger) Warn(format string, args ...any) {
	l.Logger.Warn("[%s] "+format, append([]any{l.id}, args...)...)
}

func (l *requestLogger) Error(format string, args ...any) {
	l.Logger.Error("[%s] "+format, append([]any{l.id}, args...)...)
}
