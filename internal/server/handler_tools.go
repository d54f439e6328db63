package server

import (
	"net/http"
	"time"

	"modelctl/internal/core"

	"github.com/gin-gonic/gin"
)

type executeBody struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
}

func (s *Server) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.tools.ListTools()})
}

func (s *Server) executeTool(c *gin.Context) {
	var body executeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondWithDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.ToolName == "" {
		respondWithDetail(c, http.StatusBadRequest, "Missing tool_name")
		return
	}
	if body.Parameters == nil {
		body.Parameters = map[string]any{}
	}

	start := time.Now()
	result, err := s.tools.Execute(c.Request.Context(), body.ToolName, body.Parameters)
	if err != nil {
		if code := statusForError(err); code == http.StatusNotFound {
			respondWithDetail(c, code, core.ErrorDetail(err))
			return
		}
		s.metricsService.RecordToolExecution(body.ToolName, time.Since(start), false)
		s.logger(c).Warn("Tool %s failed: %v", body.ToolName, err)
		respondWithDetail(c, http.StatusInternalServerError, core.ErrorDetail(err))
		return
	}
	s.metricsService.RecordToolExecution(body.ToolName, time.Since(start), true)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"result":    result,
		"tool_name": body.ToolName,
	})
}
