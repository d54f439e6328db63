// Package mcpbridge exposes the tool registry over the Model Context Protocol.
package mcpbridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"modelctl/internal/core"
	"modelctl/internal/tools"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/gjson"
)

var allowedMethods = map[string]bool{
	"initialize":                true,
	"notifications/initialized": true,
	"ping":                      true,
	"tools/list":                true,
	"tools/call":                true,
}

// Config wires a Bridge.
type Config struct {
	Tools   *tools.Registry
	Metrics core.MetricsCollector
	Logger  core.Logger
}

// Bridge serves every registered tool as an MCP tool.
type Bridge struct {
	server  *mcp.Server
	handler http.Handler
	tools   *tools.Registry
	metrics core.MetricsCollector
	logger  core.Logger
}

// New builds an MCP server over the tools registered so far. Tools added to
// the registry afterwards are not visible to MCP clients.
func New(cfg Config) (*Bridge, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = &core.NopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &core.NopMetrics{}
	}

	b := &Bridge{
		server:  mcp.NewServer(&mcp.Implementation{Name: core.ServiceName, Version: core.ServiceVersion}, nil),
		tools:   cfg.Tools,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}

	for _, d := range cfg.Tools.ListTools() {
		schema, err := schemaMap(d)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		b.server.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		}, b.callHandler(d.Name))
	}
	b.logger.Info("MCP bridge exposes %d tools", cfg.Tools.Len())

	b.handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return b.server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
	return b, nil
}

// Server returns the underlying MCP server.
func (b *Bridge) Server() *mcp.Server {
	return b.server
}

// Register mounts the streamable HTTP endpoint on group at /mcp.
func (b *Bridge) Register(group gin.IRoutes) {
	group.POST("/mcp", MethodGuard(allowedMethods), b.serve)
}

func (b *Bridge) serve(c *gin.Context) {
	// The streamable handler rejects requests that do not accept both encodings.
	c.Request.Header.Set(core.HeaderAccept, core.ContentTypeJSON+", "+core.ContentTypeEventStream)
	b.handler.ServeHTTP(c.Writer, c.Request)
}

func (b *Bridge) callHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 && string(raw) != "null" {
			if err := sonic.Unmarshal(raw, &args); err != nil {
				return errorResult(fmt.Sprintf("arguments must be a JSON object: %v", err)), nil
			}
		}

		start := time.Now()
		result, err := b.tools.Execute(ctx, name, args)
		b.metrics.RecordToolExecution(name, time.Since(start), err == nil)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, err
			}
			b.logger.Warn("MCP call to tool %s failed: %v", name, err)
			return errorResult(core.ErrorDetail(err)), nil
		}

		text, err := resultText(result)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

// MethodGuard rejects JSON-RPC requests whose method is not in allowed.
func MethodGuard(allowed map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "failed to read MCP request body"})
			return
		}
		_ = c.Request.Body.Close()

		if len(bytes.TrimSpace(body)) == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "empty MCP request body"})
			return
		}
		if !gjson.ValidBytes(body) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "invalid MCP request payload"})
			return
		}

		method := gjson.GetBytes(body, "method").String()
		if method == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "missing method field in MCP request"})
			return
		}
		if !allowed[method] {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "unsupported MCP method: " + method})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func schemaMap(d tools.Descriptor) (map[string]any, error) {
	data, err := sonic.Marshal(d.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	schema := map[string]any{}
	if err := sonic.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	schema["type"] = "object"
	return schema, nil
}

func resultText(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, err := sonic.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
