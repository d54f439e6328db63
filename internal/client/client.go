// Package client is a typed HTTP client for the modelctl server API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"modelctl/internal/core"
	"modelctl/internal/tools"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultTimeout bounds each request. Generation through a cold backend can
// take minutes.
const DefaultTimeout = 5 * time.Minute

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the model and tool endpoints of a modelctl server.
type Client struct {
	http    *resty.Client
	baseURL string
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// ActionResult is the answer to add, start and stop. Business failures
// arrive with HTTP 200 and Error set.
type ActionResult struct {
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Created *bool  `json:"created,omitempty"`
}

// OK reports whether the action succeeded.
func (r ActionResult) OK() bool {
	return r.Error == ""
}

// ToolInfo is one entry of GET /tools.
type ToolInfo struct {
	Name        string                                                `json:"name"`
	Description string                                                `json:"description"`
	Parameters  *orderedmap.OrderedMap[string, tools.ParamDescriptor] `json:"parameters"`
	ReturnType  tools.Type                                            `json:"return_type"`
	InputSchema map[string]any                                        `json:"input_schema"`
}

// CatalogResult is the answer of GET /backend/models.
type CatalogResult struct {
	Models []core.BackendModel `json:"models"`
	Cached bool                `json:"cached"`
}

type executeRequest struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
}

type executeResponse struct {
	Success  bool   `json:"success"`
	Result   any    `json:"result"`
	ToolName string `json:"tool_name"`
}

// New creates a client for the server at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	rc.SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader(core.HeaderAccept, core.ContentTypeJSON).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if opts.APIKey != "" {
		rc.SetAuthToken(opts.APIKey)
	}

	return &Client{http: rc, baseURL: baseURL}, nil
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health returns the /health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

// ListModels returns every managed model record.
func (c *Client) ListModels(ctx context.Context) ([]core.ModelRecord, error) {
	var out []core.ModelRecord
	err := c.do(ctx, http.MethodGet, "/models", nil, nil, &out)
	return out, err
}

// GetModel returns a single model record.
func (c *Client) GetModel(ctx context.Context, name string) (*core.ModelRecord, error) {
	var out core.ModelRecord
	if err := c.do(ctx, http.MethodGet, "/models/{name}", pathName(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddModel registers name with the server.
func (c *Client) AddModel(ctx context.Context, name string) (*ActionResult, error) {
	return c.action(ctx, "/models/{name}", name)
}

// StartModel asks the server to start name.
func (c *Client) StartModel(ctx context.Context, name string) (*ActionResult, error) {
	return c.action(ctx, "/models/{name}/start", name)
}

// StopModel asks the server to stop name.
func (c *Client) StopModel(ctx context.Context, name string) (*ActionResult, error) {
	return c.action(ctx, "/models/{name}/stop", name)
}

// Generate runs a completion on a running model.
func (c *Client) Generate(ctx context.Context, name string, req core.GenerateRequest) (*core.GenerateResponse, error) {
	var out core.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/models/{name}/generate", pathName(name), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BackendModels returns the backend catalog as seen by the server.
func (c *Client) BackendModels(ctx context.Context) (*CatalogResult, error) {
	var out CatalogResult
	if err := c.do(ctx, http.MethodGet, "/backend/models", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTools returns the tool catalog in registration order.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	err := c.do(ctx, http.MethodGet, "/tools", nil, nil, &out)
	return out.Tools, err
}

// ExecuteTool invokes a tool and returns its result.
func (c *Client) ExecuteTool(ctx context.Context, name string, params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	var out executeResponse
	if err := c.do(ctx, http.MethodPost, "/tools/execute", nil, executeRequest{ToolName: name, Parameters: params}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) action(ctx context.Context, path, name string) (*ActionResult, error) {
	var out ActionResult
	if err := c.do(ctx, http.MethodPost, path, pathName(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, pathParams map[string]string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if pathParams != nil {
		req.SetPathParams(pathParams)
	}
	if body != nil {
		req.SetHeader(core.HeaderContentType, core.ContentTypeJSON).SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Detail: errorDetail(resp)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func pathName(name string) map[string]string {
	return map[string]string{"name": name}
}

func errorDetail(resp *resty.Response) string {
	body := resp.Body()
	for _, key := range []string{"detail", "error"} {
		if msg := gjson.GetBytes(body, key).String(); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode())
}
