package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"modelctl/internal/core"
	"modelctl/internal/util"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// Options configures an OllamaClient.
type Options struct {
	BaseURL         string
	HTTPClient      *http.Client
	GenerateTimeout time.Duration
	PullTimeout     time.Duration
	CatalogTimeout  time.Duration
	Logger          core.Logger
}

// OllamaClient talks to an Ollama-compatible inference service.
type OllamaClient struct {
	http            *resty.Client
	baseURL         string
	generateTimeout time.Duration
	pullTimeout     time.Duration
	catalogTimeout  time.Duration
	logger          core.Logger
}

var _ core.InferenceBackend = (*OllamaClient)(nil)

type tagsResponse struct {
	Models []core.BackendModel `json:"models"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
}

// NewOllamaClient creates a client for the service at opts.BaseURL.
func NewOllamaClient(opts Options) (*OllamaClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	if opts.Logger == nil {
		opts.Logger = &core.NopLogger{}
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = core.DefaultGenerateTimeout
	}
	if opts.PullTimeout <= 0 {
		opts.PullTimeout = core.DefaultPullTimeout
	}
	if opts.CatalogTimeout <= 0 {
		opts.CatalogTimeout = core.DefaultCatalogTimeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	client := resty.NewWithClient(opts.HTTPClient).
		SetBaseURL(baseURL).
		SetHeader(core.HeaderContentType, core.ContentTypeJSON).
		SetHeader(core.HeaderAccept, core.ContentTypeJSON).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	return &OllamaClient{
		http:            client,
		baseURL:         baseURL,
		generateTimeout: opts.GenerateTimeout,
		pullTimeout:     opts.PullTimeout,
		catalogTimeout:  opts.CatalogTimeout,
		logger:          opts.Logger,
	}, nil
}

// BaseURL returns the service address without a trailing slash.
func (c *OllamaClient) BaseURL() string {
	return c.baseURL
}

// ListModels returns the models the backend has available locally.
func (c *OllamaClient) ListModels(ctx context.Context) ([]core.BackendModel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.catalogTimeout)
	defer cancel()

	resp, err := c.http.R().SetContext(ctx).Get(core.OllamaTagsPath)
	if err := checkResponse("list models", resp, err); err != nil {
		return nil, err
	}

	var tags tagsResponse
	if err := sonic.Unmarshal(resp.Body(), &tags); err != nil {
		return nil, &Error{Op: "list models", StatusCode: resp.StatusCode(), Message: "invalid catalog response", Cause: err}
	}
	return tags.Models, nil
}

// HasModel reports whether the backend catalog contains name. A name
// without a tag matches its ":latest" entry and vice versa.
func (c *OllamaClient) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	want := normalizeModelName(name)
	for _, m := range models {
		if normalizeModelName(m.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

// PullModel downloads name into the backend and waits until it completes.
func (c *OllamaClient) PullModel(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.pullTimeout)
	defer cancel()

	c.logger.Info("Pulling model %s from backend", name)
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(pullRequest{Name: name, Stream: false}).
		Post(core.OllamaPullPath)
	if err := checkResponse("pull model "+name, resp, err); err != nil {
		return err
	}
	// A 200 can still carry an error when the pull fails mid-way.
	if msg := gjson.GetBytes(resp.Body(), "error").String(); msg != "" {
		return &Error{Op: "pull model " + name, StatusCode: resp.StatusCode(), Message: msg}
	}

	c.logger.Info("Pulled model %s in %v", name, time.Since(start).Round(time.Millisecond))
	return nil
}

// EnsureModel makes sure the backend has name, pulling it when absent.
func (c *OllamaClient) EnsureModel(ctx context.Context, name string) error {
	present, err := c.HasModel(ctx, name)
	if err != nil {
		return err
	}
	if present {
		c.logger.Debug("Model %s already present in backend", name)
		return nil
	}
	c.logger.Info("Model %s not found in backend, pulling", name)
	return c.PullModel(ctx, name)
}

// Generate runs a single non-streaming completion.
func (c *OllamaClient) Generate(ctx context.Context, name string, req core.GenerateRequest) (*core.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	body := generateRequest{
		Model:  name,
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(core.OllamaGeneratePath)
	op := "generate with " + name
	if err := checkResponse(op, resp, err); err != nil {
		return nil, err
	}

	var out generateResponse
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode(), Message: "invalid generate response", Cause: err}
	}
	return &core.Completion{Text: out.Response, EvalTokens: out.EvalCount}, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &Error{Op: op, Cause: err}
	}
	if resp.IsError() {
		return &Error{Op: op, StatusCode: resp.StatusCode(), Message: errorMessage(resp)}
	}
	return nil
}

func errorMessage(resp *resty.Response) string {
	body := resp.Body()
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return msg
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return util.TruncateString(text, 200, 0, "...")
	}
	return http.StatusText(resp.StatusCode())
}

func normalizeModelName(name string) string {
	name = strings.TrimSpace(name)
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	if !strings.Contains(base, ":") {
		return name + core.OllamaLatestSuffix
	}
	return name
}
