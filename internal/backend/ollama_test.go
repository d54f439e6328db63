package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"modelctl/internal/config"
	"modelctl/internal/core"

	"github.com/tidwall/gjson"
)

type fakeOllama struct {
	catalog    string
	pullStatus int
	pullBody   string
	genStatus  int
	genBody    string
	genDelay   time.Duration

	pulls    atomic.Int32
	lastPull atomic.Value
	lastGen  atomic.Value
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.catalog)
	})
	mux.HandleFunc("POST /api/pull", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.pulls.Add(1)
		f.lastPull.Store(string(body))
		w.Header().Set("Content-Type", "application/json")
		if f.pullStatus != 0 {
			w.WriteHeader(f.pullStatus)
		}
		_, _ = io.WriteString(w, f.pullBody)
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.lastGen.Store(string(body))
		if f.genDelay > 0 {
			select {
			case <-time.After(f.genDelay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if f.genStatus != 0 {
			w.WriteHeader(f.genStatus)
		}
		_, _ = io.WriteString(w, f.genBody)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeOllama, opts Options) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL + "/"
	opts.HTTPClient = NewHTTPClient(config.DefaultHTTPClientSettings())
	client, err := NewOllamaClient(opts)
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	return client
}

func TestNewOllamaClient_RequiresInputs(t *testing.T) {
	if _, err := NewOllamaClient(Options{HTTPClient: http.DefaultClient}); err == nil {
		t.Error("expected error without base URL")
	}
	if _, err := NewOllamaClient(Options{BaseURL: "http://localhost:11434"}); err == nil {
		t.Error("expected error without HTTP client")
	}
}

func TestListModels(t *testing.T) {
	f := &fakeOllama{catalog: `{"models":[{"name":"llama2:latest","size":3825819519,"digest":"abc"},{"name":"mistral:7b"}]}`}
	client := newTestClient(t, f, Options{})

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "llama2:latest" || models[0].Size != 3825819519 || models[0].Digest != "abc" {
		t.Errorf("unexpected first model: %+v", models[0])
	}
	if client.BaseURL()[len(client.BaseURL())-1] == '/' {
		t.Error("base URL should not keep a trailing slash")
	}
}

func TestEnsureModel_AlreadyPresent(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		model   string
	}{
		{"exact", `{"models":[{"name":"wizard-math:7b"}]}`, "wizard-math:7b"},
		{"implicit latest", `{"models":[{"name":"llama2:latest"}]}`, "llama2"},
		{"explicit latest", `{"models":[{"name":"llama2"}]}`, "llama2:latest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeOllama{catalog: tt.catalog}
			client := newTestClient(t, f, Options{})
			if err := client.EnsureModel(context.Background(), tt.model); err != nil {
				t.Fatalf("EnsureModel: %v", err)
			}
			if f.pulls.Load() != 0 {
				t.Errorf("expected no pull, got %d", f.pulls.Load())
			}
		})
	}
}

func TestEnsureModel_PullsWhenAbsent(t *testing.T) {
	f := &fakeOllama{catalog: `{"models":[]}`, pullBody: `{"status":"success"}`}
	client := newTestClient(t, f, Options{})

	if err := client.EnsureModel(context.Background(), "phi3"); err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	if f.pulls.Load() != 1 {
		t.Fatalf("expected one pull, got %d", f.pulls.Load())
	}
	body := f.lastPull.Load().(string)
	if gjson.Get(body, "name").String() != "phi3" {
		t.Errorf("pull name = %q", gjson.Get(body, "name").String())
	}
	if stream := gjson.Get(body, "stream"); !stream.Exists() || stream.Bool() {
		t.Errorf("pull should be non-streaming, body %s", body)
	}
}

func TestPullModel_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"http error with json body", http.StatusNotFound, `{"error":"pull model manifest: file does not exist"}`, 404, "pull model manifest: file does not exist"},
		{"error inside 200", 0, `{"error":"max retries exceeded"}`, 200, "max retries exceeded"},
		{"plain text error", http.StatusInternalServerError, `boom`, 500, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeOllama{catalog: `{"models":[]}`, pullStatus: tt.status, pullBody: tt.body}
			client := newTestClient(t, f, Options{})

			err := client.EnsureModel(context.Background(), "missing")
			var backendErr *Error
			if !errors.As(err, &backendErr) {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if backendErr.StatusCode != tt.wantStatus || backendErr.Message != tt.wantMsg {
				t.Errorf("got status %d message %q", backendErr.StatusCode, backendErr.Message)
			}
			if backendErr.IsTransport() {
				t.Error("backend-reported failure must not be a transport error")
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	f := &fakeOllama{genBody: `{"model":"llama2","response":"4","done":true,"eval_count":7}`}
	client := newTestClient(t, f, Options{})

	req := core.GenerateRequest{Prompt: "2+2", MaxTokens: 64, Temperature: 0.2}
	out, err := client.Generate(context.Background(), "llama2", req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Text != "4" || out.EvalTokens != 7 {
		t.Errorf("unexpected completion: %+v", out)
	}

	body := f.lastGen.Load().(string)
	checks := map[string]any{
		"model":               "llama2",
		"prompt":              "2+2",
		"options.num_predict": int64(64),
		"options.temperature": 0.2,
	}
	for path, want := range checks {
		got := gjson.Get(body, path).Value()
		if n, ok := want.(int64); ok {
			got = gjson.Get(body, path).Int()
			want = n
		}
		if got != want {
			t.Errorf("%s = %v, want %v", path, got, want)
		}
	}
	if gjson.Get(body, "stream").Bool() {
		t.Error("generate should be non-streaming")
	}
}

func TestGenerate_BackendError(t *testing.T) {
	f := &fakeOllama{genStatus: http.StatusInternalServerError, genBody: `{"error":"model requires more system memory"}`}
	client := newTestClient(t, f, Options{})

	_, err := client.Generate(context.Background(), "llama2", core.NewGenerateRequest("hi"))
	if StatusCode(err) != 500 {
		t.Fatalf("expected status 500, got %v", err)
	}
	if IsTransportError(err) {
		t.Error("should not be a transport error")
	}
}

func TestGenerate_Timeout(t *testing.T) {
	f := &fakeOllama{genDelay: time.Second, genBody: `{"response":"late"}`}
	client := newTestClient(t, f, Options{GenerateTimeout: 50 * time.Millisecond})

	_, err := client.Generate(context.Background(), "llama2", core.NewGenerateRequest("hi"))
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewOllamaClient(Options{BaseURL: url, HTTPClient: NewHTTPClient(config.DefaultHTTPClientSettings())})
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	_, err = client.ListModels(context.Background())
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("transport error should carry status 0")
	}
}

func TestNormalizeModelName(t *testing.T) {
	tests := map[string]string{
		"llama2":                  "llama2:latest",
		"llama2:latest":           "llama2:latest",
		"wizard-math:7b":          "wizard-math:7b",
		"registry.local:5000/foo": "registry.local:5000/foo:latest",
	}
	for in, want := range tests {
		if got := normalizeModelName(in); got != want {
			t.Errorf("normalizeModelName(%q) = %q, want %q", in, got, want)
		}
	}
}
