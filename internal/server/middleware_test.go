package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"modelctl/internal/config"

	"github.com/gin-gonic/gin"
)

func newTestServerForMiddleware(clientKeys []string) *Server {
	gin.SetMode(gin.TestMode)
	keyMap := make(map[string]bool)
	for _, k := range clientKeys {
		keyMap[k] = true
	}
	return &Server{
		validClientKeys: keyMap,
	}
}

func TestAuthenticateClient(t *testing.T) {
	tests := []struct {
		name      string
		keys      []string
		xAPIKey   string
		bearer    string
		wantCode  int
		wantAbort bool
	}{
		{"valid bearer", []string{"k1", "k2"}, "", "k2", http.StatusOK, false},
		{"valid x-api-key", []string{"k1"}, "k1", "", http.StatusOK, false},
		{"invalid bearer", []string{"k1"}, "", "wrong", http.StatusForbidden, true},
		{"invalid x-api-key", []string{"k1"}, "wrong", "", http.StatusForbidden, true},
		{"x-api-key checked before bearer", []string{"k1"}, "wrong", "k1", http.StatusForbidden, true},
		{"missing key", []string{"k1"}, "", "", http.StatusUnauthorized, true},
		{"no keys configured", nil, "", "", http.StatusOK, false},
		{"prefix of a valid key", []string{"k1-long"}, "k1", "", http.StatusForbidden, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServerForMiddleware(tt.keys)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/models/llama2/start", nil)
			if tt.xAPIKey != "" {
				c.Request.Header.Set("x-api-key", tt.xAPIKey)
			}
			if tt.bearer != "" {
				c.Request.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			s.authenticateClient(c)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if c.IsAborted() != tt.wantAbort {
				t.Errorf("aborted = %v, want %v", c.IsAborted(), tt.wantAbort)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		method     string
		wantOrigin string
		wantAbort  bool
	}{
		{"default origin", "", http.MethodGet, "*", false},
		{"configured origin", "https://ops.example.com", http.MethodGet, "https://ops.example.com", false},
		{"preflight", "", http.MethodOptions, "*", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServerForMiddleware(nil)
			s.config = config.ServerConfig{Settings: config.Settings{CORSAllowOrigin: tt.configured}}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(tt.method, "/models", nil)

			s.corsMiddleware()(c)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("origin = %q, want %q", got, tt.wantOrigin)
			}
			if c.IsAborted() != tt.wantAbort {
				t.Errorf("aborted = %v, want %v", c.IsAborted(), tt.wantAbort)
			}
			if tt.wantAbort && w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want 204", w.Code)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.stop()

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request within a minute should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other clients have their own budget")
	}
	rl.stop()
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newRateLimiter(1)
	defer rl.stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if ok, _ := rl.take("10.0.0.1"); !ok {
		t.Fatal("first request should pass")
	}
	now = now.Add(20 * time.Second)
	ok, retryAfter := rl.take("10.0.0.1")
	if ok || retryAfter != 40*time.Second {
		t.Fatalf("take = %v, %v; want limited with 40s retry", ok, retryAfter)
	}
	now = now.Add(40 * time.Second)
	if ok, _ := rl.take("10.0.0.1"); !ok {
		t.Error("a new window should restore the budget")
	}
}

func TestRateLimitMiddleware_RetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServerForMiddleware(nil)
	s.rateLimiter = newRateLimiter(1)
	defer s.rateLimiter.stop()

	router := gin.New()
	router.Use(s.rateLimitMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != want {
			t.Fatalf("request %d = %d, want %d", i, w.Code, want)
		}
		if want == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Error("limited responses should carry Retry-After")
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get("X-Request-ID")
	if generated == "" || w.Body.String() != generated {
		t.Errorf("expected generated id in header and context, got %q / %q", generated, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("incoming id should be echoed, got %q", got)
	}
}
