package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"modelctl/internal/core"
)

type countingStorage struct {
	mu        sync.Mutex
	saveCount int
	loaded    *core.RequestStats
}

func (s *countingStorage) SaveStats(_ *core.RequestStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCount++
	return nil
}

func (s *countingStorage) LoadStats() (*core.RequestStats, error) {
	if s.loaded != nil {
		return s.loaded, nil
	}
	return &core.RequestStats{}, nil
}

func (s *countingStorage) Close() error { return nil }

func (s *countingStorage) getSaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}

func newTestMetricsService(t *testing.T, historySize int, storage core.StorageInterface) *MetricsService {
	t.Helper()
	ms := NewMetricsService(MetricsConfig{
		SaveInterval: time.Second,
		HistorySize:  historySize,
		Storage:      storage,
		Logger:       &core.NopLogger{},
	})
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}

func scrape(t *testing.T, ms *MetricsService) string {
	t.Helper()
	w := httptest.NewRecorder()
	ms.Collectors().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status %d", w.Code)
	}
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMetricsService_RecordRequest(t *testing.T) {
	ms := newTestMetricsService(t, 10, nil)

	ms.RecordRequest(true, 100, core.RequestKindGenerate, "llama2")
	ms.RecordRequest(false, 200, core.RequestKindGenerate, "llama2")
	ms.RecordRequest(true, 150, core.RequestKindTool, "calculator")

	stats := ms.GetRequestStats()
	if stats.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 2 {
		t.Errorf("Expected 2 successful requests, got %d", stats.SuccessfulRequests)
	}
	if stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
	}
	if len(stats.RequestHistory) != 3 {
		t.Fatalf("Expected 3 history records, got %d", len(stats.RequestHistory))
	}
	if rec := stats.RequestHistory[2]; rec.Kind != core.RequestKindTool || rec.Target != "calculator" {
		t.Errorf("unexpected last record %+v", rec)
	}
}

func TestMetricsService_GetQPS(t *testing.T) {
	ms := newTestMetricsService(t, 10, nil)
	if qps := ms.GetQPS(); qps != 0 {
		t.Errorf("QPS should start at 0, got %f", qps)
	}
	ms.RecordRequest(true, 1, core.RequestKindTool, "calculator")
	if qps := ms.GetQPS(); qps <= 0 {
		t.Errorf("QPS should be positive after a request, got %f", qps)
	}
}

func TestMetricsService_MaxHistorySize(t *testing.T) {
	ms := newTestMetricsService(t, 3, nil)
	for i := 0; i < 5; i++ {
		ms.RecordRequest(true, 100, core.RequestKindGenerate, "m1")
	}

	stats := ms.GetRequestStats()
	if len(stats.RequestHistory) != 3 {
		t.Errorf("History should be capped at 3, got %d", len(stats.RequestHistory))
	}
}

func TestMetricsService_DefaultHistorySize(t *testing.T) {
	ms := newTestMetricsService(t, 0, nil)
	if ms.history.max != core.MaxHistoryRecords {
		t.Errorf("history cap = %d, want %d", ms.history.max, core.MaxHistoryRecords)
	}
}

func TestMetricsService_LoadStats(t *testing.T) {
	history := make([]core.RequestRecord, 5)
	st := &countingStorage{loaded: &core.RequestStats{TotalRequests: 5, SuccessfulRequests: 4, RequestHistory: history}}
	ms := newTestMetricsService(t, 2, st)

	if err := ms.LoadStats(); err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	stats := ms.GetRequestStats()
	if stats.TotalRequests != 5 || stats.SuccessfulRequests != 4 {
		t.Errorf("counters not restored: %+v", stats)
	}
	if len(stats.RequestHistory) != 2 {
		t.Errorf("restored history should be capped, got %d", len(stats.RequestHistory))
	}
}

func TestMetricsService_GenerationAndToolSeries(t *testing.T) {
	ms := newTestMetricsService(t, 10, nil)

	ms.RecordGeneration("llama2", 500*time.Millisecond, true)
	ms.RecordGeneration("llama2", 0, false)
	ms.RecordToolExecution("calculator", time.Millisecond, true)
	ms.RecordModelState("llama2", core.ModelStateRunning)
	ms.RecordCacheHit()
	ms.RecordCacheMiss()
	ms.RecordHTTPRequest(10 * time.Millisecond)
	ms.RecordHTTPError()

	body := scrape(t, ms)
	for _, want := range []string{
		`modelctl_models_generations_total{model="llama2",status="success"} 1`,
		`modelctl_models_generations_total{model="llama2",status="error"} 1`,
		`modelctl_tools_calls_total{status="success",tool_name="calculator"} 1`,
		`modelctl_models_state{model="llama2",state="running"} 1`,
		`modelctl_models_state{model="llama2",state="stopped"} 0`,
		`modelctl_cache_lookups_total{result="hit"} 1`,
		`modelctl_cache_lookups_total{result="miss"} 1`,
		`modelctl_http_errors_total 1`,
		`modelctl_http_request_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}

	stats := ms.GetRequestStats()
	if stats.TotalRequests != 3 {
		t.Errorf("generations and tool calls should enter the history, got %d", stats.TotalRequests)
	}
}

func TestNewCollectors_Independent(t *testing.T) {
	a := NewCollectors()
	b := NewCollectors()
	if a.Registry() == b.Registry() {
		t.Fatal("collectors should not share a registry")
	}
}

func TestSummarizeTargets(t *testing.T) {
	history := []core.RequestRecord{
		{Kind: core.RequestKindGenerate, Target: "llama2", Success: true, ResponseTime: 100},
		{Kind: core.RequestKindTool, Target: "calculator", Success: true, ResponseTime: 2},
		{Kind: core.RequestKindGenerate, Target: "llama2", Success: false, ResponseTime: 300},
		{Kind: core.RequestKindGenerate, Target: "wizard-math:7b", Success: true, ResponseTime: 50},
	}

	got := SummarizeTargets(history)
	want := []TargetSummary{
		{Kind: core.RequestKindGenerate, Target: "llama2", Requests: 2, Failures: 1, AvgResponseTime: 200},
		{Kind: core.RequestKindGenerate, Target: "wizard-math:7b", Requests: 1, AvgResponseTime: 50},
		{Kind: core.RequestKindTool, Target: "calculator", Requests: 1, AvgResponseTime: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d summaries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("summary %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(SummarizeTargets(nil)) != 0 {
		t.Error("empty history should yield no summaries")
	}
}

func TestRateWindow(t *testing.T) {
	w := &rateWindow{span: time.Minute}
	start := time.Now()
	w.add(start.Add(-2 * time.Minute))
	w.add(start.Add(-30 * time.Second))
	w.add(start)

	if n := w.count(start); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if n := w.count(start.Add(45 * time.Second)); n != 1 {
		t.Errorf("count after 45s = %d, want 1", n)
	}
}

func TestGetPeriodStats(t *testing.T) {
	now := time.Now()
	history := []core.RequestRecord{
		{Timestamp: now.Add(-30 * time.Minute), Success: true, ResponseTime: 100},
		{Timestamp: now.Add(-2 * time.Hour), Success: false, ResponseTime: 300},
		{Timestamp: now.Add(-48 * time.Hour), Success: true, ResponseTime: 500},
	}

	periods := GetPeriodStats(history, 1, 24, 24*7)
	if got := periods[1]; got.Requests != 1 || got.SuccessRate != 100 || got.AvgResponseTime != 100 {
		t.Errorf("1h stats = %+v", got)
	}
	if got := periods[24]; got.Requests != 2 || got.SuccessRate != 50 || got.AvgResponseTime != 200 {
		t.Errorf("24h stats = %+v", got)
	}
	if got := periods[24*7]; got.Requests != 3 {
		t.Errorf("7d stats = %+v", got)
	}
	if GetPeriodStats(history) != nil {
		t.Error("no periods should yield nil")
	}
}

func TestMetricsService_Close_Idempotent(t *testing.T) {
	st := &countingStorage{}
	ms := NewMetricsService(MetricsConfig{
		SaveInterval: time.Hour,
		HistorySize:  10,
		Storage:      st,
		Logger:       &core.NopLogger{},
	})

	ms.RecordRequest(true, 10, core.RequestKindTool, "calculator")

	if err := ms.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	firstCloseSaves := st.getSaveCount()
	if firstCloseSaves == 0 {
		t.Fatal("first Close should persist at least once")
	}

	if err := ms.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if st.getSaveCount() != firstCloseSaves {
		t.Fatalf("second Close should not persist again, first=%d, now=%d", firstCloseSaves, st.getSaveCount())
	}
}
