package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"modelctl/internal/core"
)

// MetricsConfig configuration for MetricsService
type MetricsConfig struct {
	// SaveInterval is the minimum gap between two persisted snapshots.
	SaveInterval time.Duration
	HistorySize  int
	Storage      core.StorageInterface
	Logger       core.Logger
	Collectors   *Collectors
}

// MetricsService tracks generations and tool calls. Counters and history
// feed /api/stats and are persisted through Storage; the Prometheus
// collectors feed /metrics.
type MetricsService struct {
	total      atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	totalMilli atomic.Int64
	lastSeen   atomic.Pointer[time.Time]

	history *historyLog
	recent  *rateWindow

	storage      core.StorageInterface
	logger       core.Logger
	collectors   *Collectors
	saveInterval time.Duration
	saveMu       sync.Mutex
	lastSave     time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(config MetricsConfig) *MetricsService {
	if config.HistorySize <= 0 {
		config.HistorySize = core.MaxHistoryRecords
	}
	if config.Logger == nil {
		config.Logger = &core.NopLogger{}
	}
	if config.Collectors == nil {
		config.Collectors = NewCollectors()
	}
	ms := &MetricsService{
		history:      newHistoryLog(config.HistorySize),
		recent:       &rateWindow{span: time.Minute},
		storage:      config.Storage,
		logger:       config.Logger,
		collectors:   config.Collectors,
		saveInterval: config.SaveInterval,
		done:         make(chan struct{}),
	}
	go ms.history.flushEvery(core.HistoryFlushInterval, ms.done)
	return ms
}

// RecordRequest adds one generation or tool call to the counters and history.
func (ms *MetricsService) RecordRequest(success bool, responseTime int64, kind, target string) {
	now := time.Now()
	ms.lastSeen.Store(&now)
	ms.total.Add(1)
	ms.totalMilli.Add(responseTime)
	if success {
		ms.succeeded.Add(1)
	} else {
		ms.failed.Add(1)
	}
	ms.recent.add(now)

	full := ms.history.add(core.RequestRecord{
		Timestamp:    now,
		Success:      success,
		ResponseTime: responseTime,
		Kind:         kind,
		Target:       target,
	})
	if full {
		ms.history.flush()
	}

	ms.saveIfDue(now)
}

// RecordGeneration records a generation against a model
func (ms *MetricsService) RecordGeneration(model string, duration time.Duration, success bool) {
	ms.collectors.observeGeneration(model, duration, success)
	ms.RecordRequest(success, duration.Milliseconds(), core.RequestKindGenerate, model)
}

// RecordToolExecution records a tool invocation
func (ms *MetricsService) RecordToolExecution(tool string, duration time.Duration, success bool) {
	ms.collectors.observeTool(tool, duration, success)
	ms.RecordRequest(success, duration.Milliseconds(), core.RequestKindTool, tool)
}

// RecordModelState exports the current lifecycle state of a model
func (ms *MetricsService) RecordModelState(model string, state core.ModelState) {
	ms.collectors.setModelState(model, state)
}

// RecordHTTPRequest records HTTP request duration
func (ms *MetricsService) RecordHTTPRequest(duration time.Duration) {
	ms.collectors.HTTPRequestDuration.Observe(duration.Seconds())
}

// RecordHTTPError records HTTP error
func (ms *MetricsService) RecordHTTPError() {
	ms.collectors.HTTPErrorsTotal.Inc()
}

// RecordCacheHit records a backend catalog cache hit
func (ms *MetricsService) RecordCacheHit() {
	ms.collectors.CacheLookupsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a backend catalog cache miss
func (ms *MetricsService) RecordCacheMiss() {
	ms.collectors.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// Collectors returns the Prometheus series backing this service
func (ms *MetricsService) Collectors() *Collectors {
	return ms.collectors
}

// GetQPS returns the request rate over the last minute.
func (ms *MetricsService) GetQPS() float64 {
	n := ms.recent.count(time.Now())
	if n == 0 {
		return 0
	}
	return math.Round(float64(n)/60.0*1000) / 1000
}

// GetRequestStats returns current stats snapshot
func (ms *MetricsService) GetRequestStats() core.RequestStats {
	stats := core.RequestStats{
		TotalRequests:      ms.total.Load(),
		SuccessfulRequests: ms.succeeded.Load(),
		FailedRequests:     ms.failed.Load(),
		TotalResponseTime:  ms.totalMilli.Load(),
		RequestHistory:     ms.history.snapshot(),
	}
	if last := ms.lastSeen.Load(); last != nil {
		stats.LastRequestTime = *last
	}
	return stats
}

// LoadStats restores counters and history from storage.
func (ms *MetricsService) LoadStats() error {
	if ms.storage == nil {
		return nil
	}
	stats, err := ms.storage.LoadStats()
	if err != nil {
		return err
	}

	ms.total.Store(stats.TotalRequests)
	ms.succeeded.Store(stats.SuccessfulRequests)
	ms.failed.Store(stats.FailedRequests)
	ms.totalMilli.Store(stats.TotalResponseTime)
	if !stats.LastRequestTime.IsZero() {
		last := stats.LastRequestTime
		ms.lastSeen.Store(&last)
	}
	ms.history.restore(stats.RequestHistory)
	return nil
}

// saveIfDue persists a snapshot unless one was written within saveInterval.
func (ms *MetricsService) saveIfDue(now time.Time) {
	if ms.storage == nil {
		return
	}
	ms.saveMu.Lock()
	if now.Sub(ms.lastSave) < ms.saveInterval {
		ms.saveMu.Unlock()
		return
	}
	ms.lastSave = now
	ms.saveMu.Unlock()

	stats := ms.GetRequestStats()
	if err := ms.storage.SaveStats(&stats); err != nil {
		ms.logger.Warn("Failed to save stats: %v", err)
	}
}

// Close saves final stats and stops. Calling it again is a no-op.
func (ms *MetricsService) Close() error {
	var err error
	ms.closeOnce.Do(func() {
		close(ms.done)
		if ms.storage != nil {
			stats := ms.GetRequestStats()
			err = ms.storage.SaveStats(&stats)
		}
	})
	return err
}

var _ core.MetricsCollector = (*MetricsService)(nil)
