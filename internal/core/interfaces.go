package core

import (
	"context"
	"time"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// StorageInterface storage interface
type StorageInterface interface {
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	Close() error
}

// InferenceBackend is the black-box inference service models run on.
type InferenceBackend interface {
	ListModels(ctx context.Context) ([]BackendModel, error)
	EnsureModel(ctx context.Context, name string) error
	Generate(ctx context.Context, name string, req GenerateRequest) (*Completion, error)
}

// MetricsCollector interface
type MetricsCollector interface {
	RecordHTTPRequest(duration time.Duration)
	RecordHTTPError()
	RecordCacheHit()
	RecordCacheMiss()
	RecordGeneration(model string, duration time.Duration, success bool)
	RecordToolExecution(tool string, duration time.Duration, success bool)
	RecordModelState(model string, state ModelState)
	GetQPS() float64
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordHTTPRequest(duration time.Duration)                              {}
func (*NopMetrics) RecordHTTPError()                                                      {}
func (*NopMetrics) RecordCacheHit()                                                       {}
func (*NopMetrics) RecordCacheMiss()                                                      {}
func (*NopMetrics) RecordGeneration(model string, duration time.Duration, success bool)   {}
func (*NopMetrics) RecordToolExecution(tool string, duration time.Duration, success bool) {}
func (*NopMetrics) RecordModelState(model string, state ModelState)                       {}
func (*NopMetrics) GetQPS() float64                                                       { return 0 }
