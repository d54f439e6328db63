package core

import (
	"time"
)

// RequestStats holds aggregated request statistics for monitoring.
type RequestStats struct {
	TotalRequests      int64           `json:"total_requests"`
	SuccessfulRequests int64           `json:"successful_requests"`
	FailedRequests     int64           `json:"failed_requests"`
	TotalResponseTime  int64           `json:"total_response_time"`
	LastRequestTime    time.Time       `json:"last_request_time"`
	RequestHistory     []RequestRecord `json:"request_history"`
}

// RequestRecord represents a single generation or tool call for history tracking.
type RequestRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ResponseTime int64     `json:"response_time"`
	Kind         string    `json:"kind"`
	Target       string    `json:"target"`
}

// PeriodStats holds computed statistics for a time period.
type PeriodStats struct {
	Requests        int64   `json:"requests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int64   `json:"avgResponseTime"`
	QPS             float64 `json:"qps"`
}

// Clone returns a deep copy of the stats, safe to hand to storage.
func (s *RequestStats) Clone() *RequestStats {
	if s == nil {
		return nil
	}
	out := *s
	if s.RequestHistory != nil {
		out.RequestHistory = make([]RequestRecord, len(s.RequestHistory))
		copy(out.RequestHistory, s.RequestHistory)
	}
	return &out
}
