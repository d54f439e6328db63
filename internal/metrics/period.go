package metrics

import (
	"sort"
	"time"

	"modelctl/internal/core"
)

// GetPeriodStats computes period statistics for multiple hour windows in a single pass.
func GetPeriodStats(history []core.RequestRecord, hourPeriods ...int) map[int]core.PeriodStats {
	if len(hourPeriods) == 0 {
		return nil
	}

	type acc struct {
		cutoff                   time.Time
		requests, ok, responseMs int64
	}
	now := time.Now()
	accs := make([]acc, len(hourPeriods))
	for i, hours := range hourPeriods {
		accs[i].cutoff = now.Add(-time.Duration(hours) * time.Hour)
	}

	for _, rec := range history {
		for i := range accs {
			if !rec.Timestamp.After(accs[i].cutoff) {
				continue
			}
			accs[i].requests++
			accs[i].responseMs += rec.ResponseTime
			if rec.Success {
				accs[i].ok++
			}
		}
	}

	result := make(map[int]core.PeriodStats, len(hourPeriods))
	for i, hours := range hourPeriods {
		a := accs[i]
		stats := core.PeriodStats{
			Requests: a.requests,
			QPS:      float64(a.requests) / (float64(hours) * 3600.0),
		}
		if a.requests > 0 {
			stats.SuccessRate = float64(a.ok) / float64(a.requests) * 100
			stats.AvgResponseTime = a.responseMs / a.requests
		}
		result[hours] = stats
	}
	return result
}

// TargetSummary aggregates the history of one model or tool.
type TargetSummary struct {
	Kind            string `json:"kind"`
	Target          string `json:"target"`
	Requests        int64  `json:"requests"`
	Failures        int64  `json:"failures"`
	AvgResponseTime int64  `json:"avgResponseTime"`
}

// SummarizeTargets groups history by kind and target, busiest first.
// Ties are broken by kind, then target name.
func SummarizeTargets(history []core.RequestRecord) []TargetSummary {
	type key struct{ kind, target string }
	byTarget := make(map[key]*TargetSummary)
	totals := make(map[key]int64)

	for _, rec := range history {
		k := key{rec.Kind, rec.Target}
		s, ok := byTarget[k]
		if !ok {
			s = &TargetSummary{Kind: rec.Kind, Target: rec.Target}
			byTarget[k] = s
		}
		s.Requests++
		if !rec.Success {
			s.Failures++
		}
		totals[k] += rec.ResponseTime
	}

	out := make([]TargetSummary, 0, len(byTarget))
	for k, s := range byTarget {
		s.AvgResponseTime = totals[k] / s.Requests
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Target < out[j].Target
	})
	return out
}
