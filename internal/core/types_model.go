package core

import (
	"time"
)

// ModelState is the lifecycle state of a managed model.
type ModelState string

const (
	ModelStateStopped  ModelState = "stopped"
	ModelStateStarting ModelState = "starting"
	ModelStateRunning  ModelState = "running"
	ModelStateError    ModelState = "error"
)

// ModelStates lists every state in lifecycle order.
var ModelStates = []ModelState{ModelStateStopped, ModelStateStarting, ModelStateRunning, ModelStateError}

// ModelRecord is a snapshot of one managed model.
type ModelRecord struct {
	Name            string     `json:"name"`
	State           ModelState `json:"state"`
	LastUsed        float64    `json:"last_used"`
	LoadCount       int64      `json:"load_count"`
	AvgResponseTime float64    `json:"avg_response_time"`
	ErrorCount      int64      `json:"error_count"`
}

// LastUsedTime converts LastUsed to a time.Time. The zero time means never used.
func (r ModelRecord) LastUsedTime() time.Time {
	if r.LastUsed == 0 {
		return time.Time{}
	}
	sec := int64(r.LastUsed)
	nsec := int64((r.LastUsed - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// UnixSeconds renders t the way ModelRecord.LastUsed stores it.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ModelsConfig holds the model list loaded from models.json.
type ModelsConfig struct {
	Models []string `json:"models"`
}
