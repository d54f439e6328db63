// Package storage persists the request statistics behind /api/stats.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"modelctl/internal/core"
	"modelctl/internal/util"

	"github.com/tidwall/gjson"
)

// schemaVersion tags persisted snapshots. Snapshots without a tag are
// decoded as bare RequestStats.
const schemaVersion = 1

type snapshot struct {
	Schema int                `json:"schema"`
	Stats  *core.RequestStats `json:"stats"`
}

func encodeStats(stats *core.RequestStats) ([]byte, error) {
	data, err := util.MarshalJSON(snapshot{Schema: schemaVersion, Stats: stats})
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}
	return data, nil
}

func decodeStats(data []byte) (*core.RequestStats, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode stats: invalid JSON")
	}

	stats := &core.RequestStats{}
	payload := data
	if schema := gjson.GetBytes(data, "schema"); schema.Exists() {
		if schema.Int() > schemaVersion {
			return nil, fmt.Errorf("decode stats: unsupported schema %d", schema.Int())
		}
		payload = []byte(gjson.GetBytes(data, "stats").Raw)
	}
	if len(payload) > 0 {
		if err := util.UnmarshalJSON(payload, stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
	}
	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}
	return stats, nil
}

func emptyStats() *core.RequestStats {
	return &core.RequestStats{RequestHistory: []core.RequestRecord{}}
}

// InitStorage initializes storage (returns StorageInterface).
// Redis is used when redisURL is set and reachable, the stats file otherwise.
func InitStorage(redisURL, statsFile string, logger core.Logger) (core.StorageInterface, error) {
	if redisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{URL: redisURL})
		if err == nil {
			logger.Info("Using Redis storage")
			return redisStorage, nil
		}
		logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
	}

	if dir := filepath.Dir(statsFile); statsFile != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create stats directory: %w", err)
		}
	}

	logger.Info("Using file storage")
	return NewFileStorage(statsFile), nil
}
