package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"modelctl/internal/core"

	"github.com/tidwall/gjson"
)

func TestFileStorage_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	fs := NewFileStorage(path)

	stats := &core.RequestStats{
		TotalRequests:      2,
		SuccessfulRequests: 1,
		FailedRequests:     1,
		LastRequestTime:    time.Unix(1700000000, 0).UTC(),
		RequestHistory: []core.RequestRecord{
			{Timestamp: time.Unix(1700000000, 0).UTC(), Success: true, ResponseTime: 500, Kind: core.RequestKindGenerate, Target: "m1"},
		},
	}
	if err := fs.SaveStats(stats); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	loaded, err := fs.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if loaded.TotalRequests != 2 || len(loaded.RequestHistory) != 1 {
		t.Fatalf("unexpected stats: %+v", loaded)
	}
	if rec := loaded.RequestHistory[0]; rec.Kind != core.RequestKindGenerate || rec.Target != "m1" || !rec.Success {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestFileStorage_MissingFile(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "missing.json"))
	stats, err := fs.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.RequestHistory == nil || len(stats.RequestHistory) != 0 {
		t.Errorf("expected empty non-nil history, got %#v", stats.RequestHistory)
	}
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("{not json"), core.FilePermissionReadWrite); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStorage(path).LoadStats(); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileStorage_NullHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte(`{"total_requests":3}`), core.FilePermissionReadWrite); err != nil {
		t.Fatal(err)
	}
	stats, err := NewFileStorage(path).LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.TotalRequests != 3 || stats.RequestHistory == nil {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestNewFileStorage_DefaultPath(t *testing.T) {
	if got := NewFileStorage("").Path(); got != core.StatsFilePath {
		t.Errorf("Path = %q, want %q", got, core.StatsFilePath)
	}
}

func TestInitStorage_FallsBackToFile(t *testing.T) {
	statsFile := filepath.Join(t.TempDir(), "nested", "stats.json")

	st, err := InitStorage("::not a redis url::", statsFile, &core.NopLogger{})
	if err != nil {
		t.Fatalf("InitStorage: %v", err)
	}
	defer func() { _ = st.Close() }()

	fs, ok := st.(*FileStorage)
	if !ok {
		t.Fatalf("expected *FileStorage, got %T", st)
	}
	if fs.Path() != statsFile {
		t.Errorf("Path = %q", fs.Path())
	}
	if _, err := os.Stat(filepath.Dir(statsFile)); err != nil {
		t.Errorf("stats directory should be created: %v", err)
	}
}

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	if _, err := NewRedisStorage(RedisStorageConfig{URL: "http://example.com"}); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestFileStorage_SnapshotSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	fs := NewFileStorage(path)
	if err := fs.SaveStats(&core.RequestStats{TotalRequests: 7}); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, "schema").Int(); got != schemaVersion {
		t.Errorf("schema = %d, want %d", got, schemaVersion)
	}
	if got := gjson.GetBytes(data, "stats.total_requests").Int(); got != 7 {
		t.Errorf("stats.total_requests = %d", got)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestDecodeStats(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		total   int64
		wantErr bool
	}{
		{"bare snapshot", `{"total_requests":4}`, 4, false},
		{"versioned snapshot", `{"schema":1,"stats":{"total_requests":5}}`, 5, false},
		{"versioned without stats", `{"schema":1}`, 0, false},
		{"newer schema", `{"schema":2,"stats":{}}`, 0, true},
		{"not json", `{"schema":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := decodeStats([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeStats: %v", err)
			}
			if stats.TotalRequests != tt.total || stats.RequestHistory == nil {
				t.Errorf("unexpected stats %+v", stats)
			}
		})
	}
}
