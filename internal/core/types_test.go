package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := NewAppErrorf(ErrCodeNotFound, nil, "model %s not found", "m1")
	wrapped := fmt.Errorf("handler: %w", err)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(wrapped, ErrNotRunning) {
		t.Fatal("did not expect match with ErrNotRunning")
	}
	if got := ErrorCode(wrapped); got != ErrCodeNotFound {
		t.Errorf("ErrorCode = %q, want %q", got, ErrCodeNotFound)
	}
}

func TestAppError_MessageAndDetail(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAppError(ErrCodeBackendUnavailable, "backend request failed", cause)

	if got, want := err.Error(), "[BACKEND_UNAVAILABLE] backend request failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := ErrorDetail(err), "backend request failed: connection refused"; got != want {
		t.Errorf("ErrorDetail() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if got := ErrorDetail(errors.New("plain")); got != "plain" {
		t.Errorf("ErrorDetail(plain) = %q", got)
	}
}

func TestModelRecord_JSONShape(t *testing.T) {
	rec := ModelRecord{Name: "m1", State: ModelStateRunning, LoadCount: 1, AvgResponseTime: 0.5}
	data, err := sonic.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := sonic.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"name", "state", "last_used", "load_count", "avg_response_time", "error_count"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if got["state"] != "running" {
		t.Errorf("state = %v, want running", got["state"])
	}
}

func TestModelRecord_LastUsedTime(t *testing.T) {
	if !(ModelRecord{}).LastUsedTime().IsZero() {
		t.Error("zero LastUsed should map to zero time")
	}

	now := time.Unix(1700000000, 250_000_000)
	rec := ModelRecord{LastUsed: UnixSeconds(now)}
	if diff := rec.LastUsedTime().Sub(now); diff > time.Millisecond || diff < -time.Millisecond {
		t.Errorf("round trip drifted by %v", diff)
	}
}

func TestRequestStats_CloneIsDeep(t *testing.T) {
	stats := &RequestStats{
		TotalRequests:  1,
		RequestHistory: []RequestRecord{{Kind: RequestKindTool, Target: "calculator"}},
	}
	clone := stats.Clone()
	clone.RequestHistory[0].Target = "changed"
	clone.TotalRequests = 2

	if stats.RequestHistory[0].Target != "calculator" || stats.TotalRequests != 1 {
		t.Error("clone shares state with the original")
	}
	if (*RequestStats)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}
