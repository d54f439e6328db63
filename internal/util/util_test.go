package util

import (
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"llama2", " wizard-math:7b", "", "llama2", "wizard-math:7b"})
	want := []string{"llama2", "wizard-math:7b"}
	if !slices.Equal(got, want) {
		t.Errorf("UniqueStrings = %v, want %v", got, want)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name, input, replacement, expected string
		prefixLen, suffixLen               int
	}{
		{"short string untouched", "short", "...", "short", 3, 3},
		{"long string truncated", "1234567890", "...", "123...890", 3, 3},
		{"suffix only", "1234567890", "...", "...7890", 0, 4},
		{"prefix only", "1234567890", "...", "1234...", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.prefixLen, tt.suffixLen, tt.replacement)
			if result != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Fatal("request IDs should differ")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("request ID %q is not a UUID: %v", a, err)
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := MarshalJSON(map[string]any{"status": "running"})
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var decoded map[string]string
	if err := UnmarshalJSON(data, &decoded); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if decoded["status"] != "running" {
		t.Errorf("decoded = %v", decoded)
	}

	pretty, err := MarshalIndentJSON([]int{1})
	if err != nil {
		t.Fatalf("MarshalIndentJSON: %v", err)
	}
	if !strings.Contains(string(pretty), "\n  1") {
		t.Errorf("expected indented output, got %q", pretty)
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	tests := []struct {
		name, key, setValue, defaultValue, expected string
		setEnv                                      bool
	}{
		{"default used", "MODELCTL_TEST_ENV_NOT_SET", "", "default_value", "default_value", false},
		{"env value used", "MODELCTL_TEST_ENV_SET", "actual_value", "default_value", "actual_value", true},
		{"empty env uses default", "MODELCTL_TEST_ENV_EMPTY", "", "default_value", "default_value", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Unsetenv(tt.key)
			if tt.setEnv {
				t.Setenv(tt.key, tt.setValue)
			}
			if result := GetEnvWithDefault(tt.key, tt.defaultValue); result != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
