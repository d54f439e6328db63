package validate

import (
	"fmt"
	"regexp"
	"slices"

	"modelctl/internal/core"
)

var (
	paramNameRegex = regexp.MustCompile(core.ParamNamePattern)
)

// IsValidName reports whether name is usable as a tool or parameter name.
func IsValidName(name string) bool {
	return len(name) <= core.MaxParamNameLength && paramNameRegex.MatchString(name)
}

// ToolName checks a tool name before registration.
func ToolName(name string) error {
	if !IsValidName(name) {
		return fmt.Errorf("tool name %q must match %s", name, core.ParamNamePattern)
	}
	return nil
}

// ParamNames checks that every parameter name is valid and unique.
func ParamNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !IsValidName(name) {
			return fmt.Errorf("parameter name %q must match %s", name, core.ParamNamePattern)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("parameter %q declared twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// UnknownParams returns the keys of args that are not declared, sorted.
func UnknownParams(args map[string]any, declared func(string) bool) []string {
	var unknown []string
	for name := range args {
		if !declared(name) {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return unknown
}
