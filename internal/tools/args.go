package tools

import (
	"fmt"
	"maps"

	"github.com/bytedance/sonic"
)

// Args are the validated arguments a tool receives.
type Args struct {
	values map[string]Value
}

// NewArgs wraps already tagged values, for calling a Func directly.
func NewArgs(values map[string]Value) Args {
	return Args{values: maps.Clone(values)}
}

// Get returns the named value and whether it was supplied or defaulted.
func (a Args) Get(name string) (Value, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether name was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// String returns the named string, or "" when absent or not a string.
func (a Args) String(name string) string {
	s, _ := a.values[name].AsString()
	return s
}

// Int returns the named integer, or 0.
func (a Args) Int(name string) int64 {
	i, _ := a.values[name].AsInt()
	return i
}

// Float returns the named number, or 0. Integers widen.
func (a Args) Float(name string) float64 {
	f, _ := a.values[name].AsFloat()
	return f
}

// Bool returns the named boolean, or false.
func (a Args) Bool(name string) bool {
	b, _ := a.values[name].AsBool()
	return b
}

// Map returns the arguments as plain Go values.
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for name, v := range a.values {
		out[name] = v.Interface()
	}
	return out
}

// Bind decodes the arguments into dst, usually the struct the parameters
// were inferred from.
func (a Args) Bind(dst any) error {
	data, err := sonic.Marshal(a.Map())
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
