package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the declared type tag of a parameter or return value.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeAny     Type = "any"
	TypeNull    Type = "null"
)

// Valid reports whether t is one of the known tags.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeAny, TypeNull:
		return true
	}
	return false
}

// Value is a tagged argument value. The zero Value is null.
type Value struct {
	typ Type
	str string
	i   int64
	f   float64
	b   bool
	raw any
}

func StringValue(s string) Value  { return Value{typ: TypeString, str: s} }
func IntegerValue(i int64) Value  { return Value{typ: TypeInteger, i: i} }
func NumberValue(f float64) Value { return Value{typ: TypeNumber, f: f} }
func BooleanValue(b bool) Value   { return Value{typ: TypeBoolean, b: b} }
func NullValue() Value            { return Value{typ: TypeNull} }
func anyValue(v any) Value        { return Value{typ: TypeAny, raw: v} }

// Type returns the tag of the value.
func (v Value) Type() Type {
	if v.typ == "" {
		return TypeNull
	}
	return v.typ
}

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool {
	return v.Type() == TypeNull
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.str, v.typ == TypeString
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.typ == TypeInteger
}

// AsFloat returns the number held by v. Integers widen.
func (v Value) AsFloat() (float64, bool) {
	switch v.typ {
	case TypeNumber:
		return v.f, true
	case TypeInteger:
		return float64(v.i), true
	}
	return 0, false
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.typ == TypeBoolean
}

// Interface returns v as a plain Go value suitable for JSON encoding.
func (v Value) Interface() any {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeInteger:
		return v.i
	case TypeNumber:
		return v.f
	case TypeBoolean:
		return v.b
	case TypeAny:
		return v.raw
	}
	return nil
}

// ValueOf tags a decoded JSON value with its natural type. Objects and
// arrays are tagged any.
func ValueOf(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case string:
		return StringValue(x)
	case bool:
		return BooleanValue(x)
	case float64:
		return NumberValue(x)
	case float32:
		return NumberValue(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntegerValue(i)
		}
		if f, err := x.Float64(); err == nil {
			return NumberValue(f)
		}
		return StringValue(x.String())
	}
	if i, ok := toInt64(raw); ok {
		return IntegerValue(i)
	}
	return anyValue(raw)
}

// Convert turns a decoded argument into a Value of type want. String input
// is parsed into numbers and booleans; integral floats are accepted where an
// integer is declared.
func Convert(raw any, want Type) (Value, error) {
	if v, ok := raw.(Value); ok {
		raw = v.Interface()
	}

	switch want {
	case TypeAny:
		return ValueOf(raw), nil
	case TypeNull:
		if raw == nil {
			return NullValue(), nil
		}
	case TypeString:
		if s, ok := raw.(string); ok {
			return StringValue(s), nil
		}
	case TypeInteger:
		if i, ok := toInt64(raw); ok {
			return IntegerValue(i), nil
		}
		switch x := raw.(type) {
		case float64:
			if isIntegral(x) && math.Abs(x) <= 1<<53 {
				return IntegerValue(int64(x)), nil
			}
		case json.Number:
			if i, err := x.Int64(); err == nil {
				return IntegerValue(i), nil
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return IntegerValue(i), nil
			}
		}
	case TypeNumber:
		if i, ok := toInt64(raw); ok {
			return NumberValue(float64(i)), nil
		}
		switch x := raw.(type) {
		case float64:
			return NumberValue(x), nil
		case float32:
			return NumberValue(float64(x)), nil
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return NumberValue(f), nil
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return NumberValue(f), nil
			}
		}
	case TypeBoolean:
		switch x := raw.(type) {
		case bool:
			return BooleanValue(x), nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return BooleanValue(b), nil
			}
		}
	default:
		return Value{}, fmt.Errorf("unknown type %q", want)
	}
	return Value{}, fmt.Errorf("expected %s, got %s", want, describe(raw))
}

func toInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

func describe(raw any) string {
	if raw == nil {
		return "null"
	}
	switch ValueOf(raw).Type() {
	case TypeString:
		return fmt.Sprintf("string %q", raw)
	case TypeInteger, TypeNumber:
		return fmt.Sprintf("number %v", raw)
	case TypeBoolean:
		return fmt.Sprintf("boolean %v", raw)
	}
	return fmt.Sprintf("%T", raw)
}
