package validate

import (
	"fmt"
	"math"
	"reflect"

	"github.com/bytedance/sonic"
)

// Serializable reports an error when v cannot be rendered as JSON: channels,
// functions, complex numbers and non-finite floats anywhere in the value.
func Serializable(v any) error {
	if err := checkValue(reflect.ValueOf(v), 0); err != nil {
		return err
	}
	if _, err := sonic.Marshal(v); err != nil {
		return fmt.Errorf("value is not JSON serializable: %w", err)
	}
	return nil
}

const maxSerializableDepth = 64

func checkValue(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxSerializableDepth {
		return fmt.Errorf("value nests deeper than %d levels", maxSerializableDepth)
	}

	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Errorf("value of type %s is not JSON serializable", v.Type())
	case reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("complex number %v is not JSON serializable", v.Complex())
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("float %v is not JSON serializable", f)
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkValue(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkValue(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkValue(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() || t.Field(i).Tag.Get("json") == "-" {
				continue
			}
			if err := checkValue(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
