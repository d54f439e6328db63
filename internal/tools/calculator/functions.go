package calculator

import (
	"fmt"
	"math"
)

type mathFunc = func(params ...any) (any, error)

func constants() map[string]any {
	return map[string]any{
		"pi":  math.Pi,
		"e":   math.E,
		"tau": 2 * math.Pi,
		"inf": math.Inf(1),
		"nan": math.NaN(),
	}
}

func functions() map[string]mathFunc {
	return map[string]mathFunc{
		"sqrt":      unary("sqrt", math.Sqrt),
		"exp":       unary("exp", math.Exp),
		"log":       logFunc,
		"log10":     unary("log10", math.Log10),
		"log2":      unary("log2", math.Log2),
		"pow":       binary("pow", math.Pow),
		"factorial": factorialFunc,
		"gcd":       gcdFunc,
		"lcm":       lcmFunc,
		"degrees":   unary("degrees", func(x float64) float64 { return x * 180 / math.Pi }),
		"radians":   unary("radians", func(x float64) float64 { return x * math.Pi / 180 }),
		"sin":       unary("sin", math.Sin),
		"cos":       unary("cos", math.Cos),
		"tan":       unary("tan", math.Tan),
		"asin":      unary("asin", math.Asin),
		"acos":      unary("acos", math.Acos),
		"atan":      unary("atan", math.Atan),
		"atan2":     binary("atan2", math.Atan2),
		"sinh":      unary("sinh", math.Sinh),
		"cosh":      unary("cosh", math.Cosh),
		"tanh":      unary("tanh", math.Tanh),
		"asinh":     unary("asinh", math.Asinh),
		"acosh":     unary("acosh", math.Acosh),
		"atanh":     unary("atanh", math.Atanh),
		"abs":       unary("abs", math.Abs),
		"round":     roundFunc,
		"min":       variadic("min", math.Min),
		"max":       variadic("max", math.Max),
		"sum":       variadic("sum", func(a, b float64) float64 { return a + b }),
	}
}

func unary(name string, fn func(float64) float64) mathFunc {
	return func(params ...any) (any, error) {
		args, err := floatArgs(name, params, 1, 1)
		if err != nil {
			return nil, err
		}
		return fn(args[0]), nil
	}
}

func binary(name string, fn func(a, b float64) float64) mathFunc {
	return func(params ...any) (any, error) {
		args, err := floatArgs(name, params, 2, 2)
		if err != nil {
			return nil, err
		}
		return fn(args[0], args[1]), nil
	}
}

// variadic folds fn over its arguments, which may also be passed as a
// single array: max(1, 2) and max([1, 2]) are the same.
func variadic(name string, fn func(a, b float64) float64) mathFunc {
	return func(params ...any) (any, error) {
		if len(params) == 1 {
			if list, ok := params[0].([]any); ok {
				params = list
			}
		}
		args, err := floatArgs(name, params, 1, -1)
		if err != nil {
			return nil, err
		}
		result := args[0]
		for _, x := range args[1:] {
			result = fn(result, x)
		}
		return result, nil
	}
}

func factorialFunc(params ...any) (any, error) {
	n, err := integerArgs("factorial", params, 1)
	if err != nil {
		return nil, err
	}
	if n[0] < 0 {
		return nil, fmt.Errorf("factorial() not defined for negative values")
	}
	result := 1.0
	for i := int64(2); i <= n[0] && !math.IsInf(result, 0); i++ {
		result *= float64(i)
	}
	return result, nil
}

func gcdFunc(params ...any) (any, error) {
	n, err := integerArgs("gcd", params, 2)
	if err != nil {
		return nil, err
	}
	return float64(gcd(n[0], n[1])), nil
}

func lcmFunc(params ...any) (any, error) {
	n, err := integerArgs("lcm", params, 2)
	if err != nil {
		return nil, err
	}
	if n[0] == 0 || n[1] == 0 {
		return 0.0, nil
	}
	return float64(abs64(n[0]/gcd(n[0], n[1])*n[1])), nil
}

func logFunc(params ...any) (any, error) {
	args, err := floatArgs("log", params, 1, 2)
	if err != nil {
		return nil, err
	}
	if len(args) == 2 {
		return math.Log(args[0]) / math.Log(args[1]), nil
	}
	return math.Log(args[0]), nil
}

func roundFunc(params ...any) (any, error) {
	args, err := floatArgs("round", params, 1, 2)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return math.RoundToEven(args[0]), nil
	}
	scale := math.Pow(10, math.Trunc(args[1]))
	return math.RoundToEven(args[0]*scale) / scale, nil
}

func floatArgs(name string, params []any, minArgs, maxArgs int) ([]float64, error) {
	if len(params) < minArgs || (maxArgs >= 0 && len(params) > maxArgs) {
		return nil, arityError(name, len(params), minArgs, maxArgs)
	}
	out := make([]float64, len(params))
	for i, p := range params {
		f, ok := toFloat(p)
		if !ok {
			return nil, fmt.Errorf("%s() argument %d must be a number, got %T", name, i+1, p)
		}
		out[i] = f
	}
	return out, nil
}

func integerArgs(name string, params []any, count int) ([]int64, error) {
	args, err := floatArgs(name, params, count, count)
	if err != nil {
		return nil, err
	}
	out := make([]int64, count)
	for i, f := range args {
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%s() only accepts integral values", name)
		}
		out[i] = int64(f)
	}
	return out, nil
}

func arityError(name string, got, minArgs, maxArgs int) error {
	switch {
	case minArgs == maxArgs:
		return fmt.Errorf("%s() takes exactly %d argument(s) (%d given)", name, minArgs, got)
	case maxArgs < 0:
		return fmt.Errorf("%s() takes at least %d argument(s) (%d given)", name, minArgs, got)
	default:
		return fmt.Errorf("%s() takes %d to %d arguments (%d given)", name, minArgs, maxArgs, got)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func gcd(a, b int64) int64 {
	a, b = abs64(a), abs64(b)
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
