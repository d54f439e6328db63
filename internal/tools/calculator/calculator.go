package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"modelctl/internal/core"
	"modelctl/internal/tools"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ToolName is the name the calculator registers under.
const ToolName = "calculator"

var (
	allowedChars = regexp.MustCompile(`^[\w+\-*/%^().,\[\]]+$`)

	// ErrInvalidExpression is returned for input rejected before evaluation.
	ErrInvalidExpression = errors.New("invalid mathematical expression")
)

// Calculator evaluates arithmetic expressions over a fixed set of constants
// and math functions. No other identifiers resolve.
type Calculator struct {
	env      map[string]any
	options  []expr.Option
	programs *expirable.LRU[string, *vm.Program]
}

// New creates a calculator with an empty program cache.
func New() *Calculator {
	env := constants()
	options := []expr.Option{
		expr.Env(env),
		expr.DisableAllBuiltins(),
	}
	for name, fn := range functions() {
		options = append(options, expr.Function(name, fn))
	}

	return &Calculator{
		env:      env,
		options:  options,
		programs: expirable.NewLRU[string, *vm.Program](core.CalculatorProgramCacheSize, nil, core.CalculatorProgramTTL),
	}
}

// Close drops every compiled program.
func (c *Calculator) Close() {
	c.programs.Purge()
}

// Evaluate computes expression and returns the result as a float.
func (c *Calculator) Evaluate(expression string) (float64, error) {
	compact := strings.Join(strings.Fields(expression), "")
	if compact == "" {
		return 0, fmt.Errorf("expression must be a non-empty string")
	}
	if len(compact) > core.MaxExpressionLength {
		return 0, fmt.Errorf("%w: longer than %d characters", ErrInvalidExpression, core.MaxExpressionLength)
	}
	if !allowedChars.MatchString(compact) || strings.Contains(compact, "__") {
		return 0, ErrInvalidExpression
	}

	program, err := c.compile(compact)
	if err != nil {
		return 0, evaluationError(err)
	}

	out, err := expr.Run(program, c.env)
	if err != nil {
		return 0, evaluationError(err)
	}

	result, ok := toFloat(out)
	if !ok {
		return 0, fmt.Errorf("expression did not evaluate to a number")
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("expression result %v is not a finite number", result)
	}
	return result, nil
}

// evaluationError maps integer division by zero, which constant folding can
// report at compile time, to the same message as the runtime case.
func evaluationError(err error) error {
	if strings.Contains(err.Error(), "divide by zero") {
		return fmt.Errorf("division by zero")
	}
	return fmt.Errorf("error evaluating expression: %w", err)
}

func (c *Calculator) compile(expression string) (*vm.Program, error) {
	if program, ok := c.programs.Get(expression); ok {
		return program, nil
	}
	program, err := expr.Compile(expression, c.options...)
	if err != nil {
		return nil, err
	}
	c.programs.Add(expression, program)
	return program, nil
}

// Definition returns the tool definition bound to c.
func (c *Calculator) Definition() tools.Definition {
	return tools.Definition{
		Name:        ToolName,
		Description: "Evaluate mathematical expressions. Supports basic arithmetic, trigonometric functions, and more.",
		Params: tools.NewParams().
			String("expression", "The mathematical expression to evaluate (e.g., '2 + 2 * 2', 'sin(pi/2)')"),
		ReturnType: tools.TypeNumber,
		Func: func(ctx context.Context, args tools.Args) (any, error) {
			return c.Evaluate(args.String("expression"))
		},
	}
}

// Register adds the calculator to registry.
func Register(registry *tools.Registry, c *Calculator) error {
	return registry.Register(c.Definition())
}
