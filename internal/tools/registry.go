package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"modelctl/internal/core"
	"modelctl/internal/validate"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Func is the callable bound to a tool. Arguments arrive validated against
// the declared parameters, with defaults filled in.
type Func func(ctx context.Context, args Args) (any, error)

// Definition is what a tool provider hands to Register.
type Definition struct {
	Name        string
	Description string
	// Params lists the parameters explicitly and takes precedence over Args.
	Params *Params
	// Args is an argument struct prototype parameters are inferred from.
	Args       any
	ReturnType Type
	Func       Func
}

// ParamDescriptor is the wire form of one parameter.
type ParamDescriptor struct {
	Type        Type   `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Descriptor is the wire form of a tool, the contract clients build calls from.
type Descriptor struct {
	Name        string                                          `json:"name"`
	Description string                                          `json:"description"`
	Parameters  *orderedmap.OrderedMap[string, ParamDescriptor] `json:"parameters"`
	ReturnType  Type                                            `json:"return_type"`
	InputSchema *jsonschema.Schema                              `json:"input_schema"`
}

type tool struct {
	name        string
	description string
	params      []Param
	defaults    map[string]Value
	returnType  Type
	fn          Func
	descriptor  Descriptor
}

func (t *tool) declares(name string) bool {
	for _, p := range t.params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Registry holds the tool catalog and dispatches calls.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*tool
	order  []string
	logger core.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger core.Logger) *Registry {
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Registry{
		tools:  make(map[string]*tool),
		logger: logger,
	}
}

// Register adds a tool. A name that is already taken fails with
// DuplicateName and leaves the existing tool untouched.
func (r *Registry) Register(def Definition) error {
	t, err := compile(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.name]; exists {
		return core.NewAppErrorf(core.ErrCodeDuplicateName, nil, "tool %s is already registered", t.name)
	}
	r.tools[t.name] = t
	r.order = append(r.order, t.name)
	r.logger.Info("Registered tool %s with %d parameters", t.name, len(t.params))
	return nil
}

func compile(def Definition) (*tool, error) {
	invalid := func(format string, args ...any) error {
		return core.NewAppErrorf(core.ErrCodeInvalidDefinition, nil, "tool %s: %s", def.Name, fmt.Sprintf(format, args...))
	}

	if err := validate.ToolName(def.Name); err != nil {
		return nil, core.NewAppError(core.ErrCodeInvalidDefinition, "invalid tool name", err)
	}
	if def.Func == nil {
		return nil, invalid("no callable bound")
	}

	params := def.Params
	if params == nil && def.Args != nil {
		inferred, err := InferParams(def.Args)
		if err != nil {
			return nil, invalid("%v", err)
		}
		params = inferred
	}

	t := &tool{
		name:        def.Name,
		description: def.Description,
		params:      params.List(),
		defaults:    make(map[string]Value),
		returnType:  def.ReturnType,
		fn:          def.Func,
	}
	if t.returnType == "" {
		t.returnType = TypeString
	}
	if !t.returnType.Valid() {
		return nil, invalid("unknown return type %q", t.returnType)
	}

	names := make([]string, 0, len(t.params))
	for i := range t.params {
		p := &t.params[i]
		names = append(names, p.Name)
		if p.Type == "" {
			p.Type = TypeAny
		}
		if !p.Type.Valid() {
			return nil, invalid("parameter %s has unknown type %q", p.Name, p.Type)
		}
		if p.Default == nil {
			continue
		}
		if p.Required {
			return nil, invalid("required parameter %s cannot carry a default", p.Name)
		}
		v, err := Convert(p.Default, p.Type)
		if err != nil {
			return nil, invalid("default of parameter %s: %v", p.Name, err)
		}
		t.defaults[p.Name] = v
		p.Default = v.Interface()
	}
	if err := validate.ParamNames(names); err != nil {
		return nil, invalid("%v", err)
	}

	t.descriptor = buildDescriptor(t)
	return t, nil
}

func buildDescriptor(t *tool) Descriptor {
	params := orderedmap.New[string, ParamDescriptor]()
	for _, p := range t.params {
		params.Set(p.Name, ParamDescriptor{
			Type:        p.Type,
			Description: p.Description,
			Required:    p.Required,
			Default:     p.Default,
		})
	}
	return Descriptor{
		Name:        t.name,
		Description: t.description,
		Parameters:  params,
		ReturnType:  t.returnType,
		InputSchema: inputSchema(t.params),
	}
}

// ListTools returns descriptors in registration order.
func (r *Registry) ListTools() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].descriptor)
	}
	return out
}

// Describe returns the descriptor of one tool.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Descriptor{}, false
	}
	return t.descriptor, true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute validates args against the tool's parameters, runs it, and checks
// the result can be sent as JSON.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, core.NewAppErrorf(core.ErrCodeNotFound, nil, "tool %s not found", name)
	}

	bound, err := t.bind(args)
	if err != nil {
		return nil, core.NewAppErrorf(core.ErrCodeToolExecutionFailed, err, "invalid arguments for tool %s", name)
	}

	start := time.Now()
	result, err := r.invoke(ctx, t, bound)
	if err != nil {
		r.logger.Warn("Tool %s failed after %v: %v", name, time.Since(start), err)
		return nil, core.NewAppErrorf(core.ErrCodeToolExecutionFailed, err, "tool %s failed", name)
	}

	if err := validate.Serializable(result); err != nil {
		r.logger.Error("Tool %s returned a non-serializable %T", name, result)
		return nil, core.NewAppErrorf(core.ErrCodeNonSerializableResult, err, "tool %s returned a result that cannot be serialized", name)
	}

	r.logger.Debug("Tool %s succeeded in %v", name, time.Since(start))
	return result, nil
}

func (t *tool) bind(raw map[string]any) (Args, error) {
	if unknown := validate.UnknownParams(raw, t.declares); len(unknown) > 0 {
		return Args{}, fmt.Errorf("unknown parameter(s): %s", strings.Join(unknown, ", "))
	}

	values := make(map[string]Value, len(t.params))
	var errs []error
	for _, p := range t.params {
		input, present := raw[p.Name]
		if !present {
			if def, ok := t.defaults[p.Name]; ok {
				values[p.Name] = def
			} else if p.Required {
				errs = append(errs, fmt.Errorf("missing required parameter: %s", p.Name))
			}
			continue
		}
		v, err := Convert(input, p.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("parameter %s: %w", p.Name, err))
			continue
		}
		values[p.Name] = v
	}
	if len(errs) > 0 {
		return Args{}, errors.Join(errs...)
	}
	return Args{values: values}, nil
}

func (r *Registry) invoke(ctx context.Context, t *tool, args Args) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Tool %s panicked: %v\n%s", t.name, rec, debug.Stack())
			result, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	return t.fn(ctx, args)
}
