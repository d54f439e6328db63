package tools

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
)

// Param describes one declared parameter of a tool.
type Param struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	// Default is applied when an optional parameter is absent. Nil means none.
	Default any
}

// ParamOption adjusts a parameter added through the builder.
type ParamOption func(*Param)

// Optional marks the parameter as not required, without a default.
func Optional() ParamOption {
	return func(p *Param) {
		p.Required = false
	}
}

// Default marks the parameter optional and sets the value used when absent.
func Default(v any) ParamOption {
	return func(p *Param) {
		p.Required = false
		p.Default = v
	}
}

// Params is an ordered parameter list built at registration time:
//
//	tools.NewParams().
//		String("expression", "Arithmetic expression").
//		Integer("precision", "Decimal places", tools.Default(2))
type Params struct {
	list []Param
}

// NewParams starts an empty parameter list.
func NewParams() *Params {
	return &Params{}
}

// Add appends p as given.
func (p *Params) Add(param Param) *Params {
	p.list = append(p.list, param)
	return p
}

func (p *Params) add(name string, typ Type, description string, opts []ParamOption) *Params {
	param := Param{Name: name, Type: typ, Description: description, Required: true}
	for _, opt := range opts {
		opt(&param)
	}
	return p.Add(param)
}

// String declares a string parameter, required unless an option says otherwise.
func (p *Params) String(name, description string, opts ...ParamOption) *Params {
	return p.add(name, TypeString, description, opts)
}

// Integer declares an integer parameter.
func (p *Params) Integer(name, description string, opts ...ParamOption) *Params {
	return p.add(name, TypeInteger, description, opts)
}

// Number declares a floating point parameter.
func (p *Params) Number(name, description string, opts ...ParamOption) *Params {
	return p.add(name, TypeNumber, description, opts)
}

// Boolean declares a boolean parameter.
func (p *Params) Boolean(name, description string, opts ...ParamOption) *Params {
	return p.add(name, TypeBoolean, description, opts)
}

// Any declares a parameter accepting any JSON value.
func (p *Params) Any(name, description string, opts ...ParamOption) *Params {
	return p.add(name, TypeAny, description, opts)
}

// List returns a copy of the declared parameters in order.
func (p *Params) List() []Param {
	if p == nil {
		return nil
	}
	return slices.Clone(p.list)
}

// Len returns the number of declared parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}

var argsReflector = &jsonschema.Reflector{
	ExpandedStruct: true,
	DoNotReference: true,
	Anonymous:      true,
}

// InferParams derives parameters from an argument struct. Field names follow
// the json tag; a field is required unless it is omitempty or declares a
// default through `jsonschema:"default=..."`. Descriptions come from
// `jsonschema:"description=..."`.
func InferParams(prototype any) (*Params, error) {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("argument prototype must be a struct, got %T", prototype)
	}

	schema := argsReflector.ReflectFromType(t)
	params := NewParams()
	if schema.Properties == nil {
		return params, nil
	}

	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		param := Param{
			Name:        pair.Key,
			Type:        typeFromSchema(prop),
			Description: prop.Description,
			Default:     prop.Default,
		}
		param.Required = slices.Contains(schema.Required, pair.Key) && prop.Default == nil
		params.Add(param)
	}
	return params, nil
}

func typeFromSchema(s *jsonschema.Schema) Type {
	switch s.Type {
	case "string":
		return TypeString
	case "integer":
		return TypeInteger
	case "number":
		return TypeNumber
	case "boolean":
		return TypeBoolean
	case "null":
		return TypeNull
	}
	return TypeAny
}
