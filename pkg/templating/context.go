package templating

import (
	"encoding/json"
	"fmt"
	"sort"
)

// VarType is the declared type of a context variable. It governs how the
// variable may be used in a template: plain substitution, condition
// evaluation, or as a for-loop source.
type VarType int

const (
	// TypeString is a plain string value. In conditions it is truthy when
	// its data is present and non-empty.
	TypeString VarType = iota
	// TypeBoolean is a boolean value. Its data is parsed at evaluation
	// time: "true", "1" and "yes" are true, everything else is false.
	TypeBoolean
	// TypeIterable is a comma-separated collection, usable as a
	// {{% for %}} source. In conditions it is truthy when non-empty.
	TypeIterable
)

var varTypeNames = map[VarType]string{
	TypeString:   "String",
	TypeBoolean:  "Boolean",
	TypeIterable: "Iterable",
}

func (t VarType) String() string {
	if name, ok := varTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("VarType(%d)", int(t))
}

// MarshalJSON encodes the type as its name, e.g. "Iterable".
func (t VarType) MarshalJSON() ([]byte, error) {
	name, ok := varTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown variable type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a type name produced by MarshalJSON.
func (t *VarType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for ty, n := range varTypeNames {
		if n == name {
			*t = ty
			return nil
		}
	}
	return fmt.Errorf("unknown variable type %q", name)
}

// WithData builds a Variable of this type holding the given data.
func (t VarType) WithData(data string) Variable {
	return Variable{varType: t, data: &data}
}

// WithoutData builds a Variable of this type with no data attached. A
// variable without data is distinct from one holding an empty string,
// though both fail plain substitution.
func (t VarType) WithoutData() Variable {
	return Variable{varType: t}
}

// Variable is a single typed context entry: a declared type plus
// optionally-absent string data.
type Variable struct {
	varType VarType
	data    *string
}

// Type returns the variable's declared type.
func (v Variable) Type() VarType {
	return v.varType
}

// Data returns the variable's data and whether any data is attached.
func (v Variable) Data() (string, bool) {
	if v.data == nil {
		return "", false
	}
	return *v.data, true
}

type variableJSON struct {
	Type VarType `json:"type"`
	Data *string `json:"data,omitempty"`
}

// MarshalJSON encodes the variable as {"type": ..., "data": ...}, with
// data omitted entirely when absent.
func (v Variable) MarshalJSON() ([]byte, error) {
	return json.Marshal(variableJSON{Type: v.varType, Data: v.data})
}

// UnmarshalJSON decodes a variable produced by MarshalJSON.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var raw variableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.varType = raw.Type
	v.data = raw.Data
	return nil
}

// Context holds the variables available during a render pass, keyed by
// name. Keys are unique and a repeated Insert overwrites the previous
// entry. Contexts are value-copied (Clone) for loop bodies and
// inclusions, so bindings made there never leak back to the caller.
type Context struct {
	vars map[string]Variable
}

// NewContext returns a new, empty Context.
func NewContext() *Context {
	return &Context{vars: make(map[string]Variable)}
}

// Insert adds or replaces a variable. It returns the context to allow
// chained setup.
func (c *Context) Insert(name string, v Variable) *Context {
	c.vars[name] = v
	return c
}

// Get returns the named variable and whether it exists.
func (c *Context) Get(name string) (Variable, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Contains reports whether the named variable exists.
func (c *Context) Contains(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// Len returns the number of variables in the context.
func (c *Context) Len() int {
	return len(c.vars)
}

// Names returns every variable name, sorted.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the context.
func (c *Context) Clone() *Context {
	vars := make(map[string]Variable, len(c.vars))
	for name, v := range c.vars {
		vars[name] = v
	}
	return &Context{vars: vars}
}

// MarshalJSON encodes the context as a JSON object keyed by variable
// name, with keys in sorted order.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.vars)
}

// UnmarshalJSON decodes a context produced by MarshalJSON.
func (c *Context) UnmarshalJSON(data []byte) error {
	vars := make(map[string]Variable)
	if err := json.Unmarshal(data, &vars); err != nil {
		return err
	}
	c.vars = vars
	return nil
}
