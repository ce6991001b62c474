package templating

import (
	"encoding/json"
	"sort"
)

// Interface is the template engine contract: registration, rendering
// and static variable analysis. Engine is the canonical implementation.
type Interface interface {
	AddTemplate(name, source string) error
	Render(name string, ctx *Context) (string, error)
	RequiredVariables(name string, ctx *Context) []RequiredVar
}

// Engine is a registry of named templates that can render each other
// through inclusion tags. The zero value is not usable; call NewEngine.
type Engine struct {
	templates map[string]*Template
}

var (
	_ Interface = (*Engine)(nil)
	_ Includer  = (*Engine)(nil)
)

// NewEngine returns an empty engine.
func NewEngine() *Engine {
	return &Engine{templates: make(map[string]*Template)}
}

// AddTemplate parses source and registers it under name. Registration
// is atomic: a parse failure leaves the engine unchanged, and a name
// already in use is a TemplateExistsError before any parsing happens.
func (e *Engine) AddTemplate(name, source string) error {
	if _, exists := e.templates[name]; exists {
		return &TemplateExistsError{Name: name}
	}
	tmpl, err := NewTemplate(source)
	if err != nil {
		return err
	}
	tmpl.name = name
	e.templates[name] = tmpl
	return nil
}

// RemoveTemplate drops the named template. Removing an unknown name is
// a no-op.
func (e *Engine) RemoveTemplate(name string) {
	delete(e.templates, name)
}

// Template returns the named template, or nil if unknown.
func (e *Engine) Template(name string) *Template {
	return e.templates[name]
}

// Names returns the registered template names, sorted.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered templates.
func (e *Engine) Len() int {
	return len(e.templates)
}

// Render evaluates the named template against ctx, resolving inclusions
// through the engine itself.
func (e *Engine) Render(name string, ctx *Context) (string, error) {
	tmpl, ok := e.templates[name]
	if !ok {
		return "", &MissingTemplateError{Name: name}
	}
	return tmpl.Render(ctx, e)
}

// RequiredVariables reports which variables the named template still
// needs given ctx, following inclusions through the engine. Inclusion
// cycles are walked once. An unknown name reports nothing.
func (e *Engine) RequiredVariables(name string, ctx *Context) []RequiredVar {
	tmpl, ok := e.templates[name]
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = NewContext()
	}
	c := newCollector(e)
	c.visited[name] = true
	c.walk(tmpl.ast, ctx)
	return c.result()
}

// MarshalJSON serializes the engine as a name-to-source object.
func (e *Engine) MarshalJSON() ([]byte, error) {
	sources := make(map[string]string, len(e.templates))
	for name, tmpl := range e.templates {
		sources[name] = tmpl.source
	}
	return json.Marshal(sources)
}

// UnmarshalJSON rebuilds the engine from a name-to-source object,
// re-parsing every template. A parse failure aborts the load.
func (e *Engine) UnmarshalJSON(data []byte) error {
	var sources map[string]string
	if err := json.Unmarshal(data, &sources); err != nil {
		return err
	}
	templates := make(map[string]*Template, len(sources))
	for name, source := range sources {
		tmpl, err := NewTemplate(source)
		if err != nil {
			return err
		}
		tmpl.name = name
		templates[name] = tmpl
	}
	e.templates = templates
	return nil
}
