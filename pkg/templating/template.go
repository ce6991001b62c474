package templating

import (
	"encoding/json"
	"strings"
)

// Template is a single parsed template. The original source text is
// retained alongside the AST so templates round-trip through JSON
// without loss; parsing happens once, at construction.
type Template struct {
	name   string
	source string
	ast    *RootNode
}

// NewTemplate parses source into a Template. The returned error, if
// any, is a *ParseError carrying line and column information.
func NewTemplate(source string) (*Template, error) {
	ast, perr := parse(source)
	if perr != nil {
		return nil, perr
	}
	return &Template{source: source, ast: ast}, nil
}

// Name returns the name the template is registered under, or "" if it
// is not held by an engine.
func (t *Template) Name() string {
	return t.name
}

// Source returns the raw template text the AST was parsed from.
func (t *Template) Source() string {
	return t.source
}

// Render evaluates the template against ctx. A nil ctx behaves like an
// empty one. inc resolves {{<< name.tmpl }} inclusions and may be nil
// when the template is known not to include others.
func (t *Template) Render(ctx *Context, inc Includer) (string, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	var out strings.Builder
	if err := renderNode(t.ast, ctx, &out, inc); err != nil {
		return "", err
	}
	return out.String(), nil
}

// RequiredVariables reports which variables the template still needs
// given the values already present in ctx, sorted by name. A nil ctx
// reports every variable the template can read. Inclusions are not
// followed; use Engine.RequiredVariables for that.
func (t *Template) RequiredVariables(ctx *Context) []RequiredVar {
	if ctx == nil {
		ctx = NewContext()
	}
	c := newCollector(nil)
	c.walk(t.ast, ctx)
	return c.result()
}

// MarshalJSON serializes the template as its source text.
func (t *Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.source)
}

// UnmarshalJSON re-parses the serialized source text.
func (t *Template) UnmarshalJSON(data []byte) error {
	var source string
	if err := json.Unmarshal(data, &source); err != nil {
		return err
	}
	ast, perr := parse(source)
	if perr != nil {
		return perr
	}
	t.source = source
	t.ast = ast
	return nil
}
