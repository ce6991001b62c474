package templating

import "strings"

// Includer resolves template inclusions during rendering. An Engine is
// the usual Includer; passing nil makes any {{<< name.tmpl }} tag a
// render error.
type Includer interface {
	Render(name string, ctx *Context) (string, error)
}

// renderNode walks the AST appending output to out. Boolean operator
// nodes are only legal beneath an IfNode condition and are rejected
// here, since the parser can never place them in render position on its
// own; hitting one means a hand-built AST.
func renderNode(node Node, ctx *Context, out *strings.Builder, inc Includer) error {
	switch n := node.(type) {
	case *RootNode:
		for _, child := range n.Children {
			if err := renderNode(child, ctx, out, inc); err != nil {
				return err
			}
		}
		return nil

	case *ConstantNode:
		out.WriteString(n.Data)
		return nil

	case *VariableNode:
		v, ok := ctx.Get(n.Name)
		if !ok {
			return &MissingVariableError{Name: n.Name}
		}
		data, ok := v.Data()
		if !ok || data == "" {
			return &MissingVariableDataError{Name: n.Name}
		}
		out.WriteString(data)
		return nil

	case *ForNode:
		v, ok := ctx.Get(n.Iterable)
		if !ok {
			return &MissingVariableError{Name: n.Iterable}
		}
		if v.Type() != TypeIterable {
			return &TypeMismatchError{
				Variable: n.Iterable,
				Expected: TypeIterable,
				Found:    v.Type(),
			}
		}
		data, ok := v.Data()
		if !ok {
			return &MissingVariableDataError{Name: n.Iterable}
		}
		if data == "" {
			return nil
		}
		for _, item := range strings.Split(data, ",") {
			loopCtx := ctx.Clone().Insert(n.Variable, TypeString.WithData(strings.TrimSpace(item)))
			for _, child := range n.Body {
				if err := renderNode(child, loopCtx, out, inc); err != nil {
					return err
				}
			}
		}
		return nil

	case *IfNode:
		truthy, err := evalCondition(n.Condition, ctx)
		if err != nil {
			return err
		}
		if truthy {
			for _, child := range n.Body {
				if err := renderNode(child, ctx, out, inc); err != nil {
					return err
				}
			}
			return nil
		}
		if n.Else != nil {
			return renderNode(n.Else, ctx, out, inc)
		}
		return nil

	case *IncludeNode:
		if inc == nil {
			return &RenderError{Message: "cannot include template: no engine provided"}
		}
		rendered, err := inc.Render(n.Template, ctx)
		if err != nil {
			return err
		}
		out.WriteString(rendered)
		return nil

	case *NotNode, *AndNode, *OrNode:
		return &RenderError{Message: "conditional operator node found outside of condition context"}

	default:
		return &RenderError{Message: "unknown node type encountered during rendering"}
	}
}

// evalCondition computes the truth value of a condition subtree.
// Variables resolve by their declared type: Booleans are true for the
// data values "true", "1" or "yes"; Strings and Iterables are true when
// they carry non-empty data. A variable absent from the context is
// simply false, never an error.
func evalCondition(node Node, ctx *Context) (bool, error) {
	switch n := node.(type) {
	case *VariableNode:
		v, ok := ctx.Get(n.Name)
		if !ok {
			return false, nil
		}
		data, ok := v.Data()
		if !ok {
			return false, nil
		}
		switch v.Type() {
		case TypeBoolean:
			return data == "true" || data == "1" || data == "yes", nil
		default:
			return data != "", nil
		}

	case *NotNode:
		inner, err := evalCondition(n.Condition, ctx)
		if err != nil {
			return false, err
		}
		return !inner, nil

	case *AndNode:
		left, err := evalCondition(n.Left, ctx)
		if err != nil || !left {
			return false, err
		}
		return evalCondition(n.Right, ctx)

	case *OrNode:
		left, err := evalCondition(n.Left, ctx)
		if err != nil || left {
			return left, err
		}
		return evalCondition(n.Right, ctx)

	case *IncludeNode:
		return false, &RenderError{Message: "Template includes cannot be used in conditions"}

	default:
		return false, &RenderError{Message: "invalid node in condition context"}
	}
}
