package templating

import "sort"

// RequiredVar names a variable a template needs along with the type it
// is used as. A variable used both as plain output and in a condition
// keeps the type of its first encounter in document order.
type RequiredVar struct {
	Name string  `json:"name"`
	Type VarType `json:"type"`
}

// collector accumulates the variables a template still needs given a
// partially filled context. The engine is consulted for included
// templates and may be nil, in which case inclusions are skipped.
// visited holds template names already walked so inclusion cycles
// terminate.
type collector struct {
	engine  *Engine
	visited map[string]bool
	seen    map[string]bool
	out     []RequiredVar
}

func newCollector(engine *Engine) *collector {
	return &collector{
		engine:  engine,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
	}
}

func (c *collector) add(name string, t VarType) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.out = append(c.out, RequiredVar{Name: name, Type: t})
}

// result returns the collected variables sorted by name.
func (c *collector) result() []RequiredVar {
	sort.Slice(c.out, func(i, j int) bool {
		return c.out[i].Name < c.out[j].Name
	})
	return c.out
}

func (c *collector) walkAll(nodes []Node, ctx *Context) {
	for _, node := range nodes {
		c.walk(node, ctx)
	}
}

func (c *collector) walk(node Node, ctx *Context) {
	switch n := node.(type) {
	case *RootNode:
		c.walkAll(n.Children, ctx)

	case *ConstantNode:
		// literal text requires nothing

	case *VariableNode:
		if !ctx.Contains(n.Name) {
			c.add(n.Name, TypeString)
		}

	case *ForNode:
		if !ctx.Contains(n.Iterable) {
			c.add(n.Iterable, TypeIterable)
		}
		// The body is only walked when the iterable is actually
		// satisfied; otherwise the loop variable would leak out as a
		// requirement even though the caller never supplies it.
		v, ok := ctx.Get(n.Iterable)
		if !ok {
			return
		}
		data, ok := v.Data()
		if !ok || data == "" {
			return
		}
		loopCtx := ctx.Clone().Insert(n.Variable, TypeString.WithData("dummy"))
		c.walkAll(n.Body, loopCtx)

	case *IfNode:
		c.walkCondition(n.Condition, ctx)
		// Only the branch that would actually render is walked, so
		// variables behind an unreachable branch are not reported.
		truthy, err := evalCondition(n.Condition, ctx)
		if err != nil {
			truthy = false
		}
		if truthy {
			c.walkAll(n.Body, ctx)
		} else if n.Else != nil {
			c.walk(n.Else, ctx)
		}

	case *IncludeNode:
		if c.engine == nil || c.visited[n.Template] {
			return
		}
		tmpl, ok := c.engine.templates[n.Template]
		if !ok {
			return
		}
		c.visited[n.Template] = true
		c.walk(tmpl.ast, ctx)
	}
}

// walkCondition reports the variables a condition reads. Condition
// variables are always Boolean requirements regardless of nesting depth.
func (c *collector) walkCondition(node Node, ctx *Context) {
	switch n := node.(type) {
	case *VariableNode:
		if !ctx.Contains(n.Name) {
			c.add(n.Name, TypeBoolean)
		}
	case *NotNode:
		c.walkCondition(n.Condition, ctx)
	case *AndNode:
		c.walkCondition(n.Left, ctx)
		c.walkCondition(n.Right, ctx)
	case *OrNode:
		c.walkCondition(n.Left, ctx)
		c.walkCondition(n.Right, ctx)
	}
}
