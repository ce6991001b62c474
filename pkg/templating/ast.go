package templating

// Node is the interface implemented by every AST node produced by the
// parser. A parsed template is a tree of Nodes rooted at a *RootNode.
//
// The node set is closed: RootNode, ConstantNode, VariableNode, ForNode,
// IfNode, NotNode, AndNode, OrNode and IncludeNode. NotNode, AndNode and
// OrNode are only valid inside an IfNode's condition expression;
// encountering one anywhere else during rendering is a *RenderError.
type Node interface {
	astNode()
}

// RootNode is a plain sequence of child nodes. It is used for whole
// templates as well as for else/else-if bodies.
type RootNode struct {
	Children []Node
}

// ConstantNode is a run of literal template text. Data is a substring of
// the original template source unless escape processing (\{{ or \{{%)
// forced the parser to rebuild it.
type ConstantNode struct {
	Data string
}

// VariableNode is a {{ name }} substitution, resolved against a Context
// at render time.
type VariableNode struct {
	Name string
}

// ForNode is a {{% for Variable in Iterable %}} loop. The iterable's
// data is split on commas and Body is rendered once per trimmed element
// with Variable bound in an extended copy of the context.
type ForNode struct {
	Variable string
	Iterable string
	Body     []Node
}

// IfNode is an {{% if %}} block. Condition is a boolean expression tree
// of VariableNode/NotNode/AndNode/OrNode. Else is nil, or a *RootNode
// wrapping either the else body or a nested *IfNode (for else-if chains).
type IfNode struct {
	Condition Node
	Body      []Node
	Else      Node
}

// NotNode negates its condition. Condition-only.
type NotNode struct {
	Condition Node
}

// AndNode is a short-circuit conjunction. Condition-only.
type AndNode struct {
	Left  Node
	Right Node
}

// OrNode is a short-circuit disjunction. Condition-only.
type OrNode struct {
	Left  Node
	Right Node
}

// IncludeNode is a {{<< name }} inclusion of another named template,
// resolved through an Includer at render time.
type IncludeNode struct {
	Template string
}

func (*RootNode) astNode()     {}
func (*ConstantNode) astNode() {}
func (*VariableNode) astNode() {}
func (*ForNode) astNode()      {}
func (*IfNode) astNode()       {}
func (*NotNode) astNode()      {}
func (*AndNode) astNode()      {}
func (*OrNode) astNode()       {}
func (*IncludeNode) astNode()  {}
