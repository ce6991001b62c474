package templating

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// parser is a recursive-descent parser over raw template text. It keeps
// a byte position plus the current 1-indexed line and the byte offset of
// that line's start, from which error columns are derived.
type parser struct {
	input string
	pos   int
	// line is the current line number, 1-indexed.
	line int
	// lineStart is the byte offset of the current line's start.
	lineStart int
}

func newParser(input string) *parser {
	return &parser{input: input, line: 1}
}

func (p *parser) column() int {
	return p.pos - p.lineStart + 1
}

func (p *parser) newError(kind ParseErrorKind, detail, found string) *ParseError {
	return &ParseError{
		Line:   p.line,
		Column: p.column(),
		Kind:   kind,
		Detail: detail,
		Found:  found,
	}
}

// advanceRune advances past one decoded rune, updating the line counter
// and line start when the rune is a newline.
func (p *parser) advanceRune(r rune, size int) {
	if r == '\n' {
		p.line++
		p.lineStart = p.pos + size
	}
	p.pos += size
}

// advanceNoNewline advances n bytes. The consumed text must not contain
// newlines or line/column tracking silently corrupts; it is used only
// for fixed delimiters and identifier bytes.
func (p *parser) advanceNoNewline(n int) {
	p.pos += n
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

// peek reports whether the remaining input starts with s.
func (p *parser) peek(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

// peekSeq reports whether the remaining input starts with every token in
// order, allowing whitespace and line comments between tokens. The first
// token must match at the current position exactly.
func (p *parser) peekSeq(tokens ...string) bool {
	if !p.peek(tokens[0]) {
		return false
	}
	probe := *p
	probe.pos += len(tokens[0])
	for _, tok := range tokens[1:] {
		probe.skipSpace()
		if !probe.peek(tok) {
			return false
		}
		probe.advanceNoNewline(len(tok))
	}
	return true
}

// consume advances past s if the remaining input starts with it.
// s must not contain newlines.
func (p *parser) consume(s string) bool {
	if p.peek(s) {
		p.advanceNoNewline(len(s))
		return true
	}
	return false
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '_' || b == '.'
}

// skipSpace consumes whitespace and // line comments. It is used
// between tokens inside tags; in constant position comments are ordinary
// template text and never reach this function.
func (p *parser) skipSpace() {
	for {
		start := p.pos
		for !p.eof() && isASCIISpace(p.input[p.pos]) {
			if p.input[p.pos] == '\n' {
				p.advanceRune('\n', 1)
			} else {
				p.advanceNoNewline(1)
			}
		}
		if p.peek("//") {
			p.advanceNoNewline(2)
			for !p.eof() {
				r, size := utf8.DecodeRuneInString(p.input[p.pos:])
				p.advanceRune(r, size)
				if r == '\n' {
					break
				}
			}
		}
		if p.pos == start {
			break
		}
	}
}

// expect consumes s or fails with an Expected error naming both s and
// the text actually found.
func (p *parser) expect(s string) *ParseError {
	if p.consume(s) {
		return nil
	}
	end := p.pos + len(s) + 10
	if end > len(p.input) {
		end = len(p.input)
	}
	found := p.input[p.pos:end]
	return p.newError(ErrExpected, fmt.Sprintf("'%s', found '%s'", s, found), found)
}

// identifier consumes and returns an identifier (ASCII alphanumerics,
// '_' and '.'), skipping leading whitespace first.
func (p *parser) identifier() (string, *ParseError) {
	p.skipSpace()
	start := p.pos
	for !p.eof() && isIdentByte(p.input[p.pos]) {
		p.advanceNoNewline(1)
	}
	if start == p.pos {
		return "", p.newError(ErrExpected, "identifier", "")
	}
	return p.input[start:p.pos], nil
}

// parseConstant consumes literal text up to the next unescaped tag
// opener or end of input. Escaped delimiters (\{{, covering \{{% too)
// drop the backslash and keep the delimiter as literal text, which
// forces the constant to be rebuilt instead of sliced from the source.
func (p *parser) parseConstant() *ConstantNode {
	start := p.pos
	var rebuilt *strings.Builder
	for !p.eof() {
		if p.peek("\\{{") {
			if rebuilt == nil {
				rebuilt = &strings.Builder{}
			}
			rebuilt.WriteString(p.input[start:p.pos])
			p.advanceNoNewline(1) // drop the backslash
			start = p.pos
			p.advanceNoNewline(2) // keep the {{ as literal text
			continue
		}
		if p.peek("{{") { // catches both {{ and {{%
			break
		}
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		p.advanceRune(r, size)
	}
	data := p.input[start:p.pos]
	if rebuilt != nil {
		rebuilt.WriteString(data)
		data = rebuilt.String()
	}
	return &ConstantNode{Data: data}
}

func (p *parser) parseVariableOrInclude() (Node, *ParseError) {
	if err := p.expect("{{"); err != nil {
		return nil, err
	}

	if p.consume("<<") {
		p.skipSpace()
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		p.consume(".tmpl")
		p.skipSpace()
		if err := p.expect("}}"); err != nil {
			return nil, err
		}
		return &IncludeNode{Template: name}, nil
	}

	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if err := p.expect("}}"); err != nil {
		return nil, err
	}
	return &VariableNode{Name: name}, nil
}

func (p *parser) parseNode() (Node, *ParseError) {
	if p.peek("{{%") {
		return p.parseControlFlow()
	}
	if p.peek("{{") {
		return p.parseVariableOrInclude()
	}
	return p.parseConstant(), nil
}

// parseNodesUntil parses nodes until the given end-tag token sequence is
// reached (or input ends, when end is nil). Reaching EOF with an end tag
// still pending is an UnexpectedEOF naming the expected closer.
func (p *parser) parseNodesUntil(end []string) ([]Node, *ParseError) {
	var nodes []Node
	for {
		if p.eof() {
			if end != nil {
				return nil, p.newError(ErrUnexpectedEOF, strings.Join(end, " "), "")
			}
			break
		}
		if end != nil && p.peekSeq(end...) {
			break
		}

		startPos := p.pos
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		// An empty constant that consumed nothing means parseConstant
		// stopped immediately at a tag; the next iteration parses the
		// tag itself, so the empty node is dropped.
		if p.pos == startPos && p.peek("{{") {
			if c, ok := node.(*ConstantNode); ok && c.Data == "" {
				continue
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Condition parsing: recursive descent with precedence, low to high,
// of || then && then !, bottoming out at bare identifiers.

func (p *parser) parseCondition() (Node, *ParseError) {
	return p.parseOrExpr()
}

func (p *parser) parseOrExpr() (Node, *ParseError) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if !p.consume("||") {
			break
		}
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAndExpr() (Node, *ParseError) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if !p.consume("&&") {
			break
		}
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNotExpr() (Node, *ParseError) {
	p.skipSpace()
	if p.consume("!") {
		cond, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		return &NotNode{Condition: cond}, nil
	}
	return p.parsePrimaryExpr()
}

func (p *parser) parsePrimaryExpr() (Node, *ParseError) {
	p.skipSpace()
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	return &VariableNode{Name: name}, nil
}

func (p *parser) parseControlFlow() (Node, *ParseError) {
	if err := p.expect("{{%"); err != nil {
		return nil, err
	}
	keyword, err := p.identifier()
	if err != nil {
		return nil, err
	}
	switch keyword {
	case "if":
		return p.parseIfStatement()
	case "for":
		return p.parseForLoop()
	default:
		return nil, p.newError(ErrUnknownKeyword, keyword, "")
	}
}

func (p *parser) parseForLoop() (Node, *ParseError) {
	variable, err := p.identifier()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if err := p.expect("in"); err != nil {
		return nil, err
	}
	iterable, err := p.identifier()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if err := p.expect("%}}"); err != nil {
		return nil, err
	}

	body, err := p.parseNodesUntil([]string{"{{%", "endfor", "%}}"})
	if err != nil {
		return nil, err
	}
	if err := p.expectTag("endfor"); err != nil {
		return nil, err
	}

	return &ForNode{Variable: variable, Iterable: iterable, Body: body}, nil
}

// expectTag consumes a whole {{% keyword %}} tag.
func (p *parser) expectTag(keyword string) *ParseError {
	if err := p.expect("{{%"); err != nil {
		return err
	}
	p.skipSpace()
	if err := p.expect(keyword); err != nil {
		return err
	}
	p.skipSpace()
	return p.expect("%}}")
}

func (p *parser) parseIfStatement() (Node, *ParseError) {
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if err := p.expect("%}}"); err != nil {
		return nil, err
	}
	return p.parseIfBlock(cond)
}

// parseIfBlock parses an if body up to its else/else-if/endif. An
// else-if is a nested IfNode wrapped in a singleton RootNode stored as
// the outer node's Else, so a chain can end in a bare else or endif
// without special cases.
func (p *parser) parseIfBlock(cond Node) (Node, *ParseError) {
	var body []Node
	var elseBranch Node

loop:
	for {
		switch {
		case p.eof():
			return nil, p.newError(ErrUnexpectedEOF,
				"{{% endif %}} or {{% else %}} or {{% else if %}}", "")
		case p.peekSeq("{{%", "else", "if"):
			if err := p.expect("{{%"); err != nil {
				return nil, err
			}
			p.skipSpace()
			if err := p.expect("else"); err != nil {
				return nil, err
			}
			p.skipSpace()
			if err := p.expect("if"); err != nil {
				return nil, err
			}
			nextCond, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if err := p.expect("%}}"); err != nil {
				return nil, err
			}
			nested, err := p.parseIfBlock(nextCond)
			if err != nil {
				return nil, err
			}
			elseBranch = &RootNode{Children: []Node{nested}}
			break loop
		case p.peekSeq("{{%", "else", "%}}"):
			if err := p.expectTag("else"); err != nil {
				return nil, err
			}
			elseBody, err := p.parseNodesUntil([]string{"{{%", "endif", "%}}"})
			if err != nil {
				return nil, err
			}
			if err := p.expectTag("endif"); err != nil {
				return nil, err
			}
			elseBranch = &RootNode{Children: elseBody}
			break loop
		case p.peekSeq("{{%", "endif", "%}}"):
			if err := p.expectTag("endif"); err != nil {
				return nil, err
			}
			break loop
		default:
			node, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			body = append(body, node)
		}
	}

	return &IfNode{Condition: cond, Body: body, Else: elseBranch}, nil
}

// parse converts raw template text into its AST. The whole input must be
// consumed; leftover text can only result from an internal bug and is
// surfaced as a hard error rather than ignored.
func parse(input string) (*RootNode, *ParseError) {
	if input == "" {
		return &RootNode{}, nil
	}
	p := newParser(input)
	nodes, err := p.parseNodesUntil(nil)
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.newError(ErrMessage,
			fmt.Sprintf("Parser did not consume entire input. Remaining: '%s'", p.input[p.pos:]), "")
	}
	return &RootNode{Children: nodes}, nil
}
