package templating

import "fmt"

// ParseErrorKind categorizes template parse failures.
type ParseErrorKind int

const (
	// ErrUnexpectedToken means a token was found that does not match the
	// grammar at that point.
	ErrUnexpectedToken ParseErrorKind = iota
	// ErrUnexpectedEOF means input ended while a block was still waiting
	// for its closing tag.
	ErrUnexpectedEOF
	// ErrInvalidIdentifier means an identifier started with a character
	// that cannot begin one.
	ErrInvalidIdentifier
	// ErrUnknownKeyword means a {{% ... %}} tag opened with a keyword the
	// language does not define.
	ErrUnknownKeyword
	// ErrExpected is the generic "expected X" failure, including a
	// zero-length identifier where one is required.
	ErrExpected
	// ErrMessage is the catch-all for parser errors that fit no other
	// category.
	ErrMessage
)

// ParseError is a template syntax error with the 1-indexed line and
// column of the failure point.
//
// Detail carries the kind-specific payload: the expected description for
// ErrExpected/ErrUnexpectedToken/ErrUnexpectedEOF, the offending keyword
// or character for ErrUnknownKeyword/ErrInvalidIdentifier, and the raw
// message for ErrMessage. Found, when non-empty, is the input text that
// was seen instead.
type ParseError struct {
	Line   int
	Column int
	Kind   ParseErrorKind
	Detail string
	Found  string
}

func (e *ParseError) Error() string {
	var msg string
	switch e.Kind {
	case ErrUnexpectedToken:
		msg = fmt.Sprintf("Expected %s, found %s", e.Detail, e.Found)
	case ErrUnexpectedEOF:
		if e.Detail == "" {
			msg = "Unexpected EOF"
		} else {
			msg = fmt.Sprintf("Unexpected EOF (expected '%s')", e.Detail)
		}
	case ErrInvalidIdentifier:
		msg = fmt.Sprintf("Invalid identifier starting with '%s'", e.Detail)
	case ErrUnknownKeyword:
		msg = fmt.Sprintf("Unknown keyword '%s'", e.Detail)
	case ErrExpected:
		msg = fmt.Sprintf("Expected %s", e.Detail)
	default:
		msg = fmt.Sprintf("Parser error: %s", e.Detail)
	}
	return fmt.Sprintf("Parse error at line %d, column %d: %s", e.Line, e.Column, msg)
}

// TemplateExistsError is returned by Engine.AddTemplate when the name is
// already registered.
type TemplateExistsError struct {
	Name string
}

func (e *TemplateExistsError) Error() string {
	return fmt.Sprintf("Template already exists: %s", e.Name)
}

// MissingTemplateError is returned when a named template cannot be
// resolved, either as a render target or through an inclusion.
type MissingTemplateError struct {
	Name string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("Template not found: %s", e.Name)
}

// MissingVariableError is returned when a substituted variable is absent
// from the context entirely.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("Variable not found: %s", e.Name)
}

// MissingVariableDataError is returned when a variable exists in the
// context but carries no data. An explicitly empty string counts as no
// data for plain substitution.
type MissingVariableDataError struct {
	Name string
}

func (e *MissingVariableDataError) Error() string {
	return fmt.Sprintf("Variable data missing: %s", e.Name)
}

// TypeMismatchError is returned when a variable's declared type does not
// match its use, e.g. a String used as a for-loop source.
type TypeMismatchError struct {
	Variable string
	Expected VarType
	Found    VarType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("Type mismatch for variable %s: expected %s, found %s",
		e.Variable, e.Expected, e.Found)
}

// RenderError reports structural misuse during rendering, such as a
// boolean operator node outside condition position or an inclusion with
// no engine available.
type RenderError struct {
	Message string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("Rendering error: %s", e.Message)
}
