/*
Package templating implements the Drosera template language: a small,
dependency-free text templating engine built around an explicit AST.

Templates combine constant text, {{ variable }} substitutions,
{{% if %}}/{{% else if %}}/{{% else %}} conditionals with boolean
operators (!, &&, ||), {{% for item in items %}} loops over
comma-separated data, and {{<< name }} inclusion of other templates.
Line comments (// ...) are skipped inside tags and passed through
verbatim everywhere else, and the delimiters themselves can be escaped
with a backslash (\{{).

Rendering happens against a typed Context: every variable carries a
declared type (String, Boolean or Iterable) and optional string data,
and the engine reports typed errors when a template is used with a
context that does not satisfy it. The Engine also supports static
analysis: RequiredVariables walks a template and everything it
transitively includes to report which variables a caller still has to
supply.

Parsing and rendering are pure, synchronous, in-memory computations.
The Engine's template set is append-only; callers that share an Engine
across goroutines must provide their own synchronization.
*/
package templating
