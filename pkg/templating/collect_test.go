package templating

import (
	"reflect"
	"testing"
)

func requiredVars(t *testing.T, source string, ctx *Context) []RequiredVar {
	t.Helper()
	tmpl, err := NewTemplate(source)
	if err != nil {
		t.Fatalf("NewTemplate(%q) failed: %v", source, err)
	}
	return tmpl.RequiredVariables(ctx)
}

func TestCollectPlainVariable(t *testing.T) {
	vars := requiredVars(t, "Hello {{ name }}!", nil)
	expected := []RequiredVar{{Name: "name", Type: TypeString}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectSatisfiedVariableNotReported(t *testing.T) {
	ctx := NewContext().Insert("name", TypeString.WithData("Ada"))
	vars := requiredVars(t, "Hello {{ name }}!", ctx)
	if len(vars) != 0 {
		t.Errorf("expected no requirements, got %+v", vars)
	}
}

func TestCollectIterable(t *testing.T) {
	vars := requiredVars(t, "{{% for cat in cats %}}Hi {{ cat }}{{% endfor %}}", nil)
	expected := []RequiredVar{{Name: "cats", Type: TypeIterable}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectLoopVariableNotReported(t *testing.T) {
	// With the iterable satisfied the body is walked under a synthetic
	// loop binding, so only genuinely external variables surface.
	ctx := NewContext().Insert("cats", TypeIterable.WithData("a,b"))
	vars := requiredVars(t, "{{% for cat in cats %}}{{cat}} says {{greeting}}{{% endfor %}}", ctx)
	expected := []RequiredVar{{Name: "greeting", Type: TypeString}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectUnsatisfiedLoopBodySkipped(t *testing.T) {
	vars := requiredVars(t, "{{% for cat in cats %}}{{greeting}}{{% endfor %}}", nil)
	expected := []RequiredVar{{Name: "cats", Type: TypeIterable}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectConditionVariablesAreBoolean(t *testing.T) {
	vars := requiredVars(t, "{{% if a && !b || c %}}x{{% endif %}}", nil)
	expected := []RequiredVar{
		{Name: "a", Type: TypeBoolean},
		{Name: "b", Type: TypeBoolean},
		{Name: "c", Type: TypeBoolean},
	}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectOnlyReachableBranch(t *testing.T) {
	source := "{{% if flag %}}{{x}}{{% else %}}{{y}}{{% endif %}}"

	// An unknown flag evaluates false, so only the else branch is live.
	vars := requiredVars(t, source, nil)
	expected := []RequiredVar{
		{Name: "flag", Type: TypeBoolean},
		{Name: "y", Type: TypeString},
	}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}

	ctx := NewContext().Insert("flag", TypeBoolean.WithData("true"))
	vars = requiredVars(t, source, ctx)
	expected = []RequiredVar{{Name: "x", Type: TypeString}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectFirstTypeWins(t *testing.T) {
	// A variable read both as a condition and as output is reported once,
	// with the type of its first encounter.
	vars := requiredVars(t, "{{% if v %}}{{v}}{{% endif %}}", nil)
	expected := []RequiredVar{{Name: "v", Type: TypeBoolean}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectSortedByName(t *testing.T) {
	vars := requiredVars(t, "{{zulu}}{{alpha}}{{mike}}", nil)
	expected := []RequiredVar{
		{Name: "alpha", Type: TypeString},
		{Name: "mike", Type: TypeString},
		{Name: "zulu", Type: TypeString},
	}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestCollectTemplateLevelSkipsIncludes(t *testing.T) {
	// Without an engine there is nothing to resolve inclusions against.
	vars := requiredVars(t, "{{a}}{{<< other.tmpl }}", nil)
	expected := []RequiredVar{{Name: "a", Type: TypeString}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestEngineCollectFollowsIncludes(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("outer", "{{a}}{{<< inner.tmpl }}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	if err := engine.AddTemplate("inner.tmpl", "{{b}}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	vars := engine.RequiredVariables("outer", nil)
	expected := []RequiredVar{
		{Name: "a", Type: TypeString},
		{Name: "b", Type: TypeString},
	}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestEngineCollectCycleTerminates(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("a.tmpl", "{{x}}{{<< b.tmpl }}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	if err := engine.AddTemplate("b.tmpl", "{{y}}{{<< a.tmpl }}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	vars := engine.RequiredVariables("a.tmpl", nil)
	expected := []RequiredVar{
		{Name: "x", Type: TypeString},
		{Name: "y", Type: TypeString},
	}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}
}

func TestEngineCollectUnknownTemplate(t *testing.T) {
	engine := NewEngine()
	if vars := engine.RequiredVariables("ghost", nil); vars != nil {
		t.Errorf("expected nil for unknown template, got %+v", vars)
	}
}

func TestCollectEmptyMeansRenderable(t *testing.T) {
	// A context that satisfies the collector must render without errors.
	engine := NewEngine()
	source := "{{% if greet %}}Hello {{name}}{{% endif %}}" +
		"{{% for item in items %}}{{item}}{{% endfor %}}"
	if err := engine.AddTemplate("page", source); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	ctx := NewContext().
		Insert("greet", TypeBoolean.WithData("true")).
		Insert("name", TypeString.WithData("Ada")).
		Insert("items", TypeIterable.WithData("1,2"))
	if vars := engine.RequiredVariables("page", ctx); len(vars) != 0 {
		t.Fatalf("expected no outstanding requirements, got %+v", vars)
	}
	out, err := engine.Render("page", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Hello Ada12" {
		t.Errorf("unexpected output: %q", out)
	}
}
