package templating

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEngineAddAndRender(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("greeting", "Hello, {{ name }}!"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	ctx := NewContext().Insert("name", TypeString.WithData("World"))
	out, err := engine.Render("greeting", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Hello, World!" {
		t.Errorf("expected 'Hello, World!', got %q", out)
	}
}

func TestEngineDuplicateTemplate(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("dup", "first"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	err := engine.AddTemplate("dup", "second")
	var exists *TemplateExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected TemplateExistsError, got %v", err)
	}
	if exists.Name != "dup" {
		t.Errorf("expected name 'dup', got %q", exists.Name)
	}

	// The original registration survives.
	out, err := engine.Render("dup", nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "first" {
		t.Errorf("expected 'first', got %q", out)
	}
}

func TestEngineAddTemplateParseFailure(t *testing.T) {
	engine := NewEngine()
	err := engine.AddTemplate("bad", "{{% if x %}}unclosed")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if engine.Len() != 0 || engine.Template("bad") != nil {
		t.Error("a failed registration must leave the engine unchanged")
	}
}

func TestEngineRenderUnknownTemplate(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Render("ghost", nil)
	var missing *MissingTemplateError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTemplateError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Template not found: ghost") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestEngineInclusion(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("page", "Header | {{<< body.tmpl }} | Footer"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	if err := engine.AddTemplate("body.tmpl", "welcome {{ user }}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	// The including template's context is visible inside the inclusion.
	ctx := NewContext().Insert("user", TypeString.WithData("ada"))
	out, err := engine.Render("page", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Header | welcome ada | Footer" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestEngineInclusionOfMissingTemplate(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("page", "{{<< nowhere.tmpl }}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	_, err := engine.Render("page", nil)
	var missing *MissingTemplateError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTemplateError, got %v", err)
	}
	if missing.Name != "nowhere.tmpl" {
		t.Errorf("expected 'nowhere.tmpl', got %q", missing.Name)
	}
}

func TestEngineNamesAndRemove(t *testing.T) {
	engine := NewEngine()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := engine.AddTemplate(name, "x"); err != nil {
			t.Fatalf("AddTemplate(%q) failed: %v", name, err)
		}
	}
	if names := engine.Names(); !reflect.DeepEqual(names, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("expected sorted names, got %v", names)
	}

	engine.RemoveTemplate("mid")
	engine.RemoveTemplate("never existed")
	if engine.Len() != 2 {
		t.Errorf("expected 2 templates after removal, got %d", engine.Len())
	}
	if engine.Template("mid") != nil {
		t.Error("removed template still resolvable")
	}
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	tmpl, err := NewTemplate("Hello, {{ name }}!")
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}

	data, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored Template
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	ctx := NewContext().Insert("name", TypeString.WithData("World"))
	out, err := restored.Render(ctx, nil)
	if err != nil {
		t.Fatalf("Render after round trip failed: %v", err)
	}
	if out != "Hello, World!" {
		t.Errorf("expected 'Hello, World!', got %q", out)
	}
	if restored.Source() != tmpl.Source() {
		t.Error("source text changed across the round trip")
	}
}

func TestTemplateUnmarshalInvalidSource(t *testing.T) {
	var tmpl Template
	err := json.Unmarshal([]byte(`"{{% if x %}}unclosed"`), &tmpl)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestEngineJSONRoundTrip(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddTemplate("greeting", "Hello, {{ name }}!"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	if err := engine.AddTemplate("list", "Items: {{% for item in items %}}{{ item }}, {{% endfor %}}"); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}

	data, err := json.Marshal(engine)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	restored := NewEngine()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(restored.Names(), engine.Names()) {
		t.Fatalf("expected names %v, got %v", engine.Names(), restored.Names())
	}

	ctx1 := NewContext().Insert("name", TypeString.WithData("World"))
	ctx2 := NewContext().Insert("items", TypeIterable.WithData("a, b, c"))
	for _, tc := range []struct {
		name string
		ctx  *Context
	}{
		{"greeting", ctx1},
		{"list", ctx2},
	} {
		want, err := engine.Render(tc.name, tc.ctx)
		if err != nil {
			t.Fatalf("Render(%q) failed: %v", tc.name, err)
		}
		got, err := restored.Render(tc.name, tc.ctx)
		if err != nil {
			t.Fatalf("Render(%q) after round trip failed: %v", tc.name, err)
		}
		if want != got {
			t.Errorf("%q: expected %q, got %q", tc.name, want, got)
		}
	}
}
