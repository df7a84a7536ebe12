package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stencilkit/stencil/internal/models"
)

func sampleTemplate(t *testing.T) *models.Template {
	t.Helper()
	tmpl, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return tmpl
}

func TestRenderWithDefault(t *testing.T) {
	tmpl := sampleTemplate(t)

	output, err := Render(tmpl, models.RenderContext{"text": "hello world"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "Respond in en.\nhello world"
	if output != want {
		t.Errorf("Output mismatch: got %q, want %q", output, want)
	}
}

func TestRenderContextOverridesDefault(t *testing.T) {
	tmpl := sampleTemplate(t)

	output, err := Render(tmpl, models.RenderContext{"text": "hola", "lang": "es"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "Respond in es.\nhola"
	if output != want {
		t.Errorf("Output mismatch: got %q, want %q", output, want)
	}
}

func TestRenderMissingRequiredParameter(t *testing.T) {
	tmpl := sampleTemplate(t)

	_, err := Render(tmpl, models.RenderContext{})
	if err == nil {
		t.Fatal("Expected error for missing required parameter")
	}

	var missing *MissingParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected *MissingParameterError, got %T", err)
	}
	if missing.Name != "text" {
		t.Errorf("Expected missing parameter 'text', got '%s'", missing.Name)
	}
}

func TestRenderRequiredIgnoresDefault(t *testing.T) {
	tmpl := &models.Template{Body: "{value}"}
	tmpl.Params.Set("value", &models.ParamSpec{Required: true, Default: "fallback"})

	_, err := Render(tmpl, models.RenderContext{})
	var missing *MissingParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected *MissingParameterError despite default, got %v", err)
	}
}

func TestRenderOptionalWithoutDefaultIsEmpty(t *testing.T) {
	tmpl := &models.Template{Body: "before/{note}/after"}
	tmpl.Params.Set("note", &models.ParamSpec{})

	output, err := Render(tmpl, models.RenderContext{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if output != "before//after" {
		t.Errorf("Expected empty substitution, got %q", output)
	}
}

func TestRenderIdempotent(t *testing.T) {
	tmpl := sampleTemplate(t)
	ctx := models.RenderContext{"text": "same input"}

	first, err := Render(tmpl, ctx)
	if err != nil {
		t.Fatalf("First render failed: %v", err)
	}
	second, err := Render(tmpl, ctx)
	if err != nil {
		t.Fatalf("Second render failed: %v", err)
	}

	if first != second {
		t.Errorf("Render is not idempotent: %q != %q", first, second)
	}
}

func TestRenderUnknownPlaceholderPassesThrough(t *testing.T) {
	tmpl := &models.Template{Body: "known: {text}, unknown: {mystery}"}
	tmpl.Params.Set("text", &models.ParamSpec{Required: true})

	output, err := Render(tmpl, models.RenderContext{"text": "value"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "known: value, unknown: {mystery}"
	if output != want {
		t.Errorf("Output mismatch: got %q, want %q", output, want)
	}
}

func TestRenderSinglePassNoRecursiveExpansion(t *testing.T) {
	tmpl := sampleTemplate(t)

	// A substituted value containing a placeholder token must not be
	// expanded again
	output, err := Render(tmpl, models.RenderContext{"text": "literal {lang} stays"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "Respond in en.\nliteral {lang} stays"
	if output != want {
		t.Errorf("Output mismatch: got %q, want %q", output, want)
	}
}

func TestRenderStrayBraces(t *testing.T) {
	tmpl := &models.Template{Body: "open { not a token, nested {a{text}} end"}
	tmpl.Params.Set("text", &models.ParamSpec{})

	output, err := Render(tmpl, models.RenderContext{"text": "X"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// The bare brace and the outer {a... prefix are not tokens; the inner
	// {text} still substitutes
	want := "open { not a token, nested {aX} end"
	if output != want {
		t.Errorf("Output mismatch: got %q, want %q", output, want)
	}
}

func TestRenderNonIdentifierNamePassesThrough(t *testing.T) {
	tmpl := &models.Template{Body: "{user.name} and {user_name}"}
	tmpl.Params.Set("user.name", &models.ParamSpec{Default: "x"})
	tmpl.Params.Set("user_name", &models.ParamSpec{Default: "y"})

	output, err := Render(tmpl, models.RenderContext{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// A dotted name is outside the placeholder alphabet, so the token stays
	// verbatim even though a parameter of that name is declared
	want := "{user.name} and y"
	if output != want {
		t.Errorf("Output mismatch: got %q, want %q", output, want)
	}

	problems := Lint(tmpl)
	if len(problems) != 1 {
		t.Fatalf("Expected 1 problem, got %v", problems)
	}
	if problems[0] != `parameter "user.name" is never referenced in the body` {
		t.Errorf("Unexpected problem: %s", problems[0])
	}
}

func TestRenderJSONMessageArray(t *testing.T) {
	tmpl := sampleTemplate(t)

	output, err := RenderJSON(tmpl, models.RenderContext{"text": "hi"})
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(output), &messages); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != "user" {
		t.Errorf("Expected role 'user', got '%s'", messages[0].Role)
	}
	if messages[0].Content != "Respond in en.\nhi" {
		t.Errorf("Unexpected content: %q", messages[0].Content)
	}
}

func TestLintReportsMismatches(t *testing.T) {
	tmpl := &models.Template{Body: "uses {declared} and {undeclared}"}
	tmpl.Params.Set("declared", &models.ParamSpec{})
	tmpl.Params.Set("unused", &models.ParamSpec{})

	problems := Lint(tmpl)
	if len(problems) != 2 {
		t.Fatalf("Expected 2 problems, got %d: %v", len(problems), problems)
	}
	if problems[0] != "placeholder {undeclared} has no parameter entry" {
		t.Errorf("Unexpected first problem: %s", problems[0])
	}
	if problems[1] != `parameter "unused" is never referenced in the body` {
		t.Errorf("Unexpected second problem: %s", problems[1])
	}
}

func TestLintCleanTemplate(t *testing.T) {
	tmpl := sampleTemplate(t)
	if problems := Lint(tmpl); len(problems) != 0 {
		t.Errorf("Expected no problems, got %v", problems)
	}
}
