package cli

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/service"
	"github.com/stencilkit/stencil/internal/storage"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "stencil-cli-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := storage.NewStorage(tempDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	svc := service.NewServiceWithStorage(store)
	if err := svc.InitLibrary(); err != nil {
		t.Fatalf("Failed to init library: %v", err)
	}

	tmpl := &models.Template{
		ID:   "summarize",
		Name: "Summarize",
		Body: "Respond in {lang}.\n{text}",
	}
	tmpl.Params.Set("text", &models.ParamSpec{Required: true})
	tmpl.Params.Set("lang", &models.ParamSpec{Default: "en"})
	if err := svc.CreateTemplate(tmpl); err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}

	return NewCLI(svc)
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns what
// was printed
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read captured output: %v", err)
	}
	return string(data), runErr
}

func TestRenderCommand(t *testing.T) {
	c := newTestCLI(t)

	output, err := captureStdout(t, func() error {
		return c.ExecuteCommand([]string{"render", "summarize", "--var", "text=hello"})
	})
	if err != nil {
		t.Fatalf("render command failed: %v", err)
	}
	if output != "Respond in en.\nhello\n" {
		t.Errorf("Unexpected output: %q", output)
	}
}

func TestRenderCommandJSONFormat(t *testing.T) {
	c := newTestCLI(t)

	output, err := captureStdout(t, func() error {
		return c.ExecuteCommand([]string{"render", "summarize", "--var", "text=hi", "--format", "json"})
	})
	if err != nil {
		t.Fatalf("render command failed: %v", err)
	}
	if !strings.Contains(output, `"role": "user"`) {
		t.Errorf("Expected message array output, got %q", output)
	}
	if !strings.Contains(output, "Respond in en.\\nhi") {
		t.Errorf("Expected rendered content in output, got %q", output)
	}
}

func TestRenderCommandMissingParameter(t *testing.T) {
	c := newTestCLI(t)

	_, err := captureStdout(t, func() error {
		return c.ExecuteCommand([]string{"render", "summarize"})
	})
	if err == nil {
		t.Fatal("Expected error for missing required parameter")
	}
	if !strings.Contains(err.Error(), "text") {
		t.Errorf("Expected error to name the missing parameter, got %v", err)
	}
}

func TestParseVars(t *testing.T) {
	ctx, rest, err := parseVars([]string{
		"--var", "text=hello world", "-v", "lang=es", "--format", "json",
	})
	if err != nil {
		t.Fatalf("parseVars failed: %v", err)
	}

	wantCtx := models.RenderContext{"text": "hello world", "lang": "es"}
	if diff := cmp.Diff(wantCtx, ctx); diff != "" {
		t.Errorf("Context mismatch (-want +got):\n%s", diff)
	}

	wantRest := []string{"--format", "json"}
	if diff := cmp.Diff(wantRest, rest); diff != "" {
		t.Errorf("Remaining args mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVarsValueContainsEquals(t *testing.T) {
	ctx, _, err := parseVars([]string{"--var", "expr=a=b"})
	if err != nil {
		t.Fatalf("parseVars failed: %v", err)
	}
	if ctx["expr"] != "a=b" {
		t.Errorf("Expected value 'a=b', got %q", ctx["expr"])
	}
}

func TestParseVarsErrors(t *testing.T) {
	if _, _, err := parseVars([]string{"--var"}); err == nil {
		t.Error("Expected error for --var without argument")
	}
	if _, _, err := parseVars([]string{"--var", "noequals"}); err == nil {
		t.Error("Expected error for pair without '='")
	}
	if _, _, err := parseVars([]string{"--var", "=value"}); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags("text, summarize , ,code")
	want := []string{"text", "summarize", "code"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}

	if tags := splitTags(""); tags != nil {
		t.Errorf("Expected nil for empty input, got %v", tags)
	}
}
