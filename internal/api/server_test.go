package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/service"
	"github.com/stencilkit/stencil/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "stencil-api-test")
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
		ID:      "summarize",
		Name:    "Summarize",
		Summary: "Condenses input text",
		Tags:    []string{"text"},
		Body:    "Respond in {lang}.\n{text}",
	}
	tmpl.Params.Set("text", &models.ParamSpec{Required: true})
	tmpl.Params.Set("lang", &models.ParamSpec{Default: "en"})
	if err := svc.CreateTemplate(tmpl); err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}

	return NewServer(svc, 0)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return rec, resp
}

func TestListTemplates(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "GET", "/api/v1/templates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !resp.Success {
		t.Error("Expected success response")
	}
	templates, ok := resp.Data.([]interface{})
	if !ok || len(templates) != 1 {
		t.Errorf("Expected 1 template in data, got %v", resp.Data)
	}
}

func TestGetTemplate(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "GET", "/api/v1/templates/summarize", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %v", resp.Data)
	}
	if data["ID"] != "summarize" {
		t.Errorf("Expected template 'summarize', got %v", data["ID"])
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "GET", "/api/v1/templates/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	if resp.Success {
		t.Error("Expected failure response")
	}
}

func TestRenderTemplate(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "POST", "/api/v1/templates/summarize/render",
		`{"text": "hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %v", resp.Data)
	}
	if data["output"] != "Respond in en.\nhello" {
		t.Errorf("Unexpected render output: %v", data["output"])
	}
}

func TestRenderTemplateMissingParameter(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "POST", "/api/v1/templates/summarize/render",
		`{"lang": "fr"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if resp.Success {
		t.Error("Expected failure response")
	}
}

func TestCreateTemplate(t *testing.T) {
	srv := newTestServer(t)

	doc := "---\nid: translate\nname: Translate\nparams:\n  text:\n    required: true\n---\n\n{text}\n"
	body, _ := json.Marshal(map[string]string{"document": doc})

	rec, resp := doRequest(t, srv, "POST", "/api/v1/templates", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success {
		t.Error("Expected success response")
	}

	rec, _ = doRequest(t, srv, "GET", "/api/v1/templates/translate", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected created template to be retrievable, got %d", rec.Code)
	}
}

func TestCreateTemplateMalformedDocument(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"document": "no header here"})
	rec, _ := doRequest(t, srv, "POST", "/api/v1/templates", string(body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteTemplate(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := doRequest(t, srv, "DELETE", "/api/v1/templates/summarize", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec, _ = doRequest(t, srv, "GET", "/api/v1/templates/summarize", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := doRequest(t, srv, "GET", "/api/v1/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	rec, resp := doRequest(t, srv, "GET", "/api/v1/search?q=summ", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	matches, ok := resp.Data.([]interface{})
	if !ok || len(matches) != 1 {
		t.Errorf("Expected 1 search match, got %v", resp.Data)
	}
}

func TestTags(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "GET", "/api/v1/tags", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	tags, ok := resp.Data.([]interface{})
	if !ok || len(tags) != 1 || tags[0] != "text" {
		t.Errorf("Expected tags [text], got %v", resp.Data)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := doRequest(t, srv, "GET", "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %v", resp.Data)
	}
	if data["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", data["status"])
	}
}
