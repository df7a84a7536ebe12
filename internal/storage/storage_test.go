package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stencilkit/stencil/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "stencil-storage-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	storage, err := NewStorage(tempDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := storage.InitLibrary(); err != nil {
		t.Fatalf("Failed to init library: %v", err)
	}
	return storage
}

func testTemplate(id string) *models.Template {
	tmpl := &models.Template{
		ID:      id,
		Name:    "Test " + id,
		Summary: "A test template",
		Tags:    []string{"test"},
		Body:    "Say {word}.",
	}
	tmpl.Params.Set("word", &models.ParamSpec{Required: true})
	return tmpl
}

func TestInitLibrary(t *testing.T) {
	storage := newTestStorage(t)

	for _, dir := range []string{"templates", ".stencil/cache"} {
		path := filepath.Join(storage.GetBaseDir(), dir)
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Expected directory %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("Expected %s to be a directory", dir)
		}
	}
}

func TestSaveAndLoadTemplate(t *testing.T) {
	storage := newTestStorage(t)
	tmpl := testTemplate("greet")

	if err := storage.SaveTemplate(tmpl); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}
	if tmpl.FilePath != filepath.Join("templates", "greet.md") {
		t.Errorf("Unexpected file path: %s", tmpl.FilePath)
	}
	if tmpl.ContentHash == "" {
		t.Error("Expected content hash to be set after save")
	}

	loaded, err := storage.LoadTemplate(tmpl.FilePath)
	if err != nil {
		t.Fatalf("Failed to load template: %v", err)
	}
	if loaded.ID != "greet" {
		t.Errorf("Expected ID 'greet', got '%s'", loaded.ID)
	}
	if loaded.Name != tmpl.Name {
		t.Errorf("Expected name '%s', got '%s'", tmpl.Name, loaded.Name)
	}
	if loaded.Body != tmpl.Body {
		t.Errorf("Expected body %q, got %q", tmpl.Body, loaded.Body)
	}
	if loaded.ContentHash != tmpl.ContentHash {
		t.Errorf("Content hash mismatch after round trip")
	}
	spec, ok := loaded.Params.Get("word")
	if !ok || !spec.Required {
		t.Error("Expected required parameter 'word' to survive the round trip")
	}
}

func TestLoadTemplateIDFromFilename(t *testing.T) {
	storage := newTestStorage(t)

	doc := "---\nname: No ID\n---\n\nBody text.\n"
	path := filepath.Join(storage.GetBaseDir(), "templates", "from-file.md")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	loaded, err := storage.LoadTemplate(filepath.Join("templates", "from-file.md"))
	if err != nil {
		t.Fatalf("Failed to load template: %v", err)
	}
	if loaded.ID != "from-file" {
		t.Errorf("Expected ID derived from filename, got '%s'", loaded.ID)
	}
}

func TestListTemplatesUsesCache(t *testing.T) {
	storage := newTestStorage(t)

	for _, id := range []string{"alpha", "beta"} {
		if err := storage.SaveTemplate(testTemplate(id)); err != nil {
			t.Fatalf("Failed to save template %s: %v", id, err)
		}
	}

	first, err := storage.ListTemplates()
	if err != nil {
		t.Fatalf("First list failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Expected 2 templates, got %d", len(first))
	}

	// Second listing is served from the metadata cache; the header fields
	// must still be present
	second, err := storage.ListTemplates()
	if err != nil {
		t.Fatalf("Second list failed: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("Expected 2 cached templates, got %d", len(second))
	}
	for _, tmpl := range second {
		if tmpl.Name == "" || len(tmpl.Tags) == 0 {
			t.Errorf("Cached template %s lost header fields", tmpl.ID)
		}
	}
}

func TestListTemplatesCacheInvalidation(t *testing.T) {
	storage := newTestStorage(t)
	tmpl := testTemplate("mutable")
	if err := storage.SaveTemplate(tmpl); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}

	if _, err := storage.ListTemplates(); err != nil {
		t.Fatalf("Initial list failed: %v", err)
	}

	tmpl.Name = "Renamed"
	if err := storage.SaveTemplate(tmpl); err != nil {
		t.Fatalf("Failed to re-save template: %v", err)
	}
	// Force a distinct mtime so the cached entry is stale
	fullPath := filepath.Join(storage.GetBaseDir(), tmpl.FilePath)
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(fullPath, future, future); err != nil {
		t.Fatalf("Failed to change mtime: %v", err)
	}

	listed, err := storage.ListTemplates()
	if err != nil {
		t.Fatalf("List after change failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("Expected 1 template, got %d", len(listed))
	}
	if listed[0].Name != "Renamed" {
		t.Errorf("Expected updated name, got '%s'", listed[0].Name)
	}
}

func TestListTemplatesMissingDir(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "stencil-storage-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	storage, err := NewStorage(tempDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	templates, err := storage.ListTemplates()
	if err != nil {
		t.Fatalf("Expected no error for uninitialized library, got %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("Expected empty list, got %d templates", len(templates))
	}
}

func TestDeleteTemplate(t *testing.T) {
	storage := newTestStorage(t)
	tmpl := testTemplate("doomed")
	if err := storage.SaveTemplate(tmpl); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}

	if err := storage.DeleteTemplate(tmpl); err != nil {
		t.Fatalf("Failed to delete template: %v", err)
	}

	fullPath := filepath.Join(storage.GetBaseDir(), tmpl.FilePath)
	if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
		t.Error("Expected template file to be removed")
	}

	listed, err := storage.ListTemplates()
	if err != nil {
		t.Fatalf("List after delete failed: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected empty list after delete, got %d", len(listed))
	}
}
