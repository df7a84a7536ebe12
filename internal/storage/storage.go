// Package storage handles all file system operations for the template library.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/template"
)

// Storage handles loading, saving, and listing template documents under a
// library root.
type Storage struct {
	rootPath string
	cache    *MetadataCache
}

// NewStorage creates a new storage instance
func NewStorage(rootPath string) (*Storage, error) {
	if rootPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootPath = filepath.Join(homeDir, ".stencil")
	}

	cache := NewMetadataCache(rootPath)
	if err := cache.Load(); err != nil {
		// Log error but don't fail - cache is optional
		fmt.Fprintf(os.Stderr, "Warning: failed to load metadata cache: %v\n", err)
	}

	return &Storage{
		rootPath: rootPath,
		cache:    cache,
	}, nil
}

// InitLibrary creates the directory structure for a template library
func (s *Storage) InitLibrary() error {
	dirs := []string{
		s.rootPath,
		filepath.Join(s.rootPath, "templates"),
		filepath.Join(s.rootPath, ".stencil"),
		filepath.Join(s.rootPath, ".stencil", "cache"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetBaseDir returns the root path of the storage
func (s *Storage) GetBaseDir() string {
	return s.rootPath
}

// LoadTemplate loads a template document from a file with a YAML header
func (s *Storage) LoadTemplate(path string) (*models.Template, error) {
	fullPath := filepath.Join(s.rootPath, path)

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	tmpl, err := template.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	if tmpl.ID == "" {
		tmpl.ID = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	tmpl.FilePath = path
	tmpl.ContentHash = calculateHash(content)

	return tmpl, nil
}

// SaveTemplate saves a template document to a file with a YAML header
func (s *Storage) SaveTemplate(tmpl *models.Template) error {
	if tmpl.FilePath == "" {
		tmpl.FilePath = filepath.Join("templates", fmt.Sprintf("%s.md", tmpl.ID))
	}
	fullPath := filepath.Join(s.rootPath, tmpl.FilePath)

	// Ensure directory exists
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content, err := template.Serialize(tmpl)
	if err != nil {
		return fmt.Errorf("failed to serialize template: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	tmpl.ContentHash = calculateHash(content)
	return nil
}

// DeleteTemplate deletes a template file
func (s *Storage) DeleteTemplate(tmpl *models.Template) error {
	fullPath := filepath.Join(s.rootPath, tmpl.FilePath)
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete template file: %w", err)
	}
	return nil
}

// ListTemplates returns all templates in the library, using the metadata
// cache to skip parsing unchanged files.
func (s *Storage) ListTemplates() ([]*models.Template, error) {
	templatesDir := filepath.Join(s.rootPath, "templates")
	if _, err := os.Stat(templatesDir); os.IsNotExist(err) {
		return []*models.Template{}, nil // Library not initialized yet
	}

	var templates []*models.Template
	existingFiles := make(map[string]bool)
	cacheModified := false

	err := filepath.Walk(templatesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".md") {
			relPath, _ := filepath.Rel(s.rootPath, path)
			existingFiles[relPath] = true

			// Try to get from cache first
			if cached, valid := s.cache.Get(relPath, info); valid {
				templates = append(templates, cached.ToTemplate())
				return nil
			}

			// Cache miss - load and parse the template
			tmpl, err := s.LoadTemplate(relPath)
			if err != nil {
				// Log error but continue walking
				fmt.Fprintf(os.Stderr, "Warning: failed to load template %s: %v\n", relPath, err)
				return nil
			}

			s.cache.Set(relPath, filepath.Join(s.rootPath, relPath), info, tmpl)
			cacheModified = true

			templates = append(templates, tmpl)
		}

		return nil
	})

	// Cleanup cache entries for deleted files
	s.cache.Cleanup(existingFiles)

	if cacheModified {
		if err := s.cache.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save metadata cache: %v\n", err)
		}
	}

	return templates, err
}

func calculateHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
