// Package service provides business logic for template library management
package service

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/stencilkit/stencil/internal/errors"
	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/storage"
	"github.com/stencilkit/stencil/internal/template"
)

// Service provides business logic for template management
type Service struct {
	storage   *storage.Storage
	templates []*models.Template // Cached templates for fast access
}

// NewService creates a new service instance
func NewService() (*Service, error) {
	// Check for custom directory from environment
	rootPath := os.Getenv("STENCIL_DIR")
	store, err := storage.NewStorage(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &Service{storage: store}, nil
}

// NewServiceWithStorage creates a service backed by an explicit storage
// instance. Used by tests.
func NewServiceWithStorage(store *storage.Storage) *Service {
	return &Service{storage: store}
}

// InitLibrary initializes a new template library
func (s *Service) InitLibrary() error {
	return s.storage.InitLibrary()
}

// BaseDir returns the library root path
func (s *Service) BaseDir() string {
	return s.storage.GetBaseDir()
}

// loadTemplates loads all templates from storage into the cache
func (s *Service) loadTemplates() error {
	templates, err := s.storage.ListTemplates()
	if err != nil {
		return errors.StorageError("list templates", err)
	}
	s.templates = templates
	return nil
}

// ListTemplates returns all templates in the library
func (s *Service) ListTemplates() ([]*models.Template, error) {
	if len(s.templates) == 0 {
		if err := s.loadTemplates(); err != nil {
			return nil, err
		}
	}
	return s.templates, nil
}

// SearchTemplates searches templates by query string
func (s *Service) SearchTemplates(query string) ([]*models.Template, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}

	if query == "" {
		return templates, nil
	}

	// Create searchable strings for each template
	var searchStrings []string
	for _, t := range templates {
		searchStr := fmt.Sprintf("%s %s %s %s",
			t.Name,
			t.Summary,
			t.ID,
			strings.Join(t.Tags, " "))
		searchStrings = append(searchStrings, searchStr)
	}

	matches := fuzzy.Find(query, searchStrings)

	var results []*models.Template
	for _, match := range matches {
		results = append(results, templates[match.Index])
	}

	return results, nil
}

// GetTemplate returns a template by ID with the full body and parameter
// specs loaded.
func (s *Service) GetTemplate(id string) (*models.Template, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}

	for _, t := range templates {
		if t.ID == id {
			// Cached entries carry header metadata only; load the file
			// for the body and parameter specs
			if t.Body == "" && t.FilePath != "" {
				full, err := s.storage.LoadTemplate(t.FilePath)
				if err != nil {
					return nil, errors.StorageError("load template", err)
				}
				return full, nil
			}
			return t, nil
		}
	}

	return nil, errors.NotFoundError(fmt.Sprintf("template '%s'", id))
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// CreateTemplate creates a new template
func (s *Service) CreateTemplate(tmpl *models.Template) error {
	if tmpl.ID == "" {
		return errors.ValidationError("template ID is required")
	}
	if !idPattern.MatchString(tmpl.ID) {
		return errors.ValidationError(fmt.Sprintf("template ID '%s' must contain only lowercase letters, digits, and hyphens", tmpl.ID))
	}

	if _, err := s.GetTemplate(tmpl.ID); err == nil {
		return errors.AlreadyExistsError(fmt.Sprintf("template '%s'", tmpl.ID))
	}

	now := time.Now()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	if err := s.storage.SaveTemplate(tmpl); err != nil {
		return errors.StorageError("save template", err)
	}

	// Reload template cache
	return s.loadTemplates()
}

// UpdateTemplate updates an existing template
func (s *Service) UpdateTemplate(tmpl *models.Template) error {
	existing, err := s.GetTemplate(tmpl.ID)
	if err != nil {
		return err
	}

	tmpl.FilePath = existing.FilePath
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.UpdatedAt = time.Now()

	if err := s.storage.SaveTemplate(tmpl); err != nil {
		return errors.StorageError("save template", err)
	}

	return s.loadTemplates()
}

// DeleteTemplate deletes a template by ID
func (s *Service) DeleteTemplate(id string) error {
	tmpl, err := s.GetTemplate(id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteTemplate(tmpl); err != nil {
		return errors.StorageError("delete template", err)
	}

	return s.loadTemplates()
}

// FilterByTag returns templates carrying the given tag
func (s *Service) FilterByTag(tag string) ([]*models.Template, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}

	var filtered []*models.Template
	for _, t := range templates {
		for _, tg := range t.Tags {
			if tg == tag {
				filtered = append(filtered, t)
				break
			}
		}
	}
	return filtered, nil
}

// AllTags returns the sorted set of tags used across the library
func (s *Service) AllTags() ([]string, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}

	tagSet := make(map[string]bool)
	for _, t := range templates {
		for _, tag := range t.Tags {
			tagSet[tag] = true
		}
	}

	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// RenderTemplate renders a template by ID with the given context
func (s *Service) RenderTemplate(id string, ctx models.RenderContext) (string, error) {
	tmpl, err := s.GetTemplate(id)
	if err != nil {
		return "", err
	}

	text, err := template.Render(tmpl, ctx)
	if err != nil {
		return "", wrapRenderError(err)
	}
	return text, nil
}

// RenderTemplateJSON renders a template by ID as a JSON message array
func (s *Service) RenderTemplateJSON(id string, ctx models.RenderContext) (string, error) {
	tmpl, err := s.GetTemplate(id)
	if err != nil {
		return "", err
	}

	text, err := template.RenderJSON(tmpl, ctx)
	if err != nil {
		return "", wrapRenderError(err)
	}
	return text, nil
}

// LintTemplate reports header/body mismatches for a template
func (s *Service) LintTemplate(id string) ([]string, error) {
	tmpl, err := s.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	return template.Lint(tmpl), nil
}

// wrapRenderError maps domain render failures onto AppErrors while keeping
// the original error reachable through Unwrap.
func wrapRenderError(err error) error {
	if missing, ok := err.(*template.MissingParameterError); ok {
		return errors.MissingParameter(missing.Name, err)
	}
	return errors.Wrap(err, errors.ErrCodeInternalError, "failed to render template")
}
