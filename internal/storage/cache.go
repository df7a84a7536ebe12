package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stencilkit/stencil/internal/models"
)

// TemplateMetadata represents cached header metadata for a template file.
// Body text is not cached; it is loaded on demand.
type TemplateMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Style     string    `json:"style,omitempty"`
	Params    []string  `json:"params,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FilePath  string    `json:"file_path"`
	ModTime   time.Time `json:"mod_time"`
	FileHash  string    `json:"file_hash"`
}

// MetadataCache handles caching of template metadata
type MetadataCache struct {
	cacheDir  string
	cacheFile string
	metadata  map[string]*TemplateMetadata
	mu        sync.RWMutex // Protects metadata map from concurrent access
}

// NewMetadataCache creates a new metadata cache
func NewMetadataCache(baseDir string) *MetadataCache {
	cacheDir := filepath.Join(baseDir, ".stencil", "cache")
	return &MetadataCache{
		cacheDir:  cacheDir,
		cacheFile: filepath.Join(cacheDir, "metadata.json"),
		metadata:  make(map[string]*TemplateMetadata),
	}
}

// Load loads the metadata cache from disk
func (c *MetadataCache) Load() error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if _, err := os.Stat(c.cacheFile); os.IsNotExist(err) {
		return nil // No cache file exists yet
	}

	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	c.mu.Lock()
	if err := json.Unmarshal(data, &c.metadata); err != nil {
		// If cache is corrupted, start fresh
		c.metadata = make(map[string]*TemplateMetadata)
	}
	c.mu.Unlock()

	return nil
}

// Save saves the metadata cache to disk
func (c *MetadataCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(c.cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Get retrieves metadata for a file, checking if the cached entry is still
// valid against the file's modification time.
func (c *MetadataCache) Get(filePath string, fileInfo os.FileInfo) (*TemplateMetadata, bool) {
	c.mu.RLock()
	cached, exists := c.metadata[filePath]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if !fileInfo.ModTime().Equal(cached.ModTime) {
		return nil, false
	}

	return cached, true
}

// Set stores metadata in the cache
func (c *MetadataCache) Set(relPath string, fullPath string, fileInfo os.FileInfo, tmpl *models.Template) {
	// File hash for additional validation
	fileHash := ""
	if data, err := os.ReadFile(fullPath); err == nil {
		hash := sha256.Sum256(data)
		fileHash = hex.EncodeToString(hash[:])
	}

	c.mu.Lock()
	c.metadata[relPath] = &TemplateMetadata{
		ID:        tmpl.ID,
		Name:      tmpl.Name,
		Summary:   tmpl.Summary,
		Tags:      tmpl.Tags,
		Style:     tmpl.Style,
		Params:    tmpl.Params.Names(),
		CreatedAt: tmpl.CreatedAt,
		UpdatedAt: tmpl.UpdatedAt,
		FilePath:  tmpl.FilePath,
		ModTime:   fileInfo.ModTime(),
		FileHash:  fileHash,
	}
	c.mu.Unlock()
}

// ToTemplate converts cached metadata back to a Template. Body and parameter
// specs are loaded on demand via Storage.LoadTemplate.
func (m *TemplateMetadata) ToTemplate() *models.Template {
	tmpl := &models.Template{
		ID:        m.ID,
		Name:      m.Name,
		Summary:   m.Summary,
		Tags:      m.Tags,
		Style:     m.Style,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		FilePath:  m.FilePath,
	}
	for _, name := range m.Params {
		tmpl.Params.Set(name, &models.ParamSpec{})
	}
	return tmpl
}

// Cleanup removes cache entries for files that no longer exist
func (c *MetadataCache) Cleanup(existingFiles map[string]bool) {
	c.mu.Lock()
	for filePath := range c.metadata {
		if !existingFiles[filePath] {
			delete(c.metadata, filePath)
		}
	}
	c.mu.Unlock()
}
