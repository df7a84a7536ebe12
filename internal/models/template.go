package models

import (
	"strings"
	"time"
)

// Template represents a prompt template document: a YAML header describing
// the template and its parameters, followed by a text body containing
// {name} placeholders.
type Template struct {
	// Header fields
	ID        string    `yaml:"id,omitempty"`
	Name      string    `yaml:"name"`
	Summary   string    `yaml:"description,omitempty"`
	Tags      []string  `yaml:"tags,omitempty"`
	Style     string    `yaml:"style,omitempty"`
	Params    ParamMap  `yaml:"params,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`

	// Content fields
	Body        string `yaml:"-"` // The template text after the header
	FilePath    string `yaml:"-"` // Path to the file, relative to the library root
	ContentHash string `yaml:"-"` // SHA256 hash of the file content
}

// RenderContext maps parameter names to caller-provided values for a single
// render invocation.
type RenderContext map[string]string

// Implement list.Item interface for bubbles list component

// FilterValue returns the value used for filtering in lists
func (t Template) FilterValue() string {
	return cleanString(t.Name)
}

// Title satisfies the list.Item interface
func (t Template) Title() string {
	if t.Name != "" {
		return cleanString(t.Name)
	}
	return cleanString(t.ID)
}

// Description satisfies the list.Item interface
func (t Template) Description() string {
	var parts []string

	if t.Summary != "" {
		summary := cleanString(t.Summary)
		maxSummaryLength := 60
		if len(summary) > maxSummaryLength {
			summary = summary[:maxSummaryLength-3] + "..."
		}
		if summary != "" {
			parts = append(parts, summary)
		}
	}

	if n := t.Params.Len(); n > 0 {
		parts = append(parts, "Params: "+strings.Join(t.Params.Names(), ", "))
	}

	if len(t.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(t.Tags, ", "))
	}

	result := strings.Join(parts, " • ")

	// Truncate so the line doesn't exceed terminal width; leave space for
	// the list indicator and margins
	maxTotalLength := 100
	if len(result) > maxTotalLength {
		result = result[:maxTotalLength-3] + "..."
	}

	return cleanString(result)
}

// cleanString removes problematic characters that might cause rendering issues
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteByte(' ')
		} else if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	for strings.Contains(cleaned, "  ") {
		cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	}

	return strings.TrimSpace(cleaned)
}
