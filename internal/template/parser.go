// Package template parses and renders prompt template documents.
//
// A document is a YAML header between two `---` delimiter lines, followed by
// a free-text body. The header declares the template's name, description,
// tags, style hint, and parameters; the body contains {name} placeholders
// that Render substitutes from a RenderContext.
package template

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/stencilkit/stencil/internal/models"
	"gopkg.in/yaml.v3"
)

// Parse parses a template document into a Template. It fails with a
// *ParseError when the header delimiters are missing or the header is not
// valid YAML. The returned Template is treated as immutable by callers.
func Parse(src []byte) (*models.Template, error) {
	scanner := bufio.NewScanner(bytes.NewReader(src))

	// Check for header delimiter
	if !scanner.Scan() || scanner.Text() != "---" {
		return nil, &ParseError{Reason: "missing opening --- delimiter"}
	}

	// Read header lines up to the closing delimiter
	var headerLines []string
	terminated := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "---" {
			terminated = true
			break
		}
		headerLines = append(headerLines, line)
	}
	if !terminated {
		return nil, &ParseError{Reason: "unterminated header: closing --- not found"}
	}

	// Parse YAML header
	header := strings.Join(headerLines, "\n")
	var tmpl models.Template
	if err := yaml.Unmarshal([]byte(header), &tmpl); err != nil {
		return nil, &ParseError{Reason: "malformed header", Err: err}
	}

	// Read remaining content verbatim
	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	tmpl.Body = strings.Join(bodyLines, "\n")
	// Trim only leading whitespace/newlines
	tmpl.Body = strings.TrimLeft(tmpl.Body, " \t\n")

	return &tmpl, nil
}

// Serialize converts a template back to header + body document form.
func Serialize(tmpl *models.Template) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(tmpl); err != nil {
		return nil, &ParseError{Reason: "failed to encode header", Err: err}
	}
	if err := encoder.Close(); err != nil {
		return nil, &ParseError{Reason: "failed to encode header", Err: err}
	}

	buf.WriteString("---\n")

	if tmpl.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(tmpl.Body)
		// Ensure file ends with newline
		if !strings.HasSuffix(tmpl.Body, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}
