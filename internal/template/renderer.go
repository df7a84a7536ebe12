package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/stencilkit/stencil/internal/models"
)

// Render substitutes resolved parameter values into the template body.
//
// Each declared parameter resolves to the context value when present, the
// declared default otherwise, and the empty string when neither exists.
// A required parameter with no context value fails with a
// *MissingParameterError, regardless of any declared default. The body is
// scanned once, left to right: substituted values are never re-scanned, and
// a {token} with no declared parameter passes through verbatim.
func Render(tmpl *models.Template, ctx models.RenderContext) (string, error) {
	values, err := resolveParams(tmpl, ctx)
	if err != nil {
		return "", err
	}
	return substitute(tmpl.Body, values), nil
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RenderJSON renders the template as a JSON message array for LLM APIs.
func RenderJSON(tmpl *models.Template, ctx models.RenderContext) (string, error) {
	text, err := Render(tmpl, ctx)
	if err != nil {
		return "", err
	}

	messages := []Message{
		{
			Role:    "user",
			Content: text,
		},
	}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// resolveParams produces the value for every declared parameter.
func resolveParams(tmpl *models.Template, ctx models.RenderContext) (map[string]string, error) {
	values := make(map[string]string, tmpl.Params.Len())
	for _, name := range tmpl.Params.Names() {
		spec, _ := tmpl.Params.Get(name)

		if v, ok := ctx[name]; ok {
			values[name] = v
			continue
		}
		if spec.Required {
			// A default never satisfies a required parameter
			return nil, &MissingParameterError{Name: name}
		}
		values[name] = spec.Default
	}
	return values, nil
}

// substitute performs a single left-to-right pass over body, replacing
// {name} tokens whose name has a resolved value. Unknown tokens, and tokens
// whose name falls outside the placeholder alphabet, are emitted unchanged.
func substitute(body string, values map[string]string) string {
	var out strings.Builder
	out.Grow(len(body))

	i := 0
	for i < len(body) {
		open := strings.IndexByte(body[i:], '{')
		if open < 0 {
			out.WriteString(body[i:])
			break
		}
		open += i
		out.WriteString(body[i:open])

		rest := body[open+1:]
		closeRel := strings.IndexByte(rest, '}')
		nextOpenRel := strings.IndexByte(rest, '{')
		if closeRel < 0 || (nextOpenRel >= 0 && nextOpenRel < closeRel) {
			// Not a token; emit the brace and keep scanning after it
			out.WriteByte('{')
			i = open + 1
			continue
		}

		name := rest[:closeRel]
		if v, ok := values[name]; ok && placeholderName.MatchString(name) {
			out.WriteString(v)
		} else {
			out.WriteString(body[open : open+closeRel+2])
		}
		i = open + closeRel + 2
	}

	return out.String()
}

// The placeholder alphabet, shared by substitute and Lint: a parameter whose
// name falls outside it is never substituted and Lint flags it as unused.
var (
	placeholderName    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)
	placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_-]*)\}`)
)

// Lint reports body placeholders with no declared parameter and declared
// parameters the body never references. An empty result means the header
// and body agree.
func Lint(tmpl *models.Template) []string {
	referenced := make(map[string]bool)
	var order []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(tmpl.Body, -1) {
		if !referenced[match[1]] {
			order = append(order, match[1])
		}
		referenced[match[1]] = true
	}

	var problems []string
	for _, name := range order {
		if _, ok := tmpl.Params.Get(name); !ok {
			problems = append(problems, fmt.Sprintf("placeholder {%s} has no parameter entry", name))
		}
	}
	for _, name := range tmpl.Params.Names() {
		if !referenced[name] {
			problems = append(problems, fmt.Sprintf("parameter %q is never referenced in the body", name))
		}
	}

	return problems
}
