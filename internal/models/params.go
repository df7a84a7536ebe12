package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParamSpec describes a single named input to template rendering.
type ParamSpec struct {
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Type        string `yaml:"type,omitempty"` // informational only
}

// ParamMap is an ordered collection of parameter definitions. Declaration
// order from the YAML header is preserved so a document round-trips without
// reshuffling its params block.
type ParamMap struct {
	names []string
	specs map[string]*ParamSpec
}

// Get returns the spec for a parameter name.
func (m *ParamMap) Get(name string) (*ParamSpec, bool) {
	spec, ok := m.specs[name]
	return spec, ok
}

// Set adds or replaces a parameter definition. New names keep insertion order.
func (m *ParamMap) Set(name string, spec *ParamSpec) {
	if m.specs == nil {
		m.specs = make(map[string]*ParamSpec)
	}
	if _, exists := m.specs[name]; !exists {
		m.names = append(m.names, name)
	}
	m.specs[name] = spec
}

// Names returns parameter names in declaration order.
func (m *ParamMap) Names() []string {
	return m.names
}

// Len returns the number of declared parameters.
func (m *ParamMap) Len() int {
	return len(m.names)
}

// IsZero lets yaml omitempty skip an empty params block.
func (m ParamMap) IsZero() bool {
	return len(m.names) == 0
}

// UnmarshalYAML decodes a YAML mapping of name to spec, preserving key order.
func (m *ParamMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("params must be a mapping, got %s", value.Tag)
	}

	m.names = nil
	m.specs = make(map[string]*ParamSpec)

	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var name string
		if err := keyNode.Decode(&name); err != nil {
			return fmt.Errorf("invalid parameter name: %w", err)
		}

		spec := &ParamSpec{}
		if err := valNode.Decode(spec); err != nil {
			return fmt.Errorf("invalid spec for parameter %q: %w", name, err)
		}

		if _, exists := m.specs[name]; exists {
			return fmt.Errorf("duplicate parameter %q", name)
		}
		m.names = append(m.names, name)
		m.specs[name] = spec
	}

	return nil
}

// MarshalJSON encodes the parameters as a JSON object in declaration order.
// Needed because the struct's fields are unexported.
func (m ParamMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.specs[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the parameters as a mapping in declaration order.
func (m ParamMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range m.names {
		var keyNode yaml.Node
		if err := keyNode.Encode(name); err != nil {
			return nil, err
		}
		var valNode yaml.Node
		if err := valNode.Encode(m.specs[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &keyNode, &valNode)
	}
	return node, nil
}
