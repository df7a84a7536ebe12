package template

import "fmt"

// ParseError reports a malformed or unterminated document header.
type ParseError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse template: %s: %v", e.Reason, e.Err)
	}
	return "parse template: " + e.Reason
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingParameterError reports a required parameter that has no value in
// the render context and no usable default.
type MissingParameterError struct {
	Name string
}

// Error implements the error interface
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}
