package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stencilkit/stencil/internal/models"
)

// RenderForm collects parameter values before rendering a template
type RenderForm struct {
	template  *models.Template
	names     []string
	inputs    []textinput.Model
	focused   int
	submitted bool
}

// NewRenderForm builds one text input per declared parameter. Defaults are
// prefilled for optional parameters so the user sees what will be used.
func NewRenderForm(tmpl *models.Template) *RenderForm {
	names := tmpl.Params.Names()
	inputs := make([]textinput.Model, len(names))

	for i, name := range names {
		spec, _ := tmpl.Params.Get(name)

		ti := textinput.New()
		ti.CharLimit = 0
		ti.Width = 60
		ti.Placeholder = spec.Description
		if !spec.Required && spec.Default != "" {
			ti.SetValue(spec.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		inputs[i] = ti
	}

	return &RenderForm{
		template: tmpl,
		names:    names,
		inputs:   inputs,
	}
}

// Update handles key events for the form
func (f *RenderForm) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			f.nextField()
			return nil
		case "shift+tab", "up":
			f.prevField()
			return nil
		case "enter":
			if f.focused == len(f.inputs)-1 || len(f.inputs) == 0 {
				f.submitted = true
				return nil
			}
			f.nextField()
			return nil
		}
	}

	if len(f.inputs) == 0 {
		return nil
	}

	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return cmd
}

func (f *RenderForm) nextField() {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focused].Blur()
	f.focused = (f.focused + 1) % len(f.inputs)
	f.inputs[f.focused].Focus()
}

func (f *RenderForm) prevField() {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focused].Blur()
	f.focused = (f.focused - 1 + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focused].Focus()
}

// IsSubmitted reports whether the user confirmed the form
func (f *RenderForm) IsSubmitted() bool {
	return f.submitted
}

// Reset clears the submitted flag so the form can be shown again
func (f *RenderForm) Reset() {
	f.submitted = false
}

// Context returns the render context from the filled inputs. Empty inputs
// are omitted so optional parameters fall back to their defaults.
func (f *RenderForm) Context() models.RenderContext {
	ctx := make(models.RenderContext)
	for i, name := range f.names {
		if v := f.inputs[i].Value(); v != "" {
			ctx[name] = v
		}
	}
	return ctx
}
