// Package ui implements the interactive terminal interface.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stencilkit/stencil/internal/clipboard"
	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/service"
	"github.com/stencilkit/stencil/internal/template"
)

// createGlamourRenderer creates a glamour renderer matched to the terminal
func createGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()

	var styleOption glamour.TermRendererOption
	if lipgloss.HasDarkBackground() {
		switch profile {
		case termenv.TrueColor, termenv.ANSI256:
			styleOption = glamour.WithStandardStyle("dark")
		default:
			styleOption = glamour.WithAutoStyle()
		}
	} else {
		switch profile {
		case termenv.TrueColor, termenv.ANSI256:
			styleOption = glamour.WithStandardStyle("light")
		default:
			styleOption = glamour.WithAutoStyle()
		}
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// loadCompleteMsg carries the result of the async template load
type loadCompleteMsg struct {
	templates []*models.Template
	err       error
}

func loadTemplatesCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		templates, err := svc.ListTemplates()
		return loadCompleteMsg{templates: templates, err: err}
	}
}

// ViewMode identifies the active view
type ViewMode int

const (
	ViewLibrary ViewMode = iota
	ViewDetail
	ViewRenderForm
	ViewOutput
)

// Model represents the TUI application state
type Model struct {
	service  *service.Service
	viewMode ViewMode

	// UI components
	templateList list.Model
	viewport     viewport.Model
	help         help.Model
	keys         KeyMap

	// Data
	templates []*models.Template
	loading   bool
	selected  *models.Template

	// Render state
	renderForm      *RenderForm
	renderedOutput  string
	glamourRenderer *glamour.TermRenderer

	// Window dimensions
	width  int
	height int

	// Status messages
	statusMsg string

	// Error state
	err error
}

// KeyMap defines all key bindings
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Quit   key.Binding
	Help   key.Binding
	Search key.Binding
	Render key.Binding
	Copy   key.Binding
	Lint   key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back},
		{k.Search, k.Render, k.Copy, k.Lint},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Render: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "render"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy"),
	),
	Lint: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "lint"),
	),
}

// NewModel creates a new TUI model
func NewModel(svc *service.Service) (*Model, error) {
	initializeColors()

	// Start empty; templates load asynchronously
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	keyMap := list.DefaultKeyMap()
	keyMap.Filter = key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	)
	l.KeyMap = keyMap

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	renderer, err := createGlamourRenderer(60)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	return &Model{
		service:         svc,
		viewMode:        ViewLibrary,
		templateList:    l,
		viewport:        vp,
		help:            help.New(),
		keys:            keys,
		loading:         true,
		glamourRenderer: renderer,
	}, nil
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return loadTemplatesCmd(m.service)
}

// tickMsg is sent to clear the status message
type tickMsg time.Time

func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.statusMsg = ""
		return m, nil

	case loadCompleteMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.templates = msg.templates
		items := make([]list.Item, len(msg.templates))
		for i, t := range msg.templates {
			items[i] = *t
		}
		m.templateList.SetItems(items)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		const reservedHeight = 6
		contentHeight := msg.Height - reservedHeight
		if contentHeight < 5 {
			contentHeight = 5
		}
		m.templateList.SetSize(msg.Width-4, contentHeight)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = contentHeight

		// Re-wrap markdown for the new width
		if renderer, err := createGlamourRenderer(min(msg.Width-6, 100)); err == nil {
			m.glamourRenderer = renderer
		}
		return m, nil

	case tea.KeyMsg:
		// While filtering, the list owns all key input
		if m.viewMode == ViewLibrary && m.templateList.FilterState() == list.Filtering {
			break
		}

		// The render form owns most keys while active
		if m.viewMode == ViewRenderForm {
			switch msg.String() {
			case "esc":
				m.viewMode = ViewDetail
				m.renderForm = nil
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			cmd := m.renderForm.Update(msg)
			if m.renderForm.IsSubmitted() {
				return m.submitRenderForm()
			}
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.viewMode == ViewLibrary {
				return m, tea.Quit
			}
			// q backs out of sub-views
			return m.goBack()

		case key.Matches(msg, m.keys.Back):
			return m.goBack()

		case key.Matches(msg, m.keys.Enter):
			if m.viewMode == ViewLibrary {
				return m.openSelected()
			}

		case key.Matches(msg, m.keys.Render):
			if m.viewMode == ViewDetail || m.viewMode == ViewLibrary {
				return m.startRenderForm()
			}

		case key.Matches(msg, m.keys.Copy):
			return m.copyCurrent()

		case key.Matches(msg, m.keys.Lint):
			if m.selected != nil {
				return m.lintSelected()
			}

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	// Route remaining messages to the active component
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewLibrary:
		m.templateList, cmd = m.templateList.Update(msg)
	case ViewDetail, ViewOutput:
		m.viewport, cmd = m.viewport.Update(msg)
	case ViewRenderForm:
		cmd = m.renderForm.Update(msg)
	}
	return m, cmd
}

func (m Model) goBack() (tea.Model, tea.Cmd) {
	switch m.viewMode {
	case ViewDetail:
		m.viewMode = ViewLibrary
		m.selected = nil
	case ViewRenderForm:
		m.viewMode = ViewDetail
		m.renderForm = nil
	case ViewOutput:
		m.viewMode = ViewDetail
		m.renderedOutput = ""
	}
	return m, nil
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	item, ok := m.templateList.SelectedItem().(models.Template)
	if !ok {
		return m, nil
	}

	// Load the full document; list entries carry header metadata only
	full, err := m.service.GetTemplate(item.ID)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.selected = full
	m.viewMode = ViewDetail
	m.viewport.SetContent(m.renderDetailContent(full))
	m.viewport.GotoTop()
	return m, nil
}

func (m Model) startRenderForm() (tea.Model, tea.Cmd) {
	if m.selected == nil {
		item, ok := m.templateList.SelectedItem().(models.Template)
		if !ok {
			return m, nil
		}
		full, err := m.service.GetTemplate(item.ID)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.selected = full
	}

	// No declared parameters: render immediately
	if m.selected.Params.Len() == 0 {
		output, err := template.Render(m.selected, nil)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.showOutput(output)
	}

	m.renderForm = NewRenderForm(m.selected)
	m.viewMode = ViewRenderForm
	return m, nil
}

func (m Model) submitRenderForm() (tea.Model, tea.Cmd) {
	output, err := template.Render(m.selected, m.renderForm.Context())
	if err != nil {
		// Missing required parameter: stay on the form and show the problem
		m.renderForm.Reset()
		m.statusMsg = StyleError.Render(err.Error())
		return m, clearStatusCmd()
	}

	m.renderForm = nil
	return m.showOutput(output)
}

func (m Model) showOutput(output string) (tea.Model, tea.Cmd) {
	m.renderedOutput = output
	m.viewMode = ViewOutput
	m.viewport.SetContent(output)
	m.viewport.GotoTop()
	return m, nil
}

func (m Model) copyCurrent() (tea.Model, tea.Cmd) {
	var content string
	switch m.viewMode {
	case ViewOutput:
		content = m.renderedOutput
	case ViewDetail:
		if m.selected != nil {
			content = m.selected.Body
		}
	default:
		return m, nil
	}
	if content == "" {
		return m, nil
	}

	if err := clipboard.Copy(content); err != nil {
		m.statusMsg = StyleError.Render(fmt.Sprintf("Copy failed: %v", err))
	} else {
		m.statusMsg = StyleStatus.Render("Copied to clipboard!")
	}
	return m, clearStatusCmd()
}

func (m Model) lintSelected() (tea.Model, tea.Cmd) {
	problems := template.Lint(m.selected)
	if len(problems) == 0 {
		m.statusMsg = StyleStatus.Render("Lint: OK")
	} else {
		m.statusMsg = StyleError.Render("Lint: " + strings.Join(problems, "; "))
	}
	return m, clearStatusCmd()
}

// renderDetailContent builds the detail view content for the viewport
func (m Model) renderDetailContent(tmpl *models.Template) string {
	var b strings.Builder

	if tmpl.Summary != "" {
		b.WriteString(tmpl.Summary + "\n\n")
	}
	if tmpl.Style != "" {
		b.WriteString("Style: " + tmpl.Style + "\n\n")
	}
	if tmpl.Params.Len() > 0 {
		b.WriteString("Parameters:\n")
		for _, name := range tmpl.Params.Names() {
			spec, _ := tmpl.Params.Get(name)
			line := "  {" + name + "}"
			if spec.Required {
				line += " (required)"
			} else if spec.Default != "" {
				line += fmt.Sprintf(" (default: %s)", spec.Default)
			}
			if spec.Description != "" {
				line += " - " + spec.Description
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if rendered, err := m.glamourRenderer.Render(tmpl.Body); err == nil {
		b.WriteString(rendered)
	} else {
		b.WriteString(tmpl.Body)
	}

	return b.String()
}

// View renders the current view
func (m Model) View() string {
	if m.err != nil {
		return AddMainPadding(StyleError.Render(fmt.Sprintf("Error: %v", m.err)) +
			"\n\n" + CreateHelp("q quit", m.width))
	}

	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewRenderForm:
		return m.renderFormView()
	case ViewOutput:
		return m.renderOutputView()
	default:
		return m.renderLibraryView()
	}
}

func (m Model) renderLibraryView() string {
	header := CreateHeader("Templates")

	var body string
	if m.loading {
		body = "Loading templates..."
	} else if len(m.templates) == 0 {
		body = "No templates yet. Create one with: stencil create <id> --from <file>"
	} else {
		body = m.templateList.View()
	}

	helpLine := CreateHelp("Enter view • r render • / filter • ? help • q quit", m.width)
	if m.statusMsg != "" {
		helpLine = m.statusMsg
	}

	return AddMainPadding(lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		body,
		"",
		helpLine,
	))
}

func (m Model) renderDetailView() string {
	if m.selected == nil {
		return "No template selected"
	}

	header := CreateHeader(m.selected.Title())
	metadata := CreateMetadata(fmt.Sprintf("ID: %s • Tags: %s",
		m.selected.ID, strings.Join(m.selected.Tags, ", ")))

	helpLine := CreateHelp("r render • c copy body • L lint • Esc back", m.width)
	if m.statusMsg != "" {
		helpLine = m.statusMsg
	}

	return AddMainPadding(lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		metadata,
		"",
		m.viewport.View(),
		"",
		helpLine,
	))
}

func (m Model) renderFormView() string {
	header := CreateHeader("Render: " + m.selected.Title())

	var fields []string
	for i, name := range m.renderForm.names {
		spec, _ := m.renderForm.template.Params.Get(name)
		label := StyleFormLabel.Render("{" + name + "}")
		if spec.Required {
			label += StyleRequired.Render(" *")
		}
		fields = append(fields, label, m.renderForm.inputs[i].View(), "")
	}

	helpLine := CreateHelp("Tab next field • Enter render • Esc cancel", m.width)
	if m.statusMsg != "" {
		helpLine = m.statusMsg
	}

	elements := []string{header, ""}
	elements = append(elements, fields...)
	elements = append(elements, helpLine)

	return AddMainPadding(lipgloss.JoinVertical(lipgloss.Left, elements...))
}

func (m Model) renderOutputView() string {
	header := CreateHeader("Rendered: " + m.selected.Title())

	helpLine := CreateHelp("c copy • Esc back", m.width)
	if m.statusMsg != "" {
		helpLine = m.statusMsg
	}

	return AddMainPadding(lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		m.viewport.View(),
		"",
		helpLine,
	))
}
