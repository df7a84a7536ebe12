// Package cli provides the headless command-line interface.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/stencilkit/stencil/internal/clipboard"
	"github.com/stencilkit/stencil/internal/errors"
	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/service"
	"github.com/stencilkit/stencil/internal/template"
)

// CLI provides headless command-line interface functionality
type CLI struct {
	service      *service.Service
	errorHandler *errors.CLIErrorHandler
}

// NewCLI creates a new CLI instance
func NewCLI(svc *service.Service) *CLI {
	return &CLI{
		service:      svc,
		errorHandler: errors.NewCLIErrorHandler(os.Getenv("STENCIL_VERBOSE") != ""),
	}
}

// ExecuteCommand executes a CLI command with the given arguments
func (c *CLI) ExecuteCommand(args []string) error {
	if len(args) == 0 {
		return c.printUsage()
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "list", "ls":
		return c.listTemplates(commandArgs)
	case "search":
		return c.searchTemplates(commandArgs)
	case "show", "get":
		return c.showTemplate(commandArgs)
	case "render":
		return c.renderTemplate(commandArgs)
	case "copy":
		return c.copyTemplate(commandArgs)
	case "create", "new":
		return c.createTemplate(commandArgs)
	case "edit":
		return c.editTemplate(commandArgs)
	case "delete", "rm":
		return c.deleteTemplate(commandArgs)
	case "tags":
		return c.listTags(commandArgs)
	case "lint":
		return c.lintTemplate(commandArgs)
	case "help":
		return c.printUsage()
	default:
		return c.errorHandler.HandleError(errors.CommandNotFoundError(command))
	}
}

// parseVars collects --var key=value pairs from args, returning the render
// context and the remaining flags.
func parseVars(args []string) (models.RenderContext, []string, error) {
	ctx := make(models.RenderContext)
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg != "--var" && arg != "-v" {
			rest = append(rest, arg)
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("%s requires a key=value argument", arg)
		}
		pair := args[i+1]
		i++
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("invalid variable %q, expected key=value", pair)
		}
		ctx[key] = value
	}

	return ctx, rest, nil
}

func (c *CLI) listTemplates(args []string) error {
	var format, tag string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--format", "-f":
			if i+1 < len(args) {
				format = args[i+1]
				i++
			}
		case "--tag", "-t":
			if i+1 < len(args) {
				tag = args[i+1]
				i++
			}
		}
	}

	var templates []*models.Template
	var err error
	if tag != "" {
		templates, err = c.service.FilterByTag(tag)
	} else {
		templates, err = c.service.ListTemplates()
	}
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	return c.formatOutput(templates, format)
}

func (c *CLI) searchTemplates(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("search requires a query")
	}

	query := args[0]
	var format string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--format", "-f":
			if i+1 < len(args) {
				format = args[i+1]
				i++
			}
		}
	}

	templates, err := c.service.SearchTemplates(query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return c.formatOutput(templates, format)
}

func (c *CLI) showTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("show requires a template ID")
	}

	id := args[0]
	var format string
	pretty := false
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--format", "-f":
			if i+1 < len(args) {
				format = args[i+1]
				i++
			}
		case "--pretty", "-p":
			pretty = true
		}
	}

	tmpl, err := c.service.GetTemplate(id)
	if err != nil {
		return c.errorHandler.HandleError(err)
	}

	return c.formatSingleTemplate(tmpl, format, pretty)
}

func (c *CLI) renderTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("render requires a template ID")
	}

	ctx, rest, err := parseVars(args[1:])
	if err != nil {
		return err
	}

	id := args[0]
	var format string
	pretty := false
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--format", "-f":
			if i+1 < len(rest) {
				format = rest[i+1]
				i++
			}
		case "--pretty", "-p":
			pretty = true
		}
	}

	var output string
	switch format {
	case "json":
		output, err = c.service.RenderTemplateJSON(id, ctx)
	default:
		output, err = c.service.RenderTemplate(id, ctx)
	}
	if err != nil {
		return c.errorHandler.HandleError(err)
	}

	if pretty && format != "json" {
		return c.printMarkdown(output)
	}
	fmt.Println(output)
	return nil
}

func (c *CLI) copyTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("copy requires a template ID")
	}

	ctx, rest, err := parseVars(args[1:])
	if err != nil {
		return err
	}

	id := args[0]
	var format string
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--format", "-f":
			if i+1 < len(rest) {
				format = rest[i+1]
				i++
			}
		}
	}

	var content string
	switch format {
	case "json":
		content, err = c.service.RenderTemplateJSON(id, ctx)
	default:
		content, err = c.service.RenderTemplate(id, ctx)
	}
	if err != nil {
		return c.errorHandler.HandleError(err)
	}

	if err := clipboard.Copy(content); err != nil {
		// Render succeeded; report the clipboard problem without failing
		fmt.Printf("Warning: %v\n", err)
		fmt.Println(content)
		return nil
	}
	fmt.Println("Copied to clipboard!")
	return nil
}

func (c *CLI) createTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("create requires a template ID")
	}

	id := args[0]
	tmpl := &models.Template{ID: id}

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--from":
			if i+1 >= len(args) {
				return fmt.Errorf("--from requires a file path or -")
			}
			src, err := readSource(args[i+1])
			i++
			if err != nil {
				return err
			}
			parsed, err := template.Parse(src)
			if err != nil {
				return c.errorHandler.HandleError(errors.ParseFailure(err))
			}
			parsed.ID = id
			tmpl = parsed
		case "--name", "-n":
			if i+1 < len(args) {
				tmpl.Name = args[i+1]
				i++
			}
		case "--description", "-d":
			if i+1 < len(args) {
				tmpl.Summary = args[i+1]
				i++
			}
		case "--tags", "-t":
			if i+1 < len(args) {
				tmpl.Tags = splitTags(args[i+1])
				i++
			}
		case "--style", "-s":
			if i+1 < len(args) {
				tmpl.Style = args[i+1]
				i++
			}
		}
	}

	if tmpl.Name == "" {
		tmpl.Name = id
	}

	if err := c.service.CreateTemplate(tmpl); err != nil {
		return c.errorHandler.HandleError(err)
	}

	fmt.Printf("Created template: %s\n", id)
	return nil
}

func (c *CLI) editTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("edit requires a template ID")
	}

	id := args[0]
	tmpl, err := c.service.GetTemplate(id)
	if err != nil {
		return c.errorHandler.HandleError(err)
	}

	changed := false
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--name", "-n":
			if i+1 < len(args) {
				tmpl.Name = args[i+1]
				changed = true
				i++
			}
		case "--description", "-d":
			if i+1 < len(args) {
				tmpl.Summary = args[i+1]
				changed = true
				i++
			}
		case "--tags", "-t":
			if i+1 < len(args) {
				tmpl.Tags = splitTags(args[i+1])
				changed = true
				i++
			}
		case "--style", "-s":
			if i+1 < len(args) {
				tmpl.Style = args[i+1]
				changed = true
				i++
			}
		}
	}

	if !changed {
		return fmt.Errorf("edit requires at least one of --name, --description, --tags, --style")
	}

	if err := c.service.UpdateTemplate(tmpl); err != nil {
		return c.errorHandler.HandleError(err)
	}

	fmt.Printf("Updated template: %s\n", id)
	return nil
}

func (c *CLI) deleteTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("delete requires a template ID")
	}

	id := args[0]
	force := false
	for _, arg := range args[1:] {
		if arg == "--force" || arg == "-f" {
			force = true
		}
	}

	if !force {
		fmt.Printf("Delete template '%s'? [y/N]: ", id)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := c.service.DeleteTemplate(id); err != nil {
		return c.errorHandler.HandleError(err)
	}

	fmt.Printf("Deleted template: %s\n", id)
	return nil
}

func (c *CLI) listTags(args []string) error {
	tags, err := c.service.AllTags()
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

func (c *CLI) lintTemplate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("lint requires a template ID")
	}

	problems, err := c.service.LintTemplate(args[0])
	if err != nil {
		return c.errorHandler.HandleError(err)
	}

	if len(problems) == 0 {
		fmt.Println("OK")
		return nil
	}
	for _, p := range problems {
		fmt.Println(p)
	}
	return fmt.Errorf("%d problem(s) found", len(problems))
}

// formatOutput formats templates for output
func (c *CLI) formatOutput(templates []*models.Template, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(templates)
	case "ids":
		for _, t := range templates {
			fmt.Println(t.ID)
		}
	case "table":
		fmt.Printf("%-20s %-30s %-20s %s\n", "ID", "Name", "Params", "Updated")
		fmt.Println(strings.Repeat("-", 80))
		for _, t := range templates {
			name := t.Name
			if len(name) > 30 {
				name = name[:27] + "..."
			}
			fmt.Printf("%-20s %-30s %-20s %s\n",
				t.ID, name, strings.Join(t.Params.Names(), ","), t.UpdatedAt.Format("2006-01-02"))
		}
	default:
		for _, t := range templates {
			fmt.Printf("%s - %s\n", t.ID, t.Name)
			if t.Summary != "" {
				fmt.Printf("  %s\n", t.Summary)
			}
			if len(t.Tags) > 0 {
				fmt.Printf("  Tags: %s\n", strings.Join(t.Tags, ", "))
			}
			fmt.Println()
		}
	}
	return nil
}

// formatSingleTemplate formats a single template for output
func (c *CLI) formatSingleTemplate(tmpl *models.Template, format string, pretty bool) error {
	switch format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(tmpl)
	default:
		fmt.Printf("ID: %s\n", tmpl.ID)
		fmt.Printf("Name: %s\n", tmpl.Name)
		if tmpl.Summary != "" {
			fmt.Printf("Description: %s\n", tmpl.Summary)
		}
		if len(tmpl.Tags) > 0 {
			fmt.Printf("Tags: %s\n", strings.Join(tmpl.Tags, ", "))
		}
		if tmpl.Style != "" {
			fmt.Printf("Style: %s\n", tmpl.Style)
		}
		if tmpl.Params.Len() > 0 {
			fmt.Println("Params:")
			for _, name := range tmpl.Params.Names() {
				spec, _ := tmpl.Params.Get(name)
				line := fmt.Sprintf("  {%s}", name)
				if spec.Required {
					line += " (required)"
				} else if spec.Default != "" {
					line += fmt.Sprintf(" (default: %s)", spec.Default)
				}
				if spec.Description != "" {
					line += " - " + spec.Description
				}
				fmt.Println(line)
			}
		}
		if !tmpl.UpdatedAt.IsZero() {
			fmt.Printf("Updated: %s\n", tmpl.UpdatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println()
		if pretty {
			return c.printMarkdown(tmpl.Body)
		}
		fmt.Println(tmpl.Body)
	}
	return nil
}

// printMarkdown renders markdown through glamour when stdout is a terminal
func (c *CLI) printMarkdown(md string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}

	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func readSource(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (c *CLI) printUsage() error {
	fmt.Println(`stencil - prompt template library

USAGE:
    stencil <command> [arguments]

COMMANDS:
    list, ls               List all templates (--tag <tag>, --format text|json|ids|table)
    search <query>         Fuzzy search templates
    show, get <id>         Show a template (--format json, --pretty)
    render <id>            Render a template (--var key=value ..., --format text|json, --pretty)
    copy <id>              Render a template to the clipboard (--var key=value ...)
    create, new <id>       Create a template (--from <file|->, --name, --description, --tags, --style)
    edit <id>              Update template metadata (--name, --description, --tags, --style)
    delete, rm <id>        Delete a template (--force)
    tags                   List all tags
    lint <id>              Check header and body placeholders agree
    help                   Show this help

EXAMPLES:
    stencil render summarize --var text="hello world"
    stencil create summarize --from summarize.md
    stencil list --tag youtube --format ids`)
	return nil
}
