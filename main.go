package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stencilkit/stencil/internal/api"
	"github.com/stencilkit/stencil/internal/cli"
	"github.com/stencilkit/stencil/internal/service"
	"github.com/stencilkit/stencil/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var version = "0.1.0"

func printHelp() {
	fmt.Printf(`stencil - prompt template library and renderer

USAGE:
    stencil [OPTIONS] [COMMAND]

OPTIONS:
    --help          Show this help information
    --version       Print version information
    --init          Initialize a new template library
    --api-server    Start the HTTP API server
    --port          Port for the API server (default: 8080)

COMMANDS:
    (no command)       Start interactive TUI mode
    list, ls           List all templates
    search <query>     Search templates
    show, get <id>     Show a specific template
    render <id>        Render a template with variables
    copy <id>          Render a template to the clipboard
    create, new <id>   Create a new template
    edit <id>          Update template metadata
    delete, rm <id>    Delete a template
    tags               List all tags
    lint <id>          Check a template's placeholders
    help               Show CLI command help

EXAMPLES:
    stencil                                      # Start interactive mode
    stencil --init                               # Initialize new library
    stencil --api-server --port 9000             # Start API server on port 9000
    stencil list --format table                  # List templates in table format
    stencil render summarize --var text="hello"  # Render with variables
    stencil create summarize --from summarize.md # Create from a document file

STORAGE:
    Default directory: ~/.stencil
    Override with: STENCIL_DIR=<path>
`)
}

func main() {
	var showVersion bool
	var initLib bool
	var showHelp bool
	var apiServer bool
	var port int

	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.BoolVar(&initLib, "init", false, "Initialize a new template library")
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&apiServer, "api-server", false, "Start the HTTP API server")
	flag.IntVar(&port, "port", 8080, "Port for the API server")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("stencil version %s\n", version)
		os.Exit(0)
	}

	// Initialize service with file storage
	svc, err := service.NewService()
	if err != nil {
		fmt.Println(err)
		return
	}

	if initLib {
		if err := svc.InitLibrary(); err != nil {
			fmt.Println("Error initializing library:", err)
			return
		}
		fmt.Println("Initialized stencil library")
		return
	}

	if apiServer {
		srv := api.NewServer(svc, port)

		// Shut down cleanly on interrupt
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(ctx)
		}()

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Error starting API server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Check if we have command line arguments for CLI mode
	args := flag.Args()
	if len(args) > 0 {
		cliHandler := cli.NewCLI(svc)
		if err := cliHandler.ExecuteCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// No arguments provided - start TUI mode
	model, err := ui.NewModel(svc)
	if err != nil {
		fmt.Println(err)
		return
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println(err)
		return
	}
}
