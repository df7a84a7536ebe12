// Package clipboard copies rendered output to the system clipboard by
// shelling out to the platform utility.
package clipboard

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoUtility is returned when no clipboard utility is available.
type ErrNoUtility struct {
	OS string
}

func (e *ErrNoUtility) Error() string {
	if e.OS == "linux" {
		return "no clipboard utility found; install xclip, xsel, or wl-clipboard"
	}
	return fmt.Sprintf("clipboard not supported on %s", e.OS)
}

// Copy copies text to the system clipboard
func Copy(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return pipe(text, "pbcopy")
	case "windows":
		return pipe(text, "cmd", "/c", "clip")
	case "linux":
		return copyLinux(text)
	default:
		return &ErrNoUtility{OS: runtime.GOOS}
	}
}

func copyLinux(text string) error {
	candidates := [][]string{
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
		{"wl-copy"},
	}

	var lastErr error
	for _, argv := range candidates {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		if err := pipe(text, argv[0], argv[1:]...); err != nil {
			lastErr = fmt.Errorf("%s failed: %w", argv[0], err)
			continue
		}
		return nil
	}

	if lastErr != nil {
		return lastErr
	}
	return &ErrNoUtility{OS: "linux"}
}

func pipe(text string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
