package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Design system colors - adaptive based on terminal background
var (
	ColorPrimary lipgloss.Color
	ColorAccent  lipgloss.Color

	ColorSuccess lipgloss.Color
	ColorError   lipgloss.Color

	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color
	ColorBorder    lipgloss.Color
)

// Styles shared across views; built after color initialization
var (
	StyleTitle     lipgloss.Style
	StyleMetadata  lipgloss.Style
	StyleFormLabel lipgloss.Style
	StyleRequired  lipgloss.Style
	StyleHelp      lipgloss.Style
	StyleStatus    lipgloss.Style
	StyleError     lipgloss.Style
)

// initializeColors sets up adaptive colors based on terminal background
func initializeColors() {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		setLightThemeColors()
	case "dark":
		setDarkThemeColors()
	default:
		if lipgloss.HasDarkBackground() {
			setDarkThemeColors()
		} else {
			setLightThemeColors()
		}
	}

	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleMetadata = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleFormLabel = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StyleRequired = lipgloss.NewStyle().Foreground(ColorError)
	StyleHelp = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleStatus = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205") // Bright magenta/pink
	ColorAccent = lipgloss.Color("214")  // Bright orange/yellow

	ColorSuccess = lipgloss.Color("10")
	ColorError = lipgloss.Color("9")

	ColorText = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("244")
	ColorBorder = lipgloss.Color("238")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125") // Darker magenta for contrast
	ColorAccent = lipgloss.Color("130")

	ColorSuccess = lipgloss.Color("22")
	ColorError = lipgloss.Color("160")

	ColorText = lipgloss.Color("235")
	ColorTextMuted = lipgloss.Color("242")
	ColorBorder = lipgloss.Color("250")
}

// CreateHeader renders a view title line
func CreateHeader(title string) string {
	return StyleTitle.Render(title)
}

// CreateMetadata renders a muted metadata line
func CreateMetadata(text string) string {
	return StyleMetadata.Render(text)
}

// CreateHelp renders a muted help line, truncated to the window width
func CreateHelp(text string, width int) string {
	if width > 0 && len(text) > width {
		text = text[:width]
	}
	return StyleHelp.Render(text)
}

// AddMainPadding pads main view content away from the terminal edge
func AddMainPadding(content string) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}
