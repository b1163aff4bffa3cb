package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/highlight"
)

// One Dark palette
var (
	ColorBgPrimary   = lipgloss.Color("#282C34")
	ColorBgSecondary = lipgloss.Color("#21252B")
	ColorFgPrimary   = lipgloss.Color("#ABB2BF")
	ColorFgSecondary = lipgloss.Color("#828997")
	ColorFgMuted     = lipgloss.Color("#636B78")
	ColorFgComment   = lipgloss.Color("#5C6370")

	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")
	ColorOrange  = lipgloss.Color("#D19A66")

	ColorBorder = lipgloss.Color("#3F4451")
)

// Theme is a window decoration preset
type Theme struct {
	Name   string
	Frame  lipgloss.Style
	Title  lipgloss.Style
	Body   lipgloss.Style
	Button lipgloss.Style
	Info   lipgloss.Style

	// Dots are the window buttons drawn left of the title; empty for
	// themes that draw them on the right
	Dots      []lipgloss.Color
	DotsRight []string
}

var themes = map[string]Theme{
	"macos": {
		Name:  "macos",
		Frame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder),
		Title: lipgloss.NewStyle().Foreground(ColorFgSecondary).Bold(true),
		Body:  lipgloss.NewStyle().Foreground(ColorFgPrimary).Padding(0, 1),
		Dots:  []lipgloss.Color{"#FF5F56", "#FFBD2E", "#27C93F"},
	},
	"windows": {
		Name:      "windows",
		Frame:     lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(ColorBlue),
		Title:     lipgloss.NewStyle().Foreground(ColorFgPrimary),
		Body:      lipgloss.NewStyle().Foreground(ColorFgPrimary).Padding(0, 1),
		DotsRight: []string{"─", "□", "✕"},
	},
	"ubuntu": {
		Name:  "ubuntu",
		Frame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorOrange),
		Title: lipgloss.NewStyle().Foreground(ColorOrange).Bold(true),
		Body:  lipgloss.NewStyle().Foreground(ColorFgPrimary).Padding(0, 1),
		Dots:  []lipgloss.Color{"#E95420", "#7E7E7E", "#7E7E7E"},
	},
	"light": {
		Name:  "light",
		Frame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C8C8C8")),
		Title: lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A")).Bold(true),
		Body:  lipgloss.NewStyle().Foreground(lipgloss.Color("#383A42")).Padding(0, 1),
		Dots:  []lipgloss.Color{"#FF5F56", "#FFBD2E", "#27C93F"},
	},
}

func init() {
	for name, th := range themes {
		th.Button = lipgloss.NewStyle().Foreground(ColorBlue).Padding(0, 1)
		th.Info = lipgloss.NewStyle().Foreground(ColorFgMuted)
		themes[name] = th
	}
}

// ThemeFor returns the preset for name, falling back to macos
func ThemeFor(name string) Theme {
	if th, ok := themes[name]; ok {
		return th
	}
	return themes["macos"]
}

// Line type styles
var (
	InputStyle    = lipgloss.NewStyle().Foreground(ColorFgPrimary)
	OutputStyle   = lipgloss.NewStyle().Foreground(ColorFgSecondary)
	CommentStyle  = lipgloss.NewStyle().Foreground(ColorFgComment).Italic(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorYellow)
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorGreen)
	ErrorStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	ProgressStyle = lipgloss.NewStyle().Foreground(ColorCyan)

	CursorStyle       = lipgloss.NewStyle().Foreground(ColorFgPrimary).Blink(true)
	FadingStyle       = lipgloss.NewStyle().Faint(true)
	StartPromptStyle  = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true).Padding(1, 2)
	NotificationStyle = lipgloss.NewStyle().Foreground(ColorBgPrimary).Background(ColorGreen).Padding(0, 1)
	HelpStyle         = lipgloss.NewStyle().Foreground(ColorFgMuted).PaddingLeft(1)
)

// LineStyle returns the style for a line type; unknown types render plain
func LineStyle(lineType string) lipgloss.Style {
	switch config.LineType(lineType) {
	case config.LineInput:
		return InputStyle
	case config.LineOutput:
		return OutputStyle
	case config.LineComment:
		return CommentStyle
	case config.LineWarning:
		return WarningStyle
	case config.LineSuccess:
		return SuccessStyle
	case config.LineError:
		return ErrorStyle
	case config.LineProgress:
		return ProgressStyle
	default:
		return lipgloss.NewStyle()
	}
}

var tokenStyles = map[highlight.Class]lipgloss.Style{
	highlight.Keyword: lipgloss.NewStyle().Foreground(ColorMagenta),
	highlight.String:  lipgloss.NewStyle().Foreground(ColorGreen),
	highlight.Comment: lipgloss.NewStyle().Foreground(ColorFgComment).Italic(true),
	highlight.Number:  lipgloss.NewStyle().Foreground(ColorOrange),
}

// highlightToken renders a syntax token with the terminal palette
func highlightToken(class highlight.Class, token string) string {
	style, ok := tokenStyles[class]
	if !ok {
		return token
	}
	return style.Render(token)
}
