package render

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles is the set of lipgloss styles bound to one output.
type Styles struct {
	Header    lipgloss.Style
	Label     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Muted     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}

// NewRenderer binds a lipgloss renderer to w. Theme "dark" and "light" force
// the background; anything else lets termenv query the terminal.
func NewRenderer(w io.Writer, theme string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch theme {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return r
}

func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header: r.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),
		Label: r.NewStyle().
			Foreground(ColorText).
			Bold(true),
		Success: r.NewStyle().
			Foreground(ColorSuccess),
		Error: r.NewStyle().
			Foreground(ColorError).
			Bold(true),
		Warning: r.NewStyle().
			Foreground(ColorWarning),
		Muted: r.NewStyle().
			Foreground(ColorMuted),
		Subtle: r.NewStyle().
			Foreground(ColorSubtle).
			Italic(true),
		Highlight: r.NewStyle().
			Foreground(ColorSecondary).
			Bold(true),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1),
	}
}

// Stdout returns styles for the terminal, honouring NO_COLOR and CLICOLOR.
func Stdout(theme string) Styles {
	r := NewRenderer(os.Stdout, theme)
	r.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
	return NewStyles(r)
}

// Plain returns styles that emit no escape sequences.
func Plain(w io.Writer) Styles {
	r := NewRenderer(w, "dark")
	r.SetColorProfile(termenv.Ascii)
	return NewStyles(r)
}

const logoASCII = `
                          _                          _     
 ___ _ __   ___  ___  ___| |__   ___ ___   __ _  ___| |__  
/ __| '_ \ / _ \/ _ \/ __| '_ \ / __/ _ \ / _' |/ __| '_ \ 
\__ \ |_) |  __/  __/ (__| | | | (_| (_) | (_| | (__| | | |
|___/ .__/ \___|\___|\___|_| |_|\___\___/ \__,_|\___|_| |_|
    |_|                                                    `

// Logo returns the speechcoach ASCII art
func (s Styles) Logo() string {
	return s.Header.Render(strings.Trim(logoASCII, "\n"))
}
