package render

import "github.com/charmbracelet/lipgloss"

// Color palette for speechcoach output. Each color has a light and a dark
// variant; the renderer picks one from the configured ui.theme.
var (
	// Primary colors
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3AED"} // Purple - main accent
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#06B6D4"} // Cyan - secondary accent

	// Status colors
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"} // Green
	ColorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"} // Red
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"} // Amber

	// Text colors
	ColorText   = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F8FAFC"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}
	ColorSubtle = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#64748B"}
)

// Score thresholds shared by every score badge.
const (
	GoodScore = 80.0
	FairScore = 60.0
)
