package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Purpose   string
	Installed bool
	Path      string
	Version   string
	// Required tools are needed for microphone capture; the rest have alternatives.
	Required bool
}

// Tool is an external program speechcoach shells out to.
type Tool struct {
	Name        string
	VersionArgs []string
	Purpose     string
	Required    bool
}

// AudioTools lists the programs used for capture, playback, notifications and the clipboard.
var AudioTools = []Tool{
	{Name: "pw-record", VersionArgs: []string{"--version"}, Purpose: "microphone capture", Required: true},
	{Name: "pw-cli", VersionArgs: []string{"--version"}, Purpose: "PipeWire session check", Required: true},
	{Name: "pw-play", VersionArgs: []string{"--version"}, Purpose: "playback"},
	{Name: "paplay", VersionArgs: []string{"--version"}, Purpose: "playback (PulseAudio)"},
	{Name: "ffplay", VersionArgs: []string{"-version"}, Purpose: "playback (any format)"},
	{Name: "notify-send", VersionArgs: []string{"--version"}, Purpose: "desktop notifications"},
	{Name: "wl-copy", VersionArgs: []string{"--version"}, Purpose: "copy transcripts (Wayland)"},
}

const versionTimeout = 2 * time.Second

// Check looks tool up on PATH and reads the first line of its version output.
func Check(tool Tool) Status {
	return check(tool, exec.LookPath)
}

func check(tool Tool, lookPath func(string) (string, error)) Status {
	status := Status{Name: tool.Name, Purpose: tool.Purpose, Required: tool.Required}

	path, err := lookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if len(tool.VersionArgs) == 0 {
		return status
	}
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, tool.VersionArgs...).CombinedOutput()
	if err == nil {
		status.Version = firstLine(string(output))
	}
	return status
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// CheckAll checks every tool in order.
func CheckAll(tools []Tool) []Status {
	result := make([]Status, 0, len(tools))
	for _, tool := range tools {
		result = append(result, Check(tool))
	}
	return result
}

// MissingRequired returns the names of required tools that are not installed.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// HasPlayer reports whether at least one playback program is installed.
func HasPlayer(statuses []Status) bool {
	for _, s := range statuses {
		switch s.Name {
		case "pw-play", "paplay", "ffplay":
			if s.Installed {
				return true
			}
		}
	}
	return false
}
