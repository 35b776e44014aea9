package deps

import (
	"os/exec"
	"testing"
)

func TestCheckNotInstalled(t *testing.T) {
	tool := Tool{Name: "speechcoach-no-such-tool", Purpose: "testing", Required: true}
	status := check(tool, func(string) (string, error) { return "", exec.ErrNotFound })

	if status.Installed {
		t.Error("expected Installed=false")
	}
	if status.Path != "" || status.Version != "" {
		t.Errorf("expected empty path and version, got %q %q", status.Path, status.Version)
	}
	if status.Name != tool.Name || !status.Required || status.Purpose != "testing" {
		t.Errorf("tool metadata not copied: %+v", status)
	}
}

func TestCheckInstalled(t *testing.T) {
	// sh is present on every system the tests run on
	path, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not installed")
	}

	status := Check(Tool{Name: "sh"})
	if !status.Installed {
		t.Fatal("expected Installed=true")
	}
	if status.Path != path {
		t.Errorf("path = %q, want %q", status.Path, path)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"pw-record\nCompiled with libpipewire 1.2.7\n", "pw-record"},
		{"  ffplay version 7.1 \nbuilt with gcc", "ffplay version 7.1"},
		{"\n\nnotify-send 0.8.3", "notify-send 0.8.3"},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "pw-record", Required: true, Installed: true},
		{Name: "pw-cli", Required: true},
		{Name: "ffplay"},
	}
	got := MissingRequired(statuses)
	if len(got) != 1 || got[0] != "pw-cli" {
		t.Errorf("MissingRequired() = %v, want [pw-cli]", got)
	}
}

func TestHasPlayer(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     bool
	}{
		{"none", []Status{{Name: "pw-record", Installed: true}}, false},
		{"not installed", []Status{{Name: "ffplay"}}, false},
		{"paplay", []Status{{Name: "pw-play"}, {Name: "paplay", Installed: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPlayer(tt.statuses); got != tt.want {
				t.Errorf("HasPlayer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAudioToolsRequired(t *testing.T) {
	required := map[string]bool{}
	for _, tool := range AudioTools {
		if tool.Required {
			required[tool.Name] = true
		}
	}
	if !required["pw-record"] || !required["pw-cli"] || len(required) != 2 {
		t.Errorf("required tools = %v, want pw-record and pw-cli", required)
	}
}
