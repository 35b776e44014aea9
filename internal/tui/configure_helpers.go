package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/language"
	"github.com/leonardotrapani/speechcoach/internal/render"
)

func formatBackendLabel(cfg *config.Config) string {
	return fmt.Sprintf("Backend (%s)", cfg.Backend.URL)
}

// formatPracticeLabel shows the practice language and playback settings
func formatPracticeLabel(cfg *config.Config) string {
	lang := language.FromCode(cfg.UI.Language)
	return fmt.Sprintf("Practice (%s, volume %d%%)", lang.Name, int(cfg.UI.Volume*100+0.5))
}

func formatFallbacksLabel(cfg *config.Config) string {
	return fmt.Sprintf("Fallbacks (speech=%s, chat=%s)", fallbackName(cfg.TTS.Fallback), fallbackName(cfg.Chat.Fallback))
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (disabled)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func fallbackName(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func validateBackendURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http or https URL")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration like 2s or 5m")
	}
	if d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

// parseVolume accepts a percentage (0-100) and returns the [0,1] volume.
func parseVolume(s string) (float64, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0, fmt.Errorf("must be a number")
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("must be between 0 and 100")
	}
	return float64(n) / 100, nil
}

// summaryLines lists the settings shown before saving.
func summaryLines(cfg *config.Config) [][2]string {
	openaiKey := "(not set)"
	if key := cfg.OpenAIKey(); key != "" {
		openaiKey = maskAPIKey(key)
	}
	notifications := "disabled"
	if cfg.Notifications.Enabled {
		notifications = cfg.Notifications.Type
	}
	return [][2]string{
		{"Backend", cfg.Backend.URL},
		{"Language", language.FromCode(cfg.UI.Language).Name},
		{"Theme", cfg.UI.Theme},
		{"Volume", fmt.Sprintf("%d%%", int(cfg.UI.Volume*100+0.5))},
		{"Autoplay", strconv.FormatBool(cfg.UI.Autoplay)},
		{"Copy transcripts", strconv.FormatBool(cfg.UI.CopyTranscript)},
		{"Speech fallback", fallbackName(cfg.TTS.Fallback)},
		{"Chat fallback", fallbackName(cfg.Chat.Fallback)},
		{"OpenAI key", openaiKey},
		{"Notifications", notifications},
		{"Poll interval", cfg.Jobs.PollInterval.String()},
	}
}

func showSummary(styles render.Styles, cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(styles.Header.Render("Configuration Summary"))
	fmt.Println()
	for _, line := range summaryLines(cfg) {
		fmt.Printf("  %s %s\n", styles.Label.Render(fmt.Sprintf("%-16s", line[0]+":")), line[1])
	}
	fmt.Println()

	save := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Back to menu").
				Value(&save),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return save, nil
}

// mustDuration parses a value already accepted by validateDuration.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(s))
	return d
}

// mustInt parses a value already accepted by validatePositiveInt.
func mustInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
