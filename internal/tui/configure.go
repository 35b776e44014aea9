package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/render"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionBackend       ConfigSection = "backend"
	SectionPractice      ConfigSection = "practice"
	SectionFallbacks     ConfigSection = "fallbacks"
	SectionNotifications ConfigSection = "notifications"
	SectionAdvanced      ConfigSection = "advanced"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configuration menu on a copy of existing. A nil config starts from defaults.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existing != nil {
		c := *existing
		c.Providers = make(map[string]config.ProviderConfig, len(existing.Providers))
		for k, v := range existing.Providers {
			c.Providers[k] = v
		}
		cfg = &c
	}

	styles := render.Stdout(cfg.UI.Theme)

	for {
		clearScreen()
		fmt.Println(styles.Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(styles.Error.Render("Invalid configuration: ") + err.Error())
				if !confirm("Return to the menu?", "Discard & Exit") {
					return &ConfigureResult{Cancelled: true}, nil
				}
				continue
			}
			confirmed, err := showSummary(styles, cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg, Cancelled: false}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionBackend:
			if err := editBackend(cfg); err != nil {
				continue
			}

		case SectionPractice:
			if err := editPractice(cfg); err != nil {
				continue
			}

		case SectionFallbacks:
			if err := editFallbacks(cfg); err != nil {
				continue
			}

		case SectionNotifications:
			if err := editNotifications(cfg); err != nil {
				continue
			}

		case SectionAdvanced:
			if err := editAdvanced(cfg); err != nil {
				continue
			}
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatBackendLabel(cfg), SectionBackend),
		huh.NewOption(formatPracticeLabel(cfg), SectionPractice),
		huh.NewOption(formatFallbacksLabel(cfg), SectionFallbacks),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Advanced Settings", SectionAdvanced),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

func confirm(title, negative string) bool {
	ok := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative(negative).
				Value(&ok),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return false
	}
	return ok
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(render.ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(render.ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(render.ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(render.ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(render.ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(render.ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(render.ColorSubtle)

	return t
}
