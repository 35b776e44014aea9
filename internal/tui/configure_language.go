package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/language"
)

// languageOptions lists every supported language, marking the current one.
func languageOptions(current string) []huh.Option[string] {
	var options []huh.Option[string]
	for _, lang := range language.List() {
		label := fmt.Sprintf("%s (%s)", lang.Name, lang.NativeName)
		if lang.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}

// editPractice edits the practice language, theme and playback settings
func editPractice(cfg *config.Config) error {
	selectedLanguage := language.Resolve(cfg.UI.Language)
	theme := cfg.UI.Theme
	volume := strconv.Itoa(int(cfg.UI.Volume*100 + 0.5))
	autoplay := cfg.UI.Autoplay
	copyTranscript := cfg.UI.CopyTranscript

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Description("Language sent with transcription, analysis and speech requests").
				Options(languageOptions(cfg.UI.Language)...).
				Filtering(true).
				Value(&selectedLanguage),
			huh.NewSelect[string]().
				Title("Theme").
				Description("Terminal colour theme").
				Options(
					huh.NewOption("Auto-detect", "auto"),
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).
				Value(&theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Volume (%)").
				Description("Playback volume for recordings and pronunciations").
				Placeholder("80").
				Value(&volume).
				Validate(func(s string) error {
					_, err := parseVolume(s)
					return err
				}),
			huh.NewConfirm().
				Title("Play corrected pronunciations automatically?").
				Value(&autoplay),
			huh.NewConfirm().
				Title("Copy transcripts to the clipboard?").
				Value(&copyTranscript),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	v, err := parseVolume(volume)
	if err != nil {
		return err
	}
	cfg.UI.Language = selectedLanguage
	cfg.UI.Theme = theme
	cfg.UI.Volume = v
	cfg.UI.Autoplay = autoplay
	cfg.UI.CopyTranscript = copyTranscript
	return nil
}

// editBackend edits the backend URL and request timeout
func editBackend(cfg *config.Config) error {
	backendURL := cfg.Backend.URL
	timeout := cfg.Backend.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Base URL of the speech coaching backend").
				Placeholder("http://localhost:8000").
				Value(&backendURL).
				Validate(validateBackendURL),
			huh.NewInput().
				Title("Request Timeout").
				Description("Maximum time for a single backend request").
				Placeholder("30s").
				Value(&timeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Backend.URL = backendURL
	cfg.Backend.Timeout = mustDuration(timeout)
	return nil
}
