package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/speechcoach/internal/config"
)

var fallbackOptions = []huh.Option[string]{
	huh.NewOption("None", "none"),
	huh.NewOption("OpenAI", "openai"),
}

// editFallbacks configures what runs when the backend cannot synthesize speech
// or answer a chat query, plus the OpenAI credentials those fallbacks need.
func editFallbacks(cfg *config.Config) error {
	ttsFallback := fallbackName(cfg.TTS.Fallback)
	chatFallback := fallbackName(cfg.Chat.Fallback)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Speech Fallback").
				Description("Synthesizer used when the backend cannot produce speech").
				Options(fallbackOptions...).
				Value(&ttsFallback),
			huh.NewSelect[string]().
				Title("Chat Fallback").
				Description("Tutor used when the grammar chatbot is unavailable").
				Options(fallbackOptions...).
				Value(&chatFallback),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.TTS.Fallback = ttsFallback
	cfg.Chat.Fallback = chatFallback

	if ttsFallback == "openai" || chatFallback == "openai" {
		return configureOpenAI(cfg)
	}
	return nil
}

// configureOpenAI prompts for the API key, voice and chat model
func configureOpenAI(cfg *config.Config) error {
	pc := cfg.Providers["openai"]
	apiKey := pc.APIKey
	baseURL := pc.BaseURL
	voice := cfg.TTS.OpenAIVoice
	model := cfg.Chat.Model

	keyDesc := "Leave empty to use OPENAI_API_KEY from the environment"
	if apiKey != "" {
		keyDesc = fmt.Sprintf("Current: %s", maskAPIKey(apiKey))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key").
				Description(keyDesc).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Base URL").
				Description("Optional OpenAI-compatible endpoint").
				Placeholder("https://api.openai.com/v1").
				Value(&baseURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					return validateBackendURL(s)
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Voice").
				Description("Voice used for fallback pronunciations").
				Options(
					huh.NewOption("Alloy", "alloy"),
					huh.NewOption("Echo", "echo"),
					huh.NewOption("Fable", "fable"),
					huh.NewOption("Nova", "nova"),
					huh.NewOption("Onyx", "onyx"),
					huh.NewOption("Shimmer", "shimmer"),
				).
				Value(&voice),
			huh.NewInput().
				Title("Chat Model").
				Placeholder("gpt-4o-mini").
				Value(&model),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	cfg.Providers["openai"] = config.ProviderConfig{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimSpace(baseURL),
	}
	cfg.TTS.OpenAIVoice = voice
	if strings.TrimSpace(model) != "" {
		cfg.Chat.Model = strings.TrimSpace(model)
	}
	return nil
}
