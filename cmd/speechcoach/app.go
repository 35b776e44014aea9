package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/clipboard"
	"github.com/leonardotrapani/speechcoach/internal/coach"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/render"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

func (f *globalFlags) path() (string, error) {
	if f.configPath != "" {
		return f.configPath, nil
	}
	return config.GetConfigPath()
}

// apply layers the command-line overrides over cfg.
func (f *globalFlags) apply(cfg *config.Config) {
	if f.backendURL != "" {
		cfg.Backend.URL = f.backendURL
	}
	if f.language != "" {
		cfg.UI.Language = f.language
	}
}

func (f *globalFlags) load() (*config.Config, error) {
	path, err := f.path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *globalFlags) manager() (*config.Manager, error) {
	path, err := f.path()
	if err != nil {
		return nil, err
	}
	return config.NewManagerForFile(path)
}

// app is the set of components a command needs, built from one config.
type app struct {
	cfg     *config.Config
	client  *api.Client
	cache   *tts.Cache
	speaker *tts.Speaker
	coach   *coach.Coach
	printer *render.Printer
}

func newApp(cfg *config.Config, out io.Writer, caps recording.Capabilities) (*app, error) {
	client := api.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)

	styles := render.NewStyles(render.NewRenderer(out, cfg.UI.Theme))
	if out == os.Stdout {
		styles = render.Stdout(cfg.UI.Theme)
	}

	cache := tts.NewCache(cfg.ToCacheOptions())
	var fallback tts.Synthesizer
	if strings.EqualFold(cfg.TTS.Fallback, "openai") {
		if key := cfg.OpenAIKey(); key != "" {
			fallback = tts.NewOpenAISynthesizer(key, cfg.OpenAIBaseURL(), cfg.TTS.OpenAIVoice)
		} else {
			log.Printf("speechcoach: tts fallback is openai but no API key is configured")
		}
	}
	player := recording.NewCommandPlayer(cfg.UI.Volume)
	speaker := tts.NewSpeaker(cache, tts.RemoteSynthesizer{Client: client}, fallback, player)

	recorder := recording.NewRecorder(cfg.ToRecordingConfig(), caps)
	c := coach.New(client, recorder, speaker, cfg.Messenger(), cfg.ToCoachOptions())
	c.SetClipboard(clipboard.New(clipboard.DefaultConfig()))
	if err := c.SetLanguage(cfg.UI.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	return &app{
		cfg:     cfg,
		client:  client,
		cache:   cache,
		speaker: speaker,
		coach:   c,
		printer: render.NewPrinter(out, styles),
	}, nil
}

// Close releases the microphone and stops the cache janitor.
func (a *app) Close() {
	a.coach.Close()
	a.cache.Close()
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
