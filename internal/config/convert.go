package config

import (
	"os"

	"github.com/leonardotrapani/speechcoach/internal/coach"
	"github.com/leonardotrapani/speechcoach/internal/notify"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

func (c *Config) ToRecordingConfig() recording.Config {
	cfg := recording.DefaultConfig()
	cfg.Constraints = recording.Constraints{
		EchoCancellation: c.Recording.EchoCancellation,
		NoiseSuppression: c.Recording.NoiseSuppression,
		SampleRate:       c.Recording.SampleRate,
		Device:           c.Recording.Device,
	}
	if len(c.Recording.MIMETypes) > 0 {
		cfg.MIMETypes = c.Recording.MIMETypes
	}
	cfg.FallbackMIMEType = c.Recording.FallbackMIMEType
	cfg.ChunkBufferSize = c.Recording.ChunkBufferSize
	return cfg
}

// ToPipeWire returns the capture provider for this machine.
func (c *Config) ToPipeWire() *recording.PipeWire {
	pw := recording.NewPipeWire(c.Recording.SampleRate, c.Recording.Channels, c.Recording.Device)
	pw.BufferSize = c.Recording.BufferSize
	return pw
}

func (c *Config) ToCoachOptions() coach.Options {
	return coach.Options{
		Language:       c.UI.Language,
		PollInterval:   c.Jobs.PollInterval,
		MaxRecording:   c.Recording.Timeout,
		DeleteFinished: c.Jobs.DeleteFinished,
		Autoplay:       c.UI.Autoplay,
		CopyTranscript: c.UI.CopyTranscript,
	}
}

func (c *Config) ToCacheOptions() tts.Options {
	return tts.Options{
		TTL:        c.TTS.CacheTTL,
		MaxEntries: c.TTS.MaxEntries,
	}
}

// OpenAIKey returns the OpenAI key from the config file or OPENAI_API_KEY.
func (c *Config) OpenAIKey() string {
	if c.Providers != nil {
		if pc, ok := c.Providers["openai"]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c *Config) OpenAIBaseURL() string {
	if c.Providers != nil {
		return c.Providers["openai"].BaseURL
	}
	return ""
}

// Notifier returns the configured notifier, or Nop when notifications are off.
func (c *Config) Notifier() notify.Notifier {
	if !c.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(c.Notifications.Type)
}

func (c *Config) Messenger() *notify.Messenger {
	return notify.NewMessenger(c.Notifier(), c.Notifications.Messages.Resolve())
}
