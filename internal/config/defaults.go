package config

import (
	"time"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/language"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

// DefaultConfig returns the settings a loaded file is merged over.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     api.DefaultBaseURL,
			Timeout: api.DefaultTimeout,
		},
		Recording: RecordingConfig{
			SampleRate:       16000,
			Channels:         1,
			Device:           "",
			EchoCancellation: true,
			NoiseSuppression: true,
			MIMETypes:        append([]string(nil), recording.DefaultMIMETypes...),
			FallbackMIMEType: recording.DefaultFallbackMIMEType,
			BufferSize:       8192,
			ChunkBufferSize:  64,
			Timeout:          5 * time.Minute,
		},
		Jobs: JobsConfig{
			PollInterval: jobs.DefaultPollInterval,
		},
		TTS: TTSConfig{
			CacheTTL:    tts.DefaultTTL,
			MaxEntries:  tts.DefaultMaxEntries,
			Fallback:    "none",
			OpenAIVoice: "alloy",
		},
		Chat: ChatConfig{
			MaxResults: 5,
			Fallback:   "none",
			Model:      "gpt-4o-mini",
		},
		UI: UIConfig{
			Language:       language.DefaultCode,
			Theme:          "auto",
			Volume:         0.8,
			Autoplay:       false,
			CopyTranscript: false,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
		Providers: make(map[string]ProviderConfig),
	}
}
