package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/notify"
)

type Config struct {
	Backend       BackendConfig             `toml:"backend"`
	Recording     RecordingConfig           `toml:"recording"`
	Jobs          JobsConfig                `toml:"jobs"`
	TTS           TTSConfig                 `toml:"tts"`
	Chat          ChatConfig                `toml:"chat"`
	UI            UIConfig                  `toml:"ui"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// BackendConfig locates the speech backend
type BackendConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// ProviderConfig holds credentials for a fallback provider
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type RecordingConfig struct {
	SampleRate       int           `toml:"sample_rate"`
	Channels         int           `toml:"channels"`
	Device           string        `toml:"device"`
	EchoCancellation bool          `toml:"echo_cancellation"`
	NoiseSuppression bool          `toml:"noise_suppression"`
	MIMETypes        []string      `toml:"mime_types"`
	FallbackMIMEType string        `toml:"fallback_mime_type"`
	BufferSize       int           `toml:"buffer_size"`
	ChunkBufferSize  int           `toml:"chunk_buffer_size"`
	Timeout          time.Duration `toml:"timeout"` // maximum recording length
}

type JobsConfig struct {
	PollInterval time.Duration `toml:"poll_interval"`
	// DeleteFinished removes completed jobs from the backend once rendered
	DeleteFinished bool `toml:"delete_finished"`
}

type TTSConfig struct {
	CacheTTL    time.Duration `toml:"cache_ttl"`
	MaxEntries  int           `toml:"max_entries"`
	Fallback    string        `toml:"fallback"` // "openai", "none"
	OpenAIVoice string        `toml:"openai_voice"`
}

type ChatConfig struct {
	MaxResults int    `toml:"max_results"`
	Fallback   string `toml:"fallback"` // "openai", "none"
	Model      string `toml:"model"`
}

// UIConfig holds the user-facing settings
type UIConfig struct {
	Language string  `toml:"language"`
	Theme    string  `toml:"theme"` // "auto", "dark", "light"
	Volume   float64 `toml:"volume"`
	Autoplay bool    `toml:"autoplay"`
	// CopyTranscript puts finished transcripts on the clipboard
	CopyTranscript bool `toml:"copy_transcript"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	RecordingStarted   MessageConfig `toml:"recording_started"`
	RecordingEnded     MessageConfig `toml:"recording_ended"`
	Transcribing       MessageConfig `toml:"transcribing"`
	Analyzing          MessageConfig `toml:"analyzing"`
	JobCompleted       MessageConfig `toml:"job_completed"`
	JobFailed          MessageConfig `toml:"job_failed"`
	OperationCancelled MessageConfig `toml:"operation_cancelled"`
	ConfigReloaded     MessageConfig `toml:"config_reloaded"`
	PlaybackBlocked    MessageConfig `toml:"playback_blocked"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}

// Lookup returns the message stored under its toml key, or nil if no such message exists.
func (m *MessagesConfig) Lookup(key string) *MessageConfig {
	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == key {
			return v.Field(i).Addr().Interface().(*MessageConfig)
		}
	}
	return nil
}
