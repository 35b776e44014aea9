package config

import (
	"fmt"
	"net/url"

	"github.com/leonardotrapani/speechcoach/internal/language"
)

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend.url: %q (must be an http or https URL)", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid backend.timeout: %v", c.Backend.Timeout)
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels < 1 || c.Recording.Channels > 2 {
		return fmt.Errorf("invalid recording.channels: %d (must be 1 or 2)", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChunkBufferSize <= 0 {
		return fmt.Errorf("invalid recording.chunk_buffer_size: %d", c.Recording.ChunkBufferSize)
	}
	if c.Recording.FallbackMIMEType == "" {
		return fmt.Errorf("invalid recording.fallback_mime_type: empty")
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if c.Jobs.PollInterval <= 0 {
		return fmt.Errorf("invalid jobs.poll_interval: %v", c.Jobs.PollInterval)
	}

	if c.TTS.CacheTTL <= 0 {
		return fmt.Errorf("invalid tts.cache_ttl: %v", c.TTS.CacheTTL)
	}
	if c.TTS.MaxEntries <= 0 {
		return fmt.Errorf("invalid tts.max_entries: %d", c.TTS.MaxEntries)
	}
	if err := c.validateFallback("tts.fallback", c.TTS.Fallback); err != nil {
		return err
	}

	if c.Chat.MaxResults <= 0 || c.Chat.MaxResults > 20 {
		return fmt.Errorf("invalid chat.max_results: %d (must be 1-20)", c.Chat.MaxResults)
	}
	if err := c.validateFallback("chat.fallback", c.Chat.Fallback); err != nil {
		return err
	}

	if !language.IsSupported(c.UI.Language) {
		return fmt.Errorf("invalid ui.language: %s (supported: %v)", c.UI.Language, language.Codes())
	}
	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[c.UI.Theme] {
		return fmt.Errorf("invalid ui.theme: %s (must be auto, dark, or light)", c.UI.Theme)
	}
	if c.UI.Volume < 0 || c.UI.Volume > 1 {
		return fmt.Errorf("invalid ui.volume: %v (must be between 0 and 1)", c.UI.Volume)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func (c *Config) validateFallback(key, value string) error {
	switch value {
	case "", "none":
		return nil
	case "openai":
		if c.OpenAIKey() == "" {
			return fmt.Errorf("OpenAI API key required for %s: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)", key)
		}
		return nil
	default:
		return fmt.Errorf("invalid %s: %s (must be openai or none)", key, value)
	}
}
