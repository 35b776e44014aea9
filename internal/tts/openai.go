package tts

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/speechcoach/internal/api"
)

const maxSpeechBytes = 20 << 20

// OpenAISynthesizer is the fallback voice used when the backend cannot synthesize.
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAISynthesizer creates a synthesizer. baseURL may be empty for the public API.
func NewOpenAISynthesizer(apiKey, baseURL, voice string) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	v := openai.SpeechVoice(voice)
	if v == "" {
		v = openai.VoiceAlloy
	}
	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.TTSModel1,
		voice:  v,
	}
}

// Synthesize ignores lang; the model infers the language from the text.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, lang string) (api.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return api.Audio{}, api.ErrEmptyText
	}

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          0.9,
	})
	if err != nil {
		log.Printf("openai-tts: API call failed after %v: %v", time.Since(start), err)
		return api.Audio{}, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxSpeechBytes))
	if err != nil {
		return api.Audio{}, fmt.Errorf("read openai speech: %w", err)
	}
	log.Printf("openai-tts: synthesized %q (%s) in %v, %d bytes", text, lang, time.Since(start), len(data))
	return api.Audio{Data: data, ContentType: "audio/mpeg"}, nil
}
