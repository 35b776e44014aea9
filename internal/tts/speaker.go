package tts

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/recording"
)

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) (api.Audio, error)
}

// RemoteSynthesizer uses the backend's /synthesize-speech endpoint.
type RemoteSynthesizer struct {
	Client *api.Client
}

func (r RemoteSynthesizer) Synthesize(ctx context.Context, text, lang string) (api.Audio, error) {
	return r.Client.SynthesizeSpeech(ctx, text, lang)
}

// Speaker plays the correct pronunciation of a word or phrase.
type Speaker struct {
	cache    *Cache
	primary  Synthesizer
	fallback Synthesizer
	player   recording.Player
}

// NewSpeaker wires a cache, the backend synthesizer, an optional fallback and a player.
func NewSpeaker(cache *Cache, primary, fallback Synthesizer, player recording.Player) *Speaker {
	return &Speaker{cache: cache, primary: primary, fallback: fallback, player: player}
}

// Audio returns synthesized audio for text, from the cache when possible.
// A failing backend falls through to the fallback synthesizer.
func (s *Speaker) Audio(ctx context.Context, text, lang string) (api.Audio, error) {
	key := NewKey(text, lang)
	if key.Text == "" {
		return api.Audio{}, api.ErrEmptyText
	}
	return s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (api.Audio, error) {
		audio, err := s.primary.Synthesize(ctx, key.Text, lang)
		if err == nil {
			return audio, nil
		}
		if s.fallback == nil {
			return api.Audio{}, err
		}
		log.Printf("tts-speaker: backend synthesis failed, using fallback: %v", err)
		audio, fbErr := s.fallback.Synthesize(ctx, key.Text, lang)
		if fbErr != nil {
			return api.Audio{}, fmt.Errorf("synthesize %q: %w", key.Text, errors.Join(err, fbErr))
		}
		return audio, nil
	})
}

// Speak synthesizes and plays text. recording.ErrPlaybackBlocked is returned
// unwrapped; audio in a format the player cannot decode is dropped from the
// cache and retried once through the fallback synthesizer.
func (s *Speaker) Speak(ctx context.Context, text, lang string) error {
	audio, err := s.Audio(ctx, text, lang)
	if err != nil {
		return err
	}

	err = s.play(ctx, audio)
	if !errors.Is(err, recording.ErrUnsupportedFormat) || s.fallback == nil {
		return err
	}

	key := NewKey(text, lang)
	s.cache.Invalidate(key)
	log.Printf("tts-speaker: cannot decode %s audio for %q, using fallback", audio.ContentType, key.Text)
	audio, fbErr := s.fallback.Synthesize(ctx, key.Text, lang)
	if fbErr != nil {
		return fmt.Errorf("fallback synthesis: %w", fbErr)
	}
	if err := s.play(ctx, audio); err != nil {
		return err
	}
	s.cache.Put(key, audio)
	return nil
}

func (s *Speaker) play(ctx context.Context, audio api.Audio) error {
	clip := recording.Clip{Data: audio.Data, MIMEType: audio.ContentType, Name: "speech"}
	if err := s.player.Play(ctx, clip); err != nil {
		if errors.Is(err, recording.ErrPlaybackBlocked) {
			return recording.ErrPlaybackBlocked
		}
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}
