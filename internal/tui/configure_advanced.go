package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/speechcoach/internal/config"
)

// AdvancedSection represents a section in the advanced settings menu
type AdvancedSection string

const (
	AdvancedRecording AdvancedSection = "recording"
	AdvancedJobs      AdvancedSection = "jobs"
	AdvancedCache     AdvancedSection = "cache"
	AdvancedBack      AdvancedSection = "back"
)

// editAdvanced handles the advanced settings submenu
func editAdvanced(cfg *config.Config) error {
	for {
		options := []huh.Option[AdvancedSection]{
			huh.NewOption(formatAdvancedRecordingLabel(cfg), AdvancedRecording),
			huh.NewOption(formatAdvancedJobsLabel(cfg), AdvancedJobs),
			huh.NewOption(formatAdvancedCacheLabel(cfg), AdvancedCache),
			huh.NewOption("Back to Main Menu", AdvancedBack),
		}

		var selected AdvancedSection
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[AdvancedSection]().
					Title("Advanced Settings").
					Description("Configure low-level options").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}

		switch selected {
		case AdvancedBack:
			return nil
		case AdvancedRecording:
			if err := editRecording(cfg); err != nil {
				continue
			}
		case AdvancedJobs:
			if err := editJobs(cfg); err != nil {
				continue
			}
		case AdvancedCache:
			if err := editCache(cfg); err != nil {
				continue
			}
		}
	}
}

func formatAdvancedRecordingLabel(cfg *config.Config) string {
	return fmt.Sprintf("Recording Settings (rate=%d, timeout=%s)", cfg.Recording.SampleRate, cfg.Recording.Timeout)
}

func formatAdvancedJobsLabel(cfg *config.Config) string {
	return fmt.Sprintf("Job Polling (every %s)", cfg.Jobs.PollInterval)
}

func formatAdvancedCacheLabel(cfg *config.Config) string {
	return fmt.Sprintf("Speech Cache (ttl=%s, max=%d)", cfg.TTS.CacheTTL, cfg.TTS.MaxEntries)
}

// editRecording handles the recording settings
func editRecording(cfg *config.Config) error {
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	channels := strconv.Itoa(cfg.Recording.Channels)
	device := cfg.Recording.Device
	echoCancellation := cfg.Recording.EchoCancellation
	noiseSuppression := cfg.Recording.NoiseSuppression
	timeout := cfg.Recording.Timeout.String()

	channelOptions := []huh.Option[string]{
		huh.NewOption("1 (Mono) - Recommended", "1"),
		huh.NewOption("2 (Stereo)", "2"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("Audio sample rate. 16000 is optimal for speech recognition.").
				Placeholder("16000").
				Value(&sampleRate).
				Validate(validatePositiveInt),
			huh.NewSelect[string]().
				Title("Channels").
				Description("Number of audio channels").
				Options(channelOptions...).
				Value(&channels),
			huh.NewInput().
				Title("Device").
				Description("PipeWire target; empty uses the default source").
				Value(&device),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Echo cancellation").
				Value(&echoCancellation),
			huh.NewConfirm().
				Title("Noise suppression").
				Value(&noiseSuppression),
			huh.NewInput().
				Title("Maximum Recording Length").
				Description("Recording stops automatically after this duration").
				Placeholder("5m").
				Value(&timeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate = mustInt(sampleRate)
	cfg.Recording.Channels = mustInt(channels)
	cfg.Recording.Device = device
	cfg.Recording.EchoCancellation = echoCancellation
	cfg.Recording.NoiseSuppression = noiseSuppression
	cfg.Recording.Timeout = mustDuration(timeout)
	return nil
}

func editJobs(cfg *config.Config) error {
	interval := cfg.Jobs.PollInterval.String()
	deleteFinished := cfg.Jobs.DeleteFinished

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll Interval").
				Description("Delay between job status requests").
				Placeholder("2s").
				Value(&interval).
				Validate(validateDuration),
			huh.NewConfirm().
				Title("Delete finished jobs from the backend?").
				Value(&deleteFinished),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Jobs.PollInterval = mustDuration(interval)
	cfg.Jobs.DeleteFinished = deleteFinished
	return nil
}

func editCache(cfg *config.Config) error {
	ttl := cfg.TTS.CacheTTL.String()
	maxEntries := strconv.Itoa(cfg.TTS.MaxEntries)
	maxResults := strconv.Itoa(cfg.Chat.MaxResults)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cache TTL").
				Description("How long synthesized pronunciations are reused").
				Placeholder("5m").
				Value(&ttl).
				Validate(validateDuration),
			huh.NewInput().
				Title("Max Cached Entries").
				Placeholder("200").
				Value(&maxEntries).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Chat Sources").
				Description("Number of retrieved passages per chat answer (1-20)").
				Placeholder("5").
				Value(&maxResults).
				Validate(func(s string) error {
					if err := validatePositiveInt(s); err != nil {
						return err
					}
					if mustInt(s) > 20 {
						return fmt.Errorf("must be at most 20")
					}
					return nil
				}),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.TTS.CacheTTL = mustDuration(ttl)
	cfg.TTS.MaxEntries = mustInt(maxEntries)
	cfg.Chat.MaxResults = mustInt(maxResults)
	return nil
}
