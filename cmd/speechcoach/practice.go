package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/chat"
	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/language"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/render"
	"github.com/spf13/cobra"
)

// openApp loads the config and builds the components for a one-shot command.
func openApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, cmd.OutOrStdout(), cfg.ToPipeWire())
}

// interruptible cancels on Ctrl-C so long polls can be abandoned.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func transcribeCmd(flags *globalFlags) *cobra.Command {
	var copyText, translate bool
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if copyText {
				cfg.UI.CopyTranscript = true
			}
			a, err := newApp(cfg, cmd.OutOrStdout(), cfg.ToPipeWire())
			if err != nil {
				return err
			}
			defer a.Close()

			clip, err := recording.LoadClip(args[0])
			if err != nil {
				return fmt.Errorf("failed to load audio: %w", err)
			}
			ctx, cancel := interruptible(cmd)
			defer cancel()
			if translate {
				return a.transcribeWith(ctx, clip, a.coach.Translate)
			}
			return a.transcribe(ctx, clip)
		},
	}
	cmd.Flags().BoolVarP(&copyText, "copy", "c", false, "copy the transcript to the clipboard")
	cmd.Flags().BoolVarP(&translate, "translate", "t", false, "translate the speech to English instead of transcribing it")
	return cmd
}

func (a *app) transcribe(ctx context.Context, clip recording.Clip) error {
	return a.transcribeWith(ctx, clip, a.coach.Transcribe)
}

func (a *app) transcribeWith(ctx context.Context, clip recording.Clip, submit func(context.Context, recording.Clip) (*jobs.Handle[string], error)) error {
	h, err := submit(ctx, clip)
	if err != nil {
		return fmt.Errorf("failed to submit transcription: %w", err)
	}
	job, err := h.Wait(ctx)
	if err != nil {
		h.Cancel()
		return fmt.Errorf("transcription interrupted: %w", err)
	}
	a.coach.Wait()
	a.printer.TranscriptionJob(job)
	if job.State == jobs.Failed {
		return errors.New(job.Message())
	}
	return nil
}

func analyzeCmd(flags *globalFlags) *cobra.Command {
	var reference string
	var speak bool
	cmd := &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Score the pronunciation of an audio file against reference text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if speak {
				cfg.UI.Autoplay = true
			}
			a, err := newApp(cfg, cmd.OutOrStdout(), cfg.ToPipeWire())
			if err != nil {
				return err
			}
			defer a.Close()

			clip, err := recording.LoadClip(args[0])
			if err != nil {
				return fmt.Errorf("failed to load audio: %w", err)
			}
			ctx, cancel := interruptible(cmd)
			defer cancel()
			return a.analyze(ctx, clip, reference)
		},
	}
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "text the speaker was reading (required)")
	cmd.Flags().BoolVar(&speak, "speak", false, "play the correct pronunciation of each mispronounced word")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func (a *app) analyze(ctx context.Context, clip recording.Clip, reference string) error {
	h, err := a.coach.Analyze(ctx, clip, reference)
	if err != nil {
		return fmt.Errorf("failed to submit analysis: %w", err)
	}
	job, err := h.Wait(ctx)
	if err != nil {
		h.Cancel()
		return fmt.Errorf("analysis interrupted: %w", err)
	}
	// Wait for autoplay before the process exits.
	a.coach.Wait()
	a.printer.PronunciationJob(job)
	if job.State == jobs.Failed {
		return errors.New(job.Message())
	}
	return nil
}

func recordCmd(flags *globalFlags) *cobra.Command {
	var seconds int
	var reference string
	var copyText bool
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone, then transcribe or analyze",
		Long: `Record from the microphone for the given number of seconds (or until
Ctrl-C). With --reference the recording is scored against the text,
otherwise it is transcribed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seconds <= 0 {
				return fmt.Errorf("--seconds must be positive")
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if copyText {
				cfg.UI.CopyTranscript = true
			}
			a, err := newApp(cfg, cmd.OutOrStdout(), cfg.ToPipeWire())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coach.StartRecording(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start recording: %w", errors.New(render.UserMessage(err)))
			}
			a.printer.Info(fmt.Sprintf("Recording for %ds, press Ctrl-C to stop early...", seconds))

			stopCtx, stop := interruptible(cmd)
			select {
			case <-stopCtx.Done():
			case <-time.After(time.Duration(seconds) * time.Second):
			}
			stop()

			clip, err := a.coach.StopRecording()
			if err != nil {
				return fmt.Errorf("failed to stop recording: %w", err)
			}

			ctx, cancel := interruptible(cmd)
			defer cancel()
			if reference != "" {
				return a.analyze(ctx, clip, reference)
			}
			return a.transcribe(ctx, clip)
		},
	}
	cmd.Flags().IntVarP(&seconds, "seconds", "s", 5, "recording length in seconds")
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "score the recording against this text")
	cmd.Flags().BoolVarP(&copyText, "copy", "c", false, "copy the transcript to the clipboard")
	return cmd
}

func speakCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "speak <text>",
		Short: "Play the correct pronunciation of a word or phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coach.Speak(cmd.Context(), joinArgs(args)); err != nil {
				if errors.Is(err, recording.ErrPlaybackBlocked) {
					a.printer.Warning("Playback was blocked by the audio server.")
				}
				return fmt.Errorf("failed to speak: %w", err)
			}
			return nil
		},
	}
}

func chatCmd(flags *globalFlags) *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the grammar tutor a question",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.chat()
			if err != nil {
				return err
			}
			if clearAll {
				if err := c.ClearHistory(); err != nil {
					return fmt.Errorf("failed to clear chat: %w", err)
				}
				a.printer.Success("Chat history cleared.")
				return nil
			}

			query := joinArgs(args)
			if query == "" {
				return fmt.Errorf("question required (use --clear to start a new session)")
			}
			reply, err := c.Ask(cmd.Context(), query)
			if err != nil {
				a.printer.Error(err)
				return fmt.Errorf("failed to ask tutor: %w", err)
			}
			a.printer.ChatMessage(chat.Message{Role: chat.RoleUser, Text: query})
			a.printer.ChatMessage(reply)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "clear the conversation and start a new session")
	return cmd
}

func (a *app) chat() (*chat.Chat, error) {
	path, err := chat.DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	c, err := chat.New(a.client, chat.NewFileStore(path), a.cfg.Chat.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to start chat session: %w", err)
	}
	if a.cfg.Chat.Fallback == "openai" {
		if key := a.cfg.OpenAIKey(); key != "" {
			c.SetFallback(chat.NewOpenAITutor(key, a.cfg.OpenAIBaseURL(), a.cfg.Chat.Model))
		}
	}
	return c, nil
}

func healthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend and its models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.client.Health(cmd.Context())
			if err != nil {
				a.printer.Error(err)
				return fmt.Errorf("backend unreachable at %s: %w", a.client.BaseURL(), err)
			}
			a.printer.Health(h)
			if !h.Healthy() {
				return fmt.Errorf("backend is %s", h.Status)
			}
			return nil
		},
	}
}

func languagesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the supported practice languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			a.printer.Languages(language.List(), a.coach.Language())
			return nil
		},
	}
}
