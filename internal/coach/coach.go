package coach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/clipboard"
	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/language"
	"github.com/leonardotrapani/speechcoach/internal/notify"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

type Status string

const (
	Idle         Status = "idle"
	Recording    Status = "recording"
	Transcribing Status = "transcribing"
	Analyzing    Status = "analyzing"
)

var ErrNoSpeaker = errors.New("speech playback is not configured")

const deleteTimeout = 10 * time.Second

type Options struct {
	Language     string
	PollInterval time.Duration
	// MaxRecording stops and submits a recording that runs this long; 0 disables it.
	MaxRecording time.Duration
	// DeleteFinished removes completed and server-failed jobs from the backend.
	DeleteFinished bool
	// Autoplay speaks each mispronounced word once an analysis completes.
	Autoplay bool
	// CopyTranscript puts each completed transcript on the clipboard.
	CopyTranscript bool
}

// Coach ties the recorder, the two job panels, speech playback and notifications together.
type Coach struct {
	client    *api.Client
	recorder  *recording.Recorder
	speaker   *tts.Speaker
	messenger *notify.Messenger
	clipboard clipboard.Writer

	transcription *jobs.Tracker[string]
	pronunciation *jobs.Tracker[api.PronunciationAnalysis]

	mu        sync.Mutex
	opts      Options
	reference string
	stopTimer *time.Timer

	wg sync.WaitGroup
}

// New builds a Coach. speaker may be nil, in which case Speak fails with ErrNoSpeaker.
func New(client *api.Client, recorder *recording.Recorder, speaker *tts.Speaker, messenger *notify.Messenger, opts Options) *Coach {
	if messenger == nil {
		messenger = notify.NewMessenger(notify.Nop{}, nil)
	}
	opts.Language = language.Resolve(opts.Language)
	return &Coach{
		client:        client,
		recorder:      recorder,
		speaker:       speaker,
		messenger:     messenger,
		transcription: jobs.NewTracker[string]("transcription", opts.PollInterval),
		pronunciation: jobs.NewTracker[api.PronunciationAnalysis]("pronunciation", opts.PollInterval),
		opts:          opts,
	}
}

func (c *Coach) options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// Apply swaps in reloaded settings. The poll interval only changes with a new Coach.
func (c *Coach) Apply(opts Options, messenger *notify.Messenger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts.Language = language.Resolve(opts.Language)
	opts.PollInterval = c.opts.PollInterval
	c.opts = opts
	if messenger != nil {
		c.messenger = messenger
	}
}

// SetClipboard sets where completed transcripts are copied when CopyTranscript is on.
func (c *Coach) SetClipboard(w clipboard.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clipboard = w
}

func (c *Coach) notifier() *notify.Messenger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messenger
}

func (c *Coach) SetLanguage(code string) error {
	if !language.IsSupported(code) {
		return fmt.Errorf("%w: %q", api.ErrUnsupportedLanguage, code)
	}
	c.mu.Lock()
	c.opts.Language = code
	c.mu.Unlock()
	return nil
}

func (c *Coach) Language() string {
	return c.options().Language
}

// SetReference sets the text the next recording is scored against. An empty
// reference sends recordings to transcription instead.
func (c *Coach) SetReference(text string) {
	c.mu.Lock()
	c.reference = strings.TrimSpace(text)
	c.mu.Unlock()
}

func (c *Coach) Reference() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reference
}

func (c *Coach) Status() Status {
	switch {
	case c.recorder != nil && c.recorder.IsRecording():
		return Recording
	case c.pronunciation.Snapshot().State.IsBusy():
		return Analyzing
	case c.transcription.Snapshot().State.IsBusy():
		return Transcribing
	default:
		return Idle
	}
}

func (c *Coach) TranscriptionJob() jobs.Job[string] {
	return c.transcription.Snapshot()
}

func (c *Coach) PronunciationJob() jobs.Job[api.PronunciationAnalysis] {
	return c.pronunciation.Snapshot()
}

// Elapsed returns the seconds recorded so far in the active session.
func (c *Coach) Elapsed() int {
	if c.recorder == nil {
		return 0
	}
	return c.recorder.Elapsed()
}

// StartRecording opens the microphone. Capture failures are reported to the
// user with their per-kind message and returned.
func (c *Coach) StartRecording(ctx context.Context) error {
	if c.recorder == nil {
		return &recording.CaptureError{Kind: recording.KindNotSupported, Err: recording.ErrNotSupported}
	}
	if err := c.recorder.Start(ctx); err != nil {
		var ce *recording.CaptureError
		if errors.As(err, &ce) {
			c.notifier().Notifier.Error(ce.UserMessage())
		}
		return err
	}
	c.notifier().Send(notify.MsgRecordingStarted, "")

	if limit := c.options().MaxRecording; limit > 0 {
		timer := time.AfterFunc(limit, func() {
			log.Printf("coach: recording reached %v, submitting", limit)
			if err := c.StopAndSubmit(ctx); err != nil && !errors.Is(err, recording.ErrNotRecording) {
				log.Printf("coach: auto-submit failed: %v", err)
			}
		})
		c.mu.Lock()
		c.stopTimer = timer
		c.mu.Unlock()
	}
	return nil
}

func (c *Coach) clearTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
}

// StopRecording finalizes the active recording without submitting it.
func (c *Coach) StopRecording() (recording.Clip, error) {
	if c.recorder == nil {
		return recording.Clip{}, recording.ErrNotRecording
	}
	c.clearTimer()
	clip, err := c.recorder.Stop()
	if err != nil {
		return recording.Clip{}, err
	}
	c.notifier().Send(notify.MsgRecordingEnded, "")
	return clip, nil
}

// StopAndSubmit stops recording and submits the clip: for pronunciation
// analysis when a reference is set, for transcription otherwise.
func (c *Coach) StopAndSubmit(ctx context.Context) error {
	clip, err := c.StopRecording()
	if err != nil {
		return err
	}
	return c.Submit(ctx, clip)
}

func (c *Coach) Submit(ctx context.Context, clip recording.Clip) error {
	if ref := c.Reference(); ref != "" {
		_, err := c.Analyze(ctx, clip, ref)
		return err
	}
	_, err := c.Transcribe(ctx, clip)
	return err
}

// Toggle starts a recording when idle, otherwise stops and submits it.
func (c *Coach) Toggle(ctx context.Context) (Status, error) {
	if c.recorder != nil && c.recorder.IsRecording() {
		err := c.StopAndSubmit(ctx)
		return c.Status(), err
	}
	err := c.StartRecording(ctx)
	return c.Status(), err
}

func (c *Coach) Transcribe(ctx context.Context, clip recording.Clip) (*jobs.Handle[string], error) {
	return c.submitTranscription(ctx, clip, api.TaskTranscribe)
}

// Translate is Transcribe, but the backend returns an English translation of
// speech in the practice language.
func (c *Coach) Translate(ctx context.Context, clip recording.Clip) (*jobs.Handle[string], error) {
	return c.submitTranscription(ctx, clip, api.TaskTranslate)
}

func (c *Coach) submitTranscription(ctx context.Context, clip recording.Clip, task api.Task) (*jobs.Handle[string], error) {
	if clip.Empty() {
		return nil, api.ErrEmptyClip
	}
	h, err := c.transcription.Submit(ctx, &api.TranscriptionBackend{
		Client:   c.client,
		Clip:     clip,
		Language: c.Language(),
		Task:     task,
	})
	if err != nil {
		return nil, err
	}
	c.notifier().Send(notify.MsgTranscribing, "")
	watch(c, h, c.copyTranscript)
	return h, nil
}

func (c *Coach) Analyze(ctx context.Context, clip recording.Clip, reference string) (*jobs.Handle[api.PronunciationAnalysis], error) {
	if clip.Empty() {
		return nil, api.ErrEmptyClip
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, api.ErrEmptyReference
	}
	h, err := c.pronunciation.Submit(ctx, &api.PronunciationBackend{
		Client:    c.client,
		Clip:      clip,
		Reference: reference,
		Language:  c.Language(),
	})
	if err != nil {
		return nil, err
	}
	c.notifier().Send(notify.MsgAnalyzing, "")
	watch(c, h, c.autoplay)
	return h, nil
}

// watch reports the outcome of h once it ends. Cancelled jobs are not reported.
func watch[T any](c *Coach, h *jobs.Handle[T], onComplete func(T)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		job, err := h.Wait(context.Background())
		if err != nil {
			return
		}
		switch job.State {
		case jobs.Completed:
			c.notifier().Send(notify.MsgJobCompleted, "")
			if onComplete != nil && job.HasResult {
				onComplete(job.Result)
			}
		case jobs.Failed:
			c.notifier().Send(notify.MsgJobFailed, job.Message())
		}
		if job.Failure != jobs.FailureStatusCheck && job.ID != "" {
			c.deleteFinished(job.ID)
		}
	}()
}

func (c *Coach) deleteFinished(jobID string) {
	if !c.options().DeleteFinished {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := c.client.DeleteJob(ctx, jobID); err != nil {
		log.Printf("coach: delete job %s: %v", jobID, err)
	}
}

func (c *Coach) copyTranscript(text string) {
	c.mu.Lock()
	w := c.clipboard
	enabled := c.opts.CopyTranscript
	c.mu.Unlock()
	if !enabled || w == nil || strings.TrimSpace(text) == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Write(ctx, text); err != nil {
		log.Printf("coach: copy transcript: %v", err)
		c.notifier().Notifier.Error("Could not copy the transcript to the clipboard.")
		return
	}
	log.Printf("coach: transcript copied to clipboard (%d chars)", len(text))
}

func (c *Coach) autoplay(a api.PronunciationAnalysis) {
	if !c.options().Autoplay || c.speaker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, e := range a.PronunciationErrors {
		if err := c.Speak(ctx, e.Word); err != nil {
			log.Printf("coach: autoplay %q: %v", e.Word, err)
			return
		}
	}
}

// Speak plays the correct pronunciation of text in the current language.
func (c *Coach) Speak(ctx context.Context, text string) error {
	if c.speaker == nil {
		return ErrNoSpeaker
	}
	err := c.speaker.Speak(ctx, text, c.Language())
	if errors.Is(err, recording.ErrPlaybackBlocked) {
		c.notifier().Send(notify.MsgPlaybackBlocked, "")
	}
	return err
}

// PlayRecording plays back the last finalized recording.
func (c *Coach) PlayRecording(ctx context.Context, player recording.Player) error {
	if c.recorder == nil {
		return recording.ErrNoRecording
	}
	err := c.recorder.Play(ctx, player)
	if errors.Is(err, recording.ErrPlaybackBlocked) {
		c.notifier().Send(notify.MsgPlaybackBlocked, "")
	}
	return err
}

// Cancel discards an active recording and stops tracking both jobs. Jobs keep
// running on the server.
func (c *Coach) Cancel() {
	c.clearTimer()
	wasBusy := c.Status() != Idle
	if c.recorder != nil {
		c.recorder.Clear()
	}
	c.transcription.Reset()
	c.pronunciation.Reset()
	if wasBusy {
		c.notifier().Send(notify.MsgOperationCancelled, "")
	}
}

// Close releases the microphone, stops polling and waits for pending reports.
func (c *Coach) Close() {
	c.clearTimer()
	if c.recorder != nil {
		c.recorder.Close()
	}
	c.transcription.Reset()
	c.pronunciation.Reset()
	c.wg.Wait()
}

// Wait blocks until every submitted job has been reported.
func (c *Coach) Wait() {
	c.wg.Wait()
}
