package coach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/notify"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/testutil"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

// recordingNotifier collects every message sent through a Messenger.
type recordingNotifier struct {
	notify.Nop

	mu     sync.Mutex
	bodies []string
	errors []string
}

func (n *recordingNotifier) Send(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, msg.Body)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.bodies...)
}

func (n *recordingNotifier) has(body string) bool {
	for _, b := range n.sent() {
		if b == body {
			return true
		}
	}
	return false
}

type fixture struct {
	backend  *testutil.FakeBackend
	caps     *testutil.MockCapabilities
	player   *testutil.MockPlayer
	notifier *recordingNotifier
	coach    *Coach
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		backend:  testutil.NewFakeBackend(t),
		caps:     testutil.NewMockCapabilities("audio/webm"),
		player:   testutil.NewMockPlayer(),
		notifier: &recordingNotifier{},
	}
	client := api.NewClient(f.backend.URL, time.Second)
	recorder := recording.NewRecorder(recording.DefaultConfig(), f.caps)
	cache := tts.NewCache(tts.Options{})
	speaker := tts.NewSpeaker(cache, tts.RemoteSynthesizer{Client: client}, nil, f.player)
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	f.coach = New(client, recorder, speaker, notify.NewMessenger(f.notifier, nil), opts)
	t.Cleanup(f.coach.Close)
	return f
}

func webmClip() recording.Clip {
	return recording.Clip{Data: testutil.MockAudio(128), MIMEType: "audio/webm"}
}

func waitJob[T any](t *testing.T, h *jobs.Handle[T]) jobs.Job[T] {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	job, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return job
}

func TestToggleRecordsAndTranscribes(t *testing.T) {
	f := newFixture(t, Options{Language: "es"})
	f.backend.QueueJob("t1",
		map[string]any{"job_id": "t1", "status": "processing", "progress": 50},
		map[string]any{"job_id": "t1", "status": "completed", "progress": 100, "transcript": "hola mundo"},
	)

	status, err := f.coach.Toggle(context.Background())
	if err != nil {
		t.Fatalf("first Toggle() error = %v", err)
	}
	if status != Recording {
		t.Fatalf("status = %s, want recording", status)
	}

	if _, err := f.coach.Toggle(context.Background()); err != nil {
		t.Fatalf("second Toggle() error = %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return f.coach.TranscriptionJob().State == jobs.Completed
	}, 2*time.Second)
	f.coach.Wait()

	job := f.coach.TranscriptionJob()
	if job.Result != "hola mundo" {
		t.Errorf("transcript = %q", job.Result)
	}
	req, ok := f.backend.LastRequest("/transcribe")
	if !ok {
		t.Fatal("no /transcribe request")
	}
	if req.Fields["language"] != "es" {
		t.Errorf("language = %q, want es", req.Fields["language"])
	}
	if req.Filename != "recording.webm" {
		t.Errorf("filename = %q, want recording.webm", req.Filename)
	}
	if !f.caps.LastStream().Released() {
		t.Error("microphone not released after stop")
	}
	for _, want := range []string{"Recording Started", "Recording Ended", "Transcribing...", "Result ready"} {
		if !f.notifier.has(want) {
			t.Errorf("missing notification %q in %v", want, f.notifier.sent())
		}
	}
}

func TestReferenceRoutesToAnalysis(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.QueueJob("p1", map[string]any{
		"job_id": "p1", "status": "completed",
		"analysis": map[string]any{"overall_score": 90, "pronunciation_errors": []any{}},
	})
	f.coach.SetReference("  the quick brown fox  ")

	if err := f.coach.Submit(context.Background(), webmClip()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return f.coach.PronunciationJob().State == jobs.Completed
	}, 2*time.Second)

	req, _ := f.backend.LastRequest("/analyze-pronunciation")
	if req.Fields["reference_text"] != "the quick brown fox" {
		t.Errorf("reference_text = %q", req.Fields["reference_text"])
	}
	if f.backend.Hits("/transcribe") != 0 {
		t.Error("transcription should not be submitted when a reference is set")
	}
	if got := f.coach.PronunciationJob().Result.OverallScore; got != 90 {
		t.Errorf("overall score = %v", got)
	}
}

func TestServerFailureIsReported(t *testing.T) {
	f := newFixture(t, Options{DeleteFinished: true})
	f.backend.QueueJob("bad", map[string]any{"job_id": "bad", "status": "failed", "error": "Audio file corrupted"})

	h, err := f.coach.Transcribe(context.Background(), webmClip())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	job := waitJob(t, h)
	f.coach.Wait()

	if job.Message() != "Audio file corrupted" {
		t.Errorf("message = %q", job.Message())
	}
	if !f.notifier.has("Processing failed: Audio file corrupted") {
		t.Errorf("failure not reported: %v", f.notifier.sent())
	}
	if got := f.backend.Deleted(); len(got) != 1 || got[0] != "bad" {
		t.Errorf("deleted = %v, want [bad]", got)
	}
}

func TestTranslateSendsTask(t *testing.T) {
	f := newFixture(t, Options{Language: "de"})
	f.backend.QueueJob("tr", map[string]any{"job_id": "tr", "status": "completed", "transcript": "good morning"})

	h, err := f.coach.Translate(context.Background(), webmClip())
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if job := waitJob(t, h); job.Result != "good morning" {
		t.Errorf("result = %q", job.Result)
	}
	req, _ := f.backend.LastRequest("/transcribe")
	if req.Fields["task"] != "translate" || req.Fields["language"] != "de" {
		t.Errorf("fields = %v, want task=translate language=de", req.Fields)
	}
}

func TestDeleteFinishedDisabled(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.QueueJob("t1", map[string]any{"job_id": "t1", "status": "completed", "transcript": "ok"})

	h, err := f.coach.Transcribe(context.Background(), webmClip())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	waitJob(t, h)
	f.coach.Wait()
	if got := f.backend.Deleted(); len(got) != 0 {
		t.Errorf("deleted = %v, want none", got)
	}
}

func TestValidationNeverReachesServer(t *testing.T) {
	f := newFixture(t, Options{})

	if _, err := f.coach.Transcribe(context.Background(), recording.Clip{MIMEType: "audio/webm"}); !errors.Is(err, api.ErrEmptyClip) {
		t.Errorf("empty clip error = %v", err)
	}
	if _, err := f.coach.Analyze(context.Background(), webmClip(), "   "); !errors.Is(err, api.ErrEmptyReference) {
		t.Errorf("empty reference error = %v", err)
	}
	if err := f.coach.SetLanguage("xx"); !errors.Is(err, api.ErrUnsupportedLanguage) {
		t.Errorf("SetLanguage(xx) error = %v", err)
	}
	if len(f.backend.Requests()) != 0 {
		t.Errorf("requests sent: %+v", f.backend.Requests())
	}
}

func TestCaptureErrorNotifiesUser(t *testing.T) {
	f := newFixture(t, Options{})
	f.caps.OpenError = recording.ErrPermissionDenied

	err := f.coach.StartRecording(context.Background())
	var ce *recording.CaptureError
	if !errors.As(err, &ce) || ce.Kind != recording.KindPermissionDenied {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if f.coach.Status() != Idle {
		t.Errorf("status = %s, want idle", f.coach.Status())
	}
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.errors) != 1 || f.notifier.errors[0] != ce.UserMessage() {
		t.Errorf("errors = %v", f.notifier.errors)
	}
}

func TestCancelStopsTracking(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.QueueJob("slow", map[string]any{"job_id": "slow", "status": "processing", "progress": 10})

	h, err := f.coach.Transcribe(context.Background(), webmClip())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return f.coach.Status() == Transcribing && f.backend.Hits("/status/{job_id}") > 0
	}, 2*time.Second)

	f.coach.Cancel()

	if _, err := h.Wait(context.Background()); !errors.Is(err, jobs.ErrCancelled) {
		t.Errorf("Wait() error = %v, want ErrCancelled", err)
	}
	if f.coach.Status() != Idle {
		t.Errorf("status = %s, want idle", f.coach.Status())
	}
	if !f.notifier.has("Operation Cancelled") {
		t.Errorf("cancel not reported: %v", f.notifier.sent())
	}
}

func TestMaxRecordingAutoSubmits(t *testing.T) {
	f := newFixture(t, Options{MaxRecording: 20 * time.Millisecond})
	f.backend.QueueJob("auto", map[string]any{"job_id": "auto", "status": "completed", "transcript": "auto"})

	if err := f.coach.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return f.coach.TranscriptionJob().State == jobs.Completed
	}, 2*time.Second)
	if f.coach.Status() != Idle {
		t.Errorf("status = %s", f.coach.Status())
	}
}

func TestAutoplaySpeaksErrorWords(t *testing.T) {
	f := newFixture(t, Options{Autoplay: true})
	f.backend.QueueJob("p1", map[string]any{
		"job_id": "p1", "status": "completed",
		"analysis": map[string]any{
			"overall_score": 60,
			"pronunciation_errors": []map[string]any{
				{"word": "quick", "error_type": "substitution"},
				{"word": "brown", "error_type": "stress"},
			},
		},
	})

	h, err := f.coach.Analyze(context.Background(), webmClip(), "the quick brown fox")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	waitJob(t, h)
	f.coach.Wait()

	if got := len(f.player.PlayedClips()); got != 2 {
		t.Errorf("played %d clips, want 2", got)
	}
	if got := f.backend.Hits("/synthesize-speech"); got != 2 {
		t.Errorf("synthesize hits = %d, want 2", got)
	}
}

func TestSpeakPlaybackBlocked(t *testing.T) {
	f := newFixture(t, Options{})
	f.player.PlayError = recording.ErrPlaybackBlocked

	err := f.coach.Speak(context.Background(), "hello")
	if !errors.Is(err, recording.ErrPlaybackBlocked) {
		t.Fatalf("Speak() error = %v", err)
	}
	if !f.notifier.has("Audio playback was blocked") {
		t.Errorf("blocked playback not reported: %v", f.notifier.sent())
	}
}

func TestSpeakWithoutSpeaker(t *testing.T) {
	c := New(api.NewClient("http://localhost:1", time.Second), nil, nil, nil, Options{})
	if err := c.Speak(context.Background(), "hi"); !errors.Is(err, ErrNoSpeaker) {
		t.Errorf("Speak() error = %v", err)
	}
	if c.Status() != Idle {
		t.Errorf("status = %s", c.Status())
	}
}

func TestApplyKeepsPollInterval(t *testing.T) {
	f := newFixture(t, Options{Language: "en"})
	f.coach.Apply(Options{Language: "fr", PollInterval: time.Hour, Autoplay: true}, nil)

	opts := f.coach.options()
	if opts.Language != "fr" || !opts.Autoplay {
		t.Errorf("options = %+v", opts)
	}
	if opts.PollInterval != 5*time.Millisecond {
		t.Errorf("poll interval = %v, should be unchanged", opts.PollInterval)
	}
}

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *fakeClipboard) Write(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.texts = append(c.texts, text)
	return nil
}

func (c *fakeClipboard) copied() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func TestCopyTranscript(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		transcript string
		want       int
	}{
		{"enabled", true, "hola mundo", 1},
		{"disabled", false, "hola mundo", 0},
		{"empty transcript", true, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{CopyTranscript: tt.enabled})
			cb := &fakeClipboard{}
			f.coach.SetClipboard(cb)
			f.backend.QueueJob("t1", map[string]any{"job_id": "t1", "status": "completed", "transcript": tt.transcript})

			h, err := f.coach.Transcribe(context.Background(), webmClip())
			if err != nil {
				t.Fatalf("Transcribe() error = %v", err)
			}
			waitJob(t, h)
			f.coach.Wait()

			got := cb.copied()
			if len(got) != tt.want {
				t.Fatalf("copied %v, want %d writes", got, tt.want)
			}
			if tt.want == 1 && got[0] != tt.transcript {
				t.Errorf("copied %q, want %q", got[0], tt.transcript)
			}
		})
	}
}

func TestCopyTranscriptFailureNotifies(t *testing.T) {
	f := newFixture(t, Options{CopyTranscript: true})
	f.coach.SetClipboard(&fakeClipboard{err: errors.New("wl-copy failed")})
	f.backend.QueueJob("t1", map[string]any{"job_id": "t1", "status": "completed", "transcript": "hello"})

	h, err := f.coach.Transcribe(context.Background(), webmClip())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	waitJob(t, h)
	f.coach.Wait()

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.errors) != 1 || f.notifier.errors[0] != "Could not copy the transcript to the clipboard." {
		t.Errorf("clipboard failure not reported: %v", f.notifier.errors)
	}
}
