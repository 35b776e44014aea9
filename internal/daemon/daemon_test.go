package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/bus"
	"github.com/leonardotrapani/speechcoach/internal/coach"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/recording"
	"github.com/leonardotrapani/speechcoach/internal/testutil"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

type harness struct {
	backend *testutil.FakeBackend
	caps    *testutil.MockCapabilities
	coach   *coach.Coach
	daemon  *Daemon
}

func startDaemon(t *testing.T, mgr *config.Manager) *harness {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	h := &harness{
		backend: testutil.NewFakeBackend(t),
		caps:    testutil.NewMockCapabilities("audio/webm"),
	}
	client := api.NewClient(h.backend.URL, time.Second)
	recorder := recording.NewRecorder(recording.DefaultConfig(), h.caps)
	cache := tts.NewCache(tts.Options{})
	speaker := tts.NewSpeaker(cache, tts.RemoteSynthesizer{Client: client}, nil, testutil.NewMockPlayer())
	h.coach = coach.New(client, recorder, speaker, nil, coach.Options{Language: "en", PollInterval: 5 * time.Millisecond})
	h.daemon = New(h.coach, cache, mgr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.daemon.Run()
	}()

	// Wait for daemon to be ready by trying to connect
	maxAttempts := 50
	for i := range maxAttempts {
		if _, err := bus.SendCommand(bus.CmdVersion, ""); err == nil {
			break
		}
		if i == maxAttempts-1 {
			t.Fatal("daemon failed to start within timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		bus.SendCommand(bus.CmdQuit, "")
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Error("daemon did not exit within timeout")
		}
	})
	return h
}

func send(t *testing.T, cmd byte, arg string) string {
	t.Helper()
	out, err := bus.SendCommand(cmd, arg)
	if err != nil {
		t.Fatalf("SendCommand(%c) error = %v", cmd, err)
	}
	return out
}

func status(t *testing.T) map[string]string {
	t.Helper()
	fields, err := bus.ParseStatus(send(t, bus.CmdStatus, ""))
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	return fields
}

func TestToggle(t *testing.T) {
	h := startDaemon(t, nil)
	h.backend.QueueJob("t1", map[string]any{"job_id": "t1", "status": "completed", "transcript": "hello world"})

	if out := send(t, bus.CmdToggle, ""); out != "STATUS status=recording\n" {
		t.Fatalf("unexpected first toggle response: %q", out)
	}
	if got := status(t)["status"]; got != "recording" {
		t.Fatalf("status = %q after first toggle", got)
	}

	if out := send(t, bus.CmdToggle, ""); !strings.HasPrefix(out, "STATUS status=") {
		t.Fatalf("unexpected second toggle response: %q", out)
	}

	testutil.WaitForCondition(t, func() bool {
		return status(t)["transcription"] == "completed"
	}, 2*time.Second)
	if got := status(t)["transcript"]; got != "hello world" {
		t.Errorf("transcript = %q", got)
	}
	if got := status(t)["status"]; got != "idle" {
		t.Errorf("status = %q, want idle", got)
	}
}

func TestReferenceRoutesToAnalysis(t *testing.T) {
	h := startDaemon(t, nil)
	h.backend.QueueJob("p1", map[string]any{
		"job_id": "p1", "status": "completed",
		"analysis": map[string]any{
			"overall_score":        75.5,
			"pronunciation_errors": []map[string]any{{"word": "fox"}},
		},
	})

	if out := send(t, bus.CmdReference, "the quick brown fox"); out != "OK reference set\n" {
		t.Fatalf("reference response = %q", out)
	}
	if got := status(t)["reference"]; got != "the quick brown fox" {
		t.Errorf("reference = %q", got)
	}

	send(t, bus.CmdToggle, "")
	send(t, bus.CmdToggle, "")

	testutil.WaitForCondition(t, func() bool {
		return status(t)["pronunciation"] == "completed"
	}, 2*time.Second)
	fields := status(t)
	if fields["score"] != "75.5" || fields["errors"] != "1" {
		t.Errorf("status = %v", fields)
	}
	if h.backend.Hits("/transcribe") != 0 {
		t.Error("recording with a reference should not be transcribed")
	}

	if out := send(t, bus.CmdReference, ""); out != "OK reference cleared\n" {
		t.Errorf("clear response = %q", out)
	}
}

func TestCaptureErrorResponse(t *testing.T) {
	h := startDaemon(t, nil)
	h.caps.OpenError = recording.ErrDeviceNotFound

	out := send(t, bus.CmdToggle, "")
	want := (&recording.CaptureError{Kind: recording.KindDeviceNotFound}).UserMessage()
	if out != "ERR "+want+"\n" {
		t.Errorf("toggle response = %q, want ERR %s", out, want)
	}
}

func TestCancel(t *testing.T) {
	startDaemon(t, nil)

	send(t, bus.CmdToggle, "")
	if out := send(t, bus.CmdCancel, ""); out != "OK cancelled\n" {
		t.Fatalf("cancel response = %q", out)
	}
	if got := status(t)["status"]; got != "idle" {
		t.Errorf("status = %q after cancel", got)
	}
}

func TestUnknownAndVersion(t *testing.T) {
	startDaemon(t, nil)

	if out := send(t, 'x', ""); out != "ERR unknown='x'\n" {
		t.Errorf("unknown response = %q", out)
	}
	if out := send(t, bus.CmdVersion, ""); out != "STATUS proto="+bus.ProtoVer+"\n" {
		t.Errorf("version response = %q", out)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	h := startDaemon(t, nil)
	second := New(h.coach, nil, nil)
	if err := second.Run(); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("second Run() error = %v", err)
	}
}

func TestConfigReloadUpdatesLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[ui]\nlanguage = \"en\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr, err := config.NewManagerForFile(path)
	if err != nil {
		t.Fatalf("NewManagerForFile() error = %v", err)
	}
	startDaemon(t, mgr)

	if err := os.WriteFile(path, []byte("[ui]\nlanguage = \"fr\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.WaitForCondition(t, func() bool {
		return status(t)["language"] == "fr"
	}, 3*time.Second)
}
