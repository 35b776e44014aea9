package notify

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestLogNotifier(t *testing.T) {
	tests := []struct {
		name string
		call func(Log)
		want string
	}{
		{"recording started", Log.RecordingStarted, "Speechcoach: Recording Started"},
		{"recording ended", Log.RecordingEnded, "Speechcoach: Recording Ended"},
		{"transcribing", Log.Transcribing, "Speechcoach: Transcribing..."},
		{"analyzing", Log.Analyzing, "Speechcoach: Analyzing pronunciation..."},
		{"aborted", Log.Aborted, "Speechcoach: Operation Aborted"},
		{"error", func(l Log) { l.Error("Microphone access was denied.") }, "Speechcoach Error: Microphone access was denied."},
		{"notify", func(l Log) { l.Notify("Title", "Body") }, "Title: Body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			tt.call(Log{})
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestLogSendRoutesErrors(t *testing.T) {
	buf := captureLog(t)

	Log{}.Send(Message{Title: "Speechcoach", Body: "Result ready"})
	Log{}.Send(Message{Title: "ignored", Body: "Audio playback was blocked", IsError: true})

	out := buf.String()
	if !strings.Contains(out, "Speechcoach: Result ready") {
		t.Errorf("plain message missing: %q", out)
	}
	if !strings.Contains(out, "Speechcoach Error: Audio playback was blocked") || strings.Contains(out, "ignored") {
		t.Errorf("error message should use the error form: %q", out)
	}
}

func TestNopNotifier(t *testing.T) {
	buf := captureLog(t)
	var n Notifier = Nop{}
	n.RecordingStarted()
	n.Error("boom")
	n.Send(Message{Body: "x", IsError: true})
	if buf.Len() != 0 {
		t.Errorf("Nop wrote %q", buf.String())
	}
}

type recordingNotifier struct {
	Nop
	sent []Message
}

func (r *recordingNotifier) Send(msg Message) {
	r.sent = append(r.sent, msg)
}

func TestMessengerDefaultsAndOverrides(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewMessenger(rec, map[MessageType]Message{
		MsgJobCompleted: {Title: "Coach", Body: "Done!"},
	})

	m.Send(MsgJobCompleted, "")
	m.Send(MsgJobFailed, "Audio file is too short")
	m.Send(MsgRecordingStarted, "")

	if len(rec.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(rec.sent))
	}
	if rec.sent[0].Title != "Coach" || rec.sent[0].Body != "Done!" {
		t.Errorf("override not applied: %+v", rec.sent[0])
	}
	if !rec.sent[1].IsError || rec.sent[1].Body != "Processing failed: Audio file is too short" {
		t.Errorf("failure message = %+v", rec.sent[1])
	}
	if rec.sent[2].Body != "Recording Started" {
		t.Errorf("default message = %+v", rec.sent[2])
	}
}

func TestMessengerUnknownType(t *testing.T) {
	rec := &recordingNotifier{}
	NewMessenger(rec, nil).Send(MessageType(99), "detail")
	if len(rec.sent) != 0 {
		t.Errorf("unknown type sent %+v", rec.sent)
	}
}

func TestNew(t *testing.T) {
	tests := map[string]Notifier{
		"desktop": Desktop{},
		"log":     Log{},
		"none":    Nop{},
		"":        Nop{},
	}
	for kind, want := range tests {
		if got := New(kind); got != want {
			t.Errorf("New(%q) = %T, want %T", kind, got, want)
		}
	}
}

func TestMessageDefs(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range MessageDefs {
		if seen[def.ConfigKey] {
			t.Errorf("duplicate config key %q", def.ConfigKey)
		}
		seen[def.ConfigKey] = true
		if def.DefaultBody == "" {
			t.Errorf("%s has no default body", def.ConfigKey)
		}
	}
	if len(DefaultMessages()) != len(MessageDefs) {
		t.Error("DefaultMessages() should cover every definition")
	}
	for _, key := range []string{"job_failed", "playback_blocked"} {
		for _, def := range MessageDefs {
			if def.ConfigKey == key && !def.IsError {
				t.Errorf("%s should be an error message", key)
			}
		}
	}
}
