package recording

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestPipeWireIsTypeSupported(t *testing.T) {
	p := NewPipeWire(16000, 1, "")
	tests := map[string]bool{
		"audio/wav":              true,
		"audio/wave":             true,
		"audio/x-wav":            true,
		"audio/webm;codecs=opus": false,
		"audio/mp4":              false,
	}
	for mime, want := range tests {
		if got := p.IsTypeSupported(mime); got != want {
			t.Errorf("IsTypeSupported(%q) = %v, want %v", mime, got, want)
		}
	}
}

func TestPipeWireOpenMissingBinary(t *testing.T) {
	p := NewPipeWire(16000, 1, "")
	p.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	_, err := p.Open(context.Background(), Constraints{})
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Open() error = %v, want ErrNotSupported", err)
	}
	if classifyCaptureError(err).Kind != KindNotSupported {
		t.Error("missing pw-record should classify as not supported")
	}
}

func TestPipeWireOpenProbeFailure(t *testing.T) {
	p := NewPipeWire(16000, 1, "")
	p.lookPath = func(string) (string, error) { return "/usr/bin/pw-record", nil }
	p.probe = func(context.Context) error { return ErrDeviceNotFound }

	_, err := p.Open(context.Background(), Constraints{})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("Open() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestPipeWireOpenAppliesConstraints(t *testing.T) {
	p := NewPipeWire(16000, 1, "")
	p.lookPath = func(string) (string, error) { return "/usr/bin/pw-record", nil }
	p.probe = func(context.Context) error { return nil }

	stream, err := p.Open(context.Background(), Constraints{SampleRate: 48000, Device: "usb-mic"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	args := strings.Join(stream.(*pwStream).buildArgs(), " ")
	if !strings.Contains(args, "--rate 48000") || !strings.Contains(args, "--target usb-mic") {
		t.Errorf("args = %q", args)
	}
	if !strings.HasSuffix(args, " -") {
		t.Errorf("pw-record should write to stdout, args = %q", args)
	}
	stream.Release()
	stream.Release()
}

func TestPipeWireFinalizeClip(t *testing.T) {
	s := &pwStream{cfg: PipeWire{SampleRate: 16000, Channels: 1}}
	data, err := s.FinalizeClip(pcmSilence(1600, 1))
	if err != nil {
		t.Fatalf("FinalizeClip() error = %v", err)
	}
	if string(data[:4]) != "RIFF" {
		t.Error("finalized clip should be a WAV container")
	}
}
