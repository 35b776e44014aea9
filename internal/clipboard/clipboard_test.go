package clipboard

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func noWayland(string) (string, error) {
	return "", exec.ErrNotFound
}

func TestWriteEmpty(t *testing.T) {
	s := New(DefaultConfig())
	for _, text := range []string{"", "   ", "\n\t"} {
		if err := s.Write(context.Background(), text); !errors.Is(err, ErrEmptyText) {
			t.Errorf("Write(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
}

func TestWriteFallback(t *testing.T) {
	var got string
	s := New(Config{Timeout: time.Second})
	s.lookPath = noWayland
	s.fallback = func(text string) error {
		got = text
		return nil
	}

	err := s.Write(context.Background(), "hola mundo")
	if errors.Is(err, ErrUnavailable) {
		t.Skip("no clipboard support on this platform")
	}
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got != "hola mundo" {
		t.Errorf("copied %q, want %q", got, "hola mundo")
	}
}

func TestWriteFallbackError(t *testing.T) {
	s := New(Config{Timeout: time.Second})
	s.lookPath = noWayland
	s.fallback = func(string) error { return errors.New("xclip exited 1") }

	err := s.Write(context.Background(), "text")
	if errors.Is(err, ErrUnavailable) {
		t.Skip("no clipboard support on this platform")
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	s := New(Config{Timeout: 20 * time.Millisecond})
	s.lookPath = noWayland
	s.fallback = func(string) error {
		<-block
		return nil
	}

	err := s.Write(context.Background(), "text")
	if errors.Is(err, ErrUnavailable) {
		t.Skip("no clipboard support on this platform")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Write() error = %v, want deadline exceeded", err)
	}
}
