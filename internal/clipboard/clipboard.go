package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

var (
	ErrEmptyText   = errors.New("cannot copy empty text")
	ErrUnavailable = errors.New("no clipboard tool available (install wl-clipboard, xclip or xsel)")
)

// Writer places text on the system clipboard.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// Config for clipboard writes
type Config struct {
	Timeout time.Duration
	// PreferWayland uses wl-copy directly when it is on PATH.
	PreferWayland bool
}

func DefaultConfig() Config {
	return Config{
		Timeout:       3 * time.Second,
		PreferWayland: true,
	}
}

// System writes through wl-copy on Wayland and the xclip/xsel family elsewhere.
type System struct {
	config   Config
	lookPath func(string) (string, error)
	fallback func(string) error
}

func New(config Config) *System {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &System{config: config, lookPath: exec.LookPath, fallback: clipboard.WriteAll}
}

func (s *System) Write(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if s.config.PreferWayland {
		if _, err := s.lookPath("wl-copy"); err == nil {
			return wlCopy(ctx, text)
		}
	}
	if clipboard.Unsupported {
		return ErrUnavailable
	}

	done := make(chan error, 1)
	go func() {
		done <- s.fallback(text)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("copy to clipboard: %w", ctx.Err())
	}
}

func wlCopy(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		log.Printf("clipboard: wl-copy failed: %v", err)
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}
