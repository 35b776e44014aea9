package recording

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// CommandPlayer plays clips through the first available command-line player.
type CommandPlayer struct {
	// Volume in [0,1].
	Volume float64

	lookPath func(string) (string, error)
}

func NewCommandPlayer(volume float64) *CommandPlayer {
	return &CommandPlayer{Volume: volume}
}

var playerCandidates = []string{"pw-play", "paplay", "ffplay"}

func (p *CommandPlayer) volume() float64 {
	switch {
	case p.Volume < 0:
		return 0
	case p.Volume > 1:
		return 1
	default:
		return p.Volume
	}
}

func (p *CommandPlayer) command() (string, []string, error) {
	lookPath := p.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range playerCandidates {
		if _, err := lookPath(name); err != nil {
			continue
		}
		v := p.volume()
		switch name {
		case "pw-play":
			return name, []string{"--volume", strconv.FormatFloat(v, 'f', 2, 64)}, nil
		case "paplay":
			return name, []string{"--volume", strconv.Itoa(int(v * 65536))}, nil
		default:
			return name, []string{"-nodisp", "-autoexit", "-loglevel", "error", "-volume", strconv.Itoa(int(v * 100))}, nil
		}
	}
	return "", nil, fmt.Errorf("%w: tried %s", ErrNoPlayer, strings.Join(playerCandidates, ", "))
}

func (p *CommandPlayer) Play(ctx context.Context, clip Clip) error {
	if clip.Empty() {
		return ErrNoRecording
	}

	name, args, err := p.command()
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "speechcoach-*"+ExtensionForMIME(clip.MIMEType))
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		return fmt.Errorf("write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp audio file: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, append(args, f.Name())...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return classifyPlaybackError(name, stderr.String(), err)
	}
	return nil
}

// classifyPlaybackError separates a refused audio session from an undecodable file.
func classifyPlaybackError(player, stderr string, err error) error {
	msg := strings.ToLower(stderr)
	log.Printf("player: %s failed: %v: %s", player, err, strings.TrimSpace(stderr))
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "host is down"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "permission denied"):
		return fmt.Errorf("%w: %s", ErrPlaybackBlocked, strings.TrimSpace(stderr))
	case strings.Contains(msg, "invalid data"),
		strings.Contains(msg, "unsupported"),
		strings.Contains(msg, "unknown format"),
		strings.Contains(msg, "format not recognized"):
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, strings.TrimSpace(stderr))
	default:
		return fmt.Errorf("%s: %w", player, err)
	}
}
