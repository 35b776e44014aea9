package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PipeWire captures through the pw-record process. It produces signed 16-bit
// PCM and finalizes it into a WAV clip, so audio/wav is its only encoding.
type PipeWire struct {
	SampleRate int
	Channels   int
	BufferSize int
	Device     string

	// lookPath and probe are replaced in tests.
	lookPath func(string) (string, error)
	probe    func(ctx context.Context) error
}

func NewPipeWire(sampleRate, channels int, device string) *PipeWire {
	return &PipeWire{
		SampleRate: sampleRate,
		Channels:   channels,
		BufferSize: 8192,
		Device:     device,
	}
}

func (p *PipeWire) IsTypeSupported(mimeType string) bool {
	switch BaseMIMEType(mimeType) {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return true
	default:
		return false
	}
}

func (p *PipeWire) Open(ctx context.Context, constraints Constraints) (Stream, error) {
	lookPath := p.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("pw-record"); err != nil {
		return nil, fmt.Errorf("%w: pw-record not found (install pipewire-tools): %v", ErrNotSupported, err)
	}

	probe := p.probe
	if probe == nil {
		probe = checkPipeWireRunning
	}
	if err := probe(ctx); err != nil {
		return nil, err
	}

	cfg := *p
	if constraints.SampleRate > 0 {
		cfg.SampleRate = constraints.SampleRate
	}
	if constraints.Device != "" {
		cfg.Device = constraints.Device
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrNotSupported, cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 8192
	}
	if constraints.EchoCancellation || constraints.NoiseSuppression {
		log.Printf("pipewire: echo cancellation/noise suppression are left to the PipeWire filter chain")
	}

	return &pwStream{cfg: cfg, done: make(chan struct{})}, nil
}

// checkPipeWireRunning maps pw-cli failures onto capture error classes.
func checkPipeWireRunning(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Use a short timeout to avoid hangs on misconfigured systems.
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(checkCtx, "pw-cli", "info").CombinedOutput()
	if err == nil {
		return nil
	}
	msg := strings.ToLower(string(out))
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "access denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(string(out)))
	case strings.Contains(msg, "sandbox"), strings.Contains(msg, "portal"):
		return fmt.Errorf("%w: %s", ErrSecurity, strings.TrimSpace(string(out)))
	default:
		return fmt.Errorf("%w: PipeWire not running or accessible: %v", ErrDeviceNotFound, err)
	}
}

type pwStream struct {
	cfg PipeWire

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	done        chan struct{}
	releaseOnce sync.Once
}

func (s *pwStream) buildArgs() []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(s.cfg.SampleRate),
		"--channels", strconv.Itoa(s.cfg.Channels),
	}
	if s.cfg.Device != "" {
		args = append(args, "--target", s.cfg.Device)
	}
	return append(args, "-") // stdout
}

func (s *pwStream) Record(mimeType string, chunks chan<- []byte) error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "pw-record", s.buildArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: start pw-record: %v", ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: start pw-record: %v", ErrNotSupported, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.cancel = cancel
	s.mu.Unlock()

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("pipewire: pw-record: %s", scanner.Text())
		}
	}()

	go s.captureLoop(ctx, stdout, chunks)
	return nil
}

func (s *pwStream) captureLoop(ctx context.Context, stdout io.Reader, chunks chan<- []byte) {
	defer close(s.done)
	defer close(chunks)

	buffer := make([]byte, s.cfg.BufferSize)
	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && ctx.Err() == nil {
				log.Printf("pipewire: read audio: %v", readErr)
			}
			return
		}
	}
}

// Finish interrupts pw-record so it flushes, then waits for the reader to drain.
func (s *pwStream) Finish() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("interrupt pw-record: %w", err)
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(2 * time.Second):
		s.requestCancel()
		<-s.done
		return nil
	}
}

func (s *pwStream) requestCancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *pwStream) Release() {
	s.releaseOnce.Do(func() {
		s.requestCancel()
		s.mu.Lock()
		cmd := s.cmd
		s.cmd = nil
		s.mu.Unlock()
		// Ensure the child process is reaped.
		if cmd != nil {
			_ = cmd.Wait()
		}
	})
}

func (s *pwStream) FinalizeClip(data []byte) ([]byte, error) {
	return encodeWAV(data, s.cfg.SampleRate, s.cfg.Channels)
}
