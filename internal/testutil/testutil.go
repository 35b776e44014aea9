package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/recording"
)

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}

// MockAudio returns deterministic audio bytes for testing
func MockAudio(n int) []byte {
	if n <= 0 {
		n = 1024
	}
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

// MockCapabilities implements recording.Capabilities for testing
type MockCapabilities struct {
	Supported []string
	OpenError error
	Chunks    [][]byte

	mu     sync.Mutex
	opened int
	stream *MockStream
}

func NewMockCapabilities(supported ...string) *MockCapabilities {
	return &MockCapabilities{
		Supported: supported,
		Chunks:    [][]byte{MockAudio(512), MockAudio(512)},
	}
}

func (m *MockCapabilities) IsTypeSupported(mimeType string) bool {
	for _, s := range m.Supported {
		if s == mimeType {
			return true
		}
	}
	return false
}

func (m *MockCapabilities) Open(ctx context.Context, constraints recording.Constraints) (recording.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenError != nil {
		return nil, m.OpenError
	}
	m.opened++
	m.stream = &MockStream{chunks: m.Chunks}
	return m.stream, nil
}

// Opened returns how many streams were opened
func (m *MockCapabilities) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// LastStream returns the most recently opened stream
func (m *MockCapabilities) LastStream() *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream
}

// MockStream emits its chunks on Record and closes the channel on Finish
type MockStream struct {
	chunks [][]byte

	mu       sync.Mutex
	out      chan<- []byte
	finished bool
	released atomic.Bool
}

func (s *MockStream) Record(mimeType string, chunks chan<- []byte) error {
	s.mu.Lock()
	s.out = chunks
	s.mu.Unlock()
	for _, c := range s.chunks {
		chunks <- c
	}
	return nil
}

func (s *MockStream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished && s.out != nil {
		close(s.out)
	}
	s.finished = true
	return nil
}

func (s *MockStream) Release() {
	s.released.Store(true)
}

// Released reports whether Release was called
func (s *MockStream) Released() bool {
	return s.released.Load()
}

// MockPlayer implements recording.Player for testing
type MockPlayer struct {
	PlayError error

	mu     sync.Mutex
	Played []recording.Clip
}

func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

func (m *MockPlayer) Play(ctx context.Context, clip recording.Clip) error {
	if m.PlayError != nil {
		return m.PlayError
	}
	m.mu.Lock()
	m.Played = append(m.Played, clip)
	m.mu.Unlock()
	return nil
}

// PlayedClips returns a copy of every clip played so far
func (m *MockPlayer) PlayedClips() []recording.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]recording.Clip, len(m.Played))
	copy(result, m.Played)
	return result
}
