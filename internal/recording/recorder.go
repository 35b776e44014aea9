package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Constraints are the processing hints passed when opening the microphone.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	// SampleRate is a hint; 0 lets the device choose.
	SampleRate int
	Device     string
}

// Capabilities abstracts the capture runtime so the recorder can run without a real device.
type Capabilities interface {
	TypeProber
	// Open acquires exclusive access to the microphone. Failures wrap one of
	// ErrPermissionDenied, ErrDeviceNotFound, ErrNotSupported or ErrSecurity.
	Open(ctx context.Context, constraints Constraints) (Stream, error)
}

// Stream is an open microphone.
type Stream interface {
	// Record starts encoding with mimeType and sends chunks in device order.
	// The stream closes chunks once capture has ended.
	Record(mimeType string, chunks chan<- []byte) error
	// Finish flushes the encoder and ends capture.
	Finish() error
	// Release stops all hardware tracks. It must be safe to call more than once.
	Release()
}

// Finalizer is implemented by streams whose container needs the full payload
// (e.g. WAV sizes) before the clip is usable.
type Finalizer interface {
	FinalizeClip(data []byte) ([]byte, error)
}

// Player plays a finalized clip.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

type Config struct {
	Constraints      Constraints
	MIMETypes        []string
	FallbackMIMEType string
	TickInterval     time.Duration
	ChunkBufferSize  int
	FinishTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Constraints: Constraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			SampleRate:       16000,
		},
		MIMETypes:        DefaultMIMETypes,
		FallbackMIMEType: DefaultFallbackMIMEType,
		TickInterval:     time.Second,
		ChunkBufferSize:  64,
		FinishTimeout:    5 * time.Second,
	}
}

type session struct {
	stream   Stream
	mimeType string
	started  time.Time

	chunkCh     chan []byte
	chunks      [][]byte // owned by collect until captureDone is closed
	captureDone chan struct{}

	tickStop chan struct{}
	tickDone chan struct{}
}

func (s *session) collect() {
	defer close(s.captureDone)
	for chunk := range s.chunkCh {
		if len(chunk) == 0 {
			continue
		}
		s.chunks = append(s.chunks, chunk)
	}
}

// Recorder owns at most one microphone session at a time.
type Recorder struct {
	config Config
	caps   Capabilities

	recording atomic.Bool
	elapsed   atomic.Int64

	mu      sync.Mutex // guards session and clip
	session *session
	clip    *Clip
}

func NewRecorder(config Config, caps Capabilities) *Recorder {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if config.ChunkBufferSize <= 0 {
		config.ChunkBufferSize = 64
	}
	if config.FinishTimeout <= 0 {
		config.FinishTimeout = 5 * time.Second
	}
	return &Recorder{config: config, caps: caps}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Elapsed returns the whole seconds counted by the session ticker.
func (r *Recorder) Elapsed() int {
	return int(r.elapsed.Load())
}

// Clip returns the last finalized clip, if any.
func (r *Recorder) Clip() (Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clip == nil {
		return Clip{}, false
	}
	return *r.clip, true
}

// Start acquires the microphone and begins capturing. On failure no session
// is left behind and the returned error is a *CaptureError (or ErrAlreadyRecording).
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrAlreadyRecording
	}
	if r.caps == nil {
		return &CaptureError{Kind: KindNotSupported, Err: ErrNotSupported}
	}

	stream, err := r.caps.Open(ctx, r.config.Constraints)
	if err != nil {
		ce := classifyCaptureError(err)
		log.Printf("recorder: failed to open microphone: %v", ce)
		return ce
	}

	mimeType, ok := NegotiateEncoding(r.caps, r.config.MIMETypes, r.config.FallbackMIMEType)
	if !ok {
		log.Printf("recorder: none of %v supported, falling back to %s", r.config.MIMETypes, mimeType)
	}

	s := &session{
		stream:      stream,
		mimeType:    mimeType,
		started:     time.Now(),
		chunkCh:     make(chan []byte, r.config.ChunkBufferSize),
		captureDone: make(chan struct{}),
		tickStop:    make(chan struct{}),
		tickDone:    make(chan struct{}),
	}

	if err := stream.Record(mimeType, s.chunkCh); err != nil {
		stream.Release()
		ce := classifyCaptureError(err)
		log.Printf("recorder: failed to start capture: %v", ce)
		return ce
	}

	r.clip = nil
	r.elapsed.Store(0)
	r.session = s
	r.recording.Store(true)

	go s.collect()
	go r.tick(s)

	log.Printf("recorder: recording started (%s)", mimeType)
	return nil
}

func (r *Recorder) tick(s *session) {
	defer close(s.tickDone)
	ticker := time.NewTicker(r.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.elapsed.Add(1)
		case <-s.tickStop:
			return
		}
	}
}

// Stop finalizes the active session into a Clip. The microphone is released
// even when finalization fails.
func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Recorder) stopLocked() (Clip, error) {
	s := r.session
	if s == nil {
		return Clip{}, ErrNotRecording
	}
	r.session = nil
	defer r.recording.Store(false)
	defer s.stream.Release()

	close(s.tickStop)
	<-s.tickDone

	finishErr := s.stream.Finish()

	select {
	case <-s.captureDone:
	case <-time.After(r.config.FinishTimeout):
		return Clip{}, fmt.Errorf("finish recording: capture did not end within %v", r.config.FinishTimeout)
	}

	if finishErr != nil {
		log.Printf("recorder: finish failed: %v", finishErr)
		return Clip{}, fmt.Errorf("finish recording: %w", finishErr)
	}

	data := bytes.Join(s.chunks, nil)
	if f, ok := s.stream.(Finalizer); ok {
		finalized, err := f.FinalizeClip(data)
		if err != nil {
			log.Printf("recorder: finalize failed: %v", err)
			return Clip{}, fmt.Errorf("finalize recording: %w", err)
		}
		data = finalized
	}

	clip := Clip{
		Data:     data,
		MIMEType: s.mimeType,
		Duration: time.Since(s.started),
	}
	r.clip = &clip

	log.Printf("recorder: recording stopped: %d chunks, %d bytes, %v", len(s.chunks), len(data), clip.Duration.Round(time.Millisecond))
	return clip, nil
}

// Play plays back the finalized clip. ErrPlaybackBlocked from the player is
// returned unwrapped so callers can prompt for an interaction.
func (r *Recorder) Play(ctx context.Context, player Player) error {
	clip, ok := r.Clip()
	if !ok {
		return ErrNoRecording
	}
	if err := player.Play(ctx, clip); err != nil {
		if errors.Is(err, ErrPlaybackBlocked) {
			return ErrPlaybackBlocked
		}
		return fmt.Errorf("play recording: %w", err)
	}
	return nil
}

// Clear discards the clip and resets elapsed time, stopping an active recording first.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		if _, err := r.stopLocked(); err != nil {
			log.Printf("recorder: stop during clear: %v", err)
		}
	}
	r.clip = nil
	r.elapsed.Store(0)
}

// Close is the teardown path: nothing may keep the microphone afterwards.
func (r *Recorder) Close() {
	r.Clear()
}
