package recording

import (
	"errors"
	"fmt"
)

// Capability providers return these (possibly wrapped) when the microphone cannot be opened.
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceNotFound   = errors.New("no microphone found")
	ErrNotSupported     = errors.New("audio capture not supported")
	ErrSecurity         = errors.New("microphone blocked by security policy")
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrNoRecording      = errors.New("no recording available")

	// ErrPlaybackBlocked means the audio runtime refused to start playback.
	// The user can usually fix it (unlock the session, grant audio access) and retry.
	ErrPlaybackBlocked   = errors.New("playback blocked")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoPlayer          = errors.New("no audio player available")
)

// CaptureErrorKind classifies why a recording could not start.
type CaptureErrorKind string

const (
	KindPermissionDenied CaptureErrorKind = "permission_denied"
	KindDeviceNotFound   CaptureErrorKind = "device_not_found"
	KindNotSupported     CaptureErrorKind = "not_supported"
	KindSecurity         CaptureErrorKind = "security"
	KindUnknown          CaptureErrorKind = "unknown"
)

// CaptureError is returned by Recorder.Start when the microphone cannot be acquired.
type CaptureError struct {
	Kind CaptureErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e == nil || e.Err == nil {
		return fmt.Sprintf("capture error (%s)", e.kind())
	}
	return fmt.Sprintf("capture error (%s): %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *CaptureError) kind() CaptureErrorKind {
	if e == nil || e.Kind == "" {
		return KindUnknown
	}
	return e.Kind
}

// UserMessage returns an actionable message for the user.
func (e *CaptureError) UserMessage() string {
	switch e.kind() {
	case KindPermissionDenied:
		return "Microphone access was denied. Allow microphone access for this session and try again."
	case KindDeviceNotFound:
		return "No microphone was found. Connect a microphone or select another input device in the settings."
	case KindNotSupported:
		return "Audio recording is not supported here. Install PipeWire tools (pw-record) or upload an audio file instead."
	case KindSecurity:
		return "Microphone access is blocked by the system security policy. Check your sandbox or portal permissions."
	default:
		if e != nil && e.Err != nil {
			return fmt.Sprintf("Could not start recording: %v", e.Err)
		}
		return "Could not start recording."
	}
}

func classifyCaptureError(err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, ErrPermissionDenied):
		kind = KindPermissionDenied
	case errors.Is(err, ErrDeviceNotFound):
		kind = KindDeviceNotFound
	case errors.Is(err, ErrNotSupported):
		kind = KindNotSupported
	case errors.Is(err, ErrSecurity):
		kind = KindSecurity
	}
	return &CaptureError{Kind: kind, Err: err}
}

// IsCaptureError reports whether err came from a failed microphone acquisition.
func IsCaptureError(err error) bool {
	var ce *CaptureError
	return errors.As(err, &ce)
}
