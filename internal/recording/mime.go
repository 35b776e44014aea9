package recording

import (
	"log"
	"path/filepath"
	"strings"
)

// DefaultMIMETypes is the preference order probed at recording start.
var DefaultMIMETypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/mp4",
	"audio/wav",
}

const DefaultFallbackMIMEType = "audio/wav"

// TypeProber reports which encodings the capture runtime can produce.
type TypeProber interface {
	IsTypeSupported(mimeType string) bool
}

// NegotiateEncoding returns the first candidate the prober supports.
// When none is supported it returns fallback and false; callers treat that as a warning.
func NegotiateEncoding(prober TypeProber, candidates []string, fallback string) (string, bool) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if prober.IsTypeSupported(candidate) {
			return candidate, true
		}
	}
	if fallback == "" {
		fallback = DefaultFallbackMIMEType
	}
	return fallback, false
}

// BaseMIMEType strips parameters and lowercases a MIME type ("audio/webm;codecs=opus" -> "audio/webm").
func BaseMIMEType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// ExtensionForMIME maps an audio MIME type to the upload file extension.
func ExtensionForMIME(mimeType string) string {
	base := BaseMIMEType(mimeType)
	switch {
	case strings.Contains(base, "webm"):
		return ".webm"
	case strings.Contains(base, "mp4"), strings.Contains(base, "m4a"):
		return ".m4a"
	case strings.Contains(base, "mpeg"), strings.Contains(base, "mp3"):
		return ".mp3"
	case strings.Contains(base, "ogg"), strings.Contains(base, "vorbis"):
		return ".ogg"
	case strings.Contains(base, "flac"):
		return ".flac"
	case strings.Contains(base, "wav"):
		return ".wav"
	default:
		return ".wav"
	}
}

// MIMEForExtension is the inverse mapping used for files picked from disk.
func MIMEForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".webm":
		return "audio/webm"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// FilenameFor returns name unchanged when it already has an extension,
// otherwise appends the extension inferred from mimeType.
func FilenameFor(name, mimeType string) string {
	if name == "" {
		name = "recording"
	}
	if filepath.Ext(name) != "" {
		return name
	}
	ext := ExtensionForMIME(mimeType)
	if BaseMIMEType(mimeType) == "" {
		log.Printf("recording: no MIME type for %q, defaulting to %s", name, ext)
	}
	return name + ext
}
