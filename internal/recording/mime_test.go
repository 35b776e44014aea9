package recording

import "testing"

type proberFunc func(string) bool

func (f proberFunc) IsTypeSupported(mimeType string) bool { return f(mimeType) }

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		name          string
		supported     map[string]bool
		candidates    []string
		fallback      string
		want          string
		wantSupported bool
	}{
		{
			name:          "first supported wins",
			supported:     map[string]bool{"audio/webm": true, "audio/mp4": true},
			candidates:    []string{"audio/webm;codecs=opus", "audio/webm", "audio/mp4"},
			fallback:      "audio/wav",
			want:          "audio/webm",
			wantSupported: true,
		},
		{
			name:          "order of candidates matters, not of support",
			supported:     map[string]bool{"audio/webm": true, "audio/mp4": true},
			candidates:    []string{"audio/mp4", "audio/webm"},
			fallback:      "audio/wav",
			want:          "audio/mp4",
			wantSupported: true,
		},
		{
			name:          "none supported falls back",
			supported:     map[string]bool{},
			candidates:    []string{"audio/webm", "audio/mp4"},
			fallback:      "audio/ogg",
			want:          "audio/ogg",
			wantSupported: false,
		},
		{
			name:          "empty fallback uses default",
			supported:     map[string]bool{},
			candidates:    nil,
			fallback:      "",
			want:          DefaultFallbackMIMEType,
			wantSupported: false,
		},
		{
			name:          "empty candidates skipped",
			supported:     map[string]bool{"": true, "audio/wav": true},
			candidates:    []string{"", "audio/wav"},
			fallback:      "audio/webm",
			want:          "audio/wav",
			wantSupported: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := proberFunc(func(m string) bool { return tt.supported[m] })
			got, ok := NegotiateEncoding(prober, tt.candidates, tt.fallback)
			if got != tt.want || ok != tt.wantSupported {
				t.Errorf("NegotiateEncoding() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantSupported)
			}
		})
	}
}

func TestExtensionForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"audio/webm", ".webm"},
		{"audio/webm;codecs=opus", ".webm"},
		{"audio/mp4", ".m4a"},
		{"audio/x-m4a", ".m4a"},
		{"audio/mpeg", ".mp3"},
		{"audio/mp3", ".mp3"},
		{"audio/ogg; codecs=opus", ".ogg"},
		{"audio/vorbis", ".ogg"},
		{"audio/flac", ".flac"},
		{"audio/x-flac", ".flac"},
		{"audio/wav", ".wav"},
		{"audio/wave", ".wav"},
		{"AUDIO/WEBM", ".webm"},
		{"application/octet-stream", ".wav"},
		{"", ".wav"},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := ExtensionForMIME(tt.mime); got != tt.want {
				t.Errorf("ExtensionForMIME(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestMIMEExtensionRoundTrip(t *testing.T) {
	for _, ext := range []string{".webm", ".m4a", ".mp3", ".ogg", ".flac", ".wav"} {
		if got := ExtensionForMIME(MIMEForExtension(ext)); got != ext {
			t.Errorf("round trip of %s gave %s", ext, got)
		}
	}
}

func TestFilenameFor(t *testing.T) {
	tests := []struct {
		name string
		mime string
		want string
	}{
		{"recording", "audio/webm", "recording.webm"},
		{"lesson.mp3", "audio/webm", "lesson.mp3"},
		{"", "audio/mp4", "recording.m4a"},
		{"blob", "", "blob.wav"},
	}
	for _, tt := range tests {
		if got := FilenameFor(tt.name, tt.mime); got != tt.want {
			t.Errorf("FilenameFor(%q, %q) = %q, want %q", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestClipFilename(t *testing.T) {
	clip := Clip{Data: []byte{1}, MIMEType: "audio/ogg"}
	if got := clip.Filename(); got != "recording.ogg" {
		t.Errorf("Filename() = %q", got)
	}
	clip.Name = "take2.flac"
	if got := clip.Filename(); got != "take2.flac" {
		t.Errorf("Filename() = %q", got)
	}
}
