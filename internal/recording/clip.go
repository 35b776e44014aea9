package recording

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/youpy/go-wav"
)

// Clip is a finalized recording, ready for upload or playback.
type Clip struct {
	Data     []byte
	MIMEType string
	Duration time.Duration
	// Name is the source filename for uploaded files; empty for recordings.
	Name string
}

// Empty reports whether the clip carries no audio.
func (c Clip) Empty() bool {
	return len(c.Data) == 0
}

// Filename returns the name used for multipart uploads.
func (c Clip) Filename() string {
	name := c.Name
	if name == "" {
		name = "recording"
	}
	return FilenameFor(name, c.MIMEType)
}

// LoadClip reads an audio file from disk. The duration is only known for WAV files.
func LoadClip(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("audio file %s is empty", path)
	}

	clip := Clip{
		Data:     data,
		MIMEType: MIMEForExtension(filepath.Ext(path)),
		Name:     filepath.Base(path),
	}
	if BaseMIMEType(clip.MIMEType) == "audio/wav" {
		d, err := WAVDuration(data)
		if err != nil {
			log.Printf("recording: could not read WAV duration of %s: %v", path, err)
		} else {
			clip.Duration = d
		}
	}
	return clip, nil
}

// WAVDuration counts the samples of a WAV payload.
func WAVDuration(data []byte) (time.Duration, error) {
	reader := wav.NewReader(bytes.NewReader(data))
	format, err := reader.Format()
	if err != nil {
		return 0, fmt.Errorf("read wav format: %w", err)
	}
	if format.SampleRate == 0 {
		return 0, fmt.Errorf("invalid wav sample rate: 0")
	}

	var total uint64
	for {
		samples, err := reader.ReadSamples(4096)
		total += uint64(len(samples))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read wav samples: %w", err)
		}
		if len(samples) == 0 {
			break
		}
	}

	return time.Duration(total) * time.Second / time.Duration(format.SampleRate), nil
}

// encodeWAV wraps interleaved signed 16-bit little-endian PCM in a WAV container.
func encodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count for wav: %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	frameBytes := 2 * channels
	numSamples := len(pcm) / frameBytes
	samples := make([]wav.Sample, numSamples)
	for i := range samples {
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			samples[i].Values[ch] = int(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
		}
	}

	var buf bytes.Buffer
	writer := wav.NewWriter(&buf, uint32(numSamples), uint16(channels), uint32(sampleRate), 16)
	if numSamples > 0 {
		if err := writer.WriteSamples(samples); err != nil {
			return nil, fmt.Errorf("write wav samples: %w", err)
		}
	}
	return buf.Bytes(), nil
}
