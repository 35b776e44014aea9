package api

import (
	"context"

	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/recording"
)

// TranscriptionBackend submits one clip for transcription and polls /status.
type TranscriptionBackend struct {
	Client   *Client
	Clip     recording.Clip
	Language string
	// Task defaults to TaskTranscribe.
	Task Task
}

func (b *TranscriptionBackend) Submit(ctx context.Context) (string, error) {
	return b.Client.TranscribeTask(ctx, b.Clip, b.Language, b.Task)
}

func (b *TranscriptionBackend) Status(ctx context.Context, jobID string) (jobs.Update[string], error) {
	st, err := b.Client.TranscriptionStatus(ctx, jobID)
	if err != nil {
		return jobs.Update[string]{}, err
	}
	u := jobs.Update[string]{Status: st.Status, Progress: st.Progress, Result: st.Transcript}
	if st.Error != nil {
		u.Error = *st.Error
	}
	return u, nil
}

// PronunciationBackend submits one clip with its reference text and polls
// /pronunciation-status.
type PronunciationBackend struct {
	Client    *Client
	Clip      recording.Clip
	Reference string
	Language  string
}

func (b *PronunciationBackend) Submit(ctx context.Context) (string, error) {
	return b.Client.AnalyzePronunciation(ctx, b.Clip, b.Reference, b.Language)
}

func (b *PronunciationBackend) Status(ctx context.Context, jobID string) (jobs.Update[PronunciationAnalysis], error) {
	st, err := b.Client.PronunciationStatus(ctx, jobID)
	if err != nil {
		return jobs.Update[PronunciationAnalysis]{}, err
	}
	u := jobs.Update[PronunciationAnalysis]{Status: st.Status, Progress: st.Progress, Result: st.Analysis}
	if st.Error != nil {
		u.Error = *st.Error
	}
	return u, nil
}
