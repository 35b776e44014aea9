package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/testutil"
)

func TestPronunciationJobEndToEnd(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.QueueJob("abc",
		map[string]any{"job_id": "abc", "status": "processing", "progress": 40},
		map[string]any{
			"job_id":   "abc",
			"status":   "completed",
			"progress": 100,
			"analysis": map[string]any{
				"overall_score":  82,
				"accuracy_score": 80,
				"fluency_score":  85,
				"pronunciation_errors": []map[string]any{{
					"word":                   "quick",
					"error_type":             "substitution",
					"confidence":             0.7,
					"expected_pronunciation": "kwɪk",
					"actual_pronunciation":   "kwɪç",
					"suggestion":             "Round the lips for /w/ and end with a hard /k/.",
				}},
			},
		},
	)
	client := NewClient(backend.URL, time.Second)
	tracker := jobs.NewTracker[PronunciationAnalysis]("pronunciation", 5*time.Millisecond)

	h, err := tracker.Submit(context.Background(), &PronunciationBackend{
		Client:    client,
		Clip:      testClip("audio/webm"),
		Reference: "the quick brown fox",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	job, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if job.ID != "abc" || job.State != jobs.Completed {
		t.Fatalf("job = %+v", job)
	}
	a := job.Result
	if a.OverallScore != 82 || a.AccuracyScore != 80 || a.FluencyScore != 85 {
		t.Errorf("scores = %v/%v/%v, want 82/80/85", a.OverallScore, a.AccuracyScore, a.FluencyScore)
	}
	if len(a.PronunciationErrors) != 1 || a.PronunciationErrors[0].Word != "quick" {
		t.Errorf("errors = %+v, want one entry for quick", a.PronunciationErrors)
	}
	if got := backend.Hits("/pronunciation-status/{job_id}"); got != 2 {
		t.Errorf("status polls = %d, want 2", got)
	}

	req, _ := backend.LastRequest("/analyze-pronunciation")
	if req.Fields["reference_text"] != "the quick brown fox" || req.Filename != "recording.webm" {
		t.Errorf("submission = %+v", req)
	}
}

func TestTranscriptionJobServerFailure(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.QueueJob("t1",
		map[string]any{"status": "processing", "progress": 25},
		map[string]any{"status": "failed", "error": "Audio file is too short"},
	)
	tracker := jobs.NewTracker[string]("transcription", 5*time.Millisecond)
	h, _ := tracker.Submit(context.Background(), &TranscriptionBackend{
		Client:   NewClient(backend.URL, time.Second),
		Clip:     testClip("audio/wav"),
		Language: "en",
	})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	job, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if job.State != jobs.Failed || job.Failure != jobs.FailureServer || job.Message() != "Audio file is too short" {
		t.Errorf("job = %+v", job)
	}
}

func TestTranscriptionJobStatusCheckFailure(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.QueueJob("t2", map[string]any{"status": "queued"})
	backend.Fail("/status/{job_id}", http.StatusInternalServerError, map[string]string{"detail": "boom"})

	tracker := jobs.NewTracker[string]("transcription", 5*time.Millisecond)
	h, _ := tracker.Submit(context.Background(), &TranscriptionBackend{
		Client:   NewClient(backend.URL, time.Second),
		Clip:     testClip("audio/wav"),
		Language: "en",
	})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	job, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if job.Failure != jobs.FailureStatusCheck {
		t.Fatalf("failure = %q, want status_check", job.Failure)
	}
	var apiErr *APIError
	if !errors.As(job.Cause, &apiErr) || apiErr.Detail != "boom" {
		t.Errorf("cause = %v", job.Cause)
	}
}

func TestTranscriptionSubmitRejected(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Fail("/transcribe", http.StatusBadRequest, map[string]string{"detail": "Unsupported file format"})

	tracker := jobs.NewTracker[string]("transcription", 5*time.Millisecond)
	h, _ := tracker.Submit(context.Background(), &TranscriptionBackend{
		Client:   NewClient(backend.URL, time.Second),
		Clip:     testClip("audio/wav"),
		Language: "en",
	})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	job, _ := h.Wait(ctx)
	if job.Failure != jobs.FailureSubmit || job.Message() != "Unsupported file format" {
		t.Errorf("job = %+v", job)
	}
	if backend.Hits("/status/{job_id}") != 0 {
		t.Error("rejected submission must not be polled")
	}
}
