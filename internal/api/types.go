package api

import (
	"encoding/json"
	"strings"
)

// SubmitResponse acknowledges an accepted transcription or analysis job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message,omitempty"`
}

// TranscriptionStatus is the body of GET /status/{job_id}.
type TranscriptionStatus struct {
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	Progress   *int    `json:"progress,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
	Error      *string `json:"error,omitempty"`
}

// PronunciationStatus is the body of GET /pronunciation-status/{job_id}.
type PronunciationStatus struct {
	JobID    string                 `json:"job_id"`
	Status   string                 `json:"status"`
	Progress *int                   `json:"progress,omitempty"`
	Analysis *PronunciationAnalysis `json:"analysis,omitempty"`
	Error    *string                `json:"error,omitempty"`
}

// PronunciationAnalysis is the scored result of a pronunciation job.
// PronunciationErrors keeps the order the server sent.
type PronunciationAnalysis struct {
	OverallScore        float64              `json:"overall_score"`
	AccuracyScore       float64              `json:"accuracy_score"`
	FluencyScore        float64              `json:"fluency_score"`
	Transcript          string               `json:"transcript"`
	PhoneticTranscript  string               `json:"phonetic_transcript"`
	WordsAnalyzed       int                  `json:"words_analyzed"`
	TotalErrors         int                  `json:"total_errors"`
	PronunciationErrors []PronunciationError `json:"pronunciation_errors"`
}

type PronunciationError struct {
	Word                  string    `json:"word"`
	ExpectedPronunciation string    `json:"expected_pronunciation"`
	ActualPronunciation   string    `json:"actual_pronunciation"`
	Confidence            float64   `json:"confidence"`
	ErrorType             ErrorType `json:"error_type"`
	Position              int       `json:"position"`
	Suggestion            string    `json:"suggestion"`
}

// ErrorType classifies a mispronounced word.
type ErrorType string

const (
	ErrorSubstitution ErrorType = "substitution"
	ErrorDeletion     ErrorType = "deletion"
	ErrorInsertion    ErrorType = "insertion"
	ErrorStress       ErrorType = "stress"
	ErrorUnspecified  ErrorType = "unspecified"
)

// ParseErrorType maps any unknown or empty value to ErrorUnspecified.
func ParseErrorType(s string) ErrorType {
	switch t := ErrorType(strings.ToLower(strings.TrimSpace(s))); t {
	case ErrorSubstitution, ErrorDeletion, ErrorInsertion, ErrorStress:
		return t
	default:
		return ErrorUnspecified
	}
}

func (t *ErrorType) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*t = ErrorUnspecified
		return nil
	}
	*t = ParseErrorType(*s)
	return nil
}

// ChatRequest is the body of POST /chatbot/query.
type ChatRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	SessionID  string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id,omitempty"`
}

// HealthResponse is the liveness payload; Models reports which backend models are loaded.
type HealthResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Models  map[string]bool `json:"models"`
}

// Healthy reports whether every backend model is ready.
func (h HealthResponse) Healthy() bool {
	return h.Status == "healthy"
}

// Audio is synthesized speech as returned by the backend.
type Audio struct {
	Data        []byte
	ContentType string
}
