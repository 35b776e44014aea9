package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// RecordedRequest is one request seen by FakeBackend
type RecordedRequest struct {
	Method   string
	Route    string
	Fields   map[string]string
	Filename string
	// FileContentType is the Content-Type of the uploaded file part
	FileContentType string
	FileSize        int
	JSON            map[string]any
}

type failure struct {
	status int
	body   any
}

// FakeBackend is an httptest server speaking the speech backend's REST API.
// Poll responses are scripted per job id; the last scripted response repeats.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	queued   []string
	nextID   int
	polls    map[string][]any
	served   map[string]int
	failures map[string]failure
	hits     map[string]int
	requests []RecordedRequest
	deleted  []string

	SpeechAudio       []byte
	SpeechContentType string
	ChatAnswer        func(query string, req map[string]any) any
	HealthBody        any
}

// NewFakeBackend starts a fake backend that is closed when the test ends
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		polls:             make(map[string][]any),
		served:            make(map[string]int),
		failures:          make(map[string]failure),
		hits:              make(map[string]int),
		SpeechAudio:       MockAudio(256),
		SpeechContentType: "audio/mpeg",
		HealthBody: map[string]any{
			"status":  "healthy",
			"message": "Speech-to-Text API is running",
			"models": map[string]bool{
				"transcription_model":    true,
				"pronunciation_analyzer": true,
			},
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/transcribe", f.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/analyze-pronunciation", f.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/status/{job_id}", f.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/pronunciation-status/{job_id}", f.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/job/{job_id}", f.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/synthesize-speech", f.handleSpeech).Methods(http.MethodPost)
	r.HandleFunc("/chatbot/query", f.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/health", f.handleHealth).Methods(http.MethodGet)
	r.Use(f.record)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// QueueJob makes the next submission return jobID, with polls as its status responses
func (f *FakeBackend) QueueJob(jobID string, polls ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, jobID)
	f.polls[jobID] = polls
}

// Fail makes every request to route answer with status and body
func (f *FakeBackend) Fail(route string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status: status, body: body}
}

// Hits returns how many requests a route template received
func (f *FakeBackend) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// Requests returns a copy of every recorded request
func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]RecordedRequest, len(f.requests))
	copy(result, f.requests)
	return result
}

// LastRequest returns the most recent request to route
func (f *FakeBackend) LastRequest(route string) (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Route == route {
			return f.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

// Deleted returns the ids passed to DELETE /job/{job_id}
func (f *FakeBackend) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, _ := mux.CurrentRoute(r).GetPathTemplate()
		rec := RecordedRequest{Method: r.Method, Route: route, Fields: map[string]string{}}

		if r.MultipartForm == nil && r.Header.Get("Content-Type") != "" && r.Method == http.MethodPost {
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				for k, v := range r.MultipartForm.Value {
					if len(v) > 0 {
						rec.Fields[k] = v[0]
					}
				}
				if files := r.MultipartForm.File["file"]; len(files) > 0 {
					rec.Filename = files[0].Filename
					rec.FileContentType = files[0].Header.Get("Content-Type")
					rec.FileSize = int(files[0].Size)
				}
			} else if r.Header.Get("Content-Type") == "application/json" {
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &rec.JSON)
			}
		}

		f.mu.Lock()
		f.hits[route]++
		f.requests = append(f.requests, rec)
		fail, failing := f.failures[route]
		f.mu.Unlock()

		if failing {
			writeJSON(w, fail.status, fail.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *FakeBackend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	var jobID string
	if len(f.queued) > 0 {
		jobID = f.queued[0]
		f.queued = f.queued[1:]
	} else {
		f.nextID++
		jobID = fmt.Sprintf("job-%d", f.nextID)
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "message": "started"})
}

func (f *FakeBackend) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	f.mu.Lock()
	polls, ok := f.polls[jobID]
	idx := f.served[jobID]
	f.served[jobID]++
	f.mu.Unlock()

	if !ok || len(polls) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
		return
	}
	if idx >= len(polls) {
		idx = len(polls) - 1
	}
	writeJSON(w, http.StatusOK, polls[idx])
}

func (f *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	f.mu.Lock()
	_, ok := f.polls[jobID]
	if ok {
		delete(f.polls, jobID)
		f.deleted = append(f.deleted, jobID)
	}
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}

func (f *FakeBackend) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("text") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Text cannot be empty"})
		return
	}
	w.Header().Set("Content-Type", f.SpeechContentType)
	_, _ = w.Write(f.SpeechAudio)
}

func (f *FakeBackend) handleChat(w http.ResponseWriter, r *http.Request) {
	req, _ := f.LastRequest("/chatbot/query")
	query, _ := req.JSON["query"].(string)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Query cannot be empty"})
		return
	}
	if f.ChatAnswer != nil {
		writeJSON(w, http.StatusOK, f.ChatAnswer(query, req.JSON))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":  "Answer to: " + query,
		"sources": []string{"Source one", "Source two"},
	})
}

func (f *FakeBackend) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.HealthBody)
}
