package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/testutil"
)

func newTestChat(t *testing.T, backend *testutil.FakeBackend) (*Chat, *MemoryStore) {
	t.Helper()
	store := &MemoryStore{}
	c, err := New(api.NewClient(backend.URL, time.Second), store, 3)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, store
}

func TestNewCreatesAndStoresSession(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c, store := newTestChat(t, backend)

	if _, err := uuid.Parse(c.SessionID()); err != nil {
		t.Errorf("session id %q is not a uuid", c.SessionID())
	}
	stored, ok, _ := store.Load()
	if !ok || stored != c.SessionID() {
		t.Errorf("stored = %q, want %q", stored, c.SessionID())
	}

	again, err := New(api.NewClient(backend.URL, time.Second), store, 3)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if again.SessionID() != c.SessionID() {
		t.Error("existing session id should be reused")
	}
}

func TestAskSendsSessionAndRecordsHistory(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c, _ := newTestChat(t, backend)

	reply, err := c.Ask(context.Background(), "  when do I use 'whom'?  ")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if reply.Text != "Answer to: when do I use 'whom'?" || len(reply.Sources) != 2 {
		t.Errorf("reply = %+v", reply)
	}

	req, _ := backend.LastRequest("/chatbot/query")
	if req.JSON["session_id"] != c.SessionID() {
		t.Errorf("session_id = %v, want %s", req.JSON["session_id"], c.SessionID())
	}
	if req.JSON["max_results"] != float64(3) {
		t.Errorf("max_results = %v, want 3", req.JSON["max_results"])
	}

	history := c.History()
	if len(history) != 2 || history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Errorf("history = %+v", history)
	}
}

func TestAskAdoptsServerSession(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.ChatAnswer = func(query string, req map[string]any) any {
		return map[string]any{"answer": "ok", "sources": []string{}, "session_id": "server-session"}
	}
	c, store := newTestChat(t, backend)

	if _, err := c.Ask(context.Background(), "hi"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if c.SessionID() != "server-session" {
		t.Errorf("session = %q, want server-session", c.SessionID())
	}
	if id, _, _ := store.Load(); id != "server-session" {
		t.Errorf("stored = %q", id)
	}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c, _ := newTestChat(t, backend)

	if _, err := c.Ask(context.Background(), "   "); !errors.Is(err, api.ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
	if backend.Hits("/chatbot/query") != 0 || len(c.History()) != 0 {
		t.Error("empty query must not reach the backend or history")
	}
}

func TestClearHistoryRegeneratesSession(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c, store := newTestChat(t, backend)
	before := c.SessionID()
	_, _ = c.Ask(context.Background(), "hi")

	if err := c.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if c.SessionID() == before {
		t.Error("session id not regenerated")
	}
	if len(c.History()) != 0 {
		t.Error("history not cleared")
	}
	if id, _, _ := store.Load(); id != c.SessionID() {
		t.Errorf("stored = %q, want %q", id, c.SessionID())
	}
}

type fakeAnswerer struct {
	answer string
	err    error
	calls  int
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestAskFallback(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantFallback bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			backend.Fail("/chatbot/query", tt.status, map[string]string{"error": "LLM request failed"})
			c, _ := newTestChat(t, backend)
			fb := &fakeAnswerer{answer: "Use 'whom' for objects."}
			c.SetFallback(fb)

			reply, err := c.Ask(context.Background(), "whom?")
			if tt.wantFallback {
				if err != nil || !reply.Fallback || reply.Text != fb.answer {
					t.Errorf("reply = %+v, err = %v", reply, err)
				}
				return
			}
			var apiErr *api.APIError
			if !errors.As(err, &apiErr) || fb.calls != 0 {
				t.Errorf("err = %v, fallback calls = %d", err, fb.calls)
			}
		})
	}
}

func TestFailedAskLeavesHistoryUntouched(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(backend *testutil.FakeBackend)
		fallback Answerer
	}{
		{
			name: "rejected query",
			setup: func(b *testutil.FakeBackend) {
				b.Fail("/chatbot/query", http.StatusBadRequest, map[string]string{"detail": "Query too long"})
			},
		},
		{
			name:  "unreachable backend",
			setup: func(b *testutil.FakeBackend) { b.Close() },
		},
		{
			name:     "fallback also fails",
			setup:    func(b *testutil.FakeBackend) { b.Fail("/chatbot/query", http.StatusBadGateway, nil) },
			fallback: &fakeAnswerer{err: errors.New("quota exceeded")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			c, _ := newTestChat(t, backend)
			if tt.fallback != nil {
				c.SetFallback(tt.fallback)
			}
			tt.setup(backend)

			for range 2 {
				if _, err := c.Ask(context.Background(), "whom?"); err == nil {
					t.Fatal("Ask() error = nil, want failure")
				}
			}
			if got := c.History(); len(got) != 0 {
				t.Errorf("history = %+v, want empty after failed questions", got)
			}
		})
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speechcoach", sessionFile)
	store := NewFileStore(path)

	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("Load() on missing file = ok %v, err %v", ok, err)
	}

	id := NewSessionID()
	if err := store.Save(id); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, ok, err := store.Load()
	if err != nil || !ok || got != id {
		t.Errorf("Load() = (%q, %v, %v), want %q", got, ok, err, id)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Error("session survived Clear()")
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestDefaultSessionPathUsesRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	path, err := DefaultSessionPath()
	if err != nil {
		t.Fatalf("DefaultSessionPath() error = %v", err)
	}
	if path != "/run/user/1000/speechcoach/chat_session" {
		t.Errorf("path = %q", path)
	}
}

func TestOpenAITutor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Use whom for objects."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	tutor := NewOpenAITutor("test-key", server.URL, "")
	answer, err := tutor.Answer(context.Background(), "whom?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "Use whom for objects." {
		t.Errorf("answer = %q", answer)
	}
}
