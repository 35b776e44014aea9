package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/api"
)

const DefaultMaxResults = 5

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Text    string
	Sources []string
	// Fallback marks an answer produced without the retrieval backend.
	Fallback bool
	At       time.Time
}

// Querier is the backend chatbot endpoint.
type Querier interface {
	ChatbotQuery(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error)
}

// Answerer answers a question without retrieval; used when the backend is down.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Chat is the grammar chatbot conversation.
type Chat struct {
	client     Querier
	store      SessionStore
	maxResults int
	fallback   Answerer

	mu        sync.Mutex
	sessionID string
	history   []Message
}

// New restores the stored session id or creates and stores a new one.
func New(client Querier, store SessionStore, maxResults int) (*Chat, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	c := &Chat{client: client, store: store, maxResults: maxResults}

	id, ok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if !ok {
		id = NewSessionID()
		if err := store.Save(id); err != nil {
			return nil, fmt.Errorf("save chat session: %w", err)
		}
		log.Printf("chat: new session %s", id)
	}
	c.sessionID = id
	return c, nil
}

// SetFallback installs an answerer for when the backend cannot be reached.
func (c *Chat) SetFallback(a Answerer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = a
}

func (c *Chat) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// History returns a copy of the conversation so far.
func (c *Chat) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Ask sends query to the chatbot and records both turns once it is answered.
func (c *Chat) Ask(ctx context.Context, query string) (Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Message{}, api.ErrEmptyQuery
	}

	asked := Message{Role: RoleUser, Text: query, At: time.Now()}

	c.mu.Lock()
	sessionID := c.sessionID
	fallback := c.fallback
	c.mu.Unlock()

	resp, err := c.client.ChatbotQuery(ctx, api.ChatRequest{
		Query:      query,
		MaxResults: c.maxResults,
		SessionID:  sessionID,
	})

	var reply Message
	switch {
	case err == nil:
		reply = Message{Role: RoleAssistant, Text: resp.Answer, Sources: resp.Sources, At: time.Now()}
	case fallback != nil && shouldFallback(err):
		log.Printf("chat: backend query failed, using fallback: %v", err)
		answer, fbErr := fallback.Answer(ctx, query)
		if fbErr != nil {
			return Message{}, fmt.Errorf("chat: %w", errors.Join(err, fbErr))
		}
		reply = Message{Role: RoleAssistant, Text: answer, Fallback: true, At: time.Now()}
	default:
		return Message{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if resp.SessionID != "" && resp.SessionID != c.sessionID && sessionID == c.sessionID {
		c.sessionID = resp.SessionID
		if err := c.store.Save(resp.SessionID); err != nil {
			log.Printf("chat: failed to save session: %v", err)
		}
	}
	// Both turns are recorded together so a failed question leaves no trace.
	c.history = append(c.history, asked, reply)
	return reply, nil
}

// shouldFallback is false for requests the backend rejected as invalid.
func shouldFallback(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// ClearHistory drops the conversation and starts a new session.
func (c *Chat) ClearHistory() error {
	id := NewSessionID()
	if err := c.store.Save(id); err != nil {
		return fmt.Errorf("save chat session: %w", err)
	}
	c.mu.Lock()
	c.history = nil
	c.sessionID = id
	c.mu.Unlock()
	log.Printf("chat: history cleared, new session %s", id)
	return nil
}
