package tts

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/api"
)

// Key identifies synthesized audio by its text and language.
type Key struct {
	Text     string
	Language string
}

// NewKey trims text so "quick" and " quick " share an entry.
func NewKey(text, lang string) Key {
	return Key{Text: strings.TrimSpace(text), Language: lang}
}

func (k Key) String() string {
	return k.Language + "\x00" + k.Text
}

// Entry is one cached synthesis result.
type Entry struct {
	Audio    api.Audio
	StoredAt time.Time
}

// Store holds cache entries. Implementations must be safe for concurrent use.
type Store interface {
	Get(key Key) (Entry, bool)
	Put(key Key, entry Entry)
	Delete(key Key)
	Keys() []Key
	Len() int
	Clear()
}

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Entry)}
}

func (s *MemoryStore) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Put(key Key, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

func (s *MemoryStore) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Keys returns keys oldest first.
func (s *MemoryStore) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.entries[keys[i]].StoredAt.Before(s.entries[keys[j]].StoredAt)
	})
	return keys
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]Entry)
}
