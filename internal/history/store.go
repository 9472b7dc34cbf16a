package history

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"murmur/internal/message"
)

// Key is the storage key the conversation snapshot lives under.
const Key = "chatHistory"

// ErrNotFound is returned by a Snapshotter when the key holds nothing.
var ErrNotFound = errors.New("snapshot not found")

// Snapshotter persists opaque snapshots under a key.
type Snapshotter interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
}

type EventKind string

const (
	EventAppend EventKind = "append"
	EventClear  EventKind = "clear"
)

type Event struct {
	Kind    EventKind
	Message message.Message // set for EventAppend
	Index   int             // position of the appended message
}

// Store owns the ordered conversation history. Every mutation rewrites the
// whole snapshot; persistence errors are logged and never reach the caller.
type Store struct {
	mu       sync.RWMutex
	messages []message.Message
	snap     Snapshotter

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int
}

// NewStore creates an empty store. snap may be nil for a memory-only store.
func NewStore(snap Snapshotter) *Store {
	return &Store{
		snap:      snap,
		observers: make(map[int]func(Event)),
	}
}

// Load restores history from the snapshot. A missing snapshot is an empty
// history; an unreadable one is logged and also yields an empty history.
func (s *Store) Load() []message.Message {
	msgs := s.read()

	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()

	return s.Messages()
}

func (s *Store) read() []message.Message {
	if s.snap == nil {
		return nil
	}

	data, err := s.snap.Read(Key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Warn("Failed to read chat history", "err", err)
		return nil
	}

	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		log.Warn("Cleared old invalid chat history", "err", err)
		return nil
	}

	return msgs
}

func (s *Store) Append(m message.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	idx := len(s.messages) - 1
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Kind: EventAppend, Message: m, Index: idx})
}

// Clear empties history and removes the snapshot. Calling it repeatedly is
// harmless.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	if s.snap != nil {
		if err := s.snap.Delete(Key); err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn("Failed to delete chat history", "err", err)
		}
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventClear})
}

func (s *Store) Messages() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Subscribe registers fn for history changes and returns a function that
// removes it. Observers run synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.obsMu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if fn, ok := s.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) persistLocked() {
	if s.snap == nil {
		return
	}

	data, err := json.Marshal(s.messages)
	if err != nil {
		log.Warn("Failed to encode chat history", "err", err)
		return
	}
	if err := s.snap.Write(Key, data); err != nil {
		log.Warn("Failed to persist chat history", "err", fmt.Errorf("write %s: %w", Key, err))
	}
}
