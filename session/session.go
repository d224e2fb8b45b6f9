// Package session tracks per-user conversation state: the message history
// the retrieval loop feeds the oracle, plus lightweight metadata such as the
// active consultation mode. Sessions are snapshotted to a Store so a user
// can resume after a restart.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweetpotato0/health-agent/message"
)

// State represents the lifecycle state of a session.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// MetaKind tags what kind of conversation a record holds. Chat sessions
// leave it unset; interview snapshots set it to KindInterview so dossier
// exports can pick them out of a mixed store.
const (
	MetaKind      = "kind"
	KindInterview = "interview"
)

// Record is the serializable snapshot of a session.
type Record struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	State     State              `json:"state"`
	Messages  []*message.Message `json:"messages,omitempty"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Clone deep-copies a record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Messages = message.CloneMessages(r.Messages)
	clone.Metadata = cloneMetadata(r.Metadata)
	return &clone
}

// Session is a live conversation. All methods are safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	id       string
	userID   string
	state    State
	messages []*message.Message
	metadata map[string]any
	created  time.Time
	updated  time.Time
}

// New creates an active session for a user.
func New(userID string) *Session {
	now := time.Now()
	return &Session{
		id:       uuid.NewString(),
		userID:   userID,
		state:    StateActive,
		metadata: make(map[string]any),
		created:  now,
		updated:  now,
	}
}

// FromRecord reconstructs a session from a snapshot.
func FromRecord(record *Record) *Session {
	if record == nil {
		return nil
	}
	state := record.State
	if state == "" {
		state = StateActive
	}
	return &Session{
		id:       record.ID,
		userID:   record.UserID,
		state:    state,
		messages: message.CloneMessages(record.Messages),
		metadata: cloneMetadata(record.Metadata),
		created:  record.CreatedAt,
		updated:  record.UpdatedAt,
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user's ID.
func (s *Session) UserID() string { return s.userID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active reports whether the session still accepts turns.
func (s *Session) Active() bool { return s.State() == StateActive }

// Append adds messages to the history.
func (s *Session) Append(msgs ...*message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		if msg != nil {
			s.messages = append(s.messages, msg)
		}
	}
	s.updated = time.Now()
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return message.CloneMessages(s.messages)
}

// SetMessages replaces the history, used after summarizing trims it.
func (s *Session) SetMessages(msgs []*message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = message.CloneMessages(msgs)
	s.updated = time.Now()
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// SetMeta stores a metadata value on the session.
func (s *Session) SetMeta(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata[key] = value
	s.updated = time.Now()
}

// Meta reads a metadata value.
func (s *Session) Meta(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.metadata[key]
	return v, ok
}

// Close marks the session closed. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.updated = time.Now()
}

// Snapshot returns a serializable copy of the session.
func (s *Session) Snapshot() *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Record{
		ID:        s.id,
		UserID:    s.userID,
		State:     s.state,
		Messages:  message.CloneMessages(s.messages),
		Metadata:  cloneMetadata(s.metadata),
		CreatedAt: s.created,
		UpdatedAt: s.updated,
	}
}

func cloneMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	clone := make(map[string]any, len(meta))
	for k, v := range meta {
		clone[k] = v
	}
	return clone
}
