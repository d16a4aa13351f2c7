// Package session holds per-session conversation history in memory.
package session

import (
	"sort"
	"sync"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's history. Immutable once appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo summarizes a non-empty session for listing.
type SessionInfo struct {
	SessionID      string    `json:"session_id"`
	MessageCount   int       `json:"message_count"`
	FirstMessageAt time.Time `json:"first_message_time"`
	LastMessageAt  time.Time `json:"last_message_time"`
}

// Store owns the process-wide session map. A store-level RWMutex guards the
// map itself; each session carries its own mutex so concurrent turns for the
// same session serialize their mutations without blocking other sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	msgs []Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

// Append adds a message to the end of a session's history, creating the
// session if it does not exist.
func (s *Store) Append(sessionID string, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	e := s.getOrCreate(sessionID)
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()
}

// Get returns a copy of the session's ordered history, or nil if the session
// does not exist. Reading never creates a session.
func (s *Store) Get(sessionID string) []Message {
	s.mu.RLock()
	e := s.sessions[sessionID]
	s.mu.RUnlock()
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.msgs))
	copy(out, e.msgs)
	return out
}

// Count returns the number of messages stored for a session.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	e := s.sessions[sessionID]
	s.mu.RUnlock()
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.msgs)
}

// Clear deletes a session entirely. It reports whether a session existed and
// how many messages were removed.
func (s *Store) Clear(sessionID string) (existed bool, removed int) {
	s.mu.Lock()
	e := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if e == nil {
		return false, 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return true, len(e.msgs)
}

// Trim replaces the session's history with its most recent keepLast messages,
// but only once the history exceeds twice that bound. Older messages are
// discarded irreversibly.
func (s *Store) Trim(sessionID string, keepLast int) {
	if keepLast <= 0 {
		return
	}

	s.mu.RLock()
	e := s.sessions[sessionID]
	s.mu.RUnlock()
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.msgs) <= 2*keepLast {
		return
	}
	kept := make([]Message, keepLast)
	copy(kept, e.msgs[len(e.msgs)-keepLast:])
	e.msgs = kept
}

// Recent returns a copy of the last n messages of a session, in order.
func (s *Store) Recent(sessionID string, n int) []Message {
	msgs := s.Get(sessionID)
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// List summarizes every non-empty session, sorted by session id for stable
// output.
func (s *Store) List() []SessionInfo {
	s.mu.RLock()
	entries := make(map[string]*entry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		if len(e.msgs) > 0 {
			out = append(out, SessionInfo{
				SessionID:      id,
				MessageCount:   len(e.msgs),
				FirstMessageAt: e.msgs[0].Timestamp,
				LastMessageAt:  e.msgs[len(e.msgs)-1].Timestamp,
			})
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Totals reports the number of non-empty sessions and total stored messages.
func (s *Store) Totals() (sessions, messages int) {
	for _, info := range s.List() {
		sessions++
		messages += info.MessageCount
	}
	return sessions, messages
}

func (s *Store) getOrCreate(sessionID string) *entry {
	s.mu.RLock()
	e := s.sessions[sessionID]
	s.mu.RUnlock()
	if e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.sessions[sessionID]; e == nil {
		e = &entry{}
		s.sessions[sessionID] = e
	}
	return e
}
