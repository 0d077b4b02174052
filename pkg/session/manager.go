package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("session: not found")

// Manager owns the identifier-to-session mapping for one service
// instance. Sessions are process-resident only; ending a session or
// tearing down the process discards them.
//
// The manager serializes all mutation of a given session, so transport
// handlers and the orchestrator can share it without the State needing
// its own lock.
type Manager struct {
	logger *slog.Logger

	mu            sync.Mutex
	sessions      map[string]*State
	transcriptMax int
}

// NewManager creates an empty session registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:   logger.With("component", "session.manager"),
		sessions: make(map[string]*State),
	}
}

// SetTranscriptMax bounds the transcript of every session started
// after the call. Values <= 0 keep the default.
func (m *Manager) SetTranscriptMax(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.transcriptMax = n
	}
}

// Start creates a new session for the given recipe.
func (m *Manager) Start(recipeID string, stepCount int, userID string) *State {
	s := New(uuid.NewString(), recipeID, stepCount)
	s.UserID = userID

	m.mu.Lock()
	if m.transcriptMax > 0 {
		s.SetTranscriptMax(m.transcriptMax)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("started cooking session", "session_id", s.ID, "recipe_id", recipeID, "steps", stepCount)
	return s
}

// Get returns a snapshot of the session, or ErrNotFound.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s.Snapshot(), nil
}

// Apply applies one action to the identified session.
func (m *Manager) Apply(id string, action Action, updates map[string]any) (Outcome, Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Outcome{}, Snapshot{}, ErrNotFound
	}
	out := s.Apply(action, updates)
	m.logger.Info("executed action", "session_id", id, "action", action, "step", s.CurrentStep, "status", s.StepStatus)
	return out, s.Snapshot(), nil
}

// RecordInterruption appends an interruption record to the session.
func (m *Manager) RecordInterruption(id string, kind InterruptionKind, reason, userMessage string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	s.RecordInterruption(kind, reason, userMessage)
	m.logger.Info("recorded interruption", "session_id", id, "kind", kind, "reason", reason)
	return s.Snapshot(), nil
}

// Transcribe appends a role-tagged utterance to the session transcript.
func (m *Manager) Transcribe(id, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.AppendTranscript(role, content)
	return nil
}

// WithState runs fn with exclusive access to the session's state.
// Used by the orchestrator, which needs multi-field reads and writes
// under one critical section.
func (m *Manager) WithState(id string, fn func(*State)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(s)
	return nil
}

// End removes the session from the registry. Returns false if the
// session did not exist.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	m.logger.Info("ended cooking session", "session_id", id)
	return true
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
