// Package session tracks logged-in users. A session carries the user's
// identity, their self-reported Camos experience level, and their chat
// history; the experience level gates who may answer pending questions.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Experience levels a user can report at login.
const (
	ExperienceJunior = "0-2yr"
	ExperienceMid    = "3-5yr"
	ExperienceSenior = "6yr and above"
)

// ErrNotFound is returned when a session token is unknown or expired.
var ErrNotFound = errors.New("session: not found")

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's chat history.
type Message struct {
	Role Role `json:"role"`
	// Text is the message content.
	Text string `json:"text"`
	// Sources lists the provenance of an assistant answer, if any.
	Sources []string `json:"sources,omitempty"`
	// At is the message timestamp.
	At time.Time `json:"at"`
}

// Session is one logged-in user.
type Session struct {
	// Token authenticates subsequent requests.
	Token string `json:"token"`
	// Name is the user's display name.
	Name string `json:"name"`
	// Email is the user's email address.
	Email string `json:"email"`
	// Experience is the self-reported Camos experience level.
	Experience string `json:"experience"`
	// CreatedAt is the login time.
	CreatedAt time.Time `json:"created_at"`
}

// CanAnswer reports whether this user's experience level allows answering
// pending questions. Junior users can ask but not answer.
func (s Session) CanAnswer() bool {
	return s.Experience == ExperienceMid || s.Experience == ExperienceSenior
}

// Manager holds the active sessions in memory. Sessions do not survive a
// restart; users simply log in again.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	session  Session
	messages []Message
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*sessionState)}
}

// Login validates the user details and creates a session. Name and email are
// required; experience must be one of the known levels.
func (m *Manager) Login(name, email, experience string) (Session, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return Session{}, fmt.Errorf("session: name is required")
	}
	if email == "" {
		return Session{}, fmt.Errorf("session: email is required")
	}
	switch experience {
	case ExperienceJunior, ExperienceMid, ExperienceSenior:
	default:
		return Session{}, fmt.Errorf("session: experience must be one of %q, %q, %q",
			ExperienceJunior, ExperienceMid, ExperienceSenior)
	}

	s := Session{
		Token:      uuid.NewString(),
		Name:       name,
		Email:      email,
		Experience: experience,
		CreatedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[s.Token] = &sessionState{session: s}
	m.mu.Unlock()

	return s, nil
}

// Get returns the session for a token.
func (m *Manager) Get(token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return st.session, nil
}

// Logout removes the session. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Append adds a message to the session's chat history.
func (m *Manager) Append(token string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[token]
	if !ok {
		return ErrNotFound
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	st.messages = append(st.messages, msg)
	return nil
}

// History returns a copy of the session's chat history in order.
func (m *Manager) History(token string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Message, len(st.messages))
	copy(out, st.messages)
	return out, nil
}
