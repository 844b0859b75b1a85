package session

import (
	"errors"
	"testing"
)

func TestLoginValidation(t *testing.T) {
	m := NewManager()

	cases := []struct {
		name       string
		userName   string
		email      string
		experience string
	}{
		{"missing name", "", "a@example.com", ExperienceJunior},
		{"blank name", "   ", "a@example.com", ExperienceJunior},
		{"missing email", "Alice", "", ExperienceJunior},
		{"bad experience", "Alice", "a@example.com", "veteran"},
		{"empty experience", "Alice", "a@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.Login(tc.userName, tc.email, tc.experience); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoginAndGet(t *testing.T) {
	m := NewManager()

	s, err := m.Login("Alice", "alice@example.com", ExperienceSenior)
	if err != nil {
		t.Fatal(err)
	}
	if s.Token == "" {
		t.Fatal("expected a token")
	}

	got, err := m.Get(s.Token)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Alice" || got.Email != "alice@example.com" || got.Experience != ExperienceSenior {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestLogout(t *testing.T) {
	m := NewManager()
	s, err := m.Login("Alice", "alice@example.com", ExperienceMid)
	if err != nil {
		t.Fatal(err)
	}

	m.Logout(s.Token)
	if _, err := m.Get(s.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}

	// Logging out twice is harmless.
	m.Logout(s.Token)
}

func TestCanAnswer(t *testing.T) {
	cases := []struct {
		experience string
		want       bool
	}{
		{ExperienceJunior, false},
		{ExperienceMid, true},
		{ExperienceSenior, true},
	}
	for _, tc := range cases {
		s := Session{Experience: tc.experience}
		if got := s.CanAnswer(); got != tc.want {
			t.Errorf("CanAnswer(%q) = %v, want %v", tc.experience, got, tc.want)
		}
	}
}

func TestChatHistory(t *testing.T) {
	m := NewManager()
	s, err := m.Login("Alice", "alice@example.com", ExperienceJunior)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Append(s.Token, Message{Role: RoleUser, Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Append(s.Token, Message{Role: RoleAssistant, Text: "hello", Sources: []string{"a.pdf (page 1)"}}); err != nil {
		t.Fatal(err)
	}

	history, err := m.History(s.Token)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Fatalf("unexpected order: %+v", history)
	}
	if history[0].At.IsZero() {
		t.Error("timestamp should be filled in")
	}

	// History is isolated per session.
	other, err := m.Login("Bob", "bob@example.com", ExperienceJunior)
	if err != nil {
		t.Fatal(err)
	}
	otherHistory, err := m.History(other.Token)
	if err != nil {
		t.Fatal(err)
	}
	if len(otherHistory) != 0 {
		t.Fatalf("new session should have empty history, got %d", len(otherHistory))
	}
}

func TestHistoryUnknownToken(t *testing.T) {
	m := NewManager()
	if _, err := m.History("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.Append("nope", Message{Role: RoleUser, Text: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
