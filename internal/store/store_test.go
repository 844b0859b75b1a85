package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.SubmitQuestion(ctx, "persists?", "alice"); err != nil {
		t.Fatal(err)
	}

	// Reopen and verify the question survived.
	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	pending, err := s2.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Question != "persists?" {
		t.Fatalf("expected persisted question, got %+v", pending)
	}
}

func TestSubmitQuestionValidation(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.SubmitQuestion(context.Background(), "   ", "alice"); err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestPendingOrderOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SubmitQuestion(ctx, "first", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitQuestion(ctx, "second", "bob"); err != nil {
		t.Fatal(err)
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Errorf("oldest question should come first, got %q", pending[0].Question)
	}
}

func TestAnswerQuestionMovesToFAQ(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.SubmitQuestion(ctx, "How do I declare a variant?", "alice")
	if err != nil {
		t.Fatal(err)
	}

	f, err := s.AnswerQuestion(ctx, p.ID, "Use the VAR keyword.", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != p.ID {
		t.Errorf("faq should keep the pending question's id: %s vs %s", f.ID, p.ID)
	}
	if f.Question != p.Question || f.Answer != "Use the VAR keyword." || f.CreatedBy != "bob" {
		t.Errorf("unexpected faq: %+v", f)
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("answered question should leave the pending board, got %+v", pending)
	}

	faqs, err := s.ListFAQs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(faqs) != 1 || faqs[0].ID != p.ID {
		t.Fatalf("expected the answered faq on the board, got %+v", faqs)
	}
}

func TestAnswerQuestionUnknownID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SubmitQuestion(ctx, "still pending", "alice"); err != nil {
		t.Fatal(err)
	}

	_, err := s.AnswerQuestion(ctx, "no-such-id", "answer", "bob")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Nothing moved.
	pending, _ := s.ListPending(ctx)
	faqs, _ := s.ListFAQs(ctx)
	if len(pending) != 1 || len(faqs) != 0 {
		t.Fatalf("failed answer must not mutate the boards: pending=%d faqs=%d", len(pending), len(faqs))
	}
}

func TestAnswerQuestionEmptyAnswer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.SubmitQuestion(ctx, "q", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AnswerQuestion(ctx, p.ID, "  ", "bob"); err == nil {
		t.Fatal("expected error for blank answer")
	}
}

func TestSearchFAQs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, qa := range [][2]string{
		{"How do I declare a Variant?", "Use the VAR keyword."},
		{"What is a table constraint?", "A rule over table rows."},
		{"How do I loop?", "Use WHILE."},
	} {
		p, err := s.SubmitQuestion(ctx, qa[0], "alice")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.AnswerQuestion(ctx, p.ID, qa[1], "bob"); err != nil {
			t.Fatal(err)
		}
	}

	// Case-insensitive match on the question.
	got, err := s.SearchFAQs(ctx, "variant")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Question != "How do I declare a Variant?" {
		t.Fatalf("search by question: %+v", got)
	}

	// Match on the answer.
	got, err = s.SearchFAQs(ctx, "WHILE")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Answer != "Use WHILE." {
		t.Fatalf("search by answer: %+v", got)
	}

	// Empty query lists everything.
	got, err = s.SearchFAQs(ctx, "  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("empty query should list all, got %d", len(got))
	}

	// No matches.
	got, err = s.SearchFAQs(ctx, "zzzzz")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %+v", got)
	}
}
