// Package store persists the community knowledge board: answered FAQs and
// the pending questions waiting for an experienced user to answer them. It is
// backed by SQLite so the board survives restarts and supports concurrent
// readers from the HTTP layer.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced question does not exist.
var ErrNotFound = errors.New("store: not found")

// FAQ is an answered question on the board.
type FAQ struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	// CreatedBy is the display name of the user who answered.
	CreatedBy string `json:"created_by"`
}

// PendingQuestion is a submitted question that has no answer yet.
type PendingQuestion struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
	// AskedBy is the display name of the user who submitted the question.
	AskedBy string `json:"asked_by"`
}

// Store wraps the SQLite database holding both boards.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and runs
// migrations. Use ":memory:" for an ephemeral board in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database %s: %w", path, err)
	}

	// SQLite allows one writer; a small pool avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS faqs (
	id         TEXT PRIMARY KEY,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	created_by TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pending_questions (
	id         TEXT PRIMARY KEY,
	question   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	asked_by   TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListFAQs returns all answered questions, newest first.
func (s *Store) ListFAQs(ctx context.Context) ([]FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, created_at, created_by
		 FROM faqs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list faqs: %w", err)
	}
	defer rows.Close()

	var faqs []FAQ
	for rows.Next() {
		var f FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.CreatedAt, &f.CreatedBy); err != nil {
			return nil, fmt.Errorf("store: scan faq: %w", err)
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

// SearchFAQs returns FAQs whose question or answer contains the query,
// case-insensitively. An empty query returns everything.
func (s *Store) SearchFAQs(ctx context.Context, query string) ([]FAQ, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListFAQs(ctx)
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, created_at, created_by
		 FROM faqs
		 WHERE lower(question) LIKE ? OR lower(answer) LIKE ?
		 ORDER BY created_at DESC, id`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("store: search faqs: %w", err)
	}
	defer rows.Close()

	var faqs []FAQ
	for rows.Next() {
		var f FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.CreatedAt, &f.CreatedBy); err != nil {
			return nil, fmt.Errorf("store: scan faq: %w", err)
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

// SubmitQuestion adds a question to the pending board and returns it.
func (s *Store) SubmitQuestion(ctx context.Context, question, askedBy string) (PendingQuestion, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return PendingQuestion{}, fmt.Errorf("store: question must not be empty")
	}

	p := PendingQuestion{
		ID:        uuid.NewString(),
		Question:  question,
		CreatedAt: time.Now().UTC(),
		AskedBy:   askedBy,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_questions (id, question, created_at, asked_by)
		 VALUES (?, ?, ?, ?)`,
		p.ID, p.Question, p.CreatedAt, p.AskedBy)
	if err != nil {
		return PendingQuestion{}, fmt.Errorf("store: submit question: %w", err)
	}
	return p, nil
}

// ListPending returns all unanswered questions, oldest first, so the
// longest-waiting question is answered first.
func (s *Store) ListPending(ctx context.Context) ([]PendingQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, created_at, asked_by
		 FROM pending_questions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list pending: %w", err)
	}
	defer rows.Close()

	var pending []PendingQuestion
	for rows.Next() {
		var p PendingQuestion
		if err := rows.Scan(&p.ID, &p.Question, &p.CreatedAt, &p.AskedBy); err != nil {
			return nil, fmt.Errorf("store: scan pending question: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// AnswerQuestion moves a pending question to the FAQ board with the given
// answer. The move is atomic: either the question leaves the pending board
// and appears as an FAQ, or nothing changes. The FAQ keeps the pending
// question's ID. Answering an unknown ID returns ErrNotFound.
func (s *Store) AnswerQuestion(ctx context.Context, id, answer, answeredBy string) (FAQ, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return FAQ{}, fmt.Errorf("store: answer must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return FAQ{}, fmt.Errorf("store: begin answer tx: %w", err)
	}
	defer tx.Rollback()

	var p PendingQuestion
	err = tx.QueryRowContext(ctx,
		`SELECT id, question, created_at, asked_by
		 FROM pending_questions WHERE id = ?`, id).
		Scan(&p.ID, &p.Question, &p.CreatedAt, &p.AskedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return FAQ{}, fmt.Errorf("store: answer question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return FAQ{}, fmt.Errorf("store: load pending question %s: %w", id, err)
	}

	f := FAQ{
		ID:        p.ID,
		Question:  p.Question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
		CreatedBy: answeredBy,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO faqs (id, question, answer, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Question, f.Answer, f.CreatedAt, f.CreatedBy); err != nil {
		return FAQ{}, fmt.Errorf("store: insert faq: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pending_questions WHERE id = ?`, id); err != nil {
		return FAQ{}, fmt.Errorf("store: remove pending question: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return FAQ{}, fmt.Errorf("store: commit answer: %w", err)
	}
	return f, nil
}
