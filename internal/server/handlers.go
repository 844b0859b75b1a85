package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/camoslabs/camosai/internal/logging"
	"github.com/camoslabs/camosai/internal/pipeline"
	"github.com/camoslabs/camosai/internal/session"
	"github.com/camoslabs/camosai/internal/store"
)

// handleLogin handles POST /api/login. It validates the user details and
// returns a new session, including the token used on subsequent requests.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.sessions.Login(req.Name, req.Email, req.Experience)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("user logged in",
		slog.String("name", sess.Name),
		slog.String("experience", sess.Experience),
	)
	s.writeJSON(w, http.StatusOK, sess)
}

// handleLogout handles POST /api/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.sessions.Logout(sess.Token)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleChat handles POST /api/chat. A message that reads like a debugging
// request (it mentions both code and an error) is routed to the debug prompt;
// everything else goes through retrieval.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess := sessionFrom(r.Context())
	_ = s.sessions.Append(sess.Token, session.Message{Role: session.RoleUser, Text: req.Message})

	start := time.Now()
	var res pipeline.Result
	if looksLikeDebugRequest(req.Message) {
		res = s.assistant.DebugCode(r.Context(), req.Message, "described in the message")
	} else {
		res = s.assistant.QueryRAG(r.Context(), req.Message)
	}
	s.metrics.observeChat(res, time.Since(start))

	_ = s.sessions.Append(sess.Token, session.Message{
		Role:    session.RoleAssistant,
		Text:    res.Text,
		Sources: res.Sources,
	})

	resp := chatResponse{
		Text:    res.Text,
		Sources: res.Sources,
		Failed:  res.Failed,
	}
	if s.assistant.Stale() {
		resp.Warning = "The documentation changed since the last ingestion run; answers may be outdated."
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// looksLikeDebugRequest applies the chat routing heuristic: a message that
// mentions both code and an error is treated as a debugging request.
func looksLikeDebugRequest(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "error") && strings.Contains(m, "code")
}

// handleDebug handles POST /api/debug with an explicit snippet and error
// message, bypassing the chat heuristic.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req debugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CodeSnippet) == "" {
		s.writeError(w, http.StatusBadRequest, "code_snippet is required")
		return
	}

	start := time.Now()
	res := s.assistant.DebugCode(r.Context(), req.CodeSnippet, req.ErrorMessage)
	s.metrics.observeChat(res, time.Since(start))

	s.writeJSON(w, http.StatusOK, chatResponse{Text: res.Text, Failed: res.Failed})
}

// handleHistory handles GET /api/history, returning the session's chat log.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	history, err := s.sessions.History(sess.Token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	if history == nil {
		history = []session.Message{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

// handleIngest handles POST /api/ingest: a synchronous ingestion and index
// rebuild. Long-running by nature; the write timeout accommodates it.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.cfg.IngestFunc == nil {
		s.writeError(w, http.StatusNotImplemented, "ingestion is not enabled on this server")
		return
	}

	log := logging.FromContext(r.Context())
	log.Info("ingestion run started")

	chunks, err := s.cfg.IngestFunc(r.Context())
	if err != nil {
		s.metrics.ingestRunsTotal.WithLabelValues("error").Inc()
		log.Error("ingestion run failed", slog.Any("error", err))
		s.writeError(w, http.StatusInternalServerError, "ingestion failed: "+err.Error())
		return
	}

	s.metrics.ingestRunsTotal.WithLabelValues("ok").Inc()
	log.Info("ingestion run completed", slog.Int("chunks", chunks))
	s.writeJSON(w, http.StatusOK, ingestResponse{Chunks: chunks})
}

// handleListFAQs handles GET /api/faqs. The optional ?q= parameter filters
// FAQs by a case-insensitive substring over question and answer.
func (s *Server) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	faqs, err := s.board.SearchFAQs(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load faqs")
		return
	}
	if faqs == nil {
		faqs = []store.FAQ{}
	}
	s.writeJSON(w, http.StatusOK, faqs)
}

// handleListQuestions handles GET /api/questions, returning the pending
// board oldest first.
func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	pending, err := s.board.ListPending(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}
	if pending == nil {
		pending = []store.PendingQuestion{}
	}
	s.writeJSON(w, http.StatusOK, pending)
}

// handleSubmitQuestion handles POST /api/questions. Any logged-in user can
// submit.
func (s *Server) handleSubmitQuestion(w http.ResponseWriter, r *http.Request) {
	var req submitQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := sessionFrom(r.Context())
	q, err := s.board.SubmitQuestion(r.Context(), req.Question, sess.Name)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, q)
}

// handleAnswerQuestion handles POST /api/questions/{id}/answer. Only users
// with enough Camos experience may answer; everyone else gets 403 and the
// board is left untouched.
func (s *Server) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.CanAnswer() {
		s.writeError(w, http.StatusForbidden, "answering requires at least 3 years of Camos experience")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	faq, err := s.board.AnswerQuestion(r.Context(), id, req.Answer, sess.Name)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("question answered",
		slog.String("question_id", id),
		slog.String("answered_by", sess.Name),
	)
	s.writeJSON(w, http.StatusOK, faq)
}
