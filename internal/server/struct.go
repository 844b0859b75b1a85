package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/camoslabs/camosai/internal/pipeline"
	"github.com/camoslabs/camosai/internal/session"
	"github.com/camoslabs/camosai/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Must be
	// long enough for an LLM round-trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on chat and
	// ingest endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used.
	Registry *prometheus.Registry
	// IngestFunc runs a full ingestion and index rebuild, returning the
	// number of chunks indexed. Wired by the serve command; if nil,
	// POST /api/ingest returns 501.
	IngestFunc func(ctx context.Context) (int, error)
}

// assistant is the pipeline surface the chat handlers need. *pipeline.Pipeline
// satisfies it; tests inject fakes.
type assistant interface {
	QueryRAG(ctx context.Context, question string) pipeline.Result
	DebugCode(ctx context.Context, codeSnippet, errorMessage string) pipeline.Result
	Ready() bool
	Stale() bool
}

// Server exposes the assistant over a JSON REST API.
type Server struct {
	// assistant answers chat and debug queries.
	assistant assistant
	// sessions tracks logged-in users.
	sessions *session.Manager
	// board is the FAQ and pending-question store.
	board *store.Store
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine.
	stopRL func()
}

// loginRequest is the JSON body for POST /api/login.
type loginRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Experience string `json:"experience"`
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's question or problem description.
	Message string `json:"message"`
}

// chatResponse is the JSON response for POST /api/chat and POST /api/debug.
type chatResponse struct {
	// Text is the assistant's answer.
	Text string `json:"text"`
	// Sources lists the provenance of the retrieved context, if any.
	Sources []string `json:"sources,omitempty"`
	// Failed reports whether the pipeline hit an internal error; Text still
	// carries a user-presentable message.
	Failed bool `json:"failed,omitempty"`
	// Warning carries a non-fatal notice, e.g. that the index is stale
	// because the source corpus changed after the last ingestion run.
	Warning string `json:"warning,omitempty"`
}

// debugRequest is the JSON body for POST /api/debug.
type debugRequest struct {
	CodeSnippet  string `json:"code_snippet"`
	ErrorMessage string `json:"error_message"`
}

// submitQuestionRequest is the JSON body for POST /api/questions.
type submitQuestionRequest struct {
	Question string `json:"question"`
}

// answerRequest is the JSON body for POST /api/questions/{id}/answer.
type answerRequest struct {
	Answer string `json:"answer"`
}

// ingestResponse is the JSON response for POST /api/ingest.
type ingestResponse struct {
	// Chunks is the number of chunks indexed by the run.
	Chunks int `json:"chunks"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	Error string `json:"error"`
}
