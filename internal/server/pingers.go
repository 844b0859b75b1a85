package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaPinger probes an Ollama server by listing its models. The request is
// free — no tokens are consumed.
type OllamaPinger struct {
	baseURL string
	client  *http.Client
}

// NewOllamaPinger constructs an OllamaPinger for the server at baseURL.
func NewOllamaPinger(baseURL string) *OllamaPinger {
	return &OllamaPinger{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: probeTimeout},
	}
}

// Name returns the dependency label used in readiness responses.
func (p *OllamaPinger) Name() string { return "ollama" }

// Ping issues GET /api/tags against the Ollama server.
func (p *OllamaPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// NamedPinger adapts any Ping function into a Pinger. It wraps the FAQ
// store's database ping and the Qdrant client's health check.
type NamedPinger struct {
	name string
	ping func(ctx context.Context) error
}

// NewNamedPinger constructs a NamedPinger with the given label.
func NewNamedPinger(name string, ping func(ctx context.Context) error) *NamedPinger {
	return &NamedPinger{name: name, ping: ping}
}

// Name returns the dependency label used in readiness responses.
func (p *NamedPinger) Name() string { return p.name }

// Ping delegates to the wrapped function.
func (p *NamedPinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.ping(ctx)
}
