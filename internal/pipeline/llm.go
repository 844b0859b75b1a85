package pipeline

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LLM generates a completion for a fully rendered prompt. The Ollama-backed
// implementation is the production one; tests inject fakes.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaLLM answers prompts through a local Ollama server.
type OllamaLLM struct {
	model       *ollama.LLM
	temperature float64
}

// NewOllamaLLM connects to the Ollama server at baseURL and targets the named
// chat model. The connection is lazy — errors surface on the first Generate.
func NewOllamaLLM(baseURL, model string, temperature float64) (*OllamaLLM, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create ollama client: %w", err)
	}
	return &OllamaLLM{model: llm, temperature: temperature}, nil
}

// Generate sends the prompt to the chat model and returns its completion.
func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.model, prompt,
		llms.WithTemperature(o.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("pipeline: ollama generation: %w", err)
	}
	return out, nil
}
