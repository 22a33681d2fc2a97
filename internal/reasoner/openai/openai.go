// Package openai implements the Reasoner interface against any
// OpenAI-compatible chat completions API that accepts image parts
// (OpenAI, Groq, vLLM, ...).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/reasoner"
)

// Reasoner sends a single multimodal user message per inference.
type Reasoner struct {
	client *goopenai.Client
	model  string
}

// New creates a reasoner from config.
func New(cfg config.ReasoningConfig) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing reasoning API key")
	}
	if cfg.Model == "" {
		return nil, errors.New("missing reasoning model")
	}

	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Reasoner{
		client: goopenai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}, nil
}

// Infer returns the model's answer to query about img.
func (r *Reasoner) Infer(ctx context.Context, query string, img reasoner.Image) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: r.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: query},
					{
						Type:     goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{URL: img.DataURL()},
					},
				},
			},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from chat API")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("inference complete", "model", r.model, "response_length", len(answer))
	return answer, nil
}
