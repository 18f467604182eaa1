// Package llm adapts the official genai client to the responder's
// Generator interface so a real model can voice the agents instead of
// the template bank.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"consultify/internal/engine/conversation"

	genai "google.golang.org/genai"
)

var ErrEmptyCompletion = errors.New("llm: empty completion from model")

const maxAttempts = 3

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient builds a client for the given model. The API key is
// read from the environment by the genai SDK.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("llm: init client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

// Generate renders the conversation for the acting agent and asks the
// model for the next reply. Retries with backoff on transient errors.
func (g *GeminiClient) Generate(ctx context.Context, agentID string, messages []conversation.ChatMessage) (string, error) {
	prompt := buildPrompt(agentID, messages)
	log.Printf("llm: request for agent %s: %d bytes", agentID, len(prompt))

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{},
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrEmptyCompletion
		} else {
			return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return "", lastErr
}

func buildPrompt(agentID string, messages []conversation.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el especialista %q de una consultora de software. ", agentID)
	b.WriteString("Responde el último mensaje del usuario en español, breve y profesional.\n\n")
	for _, m := range messages {
		switch m.Origin {
		case conversation.OriginUser:
			fmt.Fprintf(&b, "usuario: %s\n", m.Content)
		case conversation.OriginAgent:
			fmt.Fprintf(&b, "agente(%s): %s\n", m.AgentID, m.Content)
		}
	}
	return b.String()
}
