// Package ai talks to hosted LLM providers for article summaries, chat
// grounded in article content, and feed filter rules. Providers are plain
// net/http clients; no vendor SDKs.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/driftrss/drift/internal/config"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a full prompt for one streamed completion.
type ChatRequest struct {
	System   string
	Messages []Message
}

// FilterItem is one candidate article for a filter rule.
type FilterItem struct {
	ID          string
	Title       string
	Description string
}

// Service is the AI surface the rest of the application consumes.
type Service interface {
	Summarize(ctx context.Context, title, text string) (string, error)
	FilterMatches(ctx context.Context, items []FilterItem, rule string) (map[string]bool, error)
	ChatStream(ctx context.Context, req ChatRequest) (*Stream, error)
	Model() string
}

// New builds a Service from config. A missing API key is a configuration
// error, not something to retry.
func New(cfg config.AIConfig) (Service, error) {
	key := cfg.Key()
	if key == "" {
		return nil, fmt.Errorf("AI not configured: set ai.api_key or DRIFT_AI_API_KEY")
	}

	client := &http.Client{Timeout: 120 * time.Second}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	switch cfg.Provider {
	case "claude", "":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		return &claudeProvider{apiKey: key, model: model, maxTokens: maxTokens, client: client, baseURL: baseURL}, nil
	case "openai":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		return &openaiProvider{apiKey: key, model: model, maxTokens: maxTokens, client: client, baseURL: baseURL}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: claude, openai)", cfg.Provider)
	}
}

const summarizePrompt = `Summarize this article in 3-5 sentences. Be factual and concise; no hype, no preamble.

Title: %s

%s

Respond with ONLY the summary text.`

const filterPrompt = `You are filtering feed articles against a user rule.

Rule: %s

Articles:
%s
Respond with the IDs of the articles that MATCH the rule, one per line. If none match, respond with NONE.`

func formatFilterItems(items []FilterItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(item.ID)
		sb.WriteString(": ")
		sb.WriteString(item.Title)
		if item.Description != "" {
			sb.WriteString(" — ")
			sb.WriteString(truncate(item.Description, 200))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseFilterResponse maps the model's line-oriented reply back to the
// candidate IDs, ignoring anything that is not a known ID.
func parseFilterResponse(text string, items []FilterItem) map[string]bool {
	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	matches := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•* "))
		if known[line] {
			matches[line] = true
		}
	}
	return matches
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
