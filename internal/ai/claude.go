package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type claudeProvider struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	baseURL   string
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Stream    bool            `json:"stream,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *claudeProvider) Model() string { return c.model }

func (c *claudeProvider) Summarize(ctx context.Context, title, text string) (string, error) {
	reply, err := c.call(ctx, fmt.Sprintf(summarizePrompt, title, text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (c *claudeProvider) FilterMatches(ctx context.Context, items []FilterItem, rule string) (map[string]bool, error) {
	if len(items) == 0 {
		return map[string]bool{}, nil
	}
	reply, err := c.call(ctx, fmt.Sprintf(filterPrompt, rule, formatFilterItems(items)))
	if err != nil {
		return nil, err
	}
	return parseFilterResponse(reply, items), nil
}

func (c *claudeProvider) ChatStream(ctx context.Context, req ChatRequest) (*Stream, error) {
	payload := claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Stream:    true,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, claudeMessage(m))
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	stream := newStream()
	go func() {
		defer resp.Body.Close()
		consumeSSE(ctx, stream, bufio.NewScanner(resp.Body), func(data string) (string, bool, error) {
			var event claudeStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return "", false, nil // skip unparseable keepalives
			}
			switch event.Type {
			case "content_block_delta":
				return event.Delta.Text, false, nil
			case "message_stop":
				return "", true, nil
			case "error":
				return "", false, fmt.Errorf("claude stream: %s", event.Error.Message)
			default:
				return "", false, nil
			}
		})
	}()
	return stream, nil
}

func (c *claudeProvider) call(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Content) == 0 {
		return "", fmt.Errorf("empty claude response")
	}
	return cr.Content[0].Text, nil
}

func (c *claudeProvider) post(ctx context.Context, payload claudeRequest) (*http.Response, error) {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("claude API %d: %s", resp.StatusCode, string(b))
	}
	return resp, nil
}
