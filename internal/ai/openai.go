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

type openaiProvider struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	baseURL   string
}

type openaiRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_completion_tokens,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (o *openaiProvider) Model() string { return o.model }

func (o *openaiProvider) Summarize(ctx context.Context, title, text string) (string, error) {
	reply, err := o.call(ctx, fmt.Sprintf(summarizePrompt, title, text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (o *openaiProvider) FilterMatches(ctx context.Context, items []FilterItem, rule string) (map[string]bool, error) {
	if len(items) == 0 {
		return map[string]bool{}, nil
	}
	reply, err := o.call(ctx, fmt.Sprintf(filterPrompt, rule, formatFilterItems(items)))
	if err != nil {
		return nil, err
	}
	return parseFilterResponse(reply, items), nil
}

func (o *openaiProvider) ChatStream(ctx context.Context, req ChatRequest) (*Stream, error) {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	resp, err := o.post(ctx, openaiRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  messages,
		Stream:    true,
	})
	if err != nil {
		return nil, err
	}

	stream := newStream()
	go func() {
		defer resp.Body.Close()
		consumeSSE(ctx, stream, bufio.NewScanner(resp.Body), func(data string) (string, bool, error) {
			if data == "[DONE]" {
				return "", true, nil
			}
			var chunk openaiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return "", false, nil
			}
			if len(chunk.Choices) == 0 {
				return "", false, nil
			}
			return chunk.Choices[0].Delta.Content, false, nil
		})
	}()
	return stream, nil
}

func (o *openaiProvider) call(ctx context.Context, prompt string) (string, error) {
	resp, err := o.post(ctx, openaiRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var or openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", err
	}
	if len(or.Choices) == 0 {
		return "", fmt.Errorf("empty openai response")
	}
	return or.Choices[0].Message.Content, nil
}

func (o *openaiProvider) post(ctx context.Context, payload openaiRequest) (*http.Response, error) {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("openai API %d: %s", resp.StatusCode, string(b))
	}
	return resp, nil
}
