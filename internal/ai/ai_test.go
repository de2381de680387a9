package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftrss/drift/internal/config"
)

func TestNew_RequiresKey(t *testing.T) {
	t.Setenv("DRIFT_AI_API_KEY", "")

	_, err := New(config.AIConfig{Provider: "claude"})
	assert.Error(t, err, "missing credential is a precondition failure")

	svc, err := New(config.AIConfig{Provider: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.NotEmpty(t, svc.Model())

	_, err = New(config.AIConfig{Provider: "weird", APIKey: "k"})
	assert.Error(t, err)
}

func TestParseFilterResponse(t *testing.T) {
	items := []FilterItem{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}

	matches := parseFilterResponse("a1\n- a3\nnot-an-id\n", items)
	assert.True(t, matches["a1"])
	assert.False(t, matches["a2"])
	assert.True(t, matches["a3"])
	assert.Len(t, matches, 2)

	assert.Empty(t, parseFilterResponse("NONE", items))
}

func newClaudeTestProvider(serverURL string) *claudeProvider {
	return &claudeProvider{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 64,
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   serverURL,
	}
}

func TestClaudeSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[0].Content, "Some Title")

		fmt.Fprint(w, `{"content":[{"text":"  A tidy summary.  "}]}`)
	}))
	defer server.Close()

	provider := newClaudeTestProvider(server.URL)
	summary, err := provider.Summarize(context.Background(), "Some Title", "body text")
	require.NoError(t, err)
	assert.Equal(t, "A tidy summary.", summary)
}

func TestClaudeChatStream_Completes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_delta\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":" world"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
	}))
	defer server.Close()

	provider := newClaudeTestProvider(server.URL)
	stream, err := provider.ChatStream(context.Background(), ChatRequest{
		System:   "you are helpful",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var got string
	for chunk := range stream.Chunks() {
		got += chunk
	}

	assert.Equal(t, "Hello world", got)
	assert.Equal(t, "Hello world", stream.Text())
	assert.Equal(t, StreamDone, stream.State())
	assert.NoError(t, stream.Err())
}

func TestOpenAIChatStream_Completes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"chunk one"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":", chunk two"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := &openaiProvider{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 64,
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   server.URL,
	}

	stream, err := provider.ChatStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var got string
	for chunk := range stream.Chunks() {
		got += chunk
	}

	assert.Equal(t, "chunk one, chunk two", got)
	assert.Equal(t, StreamDone, stream.State())
}

func TestChatStream_Cancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"first"}}`+"\n\n")
		flusher.Flush()
		// Hold the stream open until the client cancels.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	provider := newClaudeTestProvider(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := provider.ChatStream(ctx, ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	first, ok := <-stream.Chunks()
	require.True(t, ok)
	assert.Equal(t, "first", first)

	cancel()

	// No further chunks after cancellation; the channel must close.
	for range stream.Chunks() {
		t.Error("received chunk after cancellation")
	}

	assert.Equal(t, StreamInterrupted, stream.State())
	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Equal(t, "first", stream.Text(), "partial text remains available")
}

func TestStreamStateString(t *testing.T) {
	assert.Equal(t, "done", StreamDone.String())
	assert.Equal(t, "interrupted", StreamInterrupted.String())
	assert.Equal(t, "failed", StreamFailed.String())
}
