package ai

import (
	"bufio"
	"context"
	"strings"
	"sync"
)

// StreamState is the terminal state of a chat stream. It is only meaningful
// once the chunk channel has closed.
type StreamState int

const (
	// StreamDone means the model finished the completion normally.
	StreamDone StreamState = iota
	// StreamInterrupted means the caller cancelled mid-flight. The partial
	// text is available but must not be presented as a finished reply.
	StreamInterrupted
	// StreamFailed means the provider returned an error.
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamDone:
		return "done"
	case StreamInterrupted:
		return "interrupted"
	case StreamFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stream delivers a completion incrementally. Consume Chunks until it closes,
// then inspect State and Err. Cancelling the context passed to ChatStream
// stops delivery; no chunks arrive after cancellation.
type Stream struct {
	chunks chan string

	mu    sync.Mutex
	state StreamState
	err   error
	text  strings.Builder
	done  bool
}

func newStream() *Stream {
	return &Stream{chunks: make(chan string)}
}

// Chunks returns the channel of incremental text pieces. It closes when the
// stream reaches a terminal state.
func (s *Stream) Chunks() <-chan string {
	return s.chunks
}

// State reports the terminal state. Valid once Chunks has closed.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the provider error for a failed stream, the context error for
// an interrupted one, nil otherwise.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Text returns everything received so far.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// emit delivers one chunk unless the caller has cancelled. Reports whether
// delivery happened.
func (s *Stream) emit(ctx context.Context, chunk string) bool {
	if chunk == "" {
		return true
	}
	select {
	case s.chunks <- chunk:
		s.mu.Lock()
		s.text.WriteString(chunk)
		s.mu.Unlock()
		return true
	case <-ctx.Done():
		return false
	}
}

// finish records the terminal state and closes the chunk channel exactly once.
func (s *Stream) finish(state StreamState, err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.state = state
	s.err = err
	s.mu.Unlock()
	close(s.chunks)
}

// consumeSSE reads server-sent events and feeds each data payload to handle.
// handle returns done=true when the provider signals the end of the
// completion.
func consumeSSE(ctx context.Context, s *Stream, body *bufio.Scanner, handle func(data string) (chunk string, done bool, err error)) {
	for body.Scan() {
		if ctx.Err() != nil {
			s.finish(StreamInterrupted, ctx.Err())
			return
		}

		line := strings.TrimSpace(body.Text())
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		chunk, done, err := handle(data)
		if err != nil {
			s.finish(StreamFailed, err)
			return
		}
		if chunk != "" && !s.emit(ctx, chunk) {
			s.finish(StreamInterrupted, ctx.Err())
			return
		}
		if done {
			s.finish(StreamDone, nil)
			return
		}
	}

	if err := body.Err(); err != nil {
		if ctx.Err() != nil {
			s.finish(StreamInterrupted, ctx.Err())
			return
		}
		s.finish(StreamFailed, err)
		return
	}
	s.finish(StreamDone, nil)
}
