package ai

import (
	"context"
	"sync"
	"time"

	"terminal-ai-chat/internal/domain/ports/adapter"
)

var _ adapter.AIStreamer = (*NoopStreamer)(nil)

// NoopStreamer implements adapter.AIStreamer for local/dev runs without an
// API key. It streams a canned reply in small cumulative slices so the
// terminal rendering path can be exercised end to end.
type NoopStreamer struct {
	reply string
	delay time.Duration
}

func NewNoopStreamer() *NoopStreamer {
	return &NoopStreamer{
		reply: "This is a canned development response. No provider was called.",
		delay: 25 * time.Millisecond,
	}
}

func (n *NoopStreamer) Submit(ctx context.Context, messages []adapter.Message, opts adapter.ChatOptions) (adapter.StreamHandle, error) {
	return &noopStream{
		text:      n.reply,
		step:      8,
		delay:     n.delay,
		cancelled: make(chan struct{}),
	}, nil
}

func (n *NoopStreamer) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (n *NoopStreamer) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{
		Name:        "noop",
		Description: "Canned model for development",
		Supports:    []string{"text", "stream"},
	}, nil
}

type noopStream struct {
	text      string
	pos       int
	step      int
	delay     time.Duration
	cancelled chan struct{}
	once      sync.Once
}

func (s *noopStream) Recv(ctx context.Context) (adapter.StreamChunk, error) {
	if s.pos >= len(s.text) {
		return adapter.StreamChunk{Content: s.text, Done: true}, nil
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return adapter.StreamChunk{}, ctx.Err()
	case <-s.cancelled:
		return adapter.StreamChunk{}, context.Canceled
	}
	s.pos += s.step
	if s.pos > len(s.text) {
		s.pos = len(s.text)
	}
	return adapter.StreamChunk{Content: s.text[:s.pos]}, nil
}

func (s *noopStream) Cancel() {
	s.once.Do(func() { close(s.cancelled) })
}
