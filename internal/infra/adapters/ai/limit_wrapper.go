package ai

import (
	"context"
	"sync"

	"terminal-ai-chat/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIStreamer = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.AIStreamer
	sem   chan struct{}
}

// NewLimitedAI caps the number of in-flight completion streams. A slot is
// held from Submit until the stream's terminal event or an error.
func NewLimitedAI(inner adapter.AIStreamer, maxConcurrent int) adapter.AIStreamer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Submit(ctx context.Context, messages []adapter.Message, opts adapter.ChatOptions) (adapter.StreamHandle, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	h, err := l.inner.Submit(ctx, messages, opts)
	if err != nil {
		<-l.sem
		return nil, err
	}
	lh := &limitedHandle{inner: h}
	lh.release = func() { <-l.sem }
	return lh, nil
}

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return l.inner.GetModelInfo(model)
}

type limitedHandle struct {
	inner   adapter.StreamHandle
	release func()
	once    sync.Once
}

func (h *limitedHandle) Recv(ctx context.Context) (adapter.StreamChunk, error) {
	chunk, err := h.inner.Recv(ctx)
	if err != nil || chunk.Done {
		h.once.Do(h.release)
	}
	return chunk, err
}

func (h *limitedHandle) Cancel() {
	h.inner.Cancel()
	h.once.Do(h.release)
}
