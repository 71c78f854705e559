package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"terminal-ai-chat/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*Tiktoken)(nil)

// Tiktoken counts tokens with the BPE tables bundled by tiktoken-go.
// Encoders are built lazily and cached per model name; unknown models fall
// back to cl100k_base, and when even that fails a bytes/4 estimate is used
// so stat upkeep never blocks on tokenizer data.
type Tiktoken struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func NewTiktoken() *Tiktoken {
	return &Tiktoken{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (t *Tiktoken) Count(model, text string) int {
	if text == "" {
		return 0
	}
	enc := t.encoder(model)
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *Tiktoken) encoder(model string) *tiktoken.Tiktoken {
	t.mu.Lock()
	defer t.mu.Unlock()
	if enc, ok := t.cache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	t.cache[model] = enc
	return enc
}
