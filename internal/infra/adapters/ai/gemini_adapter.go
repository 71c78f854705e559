package ai

import (
	"context"
	"errors"
	"iter"
	"strings"

	"google.golang.org/genai"

	"terminal-ai-chat/internal/domain/ports/adapter"
)

var _ adapter.AIStreamer = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	models := g.client.Models.All(ctx)
	var out []string
	for m := range models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	if len(out) == 0 && g.defaultModel != "" {
		out = []string{g.defaultModel}
	}
	return out, nil
}

func (g *GeminiAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	ctx := context.Background()
	m, err := g.client.Models.Get(ctx, modelOrDefault(model, g.defaultModel), nil)
	if err != nil {
		// Minimal info on error so callers aren't blocked.
		return adapter.ModelInfo{Name: model}, nil
	}
	return adapter.ModelInfo{
		Name:        m.Name,
		Description: m.Description,
		MaxTokens:   int(m.InputTokenLimit),
		Supports:    m.SupportedActions,
	}, nil
}

func (g *GeminiAdapter) Submit(ctx context.Context, messages []adapter.Message, opts adapter.ChatOptions) (adapter.StreamHandle, error) {
	contents, system := toGenAIContents(messages, opts.IncludeAssistantTurns)
	if len(contents) == 0 {
		return nil, errors.New("gemini: no messages")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	seq := g.client.Models.GenerateContentStream(streamCtx, modelOrDefault(opts.Model, g.defaultModel), contents, cfg)
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop, cancel: cancel}, nil
}

type geminiStream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc
	acc    strings.Builder
	done   bool
}

func (s *geminiStream) Recv(ctx context.Context) (adapter.StreamChunk, error) {
	if s.done {
		return adapter.StreamChunk{Content: s.acc.String(), Done: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return adapter.StreamChunk{}, err
	}
	for {
		resp, err, ok := s.next()
		if !ok {
			s.finish()
			return adapter.StreamChunk{Content: s.acc.String(), Done: true}, nil
		}
		if err != nil {
			s.finish()
			return adapter.StreamChunk{}, wrapGeminiErr(err)
		}
		if t := resp.Text(); t != "" {
			s.acc.WriteString(t)
			return adapter.StreamChunk{Content: s.acc.String()}, nil
		}
	}
}

// Cancel only cancels the request context. The pull iterator is stopped
// from the Recv side once the producer terminates; iter.Pull2 forbids
// calling next and stop concurrently.
func (s *geminiStream) Cancel() { s.cancel() }

func (s *geminiStream) finish() {
	s.done = true
	s.stop()
}

// toGenAIContents maps the wire messages to Gemini contents. Gemini has no
// system role in history, so system messages are lifted out and returned
// separately for the SystemInstruction config field.
func toGenAIContents(msgs []adapter.Message, keepAssistant bool) ([]*genai.Content, string) {
	out := make([]*genai.Content, 0, len(msgs))
	var system []string
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			system = append(system, m.Content)
		case "assistant", "model":
			if keepAssistant {
				out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
			}
		default:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return out, strings.Join(system, "\n\n")
}

func wrapGeminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &adapter.StatusError{Code: apiErr.Code, Err: err}
	}
	return err
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
