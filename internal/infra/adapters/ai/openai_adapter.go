package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"terminal-ai-chat/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIStreamer = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIStreamer on the official SDK's
// streaming Chat Completions API. A non-empty baseURL points it at any
// OpenAI-compatible gateway.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

func NewOpenAIAdapter(apiKey, baseURL, defaultModel string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...), defaultModel: defaultModel}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.defaultModel}, nil
}

func (o *OpenAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	if model == "" {
		model = o.defaultModel
	}
	return adapter.ModelInfo{
		Name:        model,
		Description: "OpenAI Chat Completions model",
		Supports:    []string{"text", "stream"},
	}, nil
}

func (o *OpenAIAdapter) Submit(ctx context.Context, messages []adapter.Message, opts adapter.ChatOptions) (adapter.StreamHandle, error) {
	outbound := toOpenAIMessages(messages, opts.IncludeAssistantTurns)
	if len(outbound) == 0 {
		return nil, errors.New("openai: no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:           openai.ChatModel(modelOrDefault(opts.Model, o.defaultModel)),
		Messages:        outbound,
		Temperature:     openai.Float(opts.Temperature),
		PresencePenalty: openai.Float(opts.PresencePenalty),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream := o.client.Chat.Completions.NewStreaming(streamCtx, params)
	if err := stream.Err(); err != nil {
		cancel()
		return nil, wrapOpenAIErr(err)
	}
	return &openaiStream{stream: stream, cancel: cancel}, nil
}

type openaiStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	cancel context.CancelFunc
	acc    strings.Builder
	done   bool
}

func (s *openaiStream) Recv(ctx context.Context) (adapter.StreamChunk, error) {
	if s.done {
		return adapter.StreamChunk{Content: s.acc.String(), Done: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return adapter.StreamChunk{}, err
	}
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			s.acc.WriteString(choice.Delta.Content)
			return adapter.StreamChunk{Content: s.acc.String()}, nil
		}
		if choice.FinishReason != "" {
			s.done = true
			return adapter.StreamChunk{Content: s.acc.String(), Done: true}, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		s.done = true
		return adapter.StreamChunk{}, wrapOpenAIErr(err)
	}
	s.done = true
	return adapter.StreamChunk{Content: s.acc.String(), Done: true}, nil
}

func (s *openaiStream) Cancel() { s.cancel() }

func toOpenAIMessages(msgs []adapter.Message, keepAssistant bool) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			if keepAssistant {
				out = append(out, openai.AssistantMessage(m.Content))
			}
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func wrapOpenAIErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &adapter.StatusError{Code: apiErr.StatusCode, Err: err}
	}
	return err
}
