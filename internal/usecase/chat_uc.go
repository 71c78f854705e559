package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/adapter"
	"terminal-ai-chat/internal/infra/logging"
	"terminal-ai-chat/internal/infra/metrics"
)

// Runner executes background jobs off the request path. The worker pool
// satisfies it; a nil Runner disables background summarization.
type Runner interface {
	Submit(task func(ctx context.Context) error) error
}

// ChatUC drives the lifecycle of one outbound completion request:
// Pending -> Streaming -> {Completed, Errored, Cancelled}. It never holds a
// live reference to a message across suspension points; every mutation
// re-resolves the target through the session store by (sessionID, messageID).
type ChatUC struct {
	store        *SessionStore
	ai           adapter.AIStreamer
	tokens       adapter.TokenCounter
	registry     *PendingRegistry
	runner       Runner
	systemPrompt string
	log          zerolog.Logger
}

func NewChatUC(store *SessionStore, ai adapter.AIStreamer, tokens adapter.TokenCounter, registry *PendingRegistry, runner Runner, systemPrompt string, logger *zerolog.Logger) *ChatUC {
	return &ChatUC{
		store:        store,
		ai:           ai,
		tokens:       tokens,
		registry:     registry,
		runner:       runner,
		systemPrompt: systemPrompt,
		log:          logger.With().Str("component", "ChatUC").Logger(),
	}
}

// SendMessage appends the user turn plus a streaming assistant placeholder
// to the current session and dispatches the completion request. It returns
// the placeholder's message ID; streaming continues in the background.
func (c *ChatUC) SendMessage(ctx context.Context, text string) (int64, error) {
	defer logging.TraceDuration(&c.log, "ChatUC.SendMessage")()
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, domain.ErrInvalidArgument
	}

	cfg := c.store.Config()
	userMsg := model.NewMessage(model.RoleUser, text)
	asstMsg := model.NewMessage(model.RoleAssistant, "")
	asstMsg.Streaming = true

	var sessionID string
	var outbound []adapter.Message
	c.store.UpdateCurrentSession(func(s *model.ChatSession) {
		sessionID = s.ID
		outbound = BuildContext(s, cfg, c.systemPrompt)
		outbound = append(outbound, toWire(userMsg))
		s.Messages = append(s.Messages, userMsg, asstMsg)
		s.LastUpdate = time.Now()
	})

	opts := adapter.ChatOptions{
		Model:                 cfg.ModelConfig.Model,
		Temperature:           cfg.ModelConfig.Temperature,
		MaxTokens:             cfg.ModelConfig.MaxTokens,
		PresencePenalty:       cfg.ModelConfig.PresencePenalty,
		IncludeAssistantTurns: cfg.SendBotMessages,
	}

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithSessionID(ctx, sessionID)
	log := logging.With(ctx, &c.log).With().Int64("message_id", asstMsg.ID).Logger()

	reqCtx, cancelCtx := context.WithCancel(ctx)
	handle, err := c.ai.Submit(reqCtx, outbound, opts)
	if err != nil {
		cancelCtx()
		c.finishErrored(sessionID, userMsg.ID, asstMsg.ID, err, &log)
		metrics.ObserveChatRequest(opts.Model, "submit_error", 0)
		return asstMsg.ID, err
	}

	c.registry.Register(sessionID, asstMsg.ID, func() {
		handle.Cancel()
		cancelCtx()
	})

	go c.consume(reqCtx, cancelCtx, handle, sessionID, userMsg.ID, asstMsg.ID, opts, &log)
	return asstMsg.ID, nil
}

// StopGenerating cancels the in-flight request for the pair and marks the
// assistant message terminal. The transport may never deliver another event
// after cancellation, so the stopping side owns the terminal state.
func (c *ChatUC) StopGenerating(sessionID string, messageID int64) {
	c.registry.Cancel(sessionID, messageID)
	_ = c.store.UpdateMessage(sessionID, messageID, func(m *model.Message) {
		if m.Streaming {
			m.Streaming = false
			m.IsError = true
			m.Content += cancelNotice
		}
	})
}

// StopAll cancels every in-flight request; each consumer goroutine settles
// its own message on the way out.
func (c *ChatUC) StopAll() {
	c.registry.CancelAll()
}

func (c *ChatUC) consume(reqCtx context.Context, cancelCtx context.CancelFunc, handle adapter.StreamHandle, sessionID string, userID, asstID int64, opts adapter.ChatOptions, log *zerolog.Logger) {
	defer cancelCtx()
	start := time.Now()

	for {
		chunk, err := handle.Recv(reqCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) || reqCtx.Err() != nil {
				c.finishCancelled(sessionID, asstID)
				metrics.ObserveChatRequest(opts.Model, "cancelled", time.Since(start).Milliseconds())
				log.Info().Msg("stream cancelled")
			} else {
				c.finishErrored(sessionID, userID, asstID, err, log)
				metrics.ObserveChatRequest(opts.Model, "error", time.Since(start).Milliseconds())
			}
			return
		}

		if chunk.Done {
			c.finishCompleted(sessionID, asstID, chunk.Content)
			metrics.ObserveChatRequest(opts.Model, "ok", time.Since(start).Milliseconds())
			log.Info().Int("chars", len(chunk.Content)).Msg("stream completed")
			if c.runner != nil {
				_ = c.runner.Submit(func(ctx context.Context) error {
					return c.Summarize(ctx, sessionID)
				})
			}
			return
		}

		// Each chunk carries the cumulative text; last write wins.
		metrics.IncStreamChunks(opts.Model)
		_ = c.store.UpdateMessage(sessionID, asstID, func(m *model.Message) {
			m.Content = chunk.Content
		})
	}
}

func (c *ChatUC) finishCompleted(sessionID string, asstID int64, final string) {
	c.registry.Remove(sessionID, asstID)
	_ = c.store.UpdateMessage(sessionID, asstID, func(m *model.Message) {
		m.Content = final
		m.Streaming = false
	})
	_ = c.store.UpdateSession(sessionID, func(s *model.ChatSession) {
		s.LastUpdate = time.Now()
	})
}

func (c *ChatUC) finishErrored(sessionID string, userID, asstID int64, cause error, log *zerolog.Logger) {
	c.registry.Remove(sessionID, asstID)
	code := adapter.StatusCodeOf(cause)
	_ = c.store.UpdateMessage(sessionID, asstID, func(m *model.Message) {
		if code == 401 {
			m.Content = unauthorizedNotice
		} else {
			m.Content += errorSuffix
		}
		m.Streaming = false
		m.IsError = true
	})
	_ = c.store.UpdateMessage(sessionID, userID, func(m *model.Message) {
		m.IsError = true
	})
	log.Error().Err(cause).Int("status", code).Msg("stream failed")
}

func (c *ChatUC) finishCancelled(sessionID string, asstID int64) {
	c.registry.Remove(sessionID, asstID)
	_ = c.store.UpdateMessage(sessionID, asstID, func(m *model.Message) {
		if m.Streaming {
			m.Streaming = false
			m.IsError = true
			m.Content += cancelNotice
		}
	})
}
