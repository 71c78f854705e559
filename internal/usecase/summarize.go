package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/adapter"
	"terminal-ai-chat/internal/infra/logging"
	"terminal-ai-chat/internal/infra/metrics"
)

// Summarize refreshes the session's stat counters and then runs the two
// independent summarization passes: topic labelling and memory compression.
// Both are best-effort; a failure leaves the session's memory state exactly
// as it was.
func (c *ChatUC) Summarize(ctx context.Context, sessionID string) error {
	defer logging.TraceDuration(&c.log, "ChatUC.Summarize")()
	cfg := c.store.Config()
	if err := c.refreshStat(sessionID, cfg); err != nil {
		return err
	}
	c.summarizeTopic(ctx, sessionID, cfg)
	c.compressMemory(ctx, sessionID, cfg)
	return nil
}

// refreshStat recounts tokens, words and characters over the transcript.
// Counting is deliberately decoupled from message arrival so streaming
// writes stay cheap.
func (c *ChatUC) refreshStat(sessionID string, cfg model.ChatConfig) error {
	var stat model.ChatStat
	err := c.store.ReadSession(sessionID, func(s *model.ChatSession) {
		for _, m := range s.Messages {
			if c.tokens != nil {
				stat.TokenCount += c.tokens.Count(cfg.ModelConfig.Model, m.Content)
			}
			stat.WordCount += len(strings.Fields(m.Content))
			stat.CharCount += utf8.RuneCountInString(m.Content)
		}
	})
	if err != nil {
		return err
	}
	metrics.ObserveTranscriptTokens(stat.TokenCount)
	return c.store.UpdateSession(sessionID, func(s *model.ChatSession) {
		s.Stat = stat
	})
}

// summarizeTopic asks the model for a short label once the transcript has
// accumulated enough text, and only while the topic is still the default.
func (c *ChatUC) summarizeTopic(ctx context.Context, sessionID string, cfg model.ChatConfig) {
	var run bool
	var outbound []adapter.Message
	err := c.store.ReadSession(sessionID, func(s *model.ChatSession) {
		if s.Topic != model.DefaultTopic {
			return
		}
		var chars int
		for _, m := range s.Messages {
			chars += utf8.RuneCountInString(m.Content)
		}
		if chars < topicMinChars {
			return
		}
		run = true
		outbound = make([]adapter.Message, 0, len(s.Messages)+1)
		for _, m := range s.Messages {
			outbound = append(outbound, toWire(m))
		}
		outbound = append(outbound, adapter.Message{Role: string(model.RoleUser), Content: topicInstruction})
	})
	if err != nil || !run {
		return
	}

	topic, err := c.complete(ctx, outbound, cfg)
	if err != nil {
		metrics.ObserveSummarize("topic", "error")
		c.log.Warn().Err(err).Str("session_id", sessionID).Msg("topic summarization failed")
		return
	}
	topic = trimTopic(topic)
	if topic == "" {
		return
	}
	metrics.ObserveSummarize("topic", "ok")
	_ = c.store.UpdateSession(sessionID, func(s *model.ChatSession) {
		s.Topic = topic
	})
}

// compressMemory folds the unsummarized tail of the transcript into the
// rolling memory prompt. LastSummarizeIndex only advances when the
// compression stream completes, so a failed run is retried in full next
// time and never loses the last good memory.
func (c *ChatUC) compressMemory(ctx context.Context, sessionID string, cfg model.ChatConfig) {
	var run bool
	var outbound []adapter.Message
	var triggerCount int
	err := c.store.ReadSession(sessionID, func(s *model.ChatSession) {
		if !s.SendMemory {
			return
		}
		tail := s.Messages[s.LastSummarizeIndex:]
		kept := make([]model.Message, 0, len(tail))
		var chars int
		for _, m := range tail {
			if m.IsError {
				continue
			}
			kept = append(kept, m)
			chars += utf8.RuneCountInString(m.Content)
		}
		if chars <= cfg.CompressMessageLengthThreshold {
			return
		}
		// When the tail alone outgrows the token budget, keep only the
		// trailing window; the rest is already represented by the memory.
		if chars > cfg.EffectiveTokenBudget() && cfg.HistoryMessageCount >= 0 && len(kept) > cfg.HistoryMessageCount {
			kept = kept[len(kept)-cfg.HistoryMessageCount:]
		}

		run = true
		triggerCount = len(s.Messages)
		outbound = make([]adapter.Message, 0, len(kept)+2)
		if s.MemoryPrompt != "" {
			outbound = append(outbound, memoryMessage(s.MemoryPrompt))
		}
		for _, m := range kept {
			outbound = append(outbound, toWire(m))
		}
		outbound = append(outbound, adapter.Message{Role: string(model.RoleUser), Content: compressInstruction})
	})
	if err != nil || !run {
		return
	}

	opts := summaryOptions(cfg)
	handle, err := c.ai.Submit(ctx, outbound, opts)
	if err != nil {
		metrics.ObserveSummarize("memory", "error")
		c.log.Warn().Err(err).Str("session_id", sessionID).Msg("memory compression submit failed")
		return
	}

	for {
		chunk, err := handle.Recv(ctx)
		if err != nil {
			metrics.ObserveSummarize("memory", "error")
			c.log.Warn().Err(err).Str("session_id", sessionID).Msg("memory compression failed")
			return
		}
		// The stream overwrites the memory as it goes; only completion
		// advances the summarize watermark.
		final := chunk.Done
		_ = c.store.UpdateSession(sessionID, func(s *model.ChatSession) {
			s.MemoryPrompt = chunk.Content
			if final {
				s.LastSummarizeIndex = triggerCount
			}
		})
		if final {
			metrics.ObserveSummarize("memory", "ok")
			return
		}
	}
}

// complete drains a streaming request to its final text.
func (c *ChatUC) complete(ctx context.Context, messages []adapter.Message, cfg model.ChatConfig) (string, error) {
	handle, err := c.ai.Submit(ctx, messages, summaryOptions(cfg))
	if err != nil {
		return "", err
	}
	var last string
	for {
		chunk, err := handle.Recv(ctx)
		if err != nil {
			return "", err
		}
		last = chunk.Content
		if chunk.Done {
			return last, nil
		}
	}
}

// summaryOptions keeps the user's model but always includes assistant turns;
// a summary without the assistant half of the dialogue is useless.
func summaryOptions(cfg model.ChatConfig) adapter.ChatOptions {
	return adapter.ChatOptions{
		Model:                 cfg.ModelConfig.Model,
		Temperature:           cfg.ModelConfig.Temperature,
		MaxTokens:             cfg.ModelConfig.MaxTokens,
		PresencePenalty:       cfg.ModelConfig.PresencePenalty,
		IncludeAssistantTurns: true,
	}
}

func trimTopic(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’.,!?")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > topicMaxRunes {
		r := []rune(s)
		s = string(r[:topicMaxRunes])
	}
	return s
}
