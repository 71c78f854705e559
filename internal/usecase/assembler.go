package usecase

import (
	"fmt"

	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/adapter"
)

// BuildContext produces the exact ordered message list for the next
// completion request. It is read-only over the session and config; the
// synthesized memory message is never stored back.
//
// Order: optional system-prompt override, the session's pinned context, the
// memory recap (when enabled and non-empty), the fixed few-shot block, then
// the trailing window of real messages with errored exchanges dropped.
// The caller appends the new user message before sending.
func BuildContext(s *model.ChatSession, cfg model.ChatConfig, systemPrompt string) []adapter.Message {
	out := make([]adapter.Message, 0, len(s.Context)+len(fewShotExamples)+len(s.Messages)+2)

	if systemPrompt != "" {
		out = append(out, adapter.Message{Role: string(model.RoleSystem), Content: systemPrompt})
	}

	for _, m := range s.Context {
		out = append(out, toWire(m))
	}

	if s.SendMemory && s.MemoryPrompt != "" {
		out = append(out, memoryMessage(s.MemoryPrompt))
	}

	out = append(out, fewShotExamples...)
	out = append(out, trailingWindow(s.Messages, cfg.HistoryMessageCount)...)
	return out
}

// trailingWindow drops errored messages and keeps the last n of what
// remains. n < 0 keeps everything; n == 0 keeps nothing.
func trailingWindow(messages []model.Message, n int) []adapter.Message {
	filtered := make([]adapter.Message, 0, len(messages))
	for _, m := range messages {
		if m.IsError {
			continue
		}
		filtered = append(filtered, toWire(m))
	}
	if n < 0 || n >= len(filtered) {
		return filtered
	}
	return filtered[len(filtered)-n:]
}

func memoryMessage(memoryPrompt string) adapter.Message {
	return adapter.Message{
		Role:    string(model.RoleSystem),
		Content: fmt.Sprintf(memoryPromptTemplate, memoryPrompt),
	}
}

func toWire(m model.Message) adapter.Message {
	return adapter.Message{Role: string(m.Role), Content: m.Content}
}
