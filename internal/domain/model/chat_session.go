package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTopic is the placeholder topic a session carries until the first
// topic summarization succeeds.
const DefaultTopic = "New Conversation"

// ChatStat aggregates counters over a session's transcript. Counters only
// grow, except when the session is reset.
type ChatStat struct {
	TokenCount int `json:"token_count"`
	WordCount  int `json:"word_count"`
	CharCount  int `json:"char_count"`
}

// ChatSession is one independent conversation thread.
//
// Context holds pinned system-level messages that are always sent ahead of
// the transcript and live independently of it. LastSummarizeIndex marks how
// much of Messages has already been folded into MemoryPrompt; it is always
// within [0, len(Messages)].
type ChatSession struct {
	ID                 string    `json:"id"`
	Topic              string    `json:"topic"`
	SendMemory         bool      `json:"send_memory"`
	MemoryPrompt       string    `json:"memory_prompt"`
	Context            []Message `json:"context"`
	Messages           []Message `json:"messages"`
	Stat               ChatStat  `json:"stat"`
	LastUpdate         time.Time `json:"last_update"`
	LastSummarizeIndex int       `json:"last_summarize_index"`
}

func NewChatSession() *ChatSession {
	return &ChatSession{
		ID:         ulid.Make().String(),
		Topic:      DefaultTopic,
		SendMemory: true,
		Context:    make([]Message, 0),
		Messages:   make([]Message, 0, 8),
		LastUpdate: time.Now(),
	}
}

// Reset clears the transcript and the rolling memory while preserving the
// session's identity, topic and pinned context.
func (s *ChatSession) Reset() {
	s.Messages = s.Messages[:0]
	s.MemoryPrompt = ""
	s.LastSummarizeIndex = 0
	s.Stat = ChatStat{}
	s.LastUpdate = time.Now()
}

// MessageByID returns a pointer into Messages, or nil. Callers must hold the
// session store's lock; the pointer must not outlive it.
func (s *ChatSession) MessageByID(id int64) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i]
		}
	}
	return nil
}

// ClampSummarizeIndex restores the LastSummarizeIndex invariant after any
// structural change to Messages.
func (s *ChatSession) ClampSummarizeIndex() {
	if s.LastSummarizeIndex < 0 {
		s.LastSummarizeIndex = 0
	}
	if s.LastSummarizeIndex > len(s.Messages) {
		s.LastSummarizeIndex = len(s.Messages)
	}
}
