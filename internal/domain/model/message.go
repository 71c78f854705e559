package model

import (
	"sync/atomic"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. ID is the creation timestamp in
// milliseconds and is the message's identity; it never changes. Content,
// Streaming and IsError are the only fields mutated after creation, and only
// through the session store's updater path.
type Message struct {
	ID        int64  `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	Streaming bool   `json:"streaming,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

const dateLayout = "2006/01/02 15:04:05"

// lastMessageID guarantees IDs stay strictly increasing even when two
// messages are created within the same millisecond (the user message and its
// assistant placeholder always are).
var lastMessageID atomic.Int64

func nextMessageID() int64 {
	now := time.Now().UnixMilli()
	for {
		last := lastMessageID.Load()
		id := now
		if id <= last {
			id = last + 1
		}
		if lastMessageID.CompareAndSwap(last, id) {
			return id
		}
	}
}

func NewMessage(role Role, content string) Message {
	return Message{
		ID:      nextMessageID(),
		Role:    role,
		Content: content,
		Date:    time.Now().Format(dateLayout),
	}
}
