package store

import (
	"encoding/json"
	"fmt"

	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/infra/security"
)

// encode serializes a snapshot to JSON, encrypting when a cipher is set.
func encode(s *model.Snapshot, c *security.Cipher) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if c != nil {
		return c.Encrypt(b)
	}
	return b, nil
}

// decode is the inverse of encode and applies forward migrations, so every
// snapshot handed to callers is at the current version.
func decode(b []byte, c *security.Cipher) (*model.Snapshot, error) {
	if c != nil {
		pt, err := c.Decrypt(b)
		if err != nil {
			return nil, fmt.Errorf("decrypt snapshot: %w", err)
		}
		b = pt
	}
	var s model.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	migrate(&s)
	return &s, nil
}

// migrate upgrades older snapshots in place.
//
// v1 -> v2: sessions gained a pinned-context list and a per-session memory
// toggle. Old sessions get an empty context and memory enabled, which was
// the previous implicit behavior.
func migrate(s *model.Snapshot) {
	if s.Version < 2 {
		for _, sess := range s.Sessions {
			if sess.Context == nil {
				sess.Context = []model.Message{}
			}
			sess.SendMemory = true
		}
	}
	s.Version = model.SnapshotVersion

	// Regardless of version: a message still marked streaming belonged to a
	// request that died with the previous process. Settle it.
	for _, sess := range s.Sessions {
		for i := range sess.Messages {
			if sess.Messages[i].Streaming {
				sess.Messages[i].Streaming = false
				sess.Messages[i].IsError = true
			}
		}
		sess.ClampSummarizeIndex()
	}
	if s.CurrentIndex < 0 {
		s.CurrentIndex = 0
	}
	if n := len(s.Sessions); n > 0 && s.CurrentIndex >= n {
		s.CurrentIndex = n - 1
	}
}
