package usecase

import "sync"

// pendingKey identifies one in-flight request: the session it belongs to and
// the assistant message it is streaming into.
type pendingKey struct {
	sessionID string
	messageID int64
}

// PendingRegistry tracks at most one cancellable in-flight request per
// (session, message) pair. The stored handle is an opaque cancellation
// capability supplied by the transport layer.
type PendingRegistry struct {
	mu      sync.Mutex
	pending map[pendingKey]func()
}

func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{pending: make(map[pendingKey]func())}
}

// Register stores cancel for the pair. A prior handle for the same key is
// cancelled before it is overwritten, so a superseding submission never
// leaks an orphaned request.
func (r *PendingRegistry) Register(sessionID string, messageID int64, cancel func()) {
	key := pendingKey{sessionID, messageID}
	r.mu.Lock()
	prev := r.pending[key]
	r.pending[key] = cancel
	r.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Remove erases the association. Called exactly once when a request reaches
// a terminal state; a no-op if the key is absent.
func (r *PendingRegistry) Remove(sessionID string, messageID int64) {
	r.mu.Lock()
	delete(r.pending, pendingKey{sessionID, messageID})
	r.mu.Unlock()
}

// Cancel invokes the handle for the pair, if any, and removes it.
func (r *PendingRegistry) Cancel(sessionID string, messageID int64) {
	key := pendingKey{sessionID, messageID}
	r.mu.Lock()
	cancel := r.pending[key]
	delete(r.pending, key)
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CancelAll cancels every in-flight request. Used for bulk teardown.
func (r *PendingRegistry) CancelAll() {
	r.mu.Lock()
	cancels := make([]func(), 0, len(r.pending))
	for _, c := range r.pending {
		cancels = append(cancels, c)
	}
	r.pending = make(map[pendingKey]func())
	r.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Pending reports whether a request is in flight for the pair.
func (r *PendingRegistry) Pending(sessionID string, messageID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[pendingKey{sessionID, messageID}]
	return ok
}
