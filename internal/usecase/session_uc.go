package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/repository"
	"terminal-ai-chat/internal/infra/metrics"
)

// ChangeEvent announces a mutation to observers (the REPL, the debug
// server). MessageID is zero for structural changes.
type ChangeEvent struct {
	SessionID string
	MessageID int64
}

// SessionSummary is the read-only view exposed over the debug API.
type SessionSummary struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	MessageCount int       `json:"message_count"`
	LastUpdate   time.Time `json:"last_update"`
	Current      bool      `json:"current"`
}

// restoreWindow bounds how long a deleted session can be brought back.
const restoreWindow = 10 * time.Second

type removedSession struct {
	session     *model.ChatSession
	index       int
	prevCurrent int
	wasSole     bool
	at          time.Time
}

// SessionStore is the exclusive owner of the session collection, the
// current-index pointer and the chat config. Every structural mutation goes
// through it and is persisted through the snapshot store; message content is
// only mutated via the updater callbacks, which re-resolve the target by ID
// so that in-flight streaming handlers and observers always see the same
// message instance.
type SessionStore struct {
	mu       sync.Mutex
	sessions []*model.ChatSession
	current  int
	config   model.ChatConfig
	repo     repository.SnapshotStore
	log      zerolog.Logger
	onChange func(ChangeEvent)
	removed  *removedSession
	dirty    bool
	now      func() time.Time
}

// NewSessionStore loads the persisted snapshot, or starts fresh with one
// empty session when none exists. A nil repo disables persistence. The
// defaults seed the chat config on first run; a persisted config wins.
func NewSessionStore(ctx context.Context, repo repository.SnapshotStore, defaults model.ChatConfig, logger *zerolog.Logger) *SessionStore {
	defaults.Normalize()
	s := &SessionStore{
		repo:   repo,
		log:    logger.With().Str("component", "SessionStore").Logger(),
		config: defaults,
		now:    time.Now,
	}

	if repo != nil {
		snap, err := repo.Load(ctx)
		switch {
		case err == nil:
			s.sessions = snap.Sessions
			s.current = snap.CurrentIndex
			s.config = snap.Config
			s.config.Normalize()
		case err == domain.ErrNotFound:
			// first run
		default:
			s.log.Warn().Err(err).Msg("snapshot load failed, starting fresh")
		}
	}
	if len(s.sessions) == 0 {
		s.sessions = []*model.ChatSession{model.NewChatSession()}
		s.current = 0
	}
	s.clampCurrentLocked()
	return s
}

// SetOnChange registers the single observer callback. It is invoked outside
// the store lock, so it may call back into the store.
func (s *SessionStore) SetOnChange(fn func(ChangeEvent)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// NewSession inserts a fresh empty session at the front and selects it.
func (s *SessionStore) NewSession() *model.ChatSession {
	s.mu.Lock()
	sess := model.NewChatSession()
	s.sessions = append([]*model.ChatSession{sess}, s.sessions...)
	s.current = 0
	s.persistLocked()
	ev := ChangeEvent{SessionID: sess.ID}
	s.mu.Unlock()
	s.emit(ev)
	return sess
}

// SelectSession sets the current index. Out-of-range values are tolerated
// and clamped on the next read.
func (s *SessionStore) SelectSession(index int) {
	s.mu.Lock()
	s.current = index
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
}

// RemoveSession removes the session at index. The collection is never left
// empty: removing the only session replaces it with a fresh one.
func (s *SessionStore) RemoveSession(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.sessions) {
		s.mu.Unlock()
		return
	}
	if len(s.sessions) == 1 {
		s.sessions = []*model.ChatSession{model.NewChatSession()}
		s.current = 0
	} else {
		s.sessions = append(s.sessions[:index], s.sessions[index+1:]...)
		if s.current == index {
			s.current--
		}
		s.clampCurrentLocked()
	}
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
}

// MoveSession relocates one session and recomputes the current index so it
// keeps pointing at the same logical session.
func (s *SessionStore) MoveSession(from, to int) {
	s.mu.Lock()
	n := len(s.sessions)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		s.mu.Unlock()
		return
	}
	sess := s.sessions[from]
	s.sessions = append(s.sessions[:from], s.sessions[from+1:]...)
	rest := append([]*model.ChatSession{}, s.sessions[to:]...)
	s.sessions = append(s.sessions[:to], append([]*model.ChatSession{sess}, rest...)...)

	switch {
	case s.current == from:
		s.current = to
	case from < s.current && s.current <= to:
		s.current--
	case to <= s.current && s.current < from:
		s.current++
	}
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
}

// DeleteCurrentSession removes the current session and arms the revert
// affordance. The removed session object is kept verbatim so RestoreSession
// can re-insert it at its original position.
func (s *SessionStore) DeleteCurrentSession() {
	s.mu.Lock()
	index := s.clampCurrentLocked()
	stash := &removedSession{
		session:     s.sessions[index],
		index:       index,
		prevCurrent: s.current,
		wasSole:     len(s.sessions) == 1,
		at:          s.now(),
	}
	if len(s.sessions) == 1 {
		s.sessions = []*model.ChatSession{model.NewChatSession()}
		s.current = 0
	} else {
		s.sessions = append(s.sessions[:index], s.sessions[index+1:]...)
		if s.current == index {
			s.current--
		}
		s.clampCurrentLocked()
	}
	s.removed = stash
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
}

// RestoreSession undoes the last DeleteCurrentSession. It fails once the
// window has elapsed or another removal has superseded the stash.
func (s *SessionStore) RestoreSession() error {
	s.mu.Lock()
	stash := s.removed
	if stash == nil {
		s.mu.Unlock()
		return domain.ErrNothingToRevert
	}
	s.removed = nil
	if s.now().Sub(stash.at) > restoreWindow {
		s.mu.Unlock()
		return domain.ErrRevertExpired
	}

	index := stash.index
	if index > len(s.sessions) {
		index = len(s.sessions)
	}
	// Deleting the sole session swapped in a fresh empty one; restoring puts
	// the original back in its place rather than next to it.
	if stash.wasSole && len(s.sessions) == 1 {
		s.sessions[0] = stash.session
	} else {
		rest := append([]*model.ChatSession{}, s.sessions[index:]...)
		s.sessions = append(s.sessions[:index], append([]*model.ChatSession{stash.session}, rest...)...)
	}
	s.current = stash.prevCurrent
	s.clampCurrentLocked()
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
	return nil
}

// CurrentSession clamps the current index into range, persists the clamped
// value if it changed, and returns the session it points at.
func (s *SessionStore) CurrentSession() *model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.current
	s.clampCurrentLocked()
	if s.current != before {
		s.persistLocked()
	}
	return s.sessions[s.current]
}

func (s *SessionStore) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clampCurrentLocked()
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionByID resolves a session by identity, independent of its position.
func (s *SessionStore) SessionByID(id string) *model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// UpdateCurrentSession applies an in-place mutation to the current session,
// then persists. This is the sanctioned mutation path for session content.
func (s *SessionStore) UpdateCurrentSession(fn func(*model.ChatSession)) {
	s.mu.Lock()
	s.clampCurrentLocked()
	sess := s.sessions[s.current]
	fn(sess)
	sess.ClampSummarizeIndex()
	s.persistLocked()
	ev := ChangeEvent{SessionID: sess.ID}
	s.mu.Unlock()
	s.emit(ev)
}

// UpdateSession is UpdateCurrentSession addressed by session identity, for
// callers (streaming handlers, the summarizer) that must keep writing to a
// session even after the user switched or reordered sessions.
func (s *SessionStore) UpdateSession(sessionID string, fn func(*model.ChatSession)) error {
	s.mu.Lock()
	sess := s.sessionByIDLocked(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return domain.ErrNoSession
	}
	fn(sess)
	sess.ClampSummarizeIndex()
	s.persistLocked()
	ev := ChangeEvent{SessionID: sessionID}
	s.mu.Unlock()
	s.emit(ev)
	return nil
}

// ReadSession runs fn with the session resolved by identity, under the
// store lock, without persisting or notifying. fn must not mutate.
func (s *SessionStore) ReadSession(sessionID string, fn func(*model.ChatSession)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionByIDLocked(sessionID)
	if sess == nil {
		return domain.ErrNoSession
	}
	fn(sess)
	return nil
}

// UpdateMessage re-resolves one message by identity and applies fn to it.
// Streaming handlers hold only (sessionID, messageID) and route every write
// through here, so the stored message and the one observers render are
// always the same instance. Message writes arrive once per stream chunk, so
// they only mark the snapshot dirty; the autosave flush or the next
// structural mutation writes them out.
func (s *SessionStore) UpdateMessage(sessionID string, messageID int64, fn func(*model.Message)) error {
	s.mu.Lock()
	sess := s.sessionByIDLocked(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return domain.ErrNoSession
	}
	msg := sess.MessageByID(messageID)
	if msg == nil {
		s.mu.Unlock()
		return domain.ErrNoMessage
	}
	fn(msg)
	s.dirty = true
	ev := ChangeEvent{SessionID: sessionID, MessageID: messageID}
	s.mu.Unlock()
	s.emit(ev)
	return nil
}

// ResetSession clears the transcript and memory of the current session,
// preserving everything else.
func (s *SessionStore) ResetSession() {
	s.UpdateCurrentSession(func(sess *model.ChatSession) {
		sess.Reset()
	})
}

// Config returns a copy of the global chat config.
func (s *SessionStore) Config() model.ChatConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// UpdateConfig applies fn and re-normalizes: numeric fields are clamped to
// their documented bounds and the model name is checked against the
// whitelist, falling back to the default model.
func (s *SessionStore) UpdateConfig(fn func(*model.ChatConfig)) {
	s.mu.Lock()
	fn(&s.config)
	s.config.Normalize()
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
}

func (s *SessionStore) ResetConfig() {
	s.mu.Lock()
	s.config = model.DefaultChatConfig()
	s.persistLocked()
	s.mu.Unlock()
	s.emit(ChangeEvent{})
}

// Summaries lists the collection for the debug API.
func (s *SessionStore) Summaries() []SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.clampCurrentLocked()
	out := make([]SessionSummary, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = SessionSummary{
			ID:           sess.ID,
			Topic:        sess.Topic,
			MessageCount: len(sess.Messages),
			LastUpdate:   sess.LastUpdate,
			Current:      i == cur,
		}
	}
	return out
}

// Flush persists the snapshot immediately, picking up any message content
// written since the last structural save. Used by the autosave worker and
// at shutdown.
func (s *SessionStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.dirty = false
	s.mu.Unlock()
	if s.repo == nil {
		return nil
	}
	return s.repo.Save(ctx, snap)
}

// Dirty reports whether message content has changed since the last save.
func (s *SessionStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// --- internal ---

func (s *SessionStore) sessionByIDLocked(id string) *model.ChatSession {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

func (s *SessionStore) clampCurrentLocked() int {
	if s.current < 0 {
		s.current = 0
	}
	if s.current > len(s.sessions)-1 {
		s.current = len(s.sessions) - 1
	}
	return s.current
}

// snapshotLocked deep-copies the collection so the snapshot can be
// marshalled after the store lock is released without racing live sessions.
func (s *SessionStore) snapshotLocked() *model.Snapshot {
	sessions := make([]*model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		c := *sess
		c.Context = append([]model.Message(nil), sess.Context...)
		c.Messages = append([]model.Message(nil), sess.Messages...)
		sessions[i] = &c
	}
	return &model.Snapshot{
		Version:      model.SnapshotVersion,
		Sessions:     sessions,
		CurrentIndex: s.current,
		Config:       s.config,
	}
}

// persistLocked writes the snapshot out for structural mutations. Per-chunk
// message writes never come through here; they are batched via the dirty
// flag and flushed by the autosave worker.
func (s *SessionStore) persistLocked() {
	metrics.SetSessionCount(len(s.sessions))
	if s.repo == nil {
		return
	}
	snap := s.snapshotLocked()
	s.dirty = false
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Save(ctx, snap); err != nil {
		s.log.Error().Err(err).Msg("snapshot save failed")
	}
}

func (s *SessionStore) emit(ev ChangeEvent) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}
