package usecase

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	nop := zerolog.Nop()
	return NewSessionStore(context.Background(), nil, model.DefaultChatConfig(), &nop)
}

func TestStoreStartsWithOneSession(t *testing.T) {
	s := newTestStore(t)
	if s.Len() != 1 {
		t.Fatalf("fresh store has %d sessions, want 1", s.Len())
	}
	cur := s.CurrentSession()
	if cur.Topic != model.DefaultTopic || len(cur.Messages) != 0 {
		t.Fatalf("fresh session = %+v, want empty default", cur)
	}
}

func TestRemoveSoleSessionYieldsFreshOne(t *testing.T) {
	s := newTestStore(t)
	old := s.CurrentSession()
	s.UpdateCurrentSession(func(sess *model.ChatSession) {
		sess.Messages = append(sess.Messages, model.NewMessage(model.RoleUser, "hello"))
	})

	s.RemoveSession(0)

	if s.Len() != 1 {
		t.Fatalf("store has %d sessions, want 1", s.Len())
	}
	cur := s.CurrentSession()
	if cur.ID == old.ID {
		t.Fatal("removing the sole session must replace it, not keep it")
	}
	if len(cur.Messages) != 0 {
		t.Fatalf("replacement session has %d messages, want 0", len(cur.Messages))
	}
}

func TestRemoveNonCurrentKeepsSelection(t *testing.T) {
	s := newTestStore(t)
	s.NewSession()
	s.NewSession() // three sessions, current = 0
	cur := s.CurrentSession()

	s.RemoveSession(2)

	if s.Len() != 2 {
		t.Fatalf("store has %d sessions, want 2", s.Len())
	}
	if got := s.CurrentSession(); got.ID != cur.ID {
		t.Fatal("removing another session must not change the current one")
	}
}

func TestMoveSessionPreservesCurrentIdentity(t *testing.T) {
	s := newTestStore(t)
	s.NewSession()
	s.NewSession()
	s.NewSession() // four sessions

	s.SelectSession(2)
	want := s.CurrentSession().ID

	s.MoveSession(2, 0)
	if got := s.CurrentSession().ID; got != want {
		t.Fatalf("current session changed identity after move: %s != %s", got, want)
	}
	if idx := s.CurrentIndex(); idx != 0 {
		t.Fatalf("current index = %d, want 0", idx)
	}

	// moving a different session shifts the pointer but not the identity
	s.MoveSession(3, 0)
	if got := s.CurrentSession().ID; got != want {
		t.Fatalf("current session changed identity after foreign move: %s != %s", got, want)
	}
}

func TestDeleteThenRestore(t *testing.T) {
	s := newTestStore(t)
	s.NewSession()
	s.NewSession()
	s.SelectSession(1)
	want := s.CurrentSession().ID

	s.DeleteCurrentSession()
	if s.SessionByID(want) != nil {
		t.Fatal("deleted session still resolvable")
	}

	if err := s.RestoreSession(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := s.CurrentSession().ID; got != want {
		t.Fatalf("restored current = %s, want %s", got, want)
	}
	if s.Len() != 3 {
		t.Fatalf("store has %d sessions after restore, want 3", s.Len())
	}
}

func TestRestoreSoleSessionReplacesPlaceholder(t *testing.T) {
	s := newTestStore(t)
	want := s.CurrentSession().ID
	s.UpdateCurrentSession(func(sess *model.ChatSession) {
		sess.Messages = append(sess.Messages, model.NewMessage(model.RoleUser, "keep me"))
	})

	s.DeleteCurrentSession()
	if err := s.RestoreSession(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("store has %d sessions, want 1", s.Len())
	}
	cur := s.CurrentSession()
	if cur.ID != want || len(cur.Messages) != 1 {
		t.Fatalf("restore must put the original back in place of the placeholder, got %+v", cur)
	}
}

func TestRestoreWindowExpiry(t *testing.T) {
	s := newTestStore(t)
	s.NewSession()

	now := time.Now()
	s.now = func() time.Time { return now }
	s.DeleteCurrentSession()

	s.now = func() time.Time { return now.Add(restoreWindow + time.Second) }
	if err := s.RestoreSession(); err != domain.ErrRevertExpired {
		t.Fatalf("err = %v, want ErrRevertExpired", err)
	}
	// the stash is consumed either way
	if err := s.RestoreSession(); err != domain.ErrNothingToRevert {
		t.Fatalf("err = %v, want ErrNothingToRevert", err)
	}
}

func TestRestoreWithoutDelete(t *testing.T) {
	s := newTestStore(t)
	if err := s.RestoreSession(); err != domain.ErrNothingToRevert {
		t.Fatalf("err = %v, want ErrNothingToRevert", err)
	}
}

func TestSelectOutOfRangeClamps(t *testing.T) {
	s := newTestStore(t)
	s.NewSession()
	s.NewSession()

	s.SelectSession(99)
	if idx := s.CurrentIndex(); idx != s.Len()-1 {
		t.Fatalf("index = %d, want clamp to %d", idx, s.Len()-1)
	}
	s.SelectSession(-5)
	if idx := s.CurrentIndex(); idx != 0 {
		t.Fatalf("index = %d, want clamp to 0", idx)
	}
}

func TestUpdateConfigNormalizes(t *testing.T) {
	s := newTestStore(t)
	s.UpdateConfig(func(c *model.ChatConfig) {
		c.ModelConfig.Temperature = -5
		c.ModelConfig.Model = "not-a-model"
	})
	cfg := s.Config()
	if cfg.ModelConfig.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", cfg.ModelConfig.Temperature)
	}
	if cfg.ModelConfig.Model != model.DefaultModel {
		t.Fatalf("model = %q, want fallback %q", cfg.ModelConfig.Model, model.DefaultModel)
	}

	s.UpdateConfig(func(c *model.ChatConfig) {
		c.ModelConfig.Temperature = math.NaN()
	})
	if got := s.Config().ModelConfig.Temperature; got != model.DefaultTemperature {
		t.Fatalf("NaN temperature = %v, want default %v", got, model.DefaultTemperature)
	}
}

func TestResetSessionClearsTranscript(t *testing.T) {
	s := newTestStore(t)
	s.UpdateCurrentSession(func(sess *model.ChatSession) {
		sess.Messages = append(sess.Messages, model.NewMessage(model.RoleUser, "hi"))
		sess.MemoryPrompt = "something"
		sess.LastSummarizeIndex = 1
	})
	want := s.CurrentSession().ID

	s.ResetSession()

	cur := s.CurrentSession()
	if cur.ID != want {
		t.Fatal("reset must keep the session identity")
	}
	if len(cur.Messages) != 0 || cur.MemoryPrompt != "" || cur.LastSummarizeIndex != 0 {
		t.Fatalf("reset left residue: %+v", cur)
	}
}

func TestUpdateMessageUnknownTargets(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateMessage("nope", 1, func(m *model.Message) {}); err != domain.ErrNoSession {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
	id := s.CurrentSession().ID
	if err := s.UpdateMessage(id, 12345, func(m *model.Message) {}); err != domain.ErrNoMessage {
		t.Fatalf("err = %v, want ErrNoMessage", err)
	}
}

type countingSnapshotStore struct {
	mu    sync.Mutex
	saves int
	last  *model.Snapshot
}

func (c *countingSnapshotStore) Load(ctx context.Context) (*model.Snapshot, error) {
	return nil, domain.ErrNotFound
}

func (c *countingSnapshotStore) Save(ctx context.Context, snap *model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.last = snap
	return nil
}

func (c *countingSnapshotStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func TestMessageWritesBatchUntilFlush(t *testing.T) {
	repo := &countingSnapshotStore{}
	nop := zerolog.Nop()
	s := NewSessionStore(context.Background(), repo, model.DefaultChatConfig(), &nop)

	var msgID int64
	s.UpdateCurrentSession(func(sess *model.ChatSession) {
		m := model.NewMessage(model.RoleAssistant, "")
		m.Streaming = true
		sess.Messages = append(sess.Messages, m)
		msgID = m.ID
	})
	structural := repo.count()
	if structural == 0 {
		t.Fatal("structural mutation must persist synchronously")
	}

	sessID := s.CurrentSession().ID
	for i := 0; i < 25; i++ {
		if err := s.UpdateMessage(sessID, msgID, func(m *model.Message) {
			m.Content += "x"
		}); err != nil {
			t.Fatalf("UpdateMessage: %v", err)
		}
	}
	if got := repo.count(); got != structural {
		t.Fatalf("message writes triggered %d saves, want 0", got-structural)
	}
	if !s.Dirty() {
		t.Fatal("store must be dirty after unsaved message writes")
	}

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := repo.count(); got != structural+1 {
		t.Fatalf("flush performed %d saves, want 1", got-structural)
	}
	if s.Dirty() {
		t.Fatal("flush must clear the dirty flag")
	}

	repo.mu.Lock()
	saved := repo.last.Sessions[0].MessageByID(msgID)
	repo.mu.Unlock()
	if saved == nil || len(saved.Content) != 25 {
		t.Fatalf("flushed snapshot missing streamed content: %+v", saved)
	}
}

func TestSnapshotsDetachedFromLiveSessions(t *testing.T) {
	repo := &countingSnapshotStore{}
	nop := zerolog.Nop()
	s := NewSessionStore(context.Background(), repo, model.DefaultChatConfig(), &nop)

	var msgID int64
	s.UpdateCurrentSession(func(sess *model.ChatSession) {
		m := model.NewMessage(model.RoleAssistant, "before")
		sess.Messages = append(sess.Messages, m)
		msgID = m.ID
	})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	sessID := s.CurrentSession().ID
	_ = s.UpdateMessage(sessID, msgID, func(m *model.Message) {
		m.Content = "after"
	})

	repo.mu.Lock()
	saved := repo.last.Sessions[0].MessageByID(msgID)
	repo.mu.Unlock()
	if saved == nil || saved.Content != "before" {
		t.Fatalf("snapshot aliases the live message: %+v", saved)
	}
}
