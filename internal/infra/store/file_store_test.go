package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/infra/security"
)

func testSnapshot() *model.Snapshot {
	s := model.NewChatSession()
	s.Topic = "roundtrip"
	s.Messages = append(s.Messages,
		model.NewMessage(model.RoleUser, "hello"),
		model.NewMessage(model.RoleAssistant, "hi there"),
	)
	return &model.Snapshot{
		Version:      model.SnapshotVersion,
		Sessions:     []*model.ChatSession{s},
		CurrentIndex: 0,
		Config:       model.DefaultChatConfig(),
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path, nil)
	ctx := context.Background()

	want := testSnapshot()
	if err := fs.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Sessions) != 1 || got.Sessions[0].Topic != "roundtrip" {
		t.Fatalf("loaded snapshot = %+v", got)
	}
	if len(got.Sessions[0].Messages) != 2 || got.Sessions[0].Messages[1].Content != "hi there" {
		t.Fatalf("messages did not survive the roundtrip: %+v", got.Sessions[0].Messages)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), nil)
	if _, err := fs.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreEncryptedRoundtrip(t *testing.T) {
	cipher, err := security.NewCipher("0123456789abcdef")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	path := filepath.Join(t.TempDir(), "state.bin")
	fs := NewFileStore(path, cipher)
	ctx := context.Background()

	if err := fs.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// the file on disk must not be readable without the cipher
	if _, err := NewFileStore(path, nil).Load(ctx); err == nil {
		t.Fatal("plaintext load of an encrypted snapshot must fail")
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Sessions[0].Topic != "roundtrip" {
		t.Fatalf("loaded topic = %q", got.Sessions[0].Topic)
	}

	// a store with the wrong key must fail to load
	other, _ := security.NewCipher("fedcba9876543210")
	if _, err := NewFileStore(path, other).Load(ctx); err == nil {
		t.Fatal("load with the wrong key must fail")
	}
}

func TestFileStoreMigratesV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	v1 := `{
		"version": 1,
		"current_index": 0,
		"sessions": [{
			"id": "01J0000000000000000000TEST",
			"topic": "old session",
			"messages": [
				{"id": 1, "role": "user", "content": "hi", "date": "2025/01/01 10:00:00"},
				{"id": 2, "role": "assistant", "content": "partial", "date": "2025/01/01 10:00:01", "streaming": true}
			],
			"last_summarize_index": 9
		}],
		"config": {}
	}`
	if err := os.WriteFile(path, []byte(v1), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := NewFileStore(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Version != model.SnapshotVersion {
		t.Fatalf("version = %d, want %d", got.Version, model.SnapshotVersion)
	}
	sess := got.Sessions[0]
	if !sess.SendMemory {
		t.Fatal("v1 sessions must get memory enabled")
	}
	if sess.Context == nil {
		t.Fatal("v1 sessions must get a pinned-context list")
	}
	if sess.LastSummarizeIndex != len(sess.Messages) {
		t.Fatalf("summarize index = %d, want clamp to %d", sess.LastSummarizeIndex, len(sess.Messages))
	}
	if m := sess.Messages[1]; m.Streaming || !m.IsError {
		t.Fatalf("stale streaming message not settled: %+v", m)
	}
}

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()
	if _, err := ms.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := ms.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := ms.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Sessions[0].Topic != "roundtrip" {
		t.Fatalf("loaded topic = %q", got.Sessions[0].Topic)
	}
}
