package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"terminal-ai-chat/internal/domain"
	"terminal-ai-chat/internal/domain/model"
	"terminal-ai-chat/internal/domain/ports/repository"
	"terminal-ai-chat/internal/infra/redis"
	"terminal-ai-chat/internal/infra/security"
)

var _ repository.SnapshotStore = (*RedisStore)(nil)

const snapshotKey = "chat:snapshot"

// RedisStore keeps the snapshot under a single key, for setups where the
// client roams between machines. TTL zero keeps the snapshot forever.
type RedisStore struct {
	client redis.Client
	cipher *security.Cipher
	ttl    time.Duration
}

func NewRedisStore(client redis.Client, cipher *security.Cipher, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, cipher: cipher, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context) (*model.Snapshot, error) {
	raw, err := r.client.Get(ctx, snapshotKey)
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decode([]byte(raw), r.cipher)
}

func (r *RedisStore) Save(ctx context.Context, s *model.Snapshot) error {
	b, err := encode(s, r.cipher)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, snapshotKey, b, r.ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
