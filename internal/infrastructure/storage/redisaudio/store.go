package redisaudio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/storage/localfs"
)

const (
	keyPrefix  = "audio:"
	DefaultTTL = 30 * time.Minute
)

// Store keeps clips in Redis with a TTL so several API replicas can serve them.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ports.AudioStore = (*Store)(nil)

func New(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *Store) Save(ctx context.Context, key string, data io.Reader) error {
	if err := localfs.ValidateKey(key); err != nil {
		return err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read clip: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "redis set clip", err)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := localfs.ValidateKey(key); err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.WrapError(domain.ErrAudioNotFound, "redis get clip", err)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "redis get clip", err)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}
