// Package lease keeps two sync passes from running at once and announces
// finished runs.
package lease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultKey     = "ladder-sync:lease"
	DefaultChannel = "ladder-sync:runs"
)

// ErrLeaseHeld is returned when another run owns the lease.
var ErrLeaseHeld = errors.New("sync lease held by another run")

// KV abstracts the key-value operations the lease needs (e.g., Redis).
type KV interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisKV implements KV using go-redis.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (s *RedisKV) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, expiration).Result()
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisKV) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisKV) Publish(ctx context.Context, channel string, message interface{}) error {
	return s.client.Publish(ctx, channel, message).Err()
}

// Manager hands out the run lease. A Manager without a KV grants every
// request and publishes nothing.
type Manager struct {
	kv      KV
	key     string
	channel string
	logger  *zap.SugaredLogger
}

func NewManager(kv KV, logger *zap.Logger) *Manager {
	return &Manager{kv: kv, key: DefaultKey, channel: DefaultChannel, logger: logger.Sugar()}
}

// Lease is a held run lease.
type Lease struct {
	m     *Manager
	owner string
}

// Acquire takes the lease for owner until ttl elapses or Release is called.
func (m *Manager) Acquire(ctx context.Context, owner string, ttl time.Duration) (*Lease, error) {
	if m.kv == nil {
		return &Lease{m: m, owner: owner}, nil
	}
	ok, err := m.kv.SetNX(ctx, m.key, owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		holder, _ := m.kv.Get(ctx, m.key)
		m.logger.Warnw("Sync lease held", "holder", holder)
		return nil, ErrLeaseHeld
	}
	return &Lease{m: m, owner: owner}, nil
}

// Release drops the lease if this run still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.m.kv == nil {
		return nil
	}
	holder, err := l.m.kv.Get(ctx, l.m.key)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	if holder != l.owner {
		l.m.logger.Warnw("Lease expired before release", "owner", l.owner, "holder", holder)
		return nil
	}
	if err := l.m.kv.Del(ctx, l.m.key); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// Announce publishes v as JSON on the runs channel.
func (m *Manager) Announce(ctx context.Context, v any) error {
	if m.kv == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("announce run: %w", err)
	}
	if err := m.kv.Publish(ctx, m.channel, payload); err != nil {
		return fmt.Errorf("announce run: %w", err)
	}
	return nil
}
