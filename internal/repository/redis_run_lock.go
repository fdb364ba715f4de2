package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domrepo "PropRecon/internal/domain/repository"
)

// releaseScript deletes the lock only when the stored token matches, so a
// process never releases a lock a later run re-acquired after TTL expiry.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisRunLock is an advisory single-flight lock shared across instances.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// NewRedisRunLock creates the lock. The TTL bounds how long a crashed run
// can block the next one.
func NewRedisRunLock(client *redis.Client, key string, ttl time.Duration) domrepo.RunLock {
	if key == "" {
		key = "proprecon:run_lock"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisRunLock{client: client, key: key, ttl: ttl}
}

func (l *RedisRunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisRunLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

// LocalRunLock is the single-process fallback when Redis is not configured.
type LocalRunLock struct {
	mu   sync.Mutex
	held bool
}

func NewLocalRunLock() domrepo.RunLock {
	return &LocalRunLock{}
}

func (l *LocalRunLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *LocalRunLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
