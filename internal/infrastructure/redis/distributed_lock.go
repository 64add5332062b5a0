package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/lock"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除・延長をアトミックに実行する Lua スクリプト
const (
	releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`
	extendScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`
)

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// LockManager は分散ロックを管理する
// lock.Locker を実装し、座席ロックのバックエンドとして使う
type LockManager struct {
	client      *redis.Client
	ttl         time.Duration
	retryDelay  time.Duration
	waitTimeout time.Duration
	newToken    func() string
}

// LockOption は LockManager の設定
type LockOption func(*LockManager)

// WithTTL はロックの有効期限を設定する
func WithTTL(d time.Duration) LockOption {
	return func(m *LockManager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithRetryDelay は取得失敗時の再試行間隔を設定する
func WithRetryDelay(d time.Duration) LockOption {
	return func(m *LockManager) {
		if d > 0 {
			m.retryDelay = d
		}
	}
}

// WithWaitTimeout は1キーあたりの最大待ち時間を設定する
func WithWaitTimeout(d time.Duration) LockOption {
	return func(m *LockManager) {
		if d > 0 {
			m.waitTimeout = d
		}
	}
}

// WithTokenGenerator はロック所有者トークンの生成関数を差し替える
func WithTokenGenerator(f func() string) LockOption {
	return func(m *LockManager) { m.newToken = f }
}

func NewLockManager(client *redis.Client, opts ...LockOption) *LockManager {
	m := &LockManager{
		client:      client,
		ttl:         10 * time.Second,
		retryDelay:  20 * time.Millisecond,
		waitTimeout: 5 * time.Second,
		newToken:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := m.newToken()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// Acquire は waitTimeout まで再試行してロックを取得する
func (m *LockManager) Acquire(ctx context.Context, key string) (lock.Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, m.waitTimeout)
	defer cancel()

	for {
		l, err := m.AcquireLock(ctx, key, m.ttl)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
		case <-time.After(m.retryDelay):
		}
	}
}

// Release はロックを解放する（Lua スクリプトで安全に解放）
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を延長する
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := l.client.Eval(ctx, extendScript, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}

var _ lock.Locker = (*LockManager)(nil)
