package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
)

// ErrNoKeys はロック対象が空のときに返る
var ErrNoKeys = errors.New("ロック対象の座席IDがありません")

// Lock は取得済みのロック
type Lock interface {
	Release(ctx context.Context) error
}

// Locker はキー単位の排他ロックを提供するバックエンド
// Acquire は取得できるまで待ち、ctx がキャンセルされたらエラーを返す
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// Observer はロック取得時間を記録する
type Observer func(result string, elapsed time.Duration)

// Coordinator は座席ID集合のロックを決定的な順序で取得する
// 重なる集合を持つ操作どうしは共通IDを同じ順序で取りに行くため、待ちの循環が起きない
type Coordinator struct {
	locker    Locker
	keyPrefix string
	observe   Observer
}

// Option は Coordinator の設定
type Option func(*Coordinator)

// WithKeyPrefix はロックキーの接頭辞を設定する
func WithKeyPrefix(prefix string) Option {
	return func(c *Coordinator) { c.keyPrefix = prefix }
}

// WithObserver はロック取得時間の記録先を設定する
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observe = o }
}

// NewCoordinator は Coordinator を作成する
func NewCoordinator(locker Locker, opts ...Option) *Coordinator {
	c := &Coordinator{locker: locker, keyPrefix: "seat:"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle は一括取得したロック。Release で全て解放する
type Handle struct {
	ids   []string
	locks []Lock
}

// IDs はロック済みの座席IDを取得順に返す
func (h *Handle) IDs() []string {
	return h.ids
}

// Release は取得と逆順で全てのロックを解放する
// 二回目以降の呼び出しは何もしない
func (h *Handle) Release(ctx context.Context) error {
	var errs []error
	for i := len(h.locks) - 1; i >= 0; i-- {
		if err := h.locks[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	h.locks = nil
	return errors.Join(errs...)
}

// SortedUnique は ids をソートし重複を除いたコピーを返す
func SortedUnique(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// LockSeats は ids の全座席のロックをソート順に取得する
// 途中で失敗した場合は取得済みのロックを解放してからエラーを返す
func (c *Coordinator) LockSeats(ctx context.Context, ids []string) (*Handle, error) {
	if len(ids) == 0 {
		return nil, ErrNoKeys
	}
	start := time.Now()
	ordered := SortedUnique(ids)
	h := &Handle{ids: ordered, locks: make([]Lock, 0, len(ordered))}

	for _, id := range ordered {
		l, err := c.locker.Acquire(ctx, c.keyPrefix+id)
		if err != nil {
			// 呼び出し元がキャンセル済みでも解放は行う
			if rerr := h.Release(context.WithoutCancel(ctx)); rerr != nil {
				logger.Warn("取得済みロックの解放に失敗", zap.Error(rerr))
			}
			c.record("failed", start)
			return nil, fmt.Errorf("座席 %s のロック取得に失敗: %w", id, err)
		}
		h.locks = append(h.locks, l)
	}
	c.record("success", start)
	return h, nil
}

func (c *Coordinator) record(result string, start time.Time) {
	if c.observe != nil {
		c.observe(result, time.Since(start))
	}
}
