package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
)

// DefaultReaperInterval は期限切れ回収の実行間隔
const DefaultReaperInterval = time.Minute

// ExpiredSeatReclaimer は期限切れの仮押さえを解放するインターフェース
type ExpiredSeatReclaimer interface {
	ReclaimExpired(ctx context.Context) (int, error)
}

// ExpiredReservationReaper は期限切れの仮押さえを定期的に回収するワーカー
// 実行は1つの goroutine で行うため、前回の実行中に来たティックは捨てられ重複実行しない
type ExpiredReservationReaper struct {
	reclaimer ExpiredSeatReclaimer
	interval  time.Duration
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewExpiredReservationReaper は新しいワーカーを作成
func NewExpiredReservationReaper(r ExpiredSeatReclaimer, interval time.Duration) *ExpiredReservationReaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &ExpiredReservationReaper{
		reclaimer: r,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はワーカーを開始する。ctx のキャンセルか Stop で終了する
func (w *ExpiredReservationReaper) Start(ctx context.Context) {
	logger.Info("期限切れ仮押さえの回収ワーカー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("回収ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("回収ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Stop はワーカーを停止し、実行中の回収が終わるまで待つ
func (w *ExpiredReservationReaper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// Tick は1回分の回収を実行し、回収した座席数を返す
// 失敗はログに記録するだけで、次のティックで再試行される
func (w *ExpiredReservationReaper) Tick(ctx context.Context) int {
	log := logger.Get()
	log.Debug("期限切れ仮押さえの回収開始")

	count, err := w.reclaimer.ReclaimExpired(ctx)
	if err != nil {
		log.Error("期限切れ仮押さえの回収に失敗", zap.Int("reclaimed", count), zap.Error(err))
		return count
	}

	if count > 0 {
		log.Info("期限切れ仮押さえを解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れ仮押さえなし")
	}
	return count
}
