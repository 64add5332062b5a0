package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を注入するためのインターフェース
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem は time.Now を使う Clock を返す
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Manual は手動で進める Clock（テスト用）
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual は t を現在時刻とする Manual を返す
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set は現在時刻を t にする
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

// Advance は現在時刻を d だけ進める
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
