package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/config"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

// Publisher は座席の状態変化の通知先
type Publisher interface {
	seat.Publisher
	Close() error
}

// New は設定に応じた Publisher を作成する
func New(cfg *config.MessagingConfig) (Publisher, error) {
	switch cfg.Backend {
	case "", config.MessagingNone:
		return NoopPublisher{}, nil
	case config.MessagingNATS:
		return NewNATSPublisher(cfg.URL, cfg.Subject)
	case config.MessagingAMQP:
		return NewAMQPPublisher(cfg.URL, cfg.Subject)
	default:
		return nil, fmt.Errorf("未対応のメッセージングバックエンドです: %s", cfg.Backend)
	}
}

// NoopPublisher は何も送信しない
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, seat.StateChanged) error { return nil }
func (NoopPublisher) Close() error { return nil }

func encode(e seat.StateChanged) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return body, nil
}
