package messaging

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher は NATS の subject に座席の状態変化を送信する
// subject は "<prefix>.<kind>" 形式（例: seats.state_changed.seats.reserved）
type NATSPublisher struct {
	conn    natsConn
	subject string
}

// NewNATSPublisher は NATS に接続して Publisher を作成する
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name("seat-reservation"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("NATS接続に失敗しました: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, e seat.StateChanged) error {
	body, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject+"."+string(e.Kind), body); err != nil {
		return fmt.Errorf("NATSへの送信に失敗: %w", err)
	}
	return nil
}

// Close は送信待ちのメッセージを流してから切断する
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
