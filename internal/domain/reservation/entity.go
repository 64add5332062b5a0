package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

// ReservationExpiration は仮押さえの有効期限（デフォルト15分）
const ReservationExpiration = 15 * time.Minute

// Reservation は reserve 操作の結果を表す
// 座席側に状態を持つため永続化はしない
type Reservation struct {
	ID         string
	EventID    string
	HolderID   string
	Seats      []*seat.Seat
	TotalPrice decimal.Decimal
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// NewReservation は仮押さえ済みの座席から予約結果を作成する
func NewReservation(eventID, holderID string, seats []*seat.Seat, reservedAt, expiresAt time.Time) *Reservation {
	return &Reservation{
		ID:         uuid.New().String(),
		EventID:    eventID,
		HolderID:   holderID,
		Seats:      seats,
		TotalPrice: TotalPrice(seats),
		ExpiresAt:  expiresAt,
		CreatedAt:  reservedAt,
	}
}

// TotalPrice は座席価格の合計を返す
func TotalPrice(seats []*seat.Seat) decimal.Decimal {
	total := decimal.Zero
	for _, s := range seats {
		total = total.Add(s.Price)
	}
	return total
}

// SeatIDs は予約した座席IDを返す
func (r *Reservation) SeatIDs() []string {
	ids := make([]string, len(r.Seats))
	for i, s := range r.Seats {
		ids[i] = s.ID
	}
	return ids
}

// IsExpired は予約が期限切れかを返す
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}
