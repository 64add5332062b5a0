package seat

import (
	"context"
	"time"
)

// ChangeKind は座席の状態変化の種類
type ChangeKind string

const (
	ChangeReserved  ChangeKind = "seats.reserved"
	ChangeAllocated ChangeKind = "seats.allocated"
	ChangeReleased  ChangeKind = "seats.released"
	ChangeReclaimed ChangeKind = "seats.reclaimed"
	ChangeBlocked   ChangeKind = "seats.blocked"
	ChangeUnblocked ChangeKind = "seats.unblocked"
)

// StateChanged はコミット後に外部へ通知する座席の状態変化
type StateChanged struct {
	Kind          ChangeKind `json:"kind"`
	EventIDs      []string   `json:"event_ids"`
	SeatIDs       []string   `json:"seat_ids"`
	HolderID      string     `json:"holder_id,omitempty"`
	OrderID       string     `json:"order_id,omitempty"`
	ReservationID string     `json:"reservation_id,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// EventIDsOf は座席一覧に含まれるイベントIDを重複なく返す
func EventIDsOf(seats []*Seat) []string {
	seen := make(map[string]struct{}, len(seats))
	ids := make([]string, 0, 1)
	for _, s := range seats {
		if _, ok := seen[s.EventID]; ok {
			continue
		}
		seen[s.EventID] = struct{}{}
		ids = append(ids, s.EventID)
	}
	return ids
}

// Publisher は座席の状態変化を外部へ通知する
type Publisher interface {
	Publish(ctx context.Context, e StateChanged) error
}
