package handler

import (
	"context"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/application"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/reservation"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

// SeatServiceInterface は座席の登録と参照のインターフェース
type SeatServiceInterface interface {
	CreateSeat(ctx context.Context, input application.CreateSeatInput) (*seat.Seat, error)
	CreateBulkSeats(ctx context.Context, input application.CreateBulkSeatsInput) ([]*seat.Seat, error)
	GetSeat(ctx context.Context, id string) (*seat.Seat, error)
	GetSeatsByEvent(ctx context.Context, eventID, status string) ([]*seat.Seat, error)
	GetSeatsByOrder(ctx context.Context, orderID string) ([]*seat.Seat, error)
	GetAvailability(ctx context.Context, eventID string) (*seat.Availability, error)
}

// ReservationServiceInterface は座席の状態遷移のインターフェース
type ReservationServiceInterface interface {
	Reserve(ctx context.Context, input application.ReserveInput) (*reservation.Reservation, error)
	Allocate(ctx context.Context, input application.AllocateInput) ([]*seat.Seat, error)
	Release(ctx context.Context, input application.ReleaseInput) ([]*seat.Seat, error)
	Block(ctx context.Context, seatIDs []string) ([]*seat.Seat, error)
	Unblock(ctx context.Context, seatIDs []string) ([]*seat.Seat, error)
}
