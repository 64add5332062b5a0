package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/application"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/reservation"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// MockSeatService はSeatServiceInterfaceのモック
type MockSeatService struct {
	mock.Mock
}

func (m *MockSeatService) CreateSeat(ctx context.Context, input application.CreateSeatInput) (*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatService) CreateBulkSeats(ctx context.Context, input application.CreateBulkSeatsInput) ([]*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) GetSeat(ctx context.Context, id string) (*seat.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatService) GetSeatsByEvent(ctx context.Context, eventID, status string) ([]*seat.Seat, error) {
	args := m.Called(ctx, eventID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) GetSeatsByOrder(ctx context.Context, orderID string) ([]*seat.Seat, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) GetAvailability(ctx context.Context, eventID string) (*seat.Availability, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Availability), args.Error(1)
}

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Reserve(ctx context.Context, input application.ReserveInput) (*reservation.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) Allocate(ctx context.Context, input application.AllocateInput) ([]*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockReservationService) Release(ctx context.Context, input application.ReleaseInput) ([]*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockReservationService) Block(ctx context.Context, seatIDs []string) ([]*seat.Seat, error) {
	args := m.Called(ctx, seatIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockReservationService) Unblock(ctx context.Context, seatIDs []string) ([]*seat.Seat, error) {
	args := m.Called(ctx, seatIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

// newTestServer はモックサービスでルートを登録した Echo を返す
func newTestServer(ss SeatServiceInterface, rs ReservationServiceInterface) *echo.Echo {
	e := NewTestEcho()
	RegisterRoutes(e, Handlers{
		Health:      NewHealthHandler(nil),
		Seat:        NewSeatHandler(ss),
		Reservation: NewReservationHandler(rs),
	})
	return e
}

func doRequest(e *echo.Echo, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newSeat(id, number string, st seat.State) *seat.Seat {
	return &seat.Seat{
		ID:         id,
		EventID:    "event-123",
		SeatNumber: number,
		Row:        "A",
		Section:    "1F",
		Category:   seat.CategoryRegular,
		Price:      decimal.RequireFromString("5000"),
		State:      st,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
}
