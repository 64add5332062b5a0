package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/clock"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/transaction"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/memory"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/lock"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// === Mock implementations ===

// MockSeatRepository is a mock implementation of seat.Repository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) Create(ctx context.Context, s *seat.Seat) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	args := m.Called(ctx, seats)
	return args.Error(0)
}

func (m *MockSeatRepository) GetByID(ctx context.Context, id string) (*seat.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetByEventID(ctx context.Context, eventID string, status seat.Status) ([]*seat.Seat, error) {
	args := m.Called(ctx, eventID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetByOrderID(ctx context.Context, orderID string) ([]*seat.Seat, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetByIDsForUpdate(ctx context.Context, tx transaction.Tx, ids []string) ([]*seat.Seat, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) UpdateBatch(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	args := m.Called(ctx, tx, seats)
	return args.Error(0)
}

func (m *MockSeatRepository) FindExpiredReservedIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockCache implements AvailabilityCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAvailability(ctx context.Context, eventID string) (*seat.Availability, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Availability), args.Error(1)
}

func (m *MockCache) SetAvailability(ctx context.Context, a *seat.Availability, ttl time.Duration) error {
	args := m.Called(ctx, a, ttl)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, eventIDs ...string) error {
	args := m.Called(ctx, eventIDs)
	return args.Error(0)
}

// recordingPublisher は送信されたイベントを記録する
type recordingPublisher struct {
	mu     sync.Mutex
	events []seat.StateChanged
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e seat.StateChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Events() []seat.StateChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]seat.StateChanged(nil), p.events...)
}

// === In-memory test environment ===

type testEnv struct {
	store        *memory.SeatStore
	locker       *lock.MemoryLocker
	clock        *clock.Manual
	publisher    *recordingPublisher
	reservations *ReservationService
	seats        *SeatService
}

func setupTestEnv(t *testing.T, opts ...ReservationOption) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     memory.NewSeatStore(),
		locker:    lock.NewMemoryLocker(),
		clock:     clock.NewManual(baseTime),
		publisher: &recordingPublisher{},
	}
	opts = append([]ReservationOption{
		WithClock(env.clock),
		WithPublisher(env.publisher),
	}, opts...)
	env.reservations = NewReservationService(env.store, env.store, lock.NewCoordinator(env.locker), opts...)
	env.seats = NewSeatService(env.store, nil, 0, nil)
	return env
}

// createSeats は価格ごとに1席ずつ作成する
func (e *testEnv) createSeats(t *testing.T, eventID string, prices ...string) []*seat.Seat {
	t.Helper()
	seats := make([]*seat.Seat, len(prices))
	for i, p := range prices {
		st, err := e.seats.CreateSeat(context.Background(), CreateSeatInput{
			EventID:    eventID,
			SeatNumber: fmt.Sprintf("A-%d", i+1),
			Row:        "A",
			Section:    "1F",
			Price:      decimal.RequireFromString(p),
		})
		require.NoError(t, err)
		seats[i] = st
	}
	return seats
}

func (e *testEnv) get(t *testing.T, id string) *seat.Seat {
	t.Helper()
	st, err := e.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return st
}

func idsOf(seats []*seat.Seat) []string {
	return seatIDsOf(seats)
}
