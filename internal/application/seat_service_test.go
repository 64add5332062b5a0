package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	redisinfra "github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/redis"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/metrics"
)

func TestSeatService_CreateSeat(t *testing.T) {
	ctx := context.Background()

	t.Run("正常に座席を作成できる", func(t *testing.T) {
		repo := new(MockSeatRepository)
		cache := new(MockCache)
		svc := NewSeatService(repo, cache, time.Minute, nil)

		repo.On("Create", ctx, mock.AnythingOfType("*seat.Seat")).Return(nil)
		cache.On("Invalidate", ctx, []string{"event-123"}).Return(nil)

		s, err := svc.CreateSeat(ctx, CreateSeatInput{
			EventID:    "event-123",
			SeatNumber: "A-1",
			Row:        "A",
			Section:    "1F",
			Category:   seat.CategoryVIP,
			Price:      decimal.RequireFromString("5000"),
		})

		require.NoError(t, err)
		assert.Equal(t, "A-1", s.SeatNumber)
		assert.Equal(t, seat.CategoryVIP, s.Category)
		assert.Equal(t, seat.StatusAvailable, s.Status())
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("入力が不正な場合はリポジトリを呼ばない", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)

		_, err := svc.CreateSeat(ctx, CreateSeatInput{EventID: "event-123", Price: decimal.Zero})

		assert.ErrorIs(t, err, seat.ErrSeatNumberRequired)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("座席番号が重複している場合はConflict", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)

		repo.On("Create", ctx, mock.AnythingOfType("*seat.Seat")).
			Return(seat.ErrDuplicateSeatNumber.WithSeats(nil, []string{"A-1"}))

		_, err := svc.CreateSeat(ctx, CreateSeatInput{EventID: "event-123", SeatNumber: "A-1"})

		assert.ErrorIs(t, err, seat.ErrDuplicateSeatNumber)
		assert.ErrorIs(t, err, seat.ErrConflict)
	})

	t.Run("ストレージエラーはInternalに包む", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)

		repo.On("Create", ctx, mock.AnythingOfType("*seat.Seat")).Return(errors.New("connection refused"))

		_, err := svc.CreateSeat(ctx, CreateSeatInput{EventID: "event-123", SeatNumber: "A-1"})

		assert.ErrorIs(t, err, seat.ErrInternal)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestSeatService_CreateBulkSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("連番の座席を一括作成できる", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)

		repo.On("CreateBulk", ctx, mock.MatchedBy(func(seats []*seat.Seat) bool {
			return len(seats) == 3
		})).Return(nil)

		seats, err := svc.CreateBulkSeats(ctx, CreateBulkSeatsInput{
			EventID: "event-123",
			Section: "2F",
			Row:     "B",
			Prefix:  "B",
			Count:   3,
			Price:   decimal.RequireFromString("3000"),
		})

		require.NoError(t, err)
		require.Len(t, seats, 3)
		assert.Equal(t, "B-1", seats[0].SeatNumber)
		assert.Equal(t, "B-3", seats[2].SeatNumber)
		for _, s := range seats {
			assert.Equal(t, "2F", s.Section)
			assert.Equal(t, seat.CategoryRegular, s.Category)
		}
		repo.AssertExpectations(t)
	})

	t.Run("座席数の範囲外はValidation", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)

		for _, n := range []int{0, -1, maxBulkSeats + 1} {
			_, err := svc.CreateBulkSeats(ctx, CreateBulkSeatsInput{EventID: "event-123", Prefix: "A", Count: n})
			assert.ErrorIs(t, err, seat.ErrValidation)
		}
		repo.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything)
	})
}

func TestSeatService_GetSeat(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSeatRepository)
	svc := NewSeatService(repo, nil, 0, nil)

	expected := seat.NewSeat("event-123", "A-1", "A", "1F", "", decimal.Zero)
	expected.ID = "seat-1"
	repo.On("GetByID", ctx, "seat-1").Return(expected, nil)
	repo.On("GetByID", ctx, "missing").Return(nil, seat.ErrSeatNotFound)

	s, err := svc.GetSeat(ctx, "seat-1")
	require.NoError(t, err)
	assert.Equal(t, expected, s)

	_, err = svc.GetSeat(ctx, "missing")
	assert.ErrorIs(t, err, seat.ErrNotFound)
}

func TestSeatService_GetSeatsByEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("ステータスで絞り込める", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)
		repo.On("GetByEventID", ctx, "event-123", seat.StatusReserved).Return([]*seat.Seat{}, nil)

		seats, err := svc.GetSeatsByEvent(ctx, "event-123", "reserved")

		require.NoError(t, err)
		assert.Empty(t, seats)
		repo.AssertExpectations(t)
	})

	t.Run("ステータス未指定は全件", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)
		repo.On("GetByEventID", ctx, "event-123", seat.Status("")).Return([]*seat.Seat{}, nil)

		_, err := svc.GetSeatsByEvent(ctx, "event-123", "")

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("不明なステータスはValidation", func(t *testing.T) {
		repo := new(MockSeatRepository)
		svc := NewSeatService(repo, nil, 0, nil)

		_, err := svc.GetSeatsByEvent(ctx, "event-123", "sold")

		assert.ErrorIs(t, err, seat.ErrValidation)
		repo.AssertNotCalled(t, "GetByEventID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("イベントID未指定はValidation", func(t *testing.T) {
		svc := NewSeatService(new(MockSeatRepository), nil, 0, nil)
		_, err := svc.GetSeatsByEvent(ctx, "", "")
		assert.ErrorIs(t, err, seat.ErrEventIDRequired)
	})
}

func TestSeatService_GetSeatsByOrder(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSeatRepository)
	svc := NewSeatService(repo, nil, 0, nil)
	repo.On("GetByOrderID", ctx, "order-1").Return([]*seat.Seat{{ID: "seat-1"}}, nil)

	seats, err := svc.GetSeatsByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, seats, 1)

	_, err = svc.GetSeatsByOrder(ctx, "")
	assert.ErrorIs(t, err, seat.ErrOrderIDRequired)
}

func TestSeatService_GetAvailability(t *testing.T) {
	ctx := context.Background()
	seats := []*seat.Seat{
		{ID: "s1", EventID: "event-123", Section: "1F", State: seat.Available{}},
		{ID: "s2", EventID: "event-123", Section: "1F", State: seat.Blocked{}},
	}

	t.Run("キャッシュヒット時はリポジトリを呼ばない", func(t *testing.T) {
		repo := new(MockSeatRepository)
		cache := new(MockCache)
		svc := NewSeatService(repo, cache, time.Minute, nil)

		cached := &seat.Availability{EventID: "event-123", TotalSeats: 10, AvailableSeats: 4}
		cache.On("GetAvailability", ctx, "event-123").Return(cached, nil)

		a, err := svc.GetAvailability(ctx, "event-123")

		require.NoError(t, err)
		assert.Equal(t, cached, a)
		repo.AssertNotCalled(t, "GetByEventID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("キャッシュミス時は集計してキャッシュに保存する", func(t *testing.T) {
		repo := new(MockSeatRepository)
		cache := new(MockCache)
		svc := NewSeatService(repo, cache, time.Minute, nil)

		cache.On("GetAvailability", ctx, "event-123").Return(nil, redisinfra.ErrCacheMiss)
		repo.On("GetByEventID", ctx, "event-123", seat.Status("")).Return(seats, nil)
		cache.On("SetAvailability", ctx, mock.AnythingOfType("*seat.Availability"), time.Minute).Return(nil)

		a, err := svc.GetAvailability(ctx, "event-123")

		require.NoError(t, err)
		assert.Equal(t, 2, a.TotalSeats)
		assert.Equal(t, 1, a.AvailableSeats)
		assert.Equal(t, 1, a.BlockedSeats)
		assert.Equal(t, []string{"s1"}, a.AvailableSeatIDs)
		cache.AssertExpectations(t)
	})

	t.Run("キャッシュ障害時もリポジトリから返す", func(t *testing.T) {
		repo := new(MockSeatRepository)
		cache := new(MockCache)
		svc := NewSeatService(repo, cache, time.Minute, nil)

		cache.On("GetAvailability", ctx, "event-123").Return(nil, errors.New("redis down"))
		repo.On("GetByEventID", ctx, "event-123", seat.Status("")).Return(seats, nil)
		cache.On("SetAvailability", ctx, mock.Anything, time.Minute).Return(errors.New("redis down"))

		a, err := svc.GetAvailability(ctx, "event-123")

		require.NoError(t, err)
		assert.Equal(t, 2, a.TotalSeats)
	})

	t.Run("ステータス別の座席数をメトリクスに反映する", func(t *testing.T) {
		repo := new(MockSeatRepository)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		svc := NewSeatService(repo, nil, 0, m)

		repo.On("GetByEventID", ctx, "event-123", seat.Status("")).Return(seats, nil)

		_, err := svc.GetAvailability(ctx, "event-123")

		require.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatsByStatus.WithLabelValues("event-123", "available")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatsByStatus.WithLabelValues("event-123", "blocked")))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.SeatsByStatus.WithLabelValues("event-123", "reserved")))
	})
}
