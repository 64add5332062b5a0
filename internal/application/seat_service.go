package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	redisinfra "github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/redis"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/metrics"
)

const (
	defaultCacheTTL = 5 * time.Second
	maxBulkSeats    = 10000
)

// AvailabilityCache はイベントごとの空席集計のキャッシュ
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, eventID string) (*seat.Availability, error)
	SetAvailability(ctx context.Context, a *seat.Availability, ttl time.Duration) error
	Invalidate(ctx context.Context, eventIDs ...string) error
}

// SeatService は座席の登録と参照を担う
// 参照はロックを取らないため、進行中の操作の結果が反映されていない場合がある
type SeatService struct {
	seatRepo seat.Repository
	cache    AvailabilityCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

func NewSeatService(sr seat.Repository, cache AvailabilityCache, cacheTTL time.Duration, m *metrics.Metrics) *SeatService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &SeatService{seatRepo: sr, cache: cache, cacheTTL: cacheTTL, metrics: m}
}

type CreateSeatInput struct {
	EventID    string
	SeatNumber string
	Row        string
	Section    string
	Category   seat.Category
	Price      decimal.Decimal
}

func (s *SeatService) CreateSeat(ctx context.Context, input CreateSeatInput) (*seat.Seat, error) {
	se := seat.NewSeat(input.EventID, input.SeatNumber, input.Row, input.Section, input.Category, input.Price)
	if err := se.Validate(); err != nil {
		return nil, err
	}
	if err := s.seatRepo.Create(ctx, se); err != nil {
		return nil, asSeatError("座席の作成に失敗しました", err)
	}
	s.InvalidateCache(ctx, input.EventID)
	return se, nil
}

type CreateBulkSeatsInput struct {
	EventID  string
	Section  string
	Row      string
	Prefix   string
	Count    int
	Category seat.Category
	Price    decimal.Decimal
}

// CreateBulkSeats は "<Prefix>-<連番>" の座席番号で座席を一括作成する
func (s *SeatService) CreateBulkSeats(ctx context.Context, input CreateBulkSeatsInput) ([]*seat.Seat, error) {
	if input.Count <= 0 || input.Count > maxBulkSeats {
		return nil, seat.Validation(fmt.Sprintf("座席数は1以上%d以下である必要があります", maxBulkSeats))
	}
	seats := make([]*seat.Seat, 0, input.Count)
	for i := 1; i <= input.Count; i++ {
		seatNumber := fmt.Sprintf("%s-%d", input.Prefix, i)
		se := seat.NewSeat(input.EventID, seatNumber, input.Row, input.Section, input.Category, input.Price)
		if err := se.Validate(); err != nil {
			return nil, err
		}
		seats = append(seats, se)
	}
	if err := s.seatRepo.CreateBulk(ctx, seats); err != nil {
		return nil, asSeatError("座席の一括作成に失敗しました", err)
	}
	s.InvalidateCache(ctx, input.EventID)
	return seats, nil
}

func (s *SeatService) GetSeat(ctx context.Context, id string) (*seat.Seat, error) {
	se, err := s.seatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, asSeatError("座席の取得に失敗しました", err)
	}
	return se, nil
}

// GetSeatsByEvent はイベントの座席一覧を返す。status が空なら全件
func (s *SeatService) GetSeatsByEvent(ctx context.Context, eventID, status string) ([]*seat.Seat, error) {
	if eventID == "" {
		return nil, seat.ErrEventIDRequired
	}
	var st seat.Status
	if status != "" {
		parsed, err := seat.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	seats, err := s.seatRepo.GetByEventID(ctx, eventID, st)
	if err != nil {
		return nil, asSeatError("座席一覧の取得に失敗しました", err)
	}
	return seats, nil
}

func (s *SeatService) GetSeatsByOrder(ctx context.Context, orderID string) ([]*seat.Seat, error) {
	if orderID == "" {
		return nil, seat.ErrOrderIDRequired
	}
	seats, err := s.seatRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, asSeatError("座席一覧の取得に失敗しました", err)
	}
	return seats, nil
}

// GetAvailability はイベントの空席集計を返す
func (s *SeatService) GetAvailability(ctx context.Context, eventID string) (*seat.Availability, error) {
	if eventID == "" {
		return nil, seat.ErrEventIDRequired
	}

	// キャッシュから取得を試みる
	if s.cache != nil {
		a, err := s.cache.GetAvailability(ctx, eventID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("event_id", eventID), zap.Int("available", a.AvailableSeats))
			return a, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	seats, err := s.seatRepo.GetByEventID(ctx, eventID, "")
	if err != nil {
		return nil, asSeatError("座席一覧の取得に失敗しました", err)
	}
	a := seat.Summarize(eventID, seats)
	s.observe(a)

	// キャッシュに保存
	if s.cache != nil {
		if cacheErr := s.cache.SetAvailability(ctx, a, s.cacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}

	return a, nil
}

// InvalidateCache はイベントのキャッシュを無効化する
func (s *SeatService) InvalidateCache(ctx context.Context, eventID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, eventID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}

func (s *SeatService) observe(a *seat.Availability) {
	if s.metrics == nil {
		return
	}
	g := s.metrics.SeatsByStatus
	g.WithLabelValues(a.EventID, string(seat.StatusAvailable)).Set(float64(a.AvailableSeats))
	g.WithLabelValues(a.EventID, string(seat.StatusReserved)).Set(float64(a.ReservedSeats))
	g.WithLabelValues(a.EventID, string(seat.StatusAllocated)).Set(float64(a.AllocatedSeats))
	g.WithLabelValues(a.EventID, string(seat.StatusBlocked)).Set(float64(a.BlockedSeats))
}
