package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/clock"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/reservation"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/transaction"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/lock"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/metrics"
)

const defaultReaperChunk = 100

// ReservationService は座席の状態遷移を担う
// 全ての書き込みは「ロック取得 → 読み込み → 検証 → 遷移 → 一括書き込み → ロック解放」の順で行う
type ReservationService struct {
	txManager     transaction.Manager
	seatRepo      seat.Repository
	locks         *lock.Coordinator
	clock         clock.Clock
	holdTTL       time.Duration
	reaperChunk   int
	strictRelease bool
	publisher     seat.Publisher
	cache         AvailabilityCache
	metrics       *metrics.Metrics
}

// ReservationOption は ReservationService の設定
type ReservationOption func(*ReservationService)

func WithClock(c clock.Clock) ReservationOption {
	return func(s *ReservationService) { s.clock = c }
}

// WithHoldTTL は仮押さえの有効期間を設定する
func WithHoldTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithReaperChunk は期限切れ回収で一度にロックする座席数を設定する
func WithReaperChunk(n int) ReservationOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.reaperChunk = n
		}
	}
}

// WithStrictRelease は解放できる状態を仮押さえ中（と Force 指定時の割当済み）に限定する
func WithStrictRelease(strict bool) ReservationOption {
	return func(s *ReservationService) { s.strictRelease = strict }
}

func WithPublisher(p seat.Publisher) ReservationOption {
	return func(s *ReservationService) { s.publisher = p }
}

func WithCache(c AvailabilityCache) ReservationOption {
	return func(s *ReservationService) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) ReservationOption {
	return func(s *ReservationService) { s.metrics = m }
}

func NewReservationService(txm transaction.Manager, sr seat.Repository, locks *lock.Coordinator, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		txManager:   txm,
		seatRepo:    sr,
		locks:       locks,
		clock:       clock.NewSystem(),
		holdTTL:     reservation.ReservationExpiration,
		reaperChunk: defaultReaperChunk,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ReserveInput struct {
	EventID  string
	HolderID string
	SeatIDs  []string
}

// Reserve は座席を全て仮押さえするか、1席も変更しない
func (s *ReservationService) Reserve(ctx context.Context, input ReserveInput) (res *reservation.Reservation, err error) {
	defer func() { s.record(ctx, "reserve", input.SeatIDs, err) }()

	if err := validateSeatIDs(input.SeatIDs); err != nil {
		return nil, err
	}
	if input.EventID == "" {
		return nil, seat.ErrEventIDRequired
	}
	if input.HolderID == "" {
		return nil, seat.ErrHolderIDRequired
	}

	var expiresAt time.Time
	seats, now, err := s.withLockedSeats(ctx, input.SeatIDs, func(seats []*seat.Seat, now time.Time) ([]*seat.Seat, error) {
		if mismatch := filterSeats(seats, func(st *seat.Seat) bool { return st.EventID != input.EventID }); len(mismatch) > 0 {
			return nil, seat.ErrEventMismatch.WithSeats(seatIDsOf(mismatch), seatNumbersOf(mismatch))
		}
		if taken := filterSeats(seats, func(st *seat.Seat) bool { return !st.IsAvailable() }); len(taken) > 0 {
			return nil, seat.ErrSeatNotAvailable.WithSeats(seatIDsOf(taken), seatNumbersOf(taken))
		}
		for _, st := range seats {
			if err := st.Reserve(input.HolderID, now, s.holdTTL); err != nil {
				return nil, err
			}
		}
		expiresAt = now.Add(s.holdTTL)
		return seats, nil
	})
	if err != nil {
		return nil, err
	}

	seats = inRequestOrder(input.SeatIDs, seats)
	res = reservation.NewReservation(input.EventID, input.HolderID, seats, now, expiresAt)
	s.afterCommit(ctx, seat.StateChanged{
		Kind:          seat.ChangeReserved,
		EventIDs:      []string{input.EventID},
		SeatIDs:       res.SeatIDs(),
		HolderID:      input.HolderID,
		ReservationID: res.ID,
		OccurredAt:    now,
	})
	return res, nil
}

type AllocateInput struct {
	SeatIDs []string
	OrderID string
	// HolderID を指定した場合、全座席の仮押さえユーザーが一致する必要がある
	HolderID string
}

// Allocate は仮押さえ中の座席を注文に割り当てる
// 既に同じ注文に割当済みの座席はそのまま成功扱いにする
func (s *ReservationService) Allocate(ctx context.Context, input AllocateInput) (result []*seat.Seat, err error) {
	defer func() { s.record(ctx, "allocate", input.SeatIDs, err) }()

	if err := validateSeatIDs(input.SeatIDs); err != nil {
		return nil, err
	}
	if input.OrderID == "" {
		return nil, seat.ErrOrderIDRequired
	}

	var changed []*seat.Seat
	seats, now, err := s.withLockedSeats(ctx, input.SeatIDs, func(seats []*seat.Seat, now time.Time) ([]*seat.Seat, error) {
		var notReserved, wrongHolder []*seat.Seat
		changed = changed[:0]
		for _, st := range seats {
			if st.IsAllocatedTo(input.OrderID) {
				continue
			}
			r, ok := st.State.(seat.Reserved)
			switch {
			case !ok:
				notReserved = append(notReserved, st)
			case input.HolderID != "" && r.HolderID != input.HolderID:
				wrongHolder = append(wrongHolder, st)
			default:
				changed = append(changed, st)
			}
		}
		if len(notReserved) > 0 {
			return nil, seat.ErrSeatNotReserved.WithSeats(seatIDsOf(notReserved), seatNumbersOf(notReserved))
		}
		if len(wrongHolder) > 0 {
			return nil, seat.ErrHolderMismatch.WithSeats(seatIDsOf(wrongHolder), seatNumbersOf(wrongHolder))
		}
		for _, st := range changed {
			if err := st.Allocate(input.OrderID, now); err != nil {
				return nil, err
			}
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		s.afterCommit(ctx, seat.StateChanged{
			Kind:       seat.ChangeAllocated,
			EventIDs:   seat.EventIDsOf(changed),
			SeatIDs:    seatIDsOf(changed),
			HolderID:   input.HolderID,
			OrderID:    input.OrderID,
			OccurredAt: now,
		})
	}
	return inRequestOrder(input.SeatIDs, seats), nil
}

type ReleaseInput struct {
	SeatIDs []string
	// Force は厳格モードで割当済みの座席の解放を許可する
	Force bool
}

// Release は座席を予約可能に戻す
func (s *ReservationService) Release(ctx context.Context, input ReleaseInput) (result []*seat.Seat, err error) {
	defer func() { s.record(ctx, "release", input.SeatIDs, err) }()

	if err := validateSeatIDs(input.SeatIDs); err != nil {
		return nil, err
	}

	seats, now, err := s.withLockedSeats(ctx, input.SeatIDs, func(seats []*seat.Seat, now time.Time) ([]*seat.Seat, error) {
		if s.strictRelease {
			rejected := filterSeats(seats, func(st *seat.Seat) bool {
				switch st.Status() {
				case seat.StatusReserved:
					return false
				case seat.StatusAllocated:
					return !input.Force
				}
				return true
			})
			if len(rejected) > 0 {
				return nil, seat.ErrSeatNotReleasable.WithSeats(seatIDsOf(rejected), seatNumbersOf(rejected))
			}
		}
		for _, st := range seats {
			st.Release(now)
		}
		return seats, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, seat.StateChanged{
		Kind:       seat.ChangeReleased,
		EventIDs:   seat.EventIDsOf(seats),
		SeatIDs:    seatIDsOf(seats),
		OccurredAt: now,
	})
	return inRequestOrder(input.SeatIDs, seats), nil
}

// Block は予約可能な座席を販売停止にする
func (s *ReservationService) Block(ctx context.Context, seatIDs []string) (result []*seat.Seat, err error) {
	defer func() { s.record(ctx, "block", seatIDs, err) }()
	return s.toggleBlock(ctx, seatIDs, true)
}

// Unblock は販売停止中の座席を予約可能に戻す
func (s *ReservationService) Unblock(ctx context.Context, seatIDs []string) (result []*seat.Seat, err error) {
	defer func() { s.record(ctx, "unblock", seatIDs, err) }()
	return s.toggleBlock(ctx, seatIDs, false)
}

func (s *ReservationService) toggleBlock(ctx context.Context, seatIDs []string, block bool) ([]*seat.Seat, error) {
	if err := validateSeatIDs(seatIDs); err != nil {
		return nil, err
	}

	seats, now, err := s.withLockedSeats(ctx, seatIDs, func(seats []*seat.Seat, now time.Time) ([]*seat.Seat, error) {
		var rejected []*seat.Seat
		for _, st := range seats {
			var err error
			if block {
				err = st.Block(now)
			} else {
				err = st.Unblock(now)
			}
			if err != nil {
				rejected = append(rejected, st)
			}
		}
		if len(rejected) > 0 {
			if block {
				return nil, seat.ErrSeatNotAvailable.WithSeats(seatIDsOf(rejected), seatNumbersOf(rejected))
			}
			return nil, seat.ErrSeatNotBlocked.WithSeats(seatIDsOf(rejected), seatNumbersOf(rejected))
		}
		return seats, nil
	})
	if err != nil {
		return nil, err
	}

	kind := seat.ChangeUnblocked
	if block {
		kind = seat.ChangeBlocked
	}
	s.afterCommit(ctx, seat.StateChanged{
		Kind:       kind,
		EventIDs:   seat.EventIDsOf(seats),
		SeatIDs:    seatIDsOf(seats),
		OccurredAt: now,
	})
	return inRequestOrder(seatIDs, seats), nil
}

// ReclaimExpired は期限切れの仮押さえを解放し、解放した座席数を返す
// チャンクごとにロックを取り直し、ロック下で期限切れを再確認する
// 失敗したチャンクがあっても残りのチャンクは処理する
func (s *ReservationService) ReclaimExpired(ctx context.Context) (int, error) {
	ids, err := s.seatRepo.FindExpiredReservedIDs(ctx, s.clock.Now(), 0)
	if err != nil {
		return 0, asSeatError("期限切れ座席の検索に失敗しました", err)
	}

	var (
		total int
		errs  []error
	)
	for start := 0; start < len(ids); start += s.reaperChunk {
		end := min(start+s.reaperChunk, len(ids))
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var reclaimed []*seat.Seat
		_, now, err := s.withLockedSeats(ctx, ids[start:end], func(seats []*seat.Seat, now time.Time) ([]*seat.Seat, error) {
			reclaimed = reclaimed[:0]
			for _, st := range seats {
				// ロック待ちの間に確定・解放された座席は対象外
				if st.IsExpired(now) {
					st.Release(now)
					reclaimed = append(reclaimed, st)
				}
			}
			return reclaimed, nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(reclaimed) == 0 {
			continue
		}

		total += len(reclaimed)
		s.afterCommit(ctx, seat.StateChanged{
			Kind:       seat.ChangeReclaimed,
			EventIDs:   seat.EventIDsOf(reclaimed),
			SeatIDs:    seatIDsOf(reclaimed),
			OccurredAt: now,
		})
	}

	if s.metrics != nil && total > 0 {
		s.metrics.ExpiredReservationsReclaimed.Add(float64(total))
	}
	return total, errors.Join(errs...)
}

type mutateFunc func(seats []*seat.Seat, now time.Time) ([]*seat.Seat, error)

// withLockedSeats は ids の座席をロックして読み込み、mutate が返した座席を一括で書き込む
// 戻り値の座席はロック下で読み込んだ全座席（mutate による変更を含む）
func (s *ReservationService) withLockedSeats(ctx context.Context, ids []string, mutate mutateFunc) ([]*seat.Seat, time.Time, error) {
	h, err := s.locks.LockSeats(ctx, ids)
	if err != nil {
		return nil, time.Time{}, &seat.Error{
			Kind:    seat.ErrInternal,
			Message: seat.ErrLockNotAcquired.Message,
			Err:     err,
		}
	}

	// ロック取得後は呼び出し元のキャンセルに関係なく最後まで実行する
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if err := h.Release(ctx); err != nil {
			logger.FromContext(ctx).Warn("座席ロックの解放に失敗", zap.Strings("seat_ids", h.IDs()), zap.Error(err))
		}
	}()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, time.Time{}, asSeatError("トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	seats, err := s.seatRepo.GetByIDsForUpdate(ctx, tx, h.IDs())
	if err != nil {
		return nil, time.Time{}, asSeatError("座席の取得に失敗しました", err)
	}
	if missing := missingIDs(h.IDs(), seats); len(missing) > 0 {
		return nil, time.Time{}, seat.ErrSeatNotFound.WithSeats(missing, nil)
	}

	now := s.clock.Now()
	changed, err := mutate(seats, now)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(changed) == 0 {
		return seats, now, nil
	}

	if err := s.seatRepo.UpdateBatch(ctx, tx, changed); err != nil {
		return nil, time.Time{}, asSeatError("座席の更新に失敗しました", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, time.Time{}, asSeatError("コミットに失敗しました", err)
	}
	return seats, now, nil
}

// afterCommit はロック解放後にキャッシュ無効化と通知を行う。失敗は記録のみ
func (s *ReservationService) afterCommit(ctx context.Context, e seat.StateChanged) {
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContext(ctx)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, e.EventIDs...); err != nil {
			log.Warn("キャッシュ無効化エラー", zap.Strings("event_ids", e.EventIDs), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, e); err != nil {
			log.Warn("座席状態の通知に失敗", zap.String("kind", string(e.Kind)), zap.Error(err))
		}
	}
}

func (s *ReservationService) record(ctx context.Context, op string, seatIDs []string, err error) {
	result := resultLabel(err)
	if s.metrics != nil {
		s.metrics.SeatOperationsTotal.WithLabelValues(op, result).Inc()
	}

	log := logger.FromContext(ctx)
	fields := []zap.Field{zap.String("operation", op), zap.Strings("seat_ids", seatIDs), zap.String("result", result)}
	switch {
	case err == nil:
		log.Info("座席操作が完了しました", fields...)
	case errors.Is(err, seat.ErrInternal):
		log.Error("座席操作に失敗しました", append(fields, zap.Error(err))...)
	default:
		log.Warn("座席操作が拒否されました", append(fields, zap.Error(err))...)
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch seat.KindOf(err) {
	case seat.ErrNotFound:
		return "not_found"
	case seat.ErrValidation:
		return "validation"
	case seat.ErrConflict:
		return "conflict"
	}
	return "error"
}
