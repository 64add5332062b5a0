package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/transaction"
)

// SeatStore はプロセス内の座席ストア
// seat.Repository と transaction.Manager を実装する
// 書き込みはトランザクション内に溜め、Commit 時にバージョン検査付きでまとめて反映する
type SeatStore struct {
	mu    sync.RWMutex
	seats map[string]*seat.Seat
	newID func() string
}

// NewSeatStore は空の SeatStore を作成する
func NewSeatStore() *SeatStore {
	return &SeatStore{
		seats: make(map[string]*seat.Seat),
		newID: func() string { return uuid.New().String() },
	}
}

// Begin は新しいトランザクションを開始する
func (s *SeatStore) Begin(_ context.Context) (transaction.Tx, error) {
	return &Tx{store: s}, nil
}

// Create は新しい座席を作成する
func (s *SeatStore) Create(ctx context.Context, st *seat.Seat) error {
	return s.CreateBulk(ctx, []*seat.Seat{st})
}

// CreateBulk は複数の座席を一括作成する（全件成功か全件失敗）
func (s *SeatStore) CreateBulk(_ context.Context, seats []*seat.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[[2]string]struct{}, len(s.seats)+len(seats))
	for _, existing := range s.seats {
		taken[[2]string{existing.EventID, existing.SeatNumber}] = struct{}{}
	}
	var dupIDs, dupNumbers []string
	for _, st := range seats {
		k := [2]string{st.EventID, st.SeatNumber}
		if _, ok := taken[k]; ok {
			dupIDs = append(dupIDs, st.ID)
			dupNumbers = append(dupNumbers, st.SeatNumber)
			continue
		}
		taken[k] = struct{}{}
	}
	if len(dupNumbers) > 0 {
		return seat.ErrDuplicateSeatNumber.WithSeats(dupIDs, dupNumbers)
	}

	for _, st := range seats {
		if st.ID == "" {
			st.ID = s.newID()
		}
		s.seats[st.ID] = st.Clone()
	}
	return nil
}

// GetByID はIDから座席を取得する
func (s *SeatStore) GetByID(_ context.Context, id string) (*seat.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.seats[id]
	if !ok {
		return nil, seat.ErrSeatNotFound.WithSeats([]string{id}, nil)
	}
	return st.Clone(), nil
}

// GetByEventID はイベントIDから座席一覧を取得する
func (s *SeatStore) GetByEventID(_ context.Context, eventID string, status seat.Status) ([]*seat.Seat, error) {
	return s.filter(func(st *seat.Seat) bool {
		return st.EventID == eventID && (status == "" || st.Status() == status)
	}), nil
}

// GetByOrderID は注文IDに割り当てられた座席一覧を取得する
func (s *SeatStore) GetByOrderID(_ context.Context, orderID string) ([]*seat.Seat, error) {
	return s.filter(func(st *seat.Seat) bool {
		return st.IsAllocatedTo(orderID)
	}), nil
}

// GetByIDsForUpdate は座席を一括取得する。見つからないIDは結果に含まれない
// ロックは lock.Coordinator が担うため、ここでは取得時点のコピーを返すだけ
func (s *SeatStore) GetByIDsForUpdate(_ context.Context, tx transaction.Tx, ids []string) ([]*seat.Seat, error) {
	if _, err := s.unwrap(tx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*seat.Seat, 0, len(ids))
	for _, id := range ids {
		if st, ok := s.seats[id]; ok {
			result = append(result, st.Clone())
		}
	}
	return result, nil
}

// UpdateBatch は座席の更新をトランザクションに積む
// 現在のバージョンと一致しない座席があれば何も積まずにエラーを返す
func (s *SeatStore) UpdateBatch(_ context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	t, err := s.unwrap(tx)
	if err != nil {
		return err
	}

	s.mu.RLock()
	for _, st := range seats {
		cur, ok := s.seats[st.ID]
		if !ok || cur.Version != st.Version {
			s.mu.RUnlock()
			return seat.ErrVersionConflict.WithSeats([]string{st.ID}, []string{st.SeatNumber})
		}
	}
	s.mu.RUnlock()

	for _, st := range seats {
		t.writes = append(t.writes, write{expected: st.Version, seat: st.Clone()})
		st.Version++
	}
	return nil
}

// FindExpiredReservedIDs は now より前に期限切れとなった仮押さえ座席のIDを期限の古い順に返す
func (s *SeatStore) FindExpiredReservedIDs(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	type candidate struct {
		id        string
		expiresAt time.Time
	}
	var found []candidate
	for _, st := range s.seats {
		if st.IsExpired(now) {
			found = append(found, candidate{id: st.ID, expiresAt: *st.ExpiresAt()})
		}
	}
	s.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		if !found[i].expiresAt.Equal(found[j].expiresAt) {
			return found[i].expiresAt.Before(found[j].expiresAt)
		}
		return found[i].id < found[j].id
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	ids := make([]string, len(found))
	for i, c := range found {
		ids[i] = c.id
	}
	return ids, nil
}

// Len は保持している座席数を返す
func (s *SeatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seats)
}

func (s *SeatStore) filter(match func(*seat.Seat) bool) []*seat.Seat {
	s.mu.RLock()
	result := make([]*seat.Seat, 0)
	for _, st := range s.seats {
		if match(st) {
			result = append(result, st.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.SeatNumber < b.SeatNumber
	})
	return result
}

func (s *SeatStore) unwrap(tx transaction.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, seat.Internal("このストアのトランザクションではありません", nil)
	}
	if t.done {
		return nil, seat.Internal("トランザクションは終了しています", nil)
	}
	return t, nil
}

func (s *SeatStore) commit(writes []write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		cur, ok := s.seats[w.seat.ID]
		if !ok || cur.Version != w.expected {
			return seat.ErrVersionConflict.WithSeats([]string{w.seat.ID}, []string{w.seat.SeatNumber})
		}
	}
	for _, w := range writes {
		next := w.seat.Clone()
		next.Version = w.expected + 1
		s.seats[next.ID] = next
	}
	return nil
}

type write struct {
	expected int
	seat     *seat.Seat
}

// Tx は SeatStore のトランザクション
type Tx struct {
	store  *SeatStore
	writes []write
	done   bool
}

// Commit は積まれた更新をまとめて反映する
func (t *Tx) Commit() error {
	if t.done {
		return seat.Internal("トランザクションは終了しています", nil)
	}
	t.done = true
	return t.store.commit(t.writes)
}

// Rollback は積まれた更新を破棄する。コミット済みの場合は何もしない
func (t *Tx) Rollback() error {
	t.done = true
	t.writes = nil
	return nil
}

var (
	_ seat.Repository     = (*SeatStore)(nil)
	_ transaction.Manager = (*SeatStore)(nil)
)
