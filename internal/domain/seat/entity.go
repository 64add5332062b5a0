package seat

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusAllocated Status = "allocated"
	StatusBlocked   Status = "blocked"
)

// ParseStatus は文字列から Status を返す
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAvailable, StatusReserved, StatusAllocated, StatusBlocked:
		return st, nil
	}
	return "", Validation("不明な座席ステータスです: " + s)
}

// Category は座席種別を表す
type Category string

const (
	CategoryRegular Category = "regular"
	CategoryPremium Category = "premium"
	CategoryVIP     Category = "vip"
)

// State は座席の状態ごとに有効なフィールドだけを持つ閉じた variant
// 実装は Available / Reserved / Allocated / Blocked の4つのみ
type State interface {
	Status() Status
	sealed()
}

// Available は予約可能な状態
type Available struct{}

// Reserved は仮押さえ中の状態
type Reserved struct {
	HolderID   string
	ReservedAt time.Time
	ExpiresAt  time.Time
}

// Allocated は注文に確定割当された状態
// HolderID は仮押さえしていたユーザー（参考情報）
type Allocated struct {
	OrderID  string
	HolderID string
}

// Blocked は販売停止中の状態
type Blocked struct{}

func (Available) Status() Status { return StatusAvailable }
func (Reserved) Status() Status  { return StatusReserved }
func (Allocated) Status() Status { return StatusAllocated }
func (Blocked) Status() Status   { return StatusBlocked }

func (Available) sealed() {}
func (Reserved) sealed()  {}
func (Allocated) sealed() {}
func (Blocked) sealed()   {}

// Seat は座席エンティティを表す
type Seat struct {
	ID         string
	EventID    string
	SeatNumber string
	Row        string
	Section    string
	Category   Category
	Price      decimal.Decimal
	State      State
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int // 永続化のたびに +1（更新消失の検知用）
}

// NewSeat は新しい座席を作成する
func NewSeat(eventID, seatNumber, row, section string, category Category, price decimal.Decimal) *Seat {
	now := time.Now()
	if category == "" {
		category = CategoryRegular
	}
	return &Seat{
		EventID:    eventID,
		SeatNumber: seatNumber,
		Row:        row,
		Section:    section,
		Category:   category,
		Price:      price,
		State:      Available{},
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    0,
	}
}

// Status は現在の状態を返す
func (s *Seat) Status() Status {
	if s.State == nil {
		return StatusAvailable
	}
	return s.State.Status()
}

// IsAvailable は座席が予約可能かを返す
func (s *Seat) IsAvailable() bool {
	return s.Status() == StatusAvailable
}

// HolderID は仮押さえ・割当中のユーザーIDを返す
func (s *Seat) HolderID() *string {
	switch st := s.State.(type) {
	case Reserved:
		return &st.HolderID
	case Allocated:
		if st.HolderID != "" {
			return &st.HolderID
		}
	}
	return nil
}

// OrderID は割当先の注文IDを返す
func (s *Seat) OrderID() *string {
	if st, ok := s.State.(Allocated); ok {
		return &st.OrderID
	}
	return nil
}

// ReservedAt は仮押さえ日時を返す
func (s *Seat) ReservedAt() *time.Time {
	if st, ok := s.State.(Reserved); ok {
		return &st.ReservedAt
	}
	return nil
}

// ExpiresAt は仮押さえの有効期限を返す
func (s *Seat) ExpiresAt() *time.Time {
	if st, ok := s.State.(Reserved); ok {
		return &st.ExpiresAt
	}
	return nil
}

// IsExpired は仮押さえが now の時点で期限切れかを返す（期限ちょうどは有効）
func (s *Seat) IsExpired(now time.Time) bool {
	st, ok := s.State.(Reserved)
	return ok && st.ExpiresAt.Before(now)
}

// Reserve は座席を仮押さえ状態にする
func (s *Seat) Reserve(holderID string, now time.Time, ttl time.Duration) error {
	if !s.IsAvailable() {
		return ErrSeatNotAvailable
	}
	s.State = Reserved{HolderID: holderID, ReservedAt: now, ExpiresAt: now.Add(ttl)}
	s.UpdatedAt = now
	return nil
}

// Allocate は仮押さえ中の座席を注文に割り当てる
func (s *Seat) Allocate(orderID string, now time.Time) error {
	st, ok := s.State.(Reserved)
	if !ok {
		return ErrSeatNotReserved
	}
	s.State = Allocated{OrderID: orderID, HolderID: st.HolderID}
	s.UpdatedAt = now
	return nil
}

// IsAllocatedTo は座席が orderID に割当済みかを返す
func (s *Seat) IsAllocatedTo(orderID string) bool {
	st, ok := s.State.(Allocated)
	return ok && st.OrderID == orderID
}

// Release は座席を状態に関わらず解放する
func (s *Seat) Release(now time.Time) {
	s.State = Available{}
	s.UpdatedAt = now
}

// Block は予約可能な座席を販売停止にする
func (s *Seat) Block(now time.Time) error {
	if !s.IsAvailable() {
		return ErrSeatNotAvailable
	}
	s.State = Blocked{}
	s.UpdatedAt = now
	return nil
}

// Unblock は販売停止中の座席を予約可能に戻す
func (s *Seat) Unblock(now time.Time) error {
	if s.Status() != StatusBlocked {
		return ErrSeatNotBlocked
	}
	s.State = Available{}
	s.UpdatedAt = now
	return nil
}

// Clone は座席のコピーを返す（State は値型なので浅いコピーで十分）
func (s *Seat) Clone() *Seat {
	c := *s
	return &c
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.EventID == "" {
		return ErrEventIDRequired
	}
	if s.SeatNumber == "" {
		return ErrSeatNumberRequired
	}
	if s.Price.IsNegative() {
		return ErrInvalidPrice
	}
	switch s.Category {
	case CategoryRegular, CategoryPremium, CategoryVIP:
	default:
		return ErrInvalidCategory
	}
	return nil
}

// RestoreState は永続化された列から State を復元する
// 列の組み合わせが状態と矛盾する場合はエラーを返す
func RestoreState(status Status, holderID, orderID *string, reservedAt, expiresAt *time.Time) (State, error) {
	switch status {
	case StatusAvailable:
		if holderID != nil || orderID != nil || reservedAt != nil || expiresAt != nil {
			break
		}
		return Available{}, nil
	case StatusReserved:
		if holderID == nil || orderID != nil || reservedAt == nil || expiresAt == nil {
			break
		}
		return Reserved{HolderID: *holderID, ReservedAt: *reservedAt, ExpiresAt: *expiresAt}, nil
	case StatusAllocated:
		if orderID == nil || reservedAt != nil || expiresAt != nil {
			break
		}
		a := Allocated{OrderID: *orderID}
		if holderID != nil {
			a.HolderID = *holderID
		}
		return a, nil
	case StatusBlocked:
		if holderID != nil || orderID != nil || reservedAt != nil || expiresAt != nil {
			break
		}
		return Blocked{}, nil
	default:
		return nil, Internal("不明な座席ステータスです: "+string(status), nil)
	}
	return nil, Internal("座席の状態と列の値が矛盾しています: "+string(status), nil)
}
