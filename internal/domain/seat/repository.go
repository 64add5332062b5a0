package seat

import (
	"context"
	"time"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// Create は新しい座席を作成する
	Create(ctx context.Context, seat *Seat) error

	// CreateBulk は複数の座席を一括作成する
	CreateBulk(ctx context.Context, seats []*Seat) error

	// GetByID はIDから座席を取得する
	GetByID(ctx context.Context, id string) (*Seat, error)

	// GetByEventID はイベントIDから座席一覧を取得する（status が空なら全件）
	GetByEventID(ctx context.Context, eventID string, status Status) ([]*Seat, error)

	// GetByOrderID は注文IDに割り当てられた座席一覧を取得する
	GetByOrderID(ctx context.Context, orderID string) ([]*Seat, error)

	// GetByIDsForUpdate は座席を更新前提で一括取得する（トランザクション必須）
	// 見つからないIDは結果に含まれない
	GetByIDsForUpdate(ctx context.Context, tx transaction.Tx, ids []string) ([]*Seat, error)

	// UpdateBatch は座席をバージョン検査付きで一括更新する（トランザクション必須）
	// 成功した座席の Version は +1 される
	UpdateBatch(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// FindExpiredReservedIDs は now より前に期限切れとなった仮押さえ座席のIDを返す
	FindExpiredReservedIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}
